// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package apps builds the demonstration applications of the batch.
package apps

import (
	"github.com/ezrec/ubatch/hart"
)

const (
	POWER_BASE    = 3
	POWER_MODULUS = 998244353
	POWER_ITER    = 20000
)

// App is a named application image.
type App struct {
	Name   string
	Binary []byte
}

// HelloWorld prints a greeting and exits with code 0.
func HelloWorld() []byte {
	b := &builder{}
	b.print("Hello, world!\n")
	b.exit(0)
	return b.binary()
}

// StoreFault stores to address zero, and is killed.
func StoreFault() []byte {
	b := &builder{}
	b.print("Into Test store_fault, we will insert an invalid store operation...\n")
	b.print("Kernel should kill this application!\n")
	b.Emit(hart.SD(hart.ZERO, hart.ZERO, 0))
	b.exit(0)
	return b.binary()
}

// Power computes POWER_BASE to the POWER_ITER, modulo POWER_MODULUS,
// and checks the result.
func Power() []byte {
	b := &builder{}

	b.Emit(hart.LI(hart.T0, 1)...)
	b.Emit(hart.LI(hart.T1, POWER_BASE)...)
	b.Emit(hart.LI(hart.T2, POWER_MODULUS)...)
	b.Emit(hart.LI(hart.S0, POWER_ITER)...)
	loop := b.Emit(hart.MUL(hart.T0, hart.T0, hart.T1))
	b.Emit(hart.REMU(hart.T0, hart.T0, hart.T2))
	b.Emit(hart.ADDI(hart.S0, hart.S0, -1))
	b.Emit(hart.BNE(hart.S0, hart.ZERO, loop-b.Here()))

	b.Emit(hart.LI(hart.S1, int32(PowerResult()))...)
	check := b.Emit(hart.NOP())
	b.print("Test power OK!\n")
	b.exit(0)

	fail := b.Here()
	b.Patch(check, hart.BNE(hart.T0, hart.S1, fail-check))
	b.print("Test power FAILED!\n")
	b.exit(1)

	return b.binary()
}

// PowerResult is the value the Power application computes.
func PowerResult() (acc uint64) {
	acc = 1
	for range POWER_ITER {
		acc = acc * POWER_BASE % POWER_MODULUS
	}
	return
}

// PrivilegedInstruction executes sret from user mode, and is killed.
func PrivilegedInstruction() []byte {
	b := &builder{}
	b.print("Try to execute privileged instruction in U Mode\n")
	b.print("Kernel should kill this application!\n")
	b.Emit(hart.SRET())
	b.exit(0)
	return b.binary()
}

// PrivilegedCsr writes sstatus from user mode, and is killed.
func PrivilegedCsr() []byte {
	b := &builder{}
	b.print("Try to access privileged CSR in U Mode\n")
	b.print("Kernel should kill this application!\n")
	b.Emit(hart.CSRRW(hart.ZERO, hart.CSR_SSTATUS, hart.ZERO))
	b.exit(0)
	return b.binary()
}

// All returns the demonstration batch, in run order.
func All() []App {
	return []App{
		{Name: "hello_world", Binary: HelloWorld()},
		{Name: "store_fault", Binary: StoreFault()},
		{Name: "power", Binary: Power()},
		{Name: "priv_inst", Binary: PrivilegedInstruction()},
		{Name: "priv_csr", Binary: PrivilegedCsr()},
	}
}

// Binaries returns the images of apps.
func Binaries(apps []App) (binaries [][]byte) {
	for _, app := range apps {
		binaries = append(binaries, app.Binary)
	}
	return
}
