package trap

import (
	"encoding/binary"
	"io"
)

// Register slots of the RISC-V integer register file.
const (
	REG_ZERO = 0  // x0, hardwired zero.
	REG_RA   = 1  // x1, return address.
	REG_SP   = 2  // x2, stack pointer.
	REG_A0   = 10 // x10, first argument and return value.
	REG_A1   = 11 // x11
	REG_A2   = 12 // x12
	REG_A7   = 17 // x17, system call identifier.
)

const (
	CONTEXT_WORDS = 32 + 2            // x0..x31, sstatus, sepc
	CONTEXT_SIZE  = CONTEXT_WORDS * 8 // Bytes of a saved Context.
)

// Privilege is a RISC-V privilege level.
type Privilege int

const (
	PRIV_USER       = Privilege(0)
	PRIV_SUPERVISOR = Privilege(1)
)

// Sstatus is the supervisor status register.
type Sstatus uint64

const (
	SSTATUS_SIE  = Sstatus(1 << 1) // Supervisor interrupt enable.
	SSTATUS_SPIE = Sstatus(1 << 5) // Prior SIE.
	SSTATUS_SPP  = Sstatus(1 << 8) // Prior privilege; set for supervisor.
)

// SPP returns the privilege sret will resume in.
func (s Sstatus) SPP() Privilege {
	if (s & SSTATUS_SPP) != 0 {
		return PRIV_SUPERVISOR
	}
	return PRIV_USER
}

// SetSPP sets the privilege sret will resume in.
func (s *Sstatus) SetSPP(priv Privilege) {
	if priv == PRIV_SUPERVISOR {
		*s |= SSTATUS_SPP
	} else {
		*s &^= SSTATUS_SPP
	}
}

// Context is the execution state saved on the kernel stack when a trap
// is taken, and restored when returning to user mode.
//
// The in-memory layout is CONTEXT_WORDS little endian words, in field
// order. The trap entry and exit code of the hart depend on it.
type Context struct {
	X       [32]uint64 // General purpose registers.
	Sstatus Sstatus    // Status, including the privilege to resume in.
	Sepc    uint64     // Resume address.
}

// SetSp sets the stack pointer.
func (cx *Context) SetSp(sp uint64) {
	cx.X[REG_SP] = sp
}

// AppInitContext builds the context an application starts from: all
// registers zero except sp, resuming in user mode at entry.
func AppInitContext(entry uint64, sp uint64) (cx Context) {
	cx.Sstatus.SetSPP(PRIV_USER)
	cx.Sepc = entry
	cx.SetSp(sp)

	return
}

// MarshalBinary encodes the context in its saved layout.
func (cx *Context) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 0, CONTEXT_SIZE)
	for _, x := range cx.X {
		data = binary.LittleEndian.AppendUint64(data, x)
	}
	data = binary.LittleEndian.AppendUint64(data, uint64(cx.Sstatus))
	data = binary.LittleEndian.AppendUint64(data, cx.Sepc)

	return
}

// UnmarshalBinary decodes a context from its saved layout.
func (cx *Context) UnmarshalBinary(data []byte) (err error) {
	if len(data) != CONTEXT_SIZE {
		err = ErrContextSize(len(data))
		return
	}

	for n := range cx.X {
		cx.X[n] = binary.LittleEndian.Uint64(data[n*8:])
	}
	cx.Sstatus = Sstatus(binary.LittleEndian.Uint64(data[32*8:]))
	cx.Sepc = binary.LittleEndian.Uint64(data[33*8:])

	return
}

// Frame is the physical address of a Context saved on the kernel stack.
type Frame uint64

// LoadContext reads the context saved at frame.
func LoadContext(r io.ReaderAt, frame Frame) (cx *Context, err error) {
	data := make([]byte, CONTEXT_SIZE)
	_, err = r.ReadAt(data, int64(frame))
	if err != nil {
		return
	}

	cx = &Context{}
	err = cx.UnmarshalBinary(data)
	if err != nil {
		cx = nil
	}

	return
}

// Store writes the context at frame.
func (cx *Context) Store(w io.WriterAt, frame Frame) (err error) {
	data, err := cx.MarshalBinary()
	if err != nil {
		return
	}

	_, err = w.WriteAt(data, int64(frame))
	return
}
