// Package hart simulates the RISC-V hart the batch kernel runs
// applications on.
//
// Only user mode is executed. The base RV64I integer instructions and
// the M extension are supported; CSR access other than the user
// counters, sret, wfi, and anything undecodable raise an illegal
// instruction trap. User accesses are checked against the memory region
// permissions, and raise access faults when denied.
//
// Instructions are fetched through an instruction cache that is only
// synchronized with memory by fence.i, or by the kernel's FenceI
// barrier.
//
// The encoders in asm.go build instruction words for applications.
package hart
