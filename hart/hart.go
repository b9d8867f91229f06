// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package hart

import (
	"log/slog"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

// Hart is a single RV64IM hart running user mode code on behalf of the
// kernel. It implements the trap entry and exit of the machine: Restore
// plays the part of sret, and every trap saves the user context on the
// kernel stack before returning to the caller.
type Hart struct {
	Verbose  bool         // If set, traces every instruction.
	Logger   *slog.Logger // Trace output.
	Memory   *mem.Memory  // Physical memory.
	MaxSteps int          // Instructions per Restore before ErrStepLimit; 0 is unlimited.

	X        [32]uint64 // Integer registers.
	Pc       uint64     // Program counter.
	Priv     trap.Privilege
	Sstatus  trap.Sstatus
	Sscratch uint64 // Kernel stack pointer while in user mode.

	Steps int // Instructions retired since creation.

	icache     map[uint64]uint32
	icacheSync uint64
}

var _ trap.Hart = (*Hart)(nil)

// NewHart creates a hart attached to memory m.
func NewHart(m *mem.Memory) (h *Hart) {
	h = &Hart{
		Memory: m,
		Priv:   trap.PRIV_SUPERVISOR,
	}

	h.flushIcache()

	return
}

func (h *Hart) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Hart) flushIcache() {
	h.icache = make(map[uint64]uint32)
	h.icacheSync = h.Memory.Generation()
}

// Restore resumes the context saved at frame, in the privilege it
// names, and runs until the next trap. The trapped context is saved
// below the kernel stack pointer that Restore left in sscratch, and
// that frame is returned with the trap cause and value.
func (h *Hart) Restore(frame trap.Frame) (saved trap.Frame, cause trap.Cause, stval uint64, err error) {
	cx, err := trap.LoadContext(h.Memory, frame)
	if err != nil {
		return
	}

	if cx.Sstatus.SPP() != trap.PRIV_USER {
		err = ErrSupervisorResume
		return
	}

	// sret
	h.X = cx.X
	h.X[0] = 0
	h.Pc = cx.Sepc
	h.Sstatus = cx.Sstatus
	h.Sscratch = uint64(frame) + trap.CONTEXT_SIZE
	h.Priv = trap.PRIV_USER

	var exc *Exception
	for steps := 0; exc == nil; steps++ {
		if h.MaxSteps > 0 && steps >= h.MaxSteps {
			err = &ErrStepLimit{Steps: steps, Pc: h.Pc}
			return
		}
		exc = h.Step()
	}

	// Trap entry: save the user context on the kernel stack.
	h.Priv = trap.PRIV_SUPERVISOR
	cx.X = h.X
	cx.Sstatus = h.Sstatus
	cx.Sstatus.SetSPP(trap.PRIV_USER)
	cx.Sepc = h.Pc

	saved = trap.Frame(h.Sscratch - trap.CONTEXT_SIZE)
	err = cx.Store(h.Memory, saved)
	if err != nil {
		return
	}

	if h.Verbose {
		h.logger().Debug("hart: trap", "cause", exc.Cause, "sepc", h.Pc, "stval", exc.Stval)
	}

	cause = exc.Cause
	stval = exc.Stval
	return
}

// fetch reads the instruction at pc through the instruction cache.
func (h *Hart) fetch(pc uint64) (inst uint32, exc *Exception) {
	if (pc & 3) != 0 {
		exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_MISALIGNED, Stval: pc}
		return
	}

	if h.Memory.Generation() != h.icacheSync {
		h.flushIcache()
	}

	inst, ok := h.icache[pc]
	if ok {
		return
	}

	if !h.Memory.Check(pc, 4, mem.PERM_X|mem.PERM_U) {
		exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_FAULT, Stval: pc}
		return
	}

	inst, err := h.Memory.ReadUint32(pc)
	if err != nil {
		exc = &Exception{Cause: trap.CAUSE_INSTRUCTION_FAULT, Stval: pc}
		return
	}

	h.icache[pc] = inst
	return
}

// Step executes one instruction in user mode. It returns the exception
// raised, if any; the pc is left at the trapping instruction.
func (h *Hart) Step() (exc *Exception) {
	inst, exc := h.fetch(h.Pc)
	if exc != nil {
		return
	}

	if h.Verbose {
		h.logger().Debug("hart", "pc", h.Pc, "inst", inst)
	}

	next, exc := h.execute(inst)
	if exc != nil {
		return
	}

	h.X[0] = 0
	h.Pc = next
	h.Steps++

	return
}
