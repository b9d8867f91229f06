package trap

import (
	"fmt"
)

// Cause is the value of the scause register.
type Cause uint64

// CAUSE_INTERRUPT is set in scause for asynchronous traps.
const CAUSE_INTERRUPT = Cause(1 << 63)

const (
	CAUSE_INSTRUCTION_MISALIGNED = Cause(0)  // Instruction address misaligned.
	CAUSE_INSTRUCTION_FAULT      = Cause(1)  // Instruction access fault.
	CAUSE_ILLEGAL_INSTRUCTION    = Cause(2)  // Illegal instruction.
	CAUSE_BREAKPOINT             = Cause(3)  // Breakpoint.
	CAUSE_LOAD_MISALIGNED        = Cause(4)  // Load address misaligned.
	CAUSE_LOAD_FAULT             = Cause(5)  // Load access fault.
	CAUSE_STORE_MISALIGNED       = Cause(6)  // Store address misaligned.
	CAUSE_STORE_FAULT            = Cause(7)  // Store access fault.
	CAUSE_USER_ENV_CALL          = Cause(8)  // Environment call from U-mode.
	CAUSE_SUPERVISOR_ENV_CALL    = Cause(9)  // Environment call from S-mode.
	CAUSE_INSTRUCTION_PAGE_FAULT = Cause(12) // Instruction page fault.
	CAUSE_LOAD_PAGE_FAULT        = Cause(13) // Load page fault.
	CAUSE_STORE_PAGE_FAULT       = Cause(15) // Store page fault.
)

const (
	CAUSE_SUPERVISOR_SOFT  = CAUSE_INTERRUPT | Cause(1) // Supervisor software interrupt.
	CAUSE_SUPERVISOR_TIMER = CAUSE_INTERRUPT | Cause(5) // Supervisor timer interrupt.
	CAUSE_SUPERVISOR_EXT   = CAUSE_INTERRUPT | Cause(9) // Supervisor external interrupt.
)

var _cause_names = map[Cause]string{
	CAUSE_INSTRUCTION_MISALIGNED: "InstructionMisaligned",
	CAUSE_INSTRUCTION_FAULT:      "InstructionFault",
	CAUSE_ILLEGAL_INSTRUCTION:    "IllegalInstruction",
	CAUSE_BREAKPOINT:             "Breakpoint",
	CAUSE_LOAD_MISALIGNED:        "LoadMisaligned",
	CAUSE_LOAD_FAULT:             "LoadFault",
	CAUSE_STORE_MISALIGNED:       "StoreMisaligned",
	CAUSE_STORE_FAULT:            "StoreFault",
	CAUSE_USER_ENV_CALL:          "UserEnvCall",
	CAUSE_SUPERVISOR_ENV_CALL:    "SupervisorEnvCall",
	CAUSE_INSTRUCTION_PAGE_FAULT: "InstructionPageFault",
	CAUSE_LOAD_PAGE_FAULT:        "LoadPageFault",
	CAUSE_STORE_PAGE_FAULT:       "StorePageFault",
	CAUSE_SUPERVISOR_SOFT:        "SupervisorSoft",
	CAUSE_SUPERVISOR_TIMER:       "SupervisorTimer",
	CAUSE_SUPERVISOR_EXT:         "SupervisorExternal",
}

// Interrupt returns true for asynchronous causes.
func (c Cause) Interrupt() bool {
	return (c & CAUSE_INTERRUPT) != 0
}

func (c Cause) String() string {
	name, ok := _cause_names[c]
	if ok {
		if c.Interrupt() {
			return "Interrupt(" + name + ")"
		}
		return "Exception(" + name + ")"
	}

	if c.Interrupt() {
		return fmt.Sprintf("Interrupt(Unknown(%d))", uint64(c&^CAUSE_INTERRUPT))
	}
	return fmt.Sprintf("Exception(Unknown(%d))", uint64(c))
}
