package mem

import (
	"fmt"
	"iter"
	"maps"
)

// Physical layout of the machine. In hardware these are provided by the
// kernel linker script.
const (
	PAGE_SIZE = 0x1000 // Page size, and alignment of the stacks.

	KERNEL_STACK_BASE = 0x8020_1000 // Supervisor stack.
	KERNEL_STACK_SIZE = 0x2000
	USER_STACK_BASE   = 0x8020_3000 // User stack, shared by every app.
	USER_STACK_SIZE   = 0x2000
	APP_TABLE_BASE    = 0x8020_5000 // Application table, followed by the images.

	APP_BASE_ADDRESS = 0x8040_0000 // Execution window.
	APP_SIZE_LIMIT   = 0x2_0000    // Execution window size.
)

var _layout_defines = map[string]string{
	"PAGE_SIZE":         fmt.Sprintf("0x%x", PAGE_SIZE),
	"KERNEL_STACK_BASE": fmt.Sprintf("0x%x", KERNEL_STACK_BASE),
	"KERNEL_STACK_SIZE": fmt.Sprintf("0x%x", KERNEL_STACK_SIZE),
	"USER_STACK_BASE":   fmt.Sprintf("0x%x", USER_STACK_BASE),
	"USER_STACK_SIZE":   fmt.Sprintf("0x%x", USER_STACK_SIZE),
	"APP_TABLE_BASE":    fmt.Sprintf("0x%x", APP_TABLE_BASE),
	"APP_BASE_ADDRESS":  fmt.Sprintf("0x%x", APP_BASE_ADDRESS),
	"APP_SIZE_LIMIT":    fmt.Sprintf("0x%x", APP_SIZE_LIMIT),
}

// Defines returns the layout constants by name.
func Defines() iter.Seq2[string, string] {
	return maps.All(_layout_defines)
}

// NewMachineMemory builds the standard machine layout, with the
// application table blob placed read-only at APP_TABLE_BASE.
func NewMachineMemory(blob []byte) (m *Memory, err error) {
	m = &Memory{}

	regions := []Region{
		{Name: "kstack", Base: KERNEL_STACK_BASE, Data: make([]byte, KERNEL_STACK_SIZE), Perm: PERM_R | PERM_W},
		{Name: "ustack", Base: USER_STACK_BASE, Data: make([]byte, USER_STACK_SIZE), Perm: PERM_R | PERM_W | PERM_U},
		{Name: "apps", Base: APP_TABLE_BASE, Data: blob, Perm: PERM_R},
		{Name: "window", Base: APP_BASE_ADDRESS, Data: make([]byte, APP_SIZE_LIMIT), Perm: PERM_R | PERM_W | PERM_X | PERM_U},
	}

	for _, region := range regions {
		err = m.Map(region)
		if err != nil {
			return
		}
	}

	return
}
