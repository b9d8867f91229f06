package batch

import (
	"io"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

const (
	KERNEL_STACK_SIZE = mem.KERNEL_STACK_SIZE
	USER_STACK_SIZE   = mem.USER_STACK_SIZE
)

// KernelStack is the supervisor stack. Every trap and every launch
// starts from its top.
type KernelStack struct {
	Base uint64
}

// SP returns the top of the stack.
func (ks *KernelStack) SP() uint64 {
	return ks.Base + KERNEL_STACK_SIZE
}

// PushContext saves cx at the top of the stack, and returns its frame.
func (ks *KernelStack) PushContext(w io.WriterAt, cx trap.Context) (frame trap.Frame, err error) {
	frame = trap.Frame(ks.SP() - trap.CONTEXT_SIZE)
	err = cx.Store(w, frame)
	if err != nil {
		frame = 0
	}

	return
}

// UserStack is the stack applications start on.
type UserStack struct {
	Base uint64
}

// SP returns the top of the stack.
func (us *UserStack) SP() uint64 {
	return us.Base + USER_STACK_SIZE
}
