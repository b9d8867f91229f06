package syscall

import (
	"github.com/ezrec/ubatch/translate"
	"github.com/ezrec/ubatch/trap"
)

var f = translate.From

// ErrExit is returned by the exit system call.
type ErrExit struct {
	Code int32
}

func (err *ErrExit) Error() string {
	return f("Application exited with code %v", translate.Int(int64(err.Code)))
}

func (err *ErrExit) Unwrap() error {
	return trap.ErrKilled
}

// ErrUnsupportedSyscall is an unknown call identifier. The caller is
// killed.
type ErrUnsupportedSyscall struct {
	Id uint64
}

func (err *ErrUnsupportedSyscall) Error() string {
	return f("Unsupported syscall_id: %v", translate.Uint(err.Id))
}

func (err *ErrUnsupportedSyscall) Unwrap() error {
	return trap.ErrKilled
}

// ErrUnsupportedFd is a write to an unknown file descriptor. It is
// fatal.
type ErrUnsupportedFd uint64

func (err ErrUnsupportedFd) Error() string {
	return f("Unsupported fd %v in sys_write!", translate.Uint(uint64(err)))
}
