package trap

import (
	"errors"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

var (
	// ErrKilled is wrapped by system call errors that end the calling
	// application. The dispatcher moves on to the next application.
	ErrKilled = errors.New(f("application killed"))
)

// ErrContextSize is a saved context of the wrong length.
type ErrContextSize int

func (err ErrContextSize) Error() string {
	return f("context is %v bytes, expected %v", translate.Int(int64(err)), translate.Int(CONTEXT_SIZE))
}

// ErrUnsupportedTrap is a trap the kernel cannot handle. It is fatal.
type ErrUnsupportedTrap struct {
	Cause Cause
	Stval uint64
}

func (err *ErrUnsupportedTrap) Error() string {
	return f("Unsupported trap %v, stval = %v!", err.Cause, translate.Hex(err.Stval))
}
