package hart

import (
	"errors"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

var (
	ErrSupervisorResume = errors.New(f("context resumes in supervisor mode"))
)

// ErrStepLimit is returned when an application runs for longer than
// the hart allows without trapping.
type ErrStepLimit struct {
	Steps int
	Pc    uint64
}

func (err *ErrStepLimit) Error() string {
	return f("step limit of %v reached at pc %v", translate.Int(int64(err.Steps)), translate.Hex(err.Pc))
}
