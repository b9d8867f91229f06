package kernel

import (
	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

// ErrRuntime indicates the application running when a fatal error
// occurred.
type ErrRuntime struct {
	App int
	Err error
}

func (err *ErrRuntime) Error() string {
	return f("app_%v: %v", translate.Int(int64(err.App)), err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
