package batch

import (
	"errors"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

var (
	ErrTooManyApps = errors.New(f("too many applications"))
	ErrAppTable    = errors.New(f("application table malformed"))
	ErrAppTooLarge = errors.New(f("application larger than the execution window"))
)

// ErrApp is an error concerning a single application of the table.
type ErrApp struct {
	App int
	Err error
}

func (err *ErrApp) Error() string {
	return f("app_%v: %v", translate.Int(int64(err.App)), err.Err)
}

func (err *ErrApp) Unwrap() error {
	return err.Err
}
