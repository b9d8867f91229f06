package mem

import (
	"errors"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

var (
	ErrRegionEmpty   = errors.New(f("region empty"))
	ErrRegionWraps   = errors.New(f("region wraps the address space"))
	ErrRegionOverlap = errors.New(f("region overlaps another region"))
)

// ErrUnmapped is an access outside of every region.
type ErrUnmapped uint64

func (err ErrUnmapped) Error() string {
	return f("address %v unmapped", translate.Hex(uint64(err)))
}

// ErrRegion is an error mapping a region.
type ErrRegion struct {
	Name string
	Err  error
}

func (err *ErrRegion) Error() string {
	return f("region %v: %v", err.Name, err.Err)
}

func (err *ErrRegion) Unwrap() error {
	return err.Err
}
