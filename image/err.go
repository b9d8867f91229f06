package image

import (
	"errors"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

var (
	ErrManifestApps     = errors.New(f("manifest 'apps' must be a list of paths"))
	ErrManifestMaxSteps = errors.New(f("manifest 'max_steps' must be a non-negative integer"))
)

// ErrManifest is an error in a manifest file.
type ErrManifest struct {
	Path string
	Err  error
}

func (err *ErrManifest) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrManifest) Unwrap() error {
	return err.Err
}
