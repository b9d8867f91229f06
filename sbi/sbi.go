// Package sbi provides the platform services the kernel runs on: the
// console and power control.
package sbi

import (
	"errors"
	"io"

	"github.com/ezrec/ubatch/translate"
)

var f = translate.From

// ErrPoweredOff is returned by Shutdown. It must be passed up unchanged
// by every caller, as nothing runs after the machine is powered off.
var ErrPoweredOff = errors.New(f("powered off"))

// Platform is the supervisor binary interface of the machine.
type Platform struct {
	Console io.Writer // Console output. Discarded if nil.

	PoweredOff bool // Set by Shutdown.
	Failure    bool // Shutdown reason.
}

// ConsolePutchar writes one byte to the console.
func (p *Platform) ConsolePutchar(c byte) {
	p.Write([]byte{c})
}

// Write writes to the console.
func (p *Platform) Write(data []byte) (n int, err error) {
	if p.Console == nil {
		return len(data), nil
	}

	return p.Console.Write(data)
}

// Shutdown powers off the machine. It always returns ErrPoweredOff.
func (p *Platform) Shutdown(failure bool) error {
	p.PoweredOff = true
	p.Failure = failure

	return ErrPoweredOff
}
