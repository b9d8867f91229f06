// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package kernel boots the batch machine and runs its applications to
// completion.
package kernel

import (
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/ezrec/ubatch/batch"
	"github.com/ezrec/ubatch/hart"
	"github.com/ezrec/ubatch/image"
	"github.com/ezrec/ubatch/internal"
	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/sbi"
	"github.com/ezrec/ubatch/syscall"
	"github.com/ezrec/ubatch/trap"
)

// Config describes a batch.
type Config struct {
	Apps     [][]byte     // Application images, in run order.
	MaxSteps int          // Instructions an application may run between traps; 0 is unlimited.
	Verbose  bool         // If set, traces every instruction.
	Console  io.Writer    // Application output.
	Logger   *slog.Logger // Kernel diagnostics.
}

// Kernel state. Memory + hart + the batch loader and trap handling.
type Kernel struct {
	Logger     *slog.Logger
	Memory     *mem.Memory
	Platform   *sbi.Platform
	Batch      *batch.Batch
	Syscalls   *syscall.Handler
	Dispatcher *trap.Dispatcher
	Hart       *hart.Hart

	Traps int // Traps handled since boot.

	booted bool
	frame  trap.Frame
}

// NewKernel links the applications of config into memory, and attaches
// the kernel services to it.
func NewKernel(config Config) (k *Kernel, err error) {
	blob, err := image.Link(config.Apps, mem.APP_TABLE_BASE)
	if err != nil {
		return
	}

	m, err := mem.NewMachineMemory(blob)
	if err != nil {
		return
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	k = &Kernel{
		Logger:   logger,
		Memory:   m,
		Platform: &sbi.Platform{Console: config.Console},
		Hart:     hart.NewHart(m),
	}

	k.Batch = batch.NewBatch(m, k.Platform, mem.APP_TABLE_BASE)
	k.Batch.Logger = logger

	k.Syscalls = &syscall.Handler{
		Memory:  m,
		Console: k.Platform,
		Logger:  logger,
	}

	k.Dispatcher = &trap.Dispatcher{
		Memory:   m,
		Syscalls: k.Syscalls,
		Launcher: k.Batch,
		Logger:   logger,
	}

	k.Hart.Logger = logger
	k.Hart.Verbose = config.Verbose
	k.Hart.MaxSteps = config.MaxSteps

	return
}

// Defines returns an iterator over the machine defines.
func (k *Kernel) Defines() iter.Seq2[string, string] {
	return internal.Concat(mem.Defines(), syscall.Defines())
}

// Boot reads the application table and launches the first application.
func (k *Kernel) Boot() (err error) {
	k.Logger.Info(f("[kernel] Hello, world!"))

	err = k.Batch.Init()
	if err != nil {
		return
	}

	k.frame, err = k.Batch.RunNextApp()
	if err != nil {
		return
	}

	k.booted = true
	return
}

// Tick runs the current application until its next trap, and handles
// that trap. done is set once the machine has powered off.
func (k *Kernel) Tick() (done bool, err error) {
	if k.Platform.PoweredOff {
		done = true
		return
	}

	defer func() {
		if errors.Is(err, sbi.ErrPoweredOff) {
			err = nil
			done = true
			return
		}
		if err != nil {
			err = &ErrRuntime{App: k.runningApp(), Err: err}
		}
	}()

	if !k.booted {
		err = k.Boot()
		return
	}

	saved, cause, stval, err := k.Hart.Restore(k.frame)
	if err != nil {
		return
	}

	k.Traps++
	k.frame, err = k.Dispatcher.Handle(saved, cause, stval)
	return
}

// runningApp is the index of the last application launched.
func (k *Kernel) runningApp() int {
	current, err := k.Batch.CurrentApp()
	if err != nil {
		return 0
	}
	return max(current-1, 0)
}

// Run runs every application of the batch, then powers off. The error
// returned, if any, is fatal.
func (k *Kernel) Run() (err error) {
	for {
		var done bool
		done, err = k.Tick()
		if done || err != nil {
			return
		}
	}
}
