// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package batch loads and launches applications one at a time.
//
// Applications are launched in table order, each into the same
// execution window, each starting on the same user stack. An
// application is never restarted: once it exits or is killed, the
// next one is loaded, and after the last one the machine powers off.
package batch

import (
	"log/slog"
	"sync"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

// Batch is the application loader.
type Batch struct {
	Memory      Memory
	Platform    Shutdowner
	Logger      *slog.Logger
	KernelStack KernelStack
	UserStack   UserStack

	mutex   sync.Mutex
	manager func() (*AppManager, error)
}

var _ trap.Launcher = (*Batch)(nil)

// NewBatch creates a loader for the application table at table. The
// table is read on first use.
func NewBatch(m Memory, platform Shutdowner, table uint64) (b *Batch) {
	b = &Batch{
		Memory:      m,
		Platform:    platform,
		KernelStack: KernelStack{Base: mem.KERNEL_STACK_BASE},
		UserStack:   UserStack{Base: mem.USER_STACK_BASE},
	}

	b.manager = sync.OnceValues(func() (am *AppManager, err error) {
		am, err = NewAppManager(b.Memory, table)
		if err != nil {
			return
		}
		am.PrintAppInfo(b.logger())
		return
	})

	return
}

func (b *Batch) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Init reads the application table. A malformed table is fatal.
func (b *Batch) Init() (err error) {
	_, err = b.manager()
	return
}

// exclusiveAccess runs fn while holding the application manager.
func (b *Batch) exclusiveAccess(fn func(am *AppManager) error) (err error) {
	am, err := b.manager()
	if err != nil {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	return fn(am)
}

// CurrentApp returns the index of the next application to launch.
func (b *Batch) CurrentApp() (current int, err error) {
	err = b.exclusiveAccess(func(am *AppManager) error {
		current = am.CurrentApp()
		return nil
	})
	return
}

// RunNextApp loads the current application, advances to the one after
// it, and returns the frame of its initial context. Restoring that
// frame starts the application.
func (b *Batch) RunNextApp() (frame trap.Frame, err error) {
	err = b.exclusiveAccess(func(am *AppManager) (err error) {
		err = am.LoadApp(b.Memory, b.Platform, b.logger(), am.CurrentApp())
		if err != nil {
			return
		}
		am.MoveToNextApp()
		return
	})
	if err != nil {
		return
	}

	cx := trap.AppInitContext(mem.APP_BASE_ADDRESS, b.UserStack.SP())
	frame, err = b.KernelStack.PushContext(b.Memory, cx)
	return
}
