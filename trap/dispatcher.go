// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package trap

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// INSTRUCTION_WIDTH is the size of the ecall instruction.
const INSTRUCTION_WIDTH = 4

// Syscaller executes system calls on behalf of the running application.
type Syscaller interface {
	Syscall(id uint64, args [3]uint64) (ret int64, err error)
}

// Launcher replaces the running application with the next one. The
// returned frame is the initial context of that application.
type Launcher interface {
	RunNextApp() (frame Frame, err error)
}

// Hart crosses the privilege boundary. Restore resumes the context saved
// at frame and runs until the next trap, which it reports together with
// the frame the trapped context was saved to.
type Hart interface {
	Restore(frame Frame) (saved Frame, cause Cause, stval uint64, err error)
}

// Memory holds saved contexts.
type Memory interface {
	io.ReaderAt
	io.WriterAt
}

// Dispatcher classifies traps from user mode.
type Dispatcher struct {
	Memory   Memory
	Syscalls Syscaller
	Launcher Launcher
	Logger   *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Syscall performs the system call requested by cx: the call identifier
// is in a7, the arguments in a0..a2, and the result is returned in a0.
// The resume address is moved past the ecall.
func (d *Dispatcher) Syscall(cx *Context) (err error) {
	cx.Sepc += INSTRUCTION_WIDTH

	ret, err := d.Syscalls.Syscall(cx.X[REG_A7], [3]uint64{cx.X[REG_A0], cx.X[REG_A1], cx.X[REG_A2]})
	if err != nil {
		return
	}

	cx.X[REG_A0] = uint64(ret)
	return
}

// kill discards the running application and launches the next one.
func (d *Dispatcher) kill(level slog.Level, msg string, attrs ...any) (next Frame, err error) {
	d.logger().Log(context.Background(), level, msg, attrs...)
	return d.Launcher.RunNextApp()
}

// Handle processes a trap taken with the context saved at frame. It
// returns the frame to restore: frame itself when the application
// resumes, or the initial frame of the next application when the
// trapping one was killed.
//
// Errors are fatal to the machine. sbi.ErrPoweredOff is returned once
// the last application is gone.
func (d *Dispatcher) Handle(frame Frame, cause Cause, stval uint64) (next Frame, err error) {
	cx, err := LoadContext(d.Memory, frame)
	if err != nil {
		return
	}

	switch cause {
	case CAUSE_USER_ENV_CALL:
		err = d.Syscall(cx)
		if errors.Is(err, ErrKilled) {
			return d.kill(slog.LevelInfo, f("[kernel] %v", err))
		}
		if err != nil {
			return
		}
		err = cx.Store(d.Memory, frame)
		if err != nil {
			return
		}
		next = frame
	case CAUSE_STORE_FAULT, CAUSE_STORE_PAGE_FAULT:
		return d.kill(slog.LevelWarn, f("[kernel] PageFault in application, kernel killed it."),
			"sepc", cx.Sepc, "stval", stval)
	case CAUSE_LOAD_FAULT, CAUSE_LOAD_PAGE_FAULT,
		CAUSE_INSTRUCTION_FAULT, CAUSE_INSTRUCTION_PAGE_FAULT:
		return d.kill(slog.LevelWarn, f("[kernel] AccessFault in application, kernel killed it."),
			"cause", cause, "sepc", cx.Sepc, "stval", stval)
	case CAUSE_ILLEGAL_INSTRUCTION:
		return d.kill(slog.LevelWarn, f("[kernel] IllegalInstruction in application, kernel killed it."),
			"sepc", cx.Sepc, "stval", stval)
	default:
		err = &ErrUnsupportedTrap{Cause: cause, Stval: stval}
	}

	return
}
