// Package syscall implements the system calls applications may make.
//
// The call identifier is passed in a7 and up to three arguments in
// a0..a2; the result is returned in a0.
package syscall

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

const (
	SYSCALL_WRITE = 64
	SYSCALL_EXIT  = 93
)

const (
	FD_STDOUT = 1
)

var _syscall_defines = map[string]string{
	"SYSCALL_WRITE": fmt.Sprintf("%d", SYSCALL_WRITE),
	"SYSCALL_EXIT":  fmt.Sprintf("%d", SYSCALL_EXIT),
	"FD_STDOUT":     fmt.Sprintf("%d", FD_STDOUT),
}

// Defines returns the system call numbers by name.
func Defines() iter.Seq2[string, string] {
	return maps.All(_syscall_defines)
}

// UserMemory is the memory applications pass buffers in.
type UserMemory interface {
	Check(addr uint64, size uint64, perm mem.Perm) bool
	Bytes(addr uint64, size uint64) ([]byte, error)
}

// Handler dispatches system calls by identifier.
type Handler struct {
	Memory  UserMemory
	Console io.Writer
	Logger  *slog.Logger
}

var _ trap.Syscaller = (*Handler)(nil)

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Syscall executes system call id.
func (h *Handler) Syscall(id uint64, args [3]uint64) (ret int64, err error) {
	switch id {
	case SYSCALL_WRITE:
		return h.sysWrite(args[0], args[1], args[2])
	case SYSCALL_EXIT:
		return h.sysExit(int32(args[0]))
	}

	err = &ErrUnsupportedSyscall{Id: id}
	return
}

// sysWrite writes size bytes of user memory at buf to fd.
func (h *Handler) sysWrite(fd uint64, buf uint64, size uint64) (ret int64, err error) {
	if fd != FD_STDOUT {
		err = ErrUnsupportedFd(fd)
		return
	}

	if size == 0 {
		return
	}

	if !h.Memory.Check(buf, size, mem.PERM_R|mem.PERM_U) {
		h.logger().Warn(f("[kernel] sys_write: buffer outside of the application"),
			"buf", buf, "len", size)
		ret = -1
		return
	}

	data, err := h.Memory.Bytes(buf, size)
	if err != nil {
		return
	}

	n, err := h.Console.Write(data)
	ret = int64(n)
	return
}

// sysExit ends the calling application.
func (h *Handler) sysExit(code int32) (ret int64, err error) {
	err = &ErrExit{Code: code}
	return
}
