package syscall

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/trap"
)

func newHandler(t *testing.T) (h *Handler, m *mem.Memory, out *bytes.Buffer) {
	m, err := mem.NewMachineMemory(make([]byte, 16))
	require.NoError(t, err)

	out = &bytes.Buffer{}
	h = &Handler{
		Memory:  m,
		Console: out,
		Logger:  slog.New(slog.DiscardHandler),
	}

	return
}

func TestSyscallWrite(t *testing.T) {
	assert := assert.New(t)

	h, m, out := newHandler(t)

	msg := []byte("Hello, world!\n")
	_, err := m.WriteAt(msg, mem.APP_BASE_ADDRESS+0x100)
	assert.NoError(err)

	ret, err := h.Syscall(SYSCALL_WRITE, [3]uint64{FD_STDOUT, mem.APP_BASE_ADDRESS + 0x100, uint64(len(msg))})
	assert.NoError(err)
	assert.Equal(int64(len(msg)), ret)
	assert.Equal(string(msg), out.String())

	// From the user stack.
	_, err = m.WriteAt([]byte("ok"), mem.USER_STACK_BASE+0x10)
	assert.NoError(err)
	ret, err = h.Syscall(SYSCALL_WRITE, [3]uint64{FD_STDOUT, mem.USER_STACK_BASE + 0x10, 2})
	assert.NoError(err)
	assert.Equal(int64(2), ret)

	ret, err = h.Syscall(SYSCALL_WRITE, [3]uint64{FD_STDOUT, 0, 0})
	assert.NoError(err)
	assert.Zero(ret)
}

func TestSyscallWriteBadBuffer(t *testing.T) {
	assert := assert.New(t)

	h, _, out := newHandler(t)

	table := []struct {
		name string
		buf  uint64
		size uint64
	}{
		{"kernel_stack", mem.KERNEL_STACK_BASE, 8},
		{"app_table", mem.APP_TABLE_BASE, 8},
		{"unmapped", 0x1000, 8},
		{"past_window", mem.APP_BASE_ADDRESS + mem.APP_SIZE_LIMIT - 4, 8},
	}

	for _, entry := range table {
		ret, err := h.Syscall(SYSCALL_WRITE, [3]uint64{FD_STDOUT, entry.buf, entry.size})
		assert.NoError(err, entry.name)
		assert.Equal(int64(-1), ret, entry.name)
	}
	assert.Zero(out.Len())
}

func TestSyscallWriteBadFd(t *testing.T) {
	assert := assert.New(t)

	h, _, _ := newHandler(t)

	_, err := h.Syscall(SYSCALL_WRITE, [3]uint64{2, mem.APP_BASE_ADDRESS, 1})
	assert.Equal(ErrUnsupportedFd(2), err)
	assert.NotErrorIs(err, trap.ErrKilled)
}

func TestSyscallExit(t *testing.T) {
	assert := assert.New(t)

	h, _, _ := newHandler(t)

	_, err := h.Syscall(SYSCALL_EXIT, [3]uint64{uint64(0xffff_ffff_ffff_fffd), 0, 0})
	assert.ErrorIs(err, trap.ErrKilled)

	var exit *ErrExit
	assert.ErrorAs(err, &exit)
	assert.Equal(int32(-3), exit.Code)
	assert.Contains(err.Error(), "exited with code")
}

func TestSyscallUnsupported(t *testing.T) {
	assert := assert.New(t)

	h, _, _ := newHandler(t)

	_, err := h.Syscall(1234, [3]uint64{})
	assert.ErrorIs(err, trap.ErrKilled)

	var unsupported *ErrUnsupportedSyscall
	assert.ErrorAs(err, &unsupported)
	assert.Equal(uint64(1234), unsupported.Id)
	assert.Equal("Unsupported syscall_id: 1234", err.Error())

	exit := &ErrExit{Code: 1234}
	assert.Equal("Application exited with code 1234", exit.Error())
}

func TestSyscallDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for key, value := range Defines() {
		defines[key] = value
	}
	assert.Equal("64", defines["SYSCALL_WRITE"])
	assert.Equal("93", defines["SYSCALL_EXIT"])
}
