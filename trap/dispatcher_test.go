package trap

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/ubatch/mem"
)

type syscallRecord struct {
	id   uint64
	args [3]uint64
}

type fakeSyscalls struct {
	calls []syscallRecord
	ret   int64
	err   error
}

func (fs *fakeSyscalls) Syscall(id uint64, args [3]uint64) (ret int64, err error) {
	fs.calls = append(fs.calls, syscallRecord{id: id, args: args})
	return fs.ret, fs.err
}

type fakeLauncher struct {
	launched int
	frame    Frame
	err      error
}

func (fl *fakeLauncher) RunNextApp() (frame Frame, err error) {
	fl.launched++
	return fl.frame, fl.err
}

const testFrame = Frame(0x2000 - CONTEXT_SIZE)

func newDispatcher(t *testing.T) (d *Dispatcher, sys *fakeSyscalls, launcher *fakeLauncher, logs *bytes.Buffer) {
	m := &mem.Memory{}
	require.NoError(t, m.Map(mem.Region{Name: "kstack", Base: 0x1000, Data: make([]byte, 0x1000)}))

	sys = &fakeSyscalls{}
	launcher = &fakeLauncher{frame: Frame(0x1800)}
	logs = &bytes.Buffer{}

	d = &Dispatcher{
		Memory:   m,
		Syscalls: sys,
		Launcher: launcher,
		Logger:   slog.New(slog.NewTextHandler(logs, nil)),
	}

	return
}

func TestDispatcherSyscall(t *testing.T) {
	assert := assert.New(t)

	d, sys, launcher, _ := newDispatcher(t)
	sys.ret = -7

	cx := AppInitContext(0x8040_0000, 0x8020_5000)
	for n := range cx.X {
		cx.X[n] = uint64(n * 3)
	}
	cx.X[REG_A7] = 0x40
	cx.X[REG_A0] = 0xa
	cx.X[REG_A1] = 0xb
	cx.X[REG_A2] = 0xc
	cx.Sepc = 0x8040_0010
	before := cx

	assert.NoError(d.Syscall(&cx))

	assert.Equal([]syscallRecord{{id: 0x40, args: [3]uint64{0xa, 0xb, 0xc}}}, sys.calls)
	assert.Equal(uint64(0x8040_0014), cx.Sepc)
	assert.Equal(uint64(0xffff_ffff_ffff_fff9), cx.X[REG_A0])
	assert.Equal(before.Sstatus, cx.Sstatus)
	for n := range cx.X {
		if n != REG_A0 {
			assert.Equal(before.X[n], cx.X[n], "x%d", n)
		}
	}
	assert.Zero(launcher.launched)
}

func TestDispatcherHandleSyscall(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, sys, launcher, _ := newDispatcher(t)
	sys.ret = 5

	cx := AppInitContext(0x8040_0000, 0x8020_5000)
	cx.X[REG_A7] = 64
	cx.X[REG_A0] = 1
	require.NoError(cx.Store(d.Memory, testFrame))

	next, err := d.Handle(testFrame, CAUSE_USER_ENV_CALL, 0)
	assert.NoError(err)
	assert.Equal(testFrame, next)
	assert.Zero(launcher.launched)

	after, err := LoadContext(d.Memory, testFrame)
	require.NoError(err)
	assert.Equal(uint64(0x8040_0004), after.Sepc)
	assert.Equal(uint64(5), after.X[REG_A0])
	assert.Equal(PRIV_USER, after.Sstatus.SPP())
}

func TestDispatcherHandleFaults(t *testing.T) {
	table := [](struct {
		name  string
		cause Cause
		log   string
	}){
		{"store", CAUSE_STORE_FAULT, "PageFault in application"},
		{"store_page", CAUSE_STORE_PAGE_FAULT, "PageFault in application"},
		{"illegal", CAUSE_ILLEGAL_INSTRUCTION, "IllegalInstruction in application"},
		{"load", CAUSE_LOAD_FAULT, "AccessFault in application"},
		{"load_page", CAUSE_LOAD_PAGE_FAULT, "AccessFault in application"},
		{"fetch", CAUSE_INSTRUCTION_FAULT, "AccessFault in application"},
		{"fetch_page", CAUSE_INSTRUCTION_PAGE_FAULT, "AccessFault in application"},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			d, sys, launcher, logs := newDispatcher(t)

			cx := AppInitContext(0x8040_0000, 0x8020_5000)
			assert.NoError(cx.Store(d.Memory, testFrame))

			next, err := d.Handle(testFrame, entry.cause, 0x1234)
			assert.NoError(err)
			assert.Equal(Frame(0x1800), next)
			assert.Equal(1, launcher.launched)
			assert.Empty(sys.calls)
			assert.Contains(logs.String(), entry.log)
		})
	}
}

func TestDispatcherHandleKilled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, sys, launcher, logs := newDispatcher(t)
	sys.err = fmt.Errorf("exit 3: %w", ErrKilled)

	cx := AppInitContext(0x8040_0000, 0x8020_5000)
	require.NoError(cx.Store(d.Memory, testFrame))

	next, err := d.Handle(testFrame, CAUSE_USER_ENV_CALL, 0)
	assert.NoError(err)
	assert.Equal(Frame(0x1800), next)
	assert.Equal(1, launcher.launched)
	assert.Contains(logs.String(), "exit 3")
}

func TestDispatcherHandleFatal(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d, sys, launcher, _ := newDispatcher(t)

	cx := AppInitContext(0x8040_0000, 0x8020_5000)
	require.NoError(cx.Store(d.Memory, testFrame))

	_, err := d.Handle(testFrame, CAUSE_BREAKPOINT, 0x10)
	var unsupported *ErrUnsupportedTrap
	assert.ErrorAs(err, &unsupported)
	assert.Equal(CAUSE_BREAKPOINT, unsupported.Cause)
	assert.Equal(uint64(0x10), unsupported.Stval)
	assert.Contains(err.Error(), "Breakpoint")

	_, err = d.Handle(testFrame, CAUSE_LOAD_MISALIGNED, 0x11)
	assert.ErrorAs(err, &unsupported)

	_, err = d.Handle(testFrame, CAUSE_SUPERVISOR_TIMER, 0)
	assert.ErrorAs(err, &unsupported)
	assert.Zero(launcher.launched)

	// Fatal system call errors propagate.
	failure := errors.New("console gone")
	sys.err = failure
	_, err = d.Handle(testFrame, CAUSE_USER_ENV_CALL, 0)
	assert.ErrorIs(err, failure)
	assert.Zero(launcher.launched)

	// Launcher errors (such as power off) propagate.
	launcher.err = errors.New("powered off")
	_, err = d.Handle(testFrame, CAUSE_ILLEGAL_INSTRUCTION, 0)
	assert.ErrorIs(err, launcher.err)

	_, err = d.Handle(Frame(0x10), CAUSE_USER_ENV_CALL, 0)
	assert.Error(err)
}
