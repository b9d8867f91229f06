package batch

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/sbi"
	"github.com/ezrec/ubatch/trap"
)

const tableAddr = 0x8000

func makeTable(words ...uint64) (data []byte) {
	for _, word := range words {
		data = binary.LittleEndian.AppendUint64(data, word)
	}
	return
}

// newMachine maps the source region at 0x1000 holding two applications
// of 0x100 and 0x200 bytes, and a table bounding them.
func newMachine(t *testing.T, table []byte) (m *mem.Memory, src []byte) {
	require := require.New(t)

	src = make([]byte, 0x300)
	for n := range src {
		src[n] = byte(n%251) + 1
	}

	window := bytes.Repeat([]byte{0xee}, mem.APP_SIZE_LIMIT)

	m = &mem.Memory{}
	require.NoError(m.Map(mem.Region{Name: "src", Base: 0x1000, Data: src}))
	require.NoError(m.Map(mem.Region{Name: "table", Base: tableAddr, Data: table}))
	require.NoError(m.Map(mem.Region{Name: "kstack", Base: mem.KERNEL_STACK_BASE, Data: make([]byte, mem.KERNEL_STACK_SIZE)}))
	require.NoError(m.Map(mem.Region{Name: "window", Base: mem.APP_BASE_ADDRESS, Data: window}))

	return
}

func newBatch(m *mem.Memory) (b *Batch, platform *sbi.Platform, logs *bytes.Buffer) {
	platform = &sbi.Platform{}
	logs = &bytes.Buffer{}

	b = NewBatch(m, platform, tableAddr)
	b.Logger = slog.New(slog.NewTextHandler(logs, nil))

	return
}

func windowBytes(t *testing.T, m *mem.Memory) []byte {
	window, ok := m.Region("window")
	require.True(t, ok)
	return window.Data
}

func TestAppManager(t *testing.T) {
	assert := assert.New(t)

	m, _ := newMachine(t, makeTable(2, 0x1000, 0x1100, 0x1300))

	am, err := NewAppManager(m, tableAddr)
	assert.NoError(err)
	assert.Equal(2, am.NumApp())
	assert.Equal(0, am.CurrentApp())

	start, end := am.AppRange(1)
	assert.Equal(uint64(0x1100), start)
	assert.Equal(uint64(0x1300), end)

	for n := range 5 {
		assert.Equal(n, am.CurrentApp())
		am.MoveToNextApp()
	}
	assert.Equal(5, am.CurrentApp())
}

func TestAppManagerMalformed(t *testing.T) {
	assert := assert.New(t)

	m, _ := newMachine(t, makeTable(MAX_APP_NUM+1, 0x1000))
	_, err := NewAppManager(m, tableAddr)
	assert.ErrorIs(err, ErrTooManyApps)

	m, _ = newMachine(t, makeTable(2, 0x1000, 0x1100, 0x1050))
	_, err = NewAppManager(m, tableAddr)
	assert.ErrorIs(err, ErrAppTable)

	m, _ = newMachine(t, makeTable(1, 0x1000, 0x1000+mem.APP_SIZE_LIMIT+1))
	_, err = NewAppManager(m, tableAddr)
	assert.ErrorIs(err, ErrAppTooLarge)

	// Table shorter than its count claims.
	m, _ = newMachine(t, makeTable(3, 0x1000, 0x1100))
	_, err = NewAppManager(m, tableAddr)
	assert.Error(err)

	m, _ = newMachine(t, makeTable(0, 0x1000))
	am, err := NewAppManager(m, tableAddr)
	assert.NoError(err)
	assert.Equal(0, am.NumApp())
}

func TestLoadApp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m, src := newMachine(t, makeTable(2, 0x1000, 0x1100, 0x1300))
	am, err := NewAppManager(m, tableAddr)
	require.NoError(err)

	platform := &sbi.Platform{}
	logger := slog.New(slog.DiscardHandler)

	for _, id := range []int{1, 0} {
		generation := m.Generation()
		require.NoError(am.LoadApp(m, platform, logger, id))
		assert.Equal(generation+1, m.Generation())

		start, end := am.AppRange(id)
		size := end - start
		expected := make([]byte, mem.APP_SIZE_LIMIT)
		copy(expected, src[start-0x1000:end-0x1000])

		window := windowBytes(t, m)
		assert.Equal(expected[:size], window[:size])
		assert.Equal(expected, window, "app_%d", id)
	}

	assert.False(platform.PoweredOff)
}

func TestRunNextApp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m, src := newMachine(t, makeTable(2, 0x1000, 0x1100, 0x1300))
	b, platform, logs := newBatch(m)

	require.NoError(b.Init())
	assert.Contains(logs.String(), "num_app = 2")
	assert.Contains(logs.String(), "app_1 [0x1100, 0x1300)")

	current, err := b.CurrentApp()
	assert.NoError(err)
	assert.Equal(0, current)

	// app_0
	frame, err := b.RunNextApp()
	require.NoError(err)
	assert.Equal(trap.Frame(mem.KERNEL_STACK_BASE+mem.KERNEL_STACK_SIZE-trap.CONTEXT_SIZE), frame)

	window := windowBytes(t, m)
	assert.Equal(src[:0x100], window[:0x100])
	assert.Equal(make([]byte, mem.APP_SIZE_LIMIT-0x100), window[0x100:])

	current, _ = b.CurrentApp()
	assert.Equal(1, current)

	cx, err := trap.LoadContext(m, frame)
	require.NoError(err)
	assert.Equal(trap.AppInitContext(mem.APP_BASE_ADDRESS, mem.USER_STACK_BASE+mem.USER_STACK_SIZE), *cx)

	// app_1, as after a fault in app_0
	frame2, err := b.RunNextApp()
	require.NoError(err)
	assert.Equal(frame, frame2)
	assert.Equal(src[0x100:0x300], window[:0x200])
	assert.Equal(make([]byte, mem.APP_SIZE_LIMIT-0x200), window[0x200:])

	current, _ = b.CurrentApp()
	assert.Equal(2, current)
	assert.False(platform.PoweredOff)

	// Exhausted.
	_, err = b.RunNextApp()
	assert.ErrorIs(err, sbi.ErrPoweredOff)
	assert.True(platform.PoweredOff)
	assert.False(platform.Failure)
	assert.Contains(logs.String(), "All applications completed!")

	// The window still holds app_1; nothing was loaded.
	assert.Equal(src[0x100:0x300], window[:0x200])
}

func TestRunNextAppMalformed(t *testing.T) {
	assert := assert.New(t)

	m, _ := newMachine(t, makeTable(MAX_APP_NUM+5, 0x1000))
	b, platform, _ := newBatch(m)

	_, err := b.RunNextApp()
	assert.ErrorIs(err, ErrTooManyApps)
	assert.ErrorIs(b.Init(), ErrTooManyApps)
	assert.False(platform.PoweredOff)
}

func TestStacks(t *testing.T) {
	assert := assert.New(t)

	ks := KernelStack{Base: mem.KERNEL_STACK_BASE}
	us := UserStack{Base: mem.USER_STACK_BASE}

	assert.Equal(uint64(mem.KERNEL_STACK_BASE+KERNEL_STACK_SIZE), ks.SP())
	assert.Equal(uint64(mem.USER_STACK_BASE+USER_STACK_SIZE), us.SP())
	assert.Zero(ks.SP() % mem.PAGE_SIZE)
	assert.Zero(us.SP() % mem.PAGE_SIZE)

	// Not mapped.
	frame, err := ks.PushContext(&mem.Memory{}, trap.Context{})
	assert.Error(err)
	assert.Zero(frame)
}
