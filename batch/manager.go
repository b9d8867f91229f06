package batch

import (
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/translate"
)

// MAX_APP_NUM is the largest number of applications in a table.
const MAX_APP_NUM = 16

// Memory is the physical memory the loader works on.
type Memory interface {
	io.ReaderAt
	io.WriterAt
	Fill(addr uint64, size uint64, value byte) error
	Copy(dst uint64, src uint64, n uint64) error
	FenceI()
}

// Shutdowner powers off the machine.
type Shutdowner interface {
	Shutdown(failure bool) error
}

// AppManager tracks the application table, and which application runs
// next.
type AppManager struct {
	numApp     int
	currentApp int
	appStart   [MAX_APP_NUM + 1]uint64
}

// NewAppManager reads the application table at addr: the number of
// applications, followed by one more boundary than applications.
func NewAppManager(r io.ReaderAt, addr uint64) (am *AppManager, err error) {
	var word [8]byte

	_, err = r.ReadAt(word[:], int64(addr))
	if err != nil {
		return
	}

	count := binary.LittleEndian.Uint64(word[:])
	if count > MAX_APP_NUM {
		err = ErrTooManyApps
		return
	}

	am = &AppManager{numApp: int(count)}

	for n := range am.numApp + 1 {
		_, err = r.ReadAt(word[:], int64(addr)+int64(8*(n+1)))
		if err != nil {
			am = nil
			return
		}
		am.appStart[n] = binary.LittleEndian.Uint64(word[:])
	}

	for n := range am.numApp {
		start, end := am.AppRange(n)
		switch {
		case end < start:
			err = &ErrApp{App: n, Err: ErrAppTable}
		case end-start > mem.APP_SIZE_LIMIT:
			err = &ErrApp{App: n, Err: ErrAppTooLarge}
		}
		if err != nil {
			am = nil
			return
		}
	}

	return
}

// NumApp returns the number of applications in the table.
func (am *AppManager) NumApp() int {
	return am.numApp
}

// CurrentApp returns the index of the next application to load.
func (am *AppManager) CurrentApp() int {
	return am.currentApp
}

// MoveToNextApp advances the current application. The index is not
// checked here; LoadApp does that.
func (am *AppManager) MoveToNextApp() {
	am.currentApp++
}

// AppRange returns the bounds of application id in the source region.
func (am *AppManager) AppRange(id int) (start uint64, end uint64) {
	return am.appStart[id], am.appStart[id+1]
}

// PrintAppInfo logs the application table.
func (am *AppManager) PrintAppInfo(logger *slog.Logger) {
	logger.Info(f("[kernel] num_app = %v", translate.Int(int64(am.numApp))))
	for n := range am.numApp {
		start, end := am.AppRange(n)
		logger.Info(f("[kernel] app_%v [%v, %v)", translate.Int(int64(n)), translate.Hex(start), translate.Hex(end)),
			"app", n, "size", end-start)
	}
}

// LoadApp copies application id into the execution window.
//
// The whole window is cleared first, so nothing of the previous
// application remains. Once every application has run, the machine
// is powered off and the error of Shutdown is returned.
func (am *AppManager) LoadApp(m Memory, platform Shutdowner, logger *slog.Logger, id int) (err error) {
	if id >= am.numApp {
		logger.Info(f("All applications completed!"))
		return platform.Shutdown(false)
	}

	logger.Info(f("[kernel] Loading app_%v", translate.Int(int64(id))), "app", id)

	err = m.Fill(mem.APP_BASE_ADDRESS, mem.APP_SIZE_LIMIT, 0)
	if err != nil {
		return
	}

	start, end := am.AppRange(id)
	err = m.Copy(mem.APP_BASE_ADDRESS, start, end-start)
	if err != nil {
		err = &ErrApp{App: id, Err: err}
		return
	}

	// New code is in the window; instruction fetch must see it.
	m.FenceI()

	return
}
