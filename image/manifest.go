package image

import (
	"os"
	"path/filepath"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ubatch/internal"
	"github.com/ezrec/ubatch/mem"
	"github.com/ezrec/ubatch/syscall"
)

// Manifest names the applications of a batch, in run order.
type Manifest struct {
	Apps     []string // Paths of the raw application binaries.
	MaxSteps int      // Hart step limit; zero for none.
}

// Predeclared returns the names visible to manifests: the machine layout
// and the system call numbers.
func Predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}
	defines := internal.Concat(mem.Defines(), syscall.Defines())
	for name, value := range internal.Integers(defines) {
		pred[name] = starlark.MakeUint64(value)
	}
	return
}

// ParseManifest evaluates manifest source. Relative application paths
// are resolved against dir.
func ParseManifest(filename string, src any, dir string) (manifest *Manifest, err error) {
	thread := starlark.Thread{Name: filename}
	opts := syntax.FileOptions{}

	dict, err := starlark.ExecFileOptions(&opts, &thread, filename, src, Predeclared())
	if err != nil {
		err = &ErrManifest{Path: filename, Err: err}
		return
	}

	manifest = &Manifest{}

	st_apps, ok := dict["apps"]
	if !ok {
		err = &ErrManifest{Path: filename, Err: ErrManifestApps}
		return
	}
	st_iter, ok := st_apps.(starlark.Iterable)
	if !ok {
		err = &ErrManifest{Path: filename, Err: ErrManifestApps}
		return
	}
	it := st_iter.Iterate()
	defer it.Done()
	var st_app starlark.Value
	for it.Next(&st_app) {
		path, ok := starlark.AsString(st_app)
		if !ok {
			err = &ErrManifest{Path: filename, Err: ErrManifestApps}
			return
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		manifest.Apps = append(manifest.Apps, path)
	}

	st_steps, ok := dict["max_steps"]
	if ok {
		var steps int
		steps, err = starlark.AsInt32(st_steps)
		if err != nil || steps < 0 {
			err = &ErrManifest{Path: filename, Err: ErrManifestMaxSteps}
			return
		}
		manifest.MaxSteps = steps
	}

	return
}

// LoadManifest evaluates the manifest file at path.
func LoadManifest(path string) (manifest *Manifest, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return
	}

	return ParseManifest(path, src, filepath.Dir(path))
}

// ReadApps reads the application binaries at paths.
func ReadApps(paths []string) (apps [][]byte, err error) {
	for _, path := range paths {
		var app []byte
		app, err = os.ReadFile(path)
		if err != nil {
			return
		}
		apps = append(apps, app)
	}
	return
}
