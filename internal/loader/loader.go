// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package loader finds and loads native engine libraries.
//
// Libraries follow the naming convention lib<name>-<os>-<arch>.<ext>, for
// example libkernel-linux-amd64.so. A library is searched in this order:
//
//  1. name itself, if it is an absolute path
//  2. each configured search directory
//  3. each directory of the system loader path variable
//     (LD_LIBRARY_PATH, DYLD_LIBRARY_PATH or PATH)
//  4. the platform loader with the bare file name
//
// Every attempt is logged. A library is loaded at most once per process;
// later loads of the same name return the same *Library.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/kernel"
)

// ErrNotFound is returned when no candidate file exists.
var ErrNotFound = errors.New("loader: library not found")

// NotFoundError lists the locations searched for a library.
type NotFoundError struct {
	Name     string
	File     string
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("loader: %s (%s) not found in %s", e.Name, e.File, strings.Join(e.Searched, string(os.PathListSeparator)))
}

// Is reports ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Options configures a load.
type Options struct {
	// Paths are searched before the system loader path.
	Paths []string

	// Logger receives one record per attempt. Nil uses kernel.Logger().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return kernel.Logger()
}

// Library is a loaded native library.
type Library struct {
	Name string

	// Path is the file that was loaded, or the bare file name when the
	// platform loader resolved it.
	Path string

	handle uintptr
}

// Handle returns the platform library handle.
func (l *Library) Handle() uintptr {
	return l.handle
}

// Bind resolves symbol and binds it to the function pointed to by fptr.
func (l *Library) Bind(fptr any, symbol string) error {
	addr, err := lookup(l.handle, symbol)
	if err != nil {
		return fmt.Errorf("loader: %s: symbol %s: %w", l.Name, symbol, err)
	}
	return bind(fptr, addr)
}

// FileName returns the platform file name of the library called name.
func FileName(name string) string {
	return fmt.Sprintf("lib%s-%s-%s%s", name, runtime.GOOS, runtime.GOARCH, extension(runtime.GOOS))
}

func extension(goos string) string {
	switch goos {
	case "windows":
		return ".dll"
	case "darwin", "ios":
		return ".dylib"
	default:
		return ".so"
	}
}

// SystemPathVar returns the name of the environment variable the platform
// loader searches.
func SystemPathVar() string {
	switch runtime.GOOS {
	case "windows":
		return "PATH"
	case "darwin", "ios":
		return "DYLD_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// SystemPaths returns the directories of the system loader path variable.
func SystemPaths() []string {
	return filepath.SplitList(os.Getenv(SystemPathVar()))
}

// Find returns the path of the library called name. An absolute name is
// returned if it is readable. Otherwise paths, then the system loader
// path, are searched for FileName(name).
func Find(name string, paths []string) (string, error) {
	return find(name, paths, nil)
}

func find(name string, paths []string, log *slog.Logger) (string, error) {
	if filepath.IsAbs(name) {
		if readable(name) {
			return name, nil
		}
		return "", &NotFoundError{Name: name, File: name, Searched: []string{filepath.Dir(name)}}
	}

	file := FileName(name)
	dirs := append(append([]string(nil), paths...), SystemPaths()...)
	var searched []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, file)
		searched = append(searched, dir)
		if readable(p) {
			return p, nil
		}
		if log != nil {
			log.Debug("loader: not found", "file", file, "dir", dir)
		}
	}
	return "", &NotFoundError{Name: name, File: file, Searched: searched}
}

func readable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

type loadEntry struct {
	once sync.Once
	lib  *Library
	err  error
}

var (
	loadMu sync.Mutex
	loaded = map[string]*loadEntry{}

	// openLibrary opens a file with the platform loader. Tests replace it.
	openLibrary = open
)

// Load finds and opens the library called name. The first call for a name
// does the work; later calls return its result, including a failure.
func Load(name string, opts Options) (*Library, error) {
	loadMu.Lock()
	e, ok := loaded[name]
	if !ok {
		e = &loadEntry{}
		loaded[name] = e
	}
	loadMu.Unlock()

	e.once.Do(func() {
		e.lib, e.err = load(name, opts)
	})
	return e.lib, e.err
}

func load(name string, opts Options) (*Library, error) {
	log := opts.logger()
	log.Info("loader: loading library", "name", name)

	path, err := find(name, opts.Paths, log)
	if err == nil {
		h, oerr := openLibrary(path)
		if oerr != nil {
			return nil, fmt.Errorf("loader: open %s: %w", path, oerr)
		}
		log.Info("loader: loaded", "name", name, "path", path)
		return &Library{Name: name, Path: path, handle: h}, nil
	}
	if filepath.IsAbs(name) {
		return nil, err
	}

	// Last resort: let the platform loader resolve the bare file name.
	file := FileName(name)
	h, oerr := openLibrary(file)
	if oerr != nil {
		log.Error("loader: failed to locate library", "name", name, "file", file)
		return nil, errors.Join(err, fmt.Errorf("loader: open %s: %w", file, oerr))
	}
	log.Info("loader: loaded from platform loader path", "name", name, "file", file)
	return &Library{Name: name, Path: file, handle: h}, nil
}
