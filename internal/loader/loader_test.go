// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package loader

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeOpen replaces the platform loader for one test and counts opens.
func fakeOpen(t *testing.T, fail func(path string) bool) *[]string {
	t.Helper()
	var opened []string
	prev := openLibrary
	openLibrary = func(path string) (uintptr, error) {
		opened = append(opened, path)
		if fail != nil && fail(path) {
			return 0, errors.New("dlopen failed")
		}
		return uintptr(len(opened)), nil
	}
	t.Cleanup(func() {
		openLibrary = prev
		loadMu.Lock()
		loaded = map[string]*loadEntry{}
		loadMu.Unlock()
	})
	return &opened
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("lib"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return p
}

func TestFileName(t *testing.T) {
	got := FileName("kernel")
	if !strings.HasPrefix(got, "libkernel-"+runtime.GOOS+"-"+runtime.GOARCH) {
		t.Errorf("FileName = %s, want lib<name>-<os>-<arch> prefix", got)
	}
	if ext := filepath.Ext(got); ext != extension(runtime.GOOS) {
		t.Errorf("extension = %s, want %s", ext, extension(runtime.GOOS))
	}
	for goos, want := range map[string]string{"windows": ".dll", "darwin": ".dylib", "linux": ".so", "freebsd": ".so"} {
		if got := extension(goos); got != want {
			t.Errorf("extension(%s) = %s, want %s", goos, got, want)
		}
	}
}

// TestFindOrder verifies configured directories win over the system path.
func TestFindOrder(t *testing.T) {
	configured, system := t.TempDir(), t.TempDir()
	want := touch(t, configured, FileName("engine"))
	touch(t, system, FileName("engine"))
	t.Setenv(SystemPathVar(), system)

	got, err := Find("engine", []string{t.TempDir(), configured})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got != want {
		t.Errorf("Find = %s, want %s", got, want)
	}
}

func TestFindSystemPath(t *testing.T) {
	system := t.TempDir()
	want := touch(t, system, FileName("engine"))
	t.Setenv(SystemPathVar(), system)

	got, err := Find("engine", nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got != want {
		t.Errorf("Find = %s, want %s", got, want)
	}
}

func TestFindAbsolute(t *testing.T) {
	p := touch(t, t.TempDir(), "custom.so")
	if got, err := Find(p, nil); err != nil || got != p {
		t.Errorf("Find(%s) = %s, %v", p, got, err)
	}
	if _, err := Find(p+".missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find missing absolute = %v, want ErrNotFound", err)
	}
}

func TestFindNotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(SystemPathVar(), "")

	_, err := Find("engine", []string{dir})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Find error = %v, want *NotFoundError", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError is not ErrNotFound")
	}
	if len(nf.Searched) != 1 || nf.Searched[0] != dir || nf.File != FileName("engine") {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

// TestLoadOnce verifies a library is opened once per process.
func TestLoadOnce(t *testing.T) {
	opened := fakeOpen(t, nil)
	dir := t.TempDir()
	want := touch(t, dir, FileName("once"))

	a, err := Load("once", Options{Paths: []string{dir}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	b, err := Load("once", Options{})
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if a != b {
		t.Error("second Load returned a different *Library")
	}
	if len(*opened) != 1 || a.Path != want {
		t.Errorf("opened = %v, path = %s, want one open of %s", *opened, a.Path, want)
	}
}

// TestLoadPlatformFallback verifies the bare file name is handed to the
// platform loader when no directory holds the library.
func TestLoadPlatformFallback(t *testing.T) {
	opened := fakeOpen(t, nil)
	t.Setenv(SystemPathVar(), "")

	lib, err := Load("fallback", Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if lib.Path != FileName("fallback") || len(*opened) != 1 {
		t.Errorf("Path = %s, opened = %v", lib.Path, *opened)
	}
}

func TestLoadFailure(t *testing.T) {
	fakeOpen(t, func(string) bool { return true })
	t.Setenv(SystemPathVar(), "")

	_, err := Load("missing", Options{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound in chain", err)
	}
	if _, again := Load("missing", Options{}); again == nil {
		t.Error("second Load of a failed library succeeded")
	}
}
