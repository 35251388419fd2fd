// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package loader

import (
	"syscall"

	"github.com/ebitengine/purego"
)

func open(path string) (uintptr, error) {
	h, err := syscall.LoadLibrary(path)
	return uintptr(h), err
}

func lookup(handle uintptr, symbol string) (uintptr, error) {
	return syscall.GetProcAddress(syscall.Handle(handle), symbol)
}

func bind(fptr any, addr uintptr) error {
	purego.RegisterFunc(fptr, addr)
	return nil
}
