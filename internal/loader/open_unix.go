// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build darwin || linux

package loader

import "github.com/ebitengine/purego"

func open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_GLOBAL|purego.RTLD_LAZY)
}

func lookup(handle uintptr, symbol string) (uintptr, error) {
	return purego.Dlsym(handle, symbol)
}

func bind(fptr any, addr uintptr) error {
	purego.RegisterFunc(fptr, addr)
	return nil
}
