// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !(darwin || linux || windows)

package loader

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("loader: native libraries are not supported on " + runtime.GOOS)

func open(string) (uintptr, error) { return 0, errUnsupported }

func lookup(uintptr, string) (uintptr, error) { return 0, errUnsupported }

func bind(any, uintptr) error { return errUnsupported }
