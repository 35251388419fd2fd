// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"runtime"
	"sync/atomic"
)

// Handle is the identity of one native object together with its release
// function. Release runs at most once no matter how many times, or from
// how many goroutines, it is requested.
type Handle[ID ~uint64] struct {
	id       ID
	released atomic.Bool
	release  func(ID) error
}

func newHandle[ID ~uint64](id ID, release func(ID) error) *Handle[ID] {
	return &Handle[ID]{id: id, release: release}
}

// ID returns the native identity. It keeps its value after release so that
// logs can still name the object; use Valid before handing it to an engine.
func (h *Handle[ID]) ID() ID {
	return h.id
}

// Valid reports whether the handle names a live native object.
func (h *Handle[ID]) Valid() bool {
	return h.id != InvalidID && !h.released.Load()
}

// Released reports whether the native object has been released.
func (h *Handle[ID]) Released() bool {
	return h.released.Load()
}

// Release releases the native object. The first call runs the release
// function and reports fired = true; every later call is a no-op.
func (h *Handle[ID]) Release() (fired bool, err error) {
	if h.released.Swap(true) {
		return false, nil
	}
	if h.release == nil {
		return true, nil
	}
	return true, h.release(h.id)
}

// guard attaches a leak guard to owner: if owner becomes unreachable
// without its handle being released, the handle is released from the
// cleanup goroutine and a warning is logged. The handle must not reference
// owner.
func guard[T any, ID ~uint64](owner *T, h *Handle[ID], kind string) {
	runtime.AddCleanup(owner, func(h *Handle[ID]) {
		fired, err := h.Release()
		if !fired {
			return
		}
		Logger().Warn("kernel: leaked handle released by cleanup",
			"kind", kind, "id", uint64(h.id), "err", err)
	}, h)
}
