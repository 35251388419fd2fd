// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "sync"

// Session holds at most one live Context and re-initializes it on demand.
// It is the controlled way to rebuild the rendering context, for example
// after the host recreates its window.
//
// The zero value is ready to use.
type Session struct {
	mu      sync.Mutex
	current *Context
}

// Open disposes the current Context, if any, then creates a new one with
// the given configuration. If the current Context cannot be disposed (an
// open frame or live textures) it is kept, and Open returns that error
// without creating anything.
func (s *Session) Open(cfg SurfaceConfig, opts ...Option) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.current.Dispose(); err != nil {
			return nil, err
		}
		s.current = nil
	}

	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.current = c
	return c, nil
}

// Current returns the live Context, or nil.
func (s *Session) Current() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close disposes the current Context. The Session can be reopened
// afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	if err := s.current.Dispose(); err != nil {
		return err
	}
	s.current = nil
	return nil
}
