// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dylib

import (
	"sync"

	"github.com/gogpu/kernel"
	"github.com/gogpu/kernel/internal/loader"
)

// Name is the registry name of the dynamic-library engine.
const Name = "dylib"

// Priority places a native library above the headless fallback.
const Priority = 100

var (
	defaultMu  sync.RWMutex
	defaultCfg LibraryConfig
)

// Configure sets the library configuration used when the engine is opened
// from the kernel registry.
func Configure(cfg LibraryConfig) {
	defaultMu.Lock()
	defaultCfg = cfg
	defaultMu.Unlock()
}

func registryConfig() LibraryConfig {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	cfg := defaultCfg
	cfg.Paths = append([]string(nil), cfg.Paths...)
	return cfg
}

func init() {
	kernel.RegisterEngine(Name, Priority, func() (kernel.Engine, error) {
		e, err := Open(registryConfig())
		if err != nil {
			return nil, err
		}
		return e, nil
	}, func() bool {
		cfg := registryConfig()
		_, err := loader.Find(cfg.name(), cfg.Paths)
		return err == nil
	})
}
