// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gogpu/kernel"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "kernel.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Surface.Width != 800 || cfg.Surface.Height != 600 || !cfg.Surface.Headless || !cfg.LeakGuard {
		t.Errorf("defaults = %+v", cfg)
	}
	sc := cfg.SurfaceConfig()
	if sc.Handles == nil || sc.Handles.Kind != kernel.WindowHeadless || sc.Backend != kernel.BackendAuto {
		t.Errorf("SurfaceConfig = %+v", sc)
	}
}

func TestLoadFile(t *testing.T) {
	p := writeFile(t, `
engine:
  name: gpu-headless
surface:
  width: 1024
  height: 768
  backend: vulkan
  headless: false
library:
  name: terakernel
  paths: [/opt/kernel/lib, /usr/local/lib]
log:
  level: debug
  format: json
leak_guard: false
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Name != "gpu-headless" || cfg.Surface.Width != 1024 || cfg.LeakGuard {
		t.Errorf("cfg = %+v", cfg)
	}
	if !slices.Equal(cfg.Library.Paths, []string{"/opt/kernel/lib", "/usr/local/lib"}) {
		t.Errorf("Library.Paths = %v", cfg.Library.Paths)
	}
	sc := cfg.SurfaceConfig()
	if sc.Handles != nil || sc.Backend != kernel.BackendVulkan {
		t.Errorf("SurfaceConfig = %+v, want deferred vulkan surface", sc)
	}
	if level, _ := cfg.Log.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want DEBUG", level)
	}
	if got := len(cfg.Options()); got != 2 {
		t.Errorf("Options = %d, want 2", got)
	}
}

// TestLoadEnvOverrides verifies the environment wins over the file.
func TestLoadEnvOverrides(t *testing.T) {
	p := writeFile(t, "surface:\n  width: 1024\n  height: 768\n")
	t.Setenv("KERNEL_SURFACE_WIDTH", "1920")
	t.Setenv("KERNEL_LIBRARY_PATHS", "/a,/b")
	t.Setenv("KERNEL_TELEMETRY_ENDPOINT", "localhost:4318")
	t.Setenv("KERNEL_LOG_LEVEL", "warn")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Surface.Width != 1920 || cfg.Surface.Height != 768 {
		t.Errorf("surface = %dx%d, want 1920x768", cfg.Surface.Width, cfg.Surface.Height)
	}
	if !slices.Equal(cfg.Library.Paths, []string{"/a", "/b"}) {
		t.Errorf("Library.Paths = %v", cfg.Library.Paths)
	}
	if cfg.Telemetry.Endpoint != "localhost:4318" || cfg.Log.Level != "warn" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"zero width", "surface:\n  width: 0\n", nil},
		{"unknown backend", "surface:\n  backend: glide\n", nil},
		{"bad log level", "log:\n  level: loud\n", nil},
		{"bad log format", "log:\n  format: xml\n", nil},
		{"malformed yaml", "surface: [", nil},
		{"bad env width", "", map[string]string{"KERNEL_SURFACE_WIDTH": "wide"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}
