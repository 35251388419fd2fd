// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// WindowKind identifies the platform windowing system of a surface.
type WindowKind uint8

const (
	// WindowHeadless binds an offscreen target with no platform window.
	WindowHeadless WindowKind = iota

	// WindowX11 binds an Xlib display and window.
	WindowX11

	// WindowWin32 binds a Win32 module instance and window.
	WindowWin32
)

// String returns the window kind name.
func (k WindowKind) String() string {
	switch k {
	case WindowHeadless:
		return "Headless"
	case WindowX11:
		return "X11"
	case WindowWin32:
		return "Win32"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PlatformHandles carries the raw platform identities of a surface. kernel
// never creates or owns windows; the host supplies these values.
type PlatformHandles struct {
	Kind WindowKind

	// Display is the Xlib Display* for X11, or the HINSTANCE for Win32.
	Display uintptr

	// Window is the X11 Window id, or the HWND for Win32.
	Window uintptr
}

// X11Handles returns handles for an Xlib display and window.
func X11Handles(display, window uintptr) PlatformHandles {
	return PlatformHandles{Kind: WindowX11, Display: display, Window: window}
}

// Win32Handles returns handles for a Win32 module instance and window.
func Win32Handles(hinstance, hwnd uintptr) PlatformHandles {
	return PlatformHandles{Kind: WindowWin32, Display: hinstance, Window: hwnd}
}

// HeadlessHandles returns handles for an offscreen surface.
func HeadlessHandles() PlatformHandles {
	return PlatformHandles{Kind: WindowHeadless}
}

// Validate reports whether the handles can be bound.
func (h PlatformHandles) Validate() error {
	switch h.Kind {
	case WindowHeadless:
		return nil
	case WindowX11:
		if h.Display == 0 || h.Window == 0 {
			return fmt.Errorf("%w: X11 surface needs a display and a window", ErrInvalidSurface)
		}
	case WindowWin32:
		if h.Window == 0 {
			return fmt.Errorf("%w: Win32 surface needs a window", ErrInvalidSurface)
		}
	default:
		return fmt.Errorf("%w: window kind %s", ErrInvalidSurface, h.Kind)
	}
	return nil
}

// BackendKind is the graphics API the engine should use.
type BackendKind uint8

const (
	// BackendAuto lets the engine pick.
	BackendAuto BackendKind = iota
	BackendVulkan
	BackendMetal
	BackendDX12
	BackendGL
	BackendSoftware
)

var backendNames = [...]string{
	BackendAuto:     "auto",
	BackendVulkan:   "vulkan",
	BackendMetal:    "metal",
	BackendDX12:     "dx12",
	BackendGL:       "gl",
	BackendSoftware: "software",
}

// String returns the lower-case backend name.
func (b BackendKind) String() string {
	if int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("unknown(%d)", int(b))
}

// ParseBackend returns the BackendKind named s.
func ParseBackend(s string) (BackendKind, error) {
	if s == "" {
		return BackendAuto, nil
	}
	for i, name := range backendNames {
		if name == s {
			return BackendKind(i), nil
		}
	}
	return BackendAuto, fmt.Errorf("kernel: unknown backend %q", s)
}

// SurfaceConfig describes the surface a Context renders to.
type SurfaceConfig struct {
	// Label is an optional debug name passed to the engine.
	Label string

	// Width and Height are the initial surface extents in pixels.
	Width  uint32
	Height uint32

	Backend BackendKind

	// Handles binds the platform surface at creation. Nil defers binding
	// to Context.InitializeSurface.
	Handles *PlatformHandles
}

func (c SurfaceConfig) validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: extents %dx%d", ErrInvalidSurface, c.Width, c.Height)
	}
	if c.Handles != nil {
		return c.Handles.Validate()
	}
	return nil
}
