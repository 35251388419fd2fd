// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel is the boundary layer between a Go host application and a
// native rendering engine.
//
// # Overview
//
// kernel hands out opaque handles to native resources (the rendering
// context, textures and chunk meshes) and exposes a two-phase frame
// protocol for UI rendering:
//
//	ctx, err := kernel.New(kernel.SurfaceConfig{Width: 800, Height: 600})
//	if err != nil {
//	    return err
//	}
//	defer ctx.Dispose()
//
//	tex, err := ctx.Resources().CreateTextureWithData(kernel.TextureDescriptor{
//	    Width: 256, Height: 256, Layers: 1,
//	    Dimension: kernel.Dimension2D,
//	    Format:    kernel.FormatRGBA8Unorm,
//	}, pixels)
//	if err != nil {
//	    return err
//	}
//	defer tex.Dispose()
//
//	if err := ctx.Prepare(); err != nil {
//	    return err
//	}
//	ui := ctx.Recorder()
//	ui.SetCrop(nil)
//	ui.DrawTexture(tex, kernel.R(0, 0, 1, 1), kernel.R(0, 0, 256, 256))
//	err = ctx.Dispatch()
//
// # Engines
//
// The native side is reached through the [Engine] interface. Engines are
// registered by name (see [RegisterEngine]) by importing a backend package:
//
//	import _ "github.com/gogpu/kernel/backend/gpu"   // "gpu-headless" engine
//	import _ "github.com/gogpu/kernel/backend/dylib" // "dylib" engine
//
// A specific engine instance can also be injected with [WithEngine].
//
// # Lifecycle
//
// A [Context] moves through Uninitialized (no surface bound), Live,
// Prepared (between [Context.Prepare] and [Context.Dispatch]) and Disposed.
// Every native object is released at most once: a second Dispose is a no-op.
// A Context refuses to dispose while textures or geometry created through
// it are still live, so a native identity is never released under a
// dependent. Finalizer-style cleanups exist only as a leak guard.
//
// # Concurrency
//
// Every operation on a Context and on the resources created through it is
// serialised by one submission lock per Context. The frame protocol itself
// is still meant to run from a single goroutine: interleaving Prepare,
// draw commands and Dispatch from several goroutines is well-defined but
// produces an unpredictable command order.
package kernel

// Version is the current version of the library.
const Version = "0.1.0"
