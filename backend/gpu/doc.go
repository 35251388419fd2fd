// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements kernel.Engine on a wgpu HAL device.
//
// The engine batches the quads of a frame into draw groups, one per run of
// quads sharing a texture and crop, and issues each group as an indexed
// draw under the crop's scissor rectangle. Chunk meshes are validated and
// uploaded into vertex and index buffers.
//
// Importing the package registers a headless engine named "gpu-headless"
// on the noop HAL backend as the lowest priority fallback:
//
//	import _ "github.com/gogpu/kernel/backend/gpu"
//
// Hosts that already own a GPU device share it with NewFromProvider.
package gpu
