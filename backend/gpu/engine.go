// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/kernel"
)

// Engine errors.
var (
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("gpu: engine closed")

	// ErrUnknownObject is returned for ids the engine did not issue or has
	// already destroyed.
	ErrUnknownObject = errors.New("gpu: unknown object")

	// ErrUnsupportedFormat is returned for pixel formats without a WebGPU
	// equivalent.
	ErrUnsupportedFormat = errors.New("gpu: unsupported pixel format")

	// ErrFrameState is returned when the frame protocol is broken.
	ErrFrameState = errors.New("gpu: frame protocol violation")

	// ErrNoSurface is returned when rendering to a context without a bound
	// surface.
	ErrNoSurface = errors.New("gpu: surface not bound")

	// ErrNotSampleable is returned when drawing a texture the quad pass
	// cannot sample: anything but a single-layer 2D texture of a
	// normalized format.
	ErrNotSampleable = errors.New("gpu: texture cannot be sampled")
)

// submitTimeout bounds the wait for a frame's fence.
const submitTimeout = 5 * time.Second

type gpuContext struct {
	label         string
	width, height uint32
	bound         bool
	kind          kernel.WindowKind

	target     hal.Texture
	targetView hal.TextureView

	batch      *frameBatch // non-nil while a frame is open
	lastGroups int
	frames     uint64
}

type gpuTexture struct {
	ctx           kernel.ContextID
	desc          kernel.TextureDescriptor
	width, height uint32

	tex  hal.Texture
	view hal.TextureView // nil unless sampleable
}

type gpuMesh struct {
	ctx    kernel.ContextID
	kind   kernel.MeshRenderType
	layout meshLayout

	vertexBuf hal.Buffer
	indexBuf  hal.Buffer
}

// Engine renders kernel contexts with a wgpu HAL device.
//
// Every context renders into an offscreen target of the engine's surface
// format. Hosts that present to a window share their device through
// NewFromProvider and present the target themselves.
//
// Engine is safe for concurrent use.
type Engine struct {
	name    string
	device  hal.Device
	queue   hal.Queue
	format  gputypes.TextureFormat
	release func()
	log     atomic.Pointer[slog.Logger]

	mu       sync.Mutex
	closed   bool
	nextID   uint64
	pipeline *quadPipeline
	contexts map[kernel.ContextID]*gpuContext
	textures map[kernel.TextureID]*gpuTexture
	meshes   map[kernel.MeshID]*gpuMesh
}

// New returns an engine rendering with device and queue. The caller keeps
// ownership of the device; Close does not destroy it.
func New(device hal.Device, queue hal.Queue) *Engine {
	return newEngine("gpu", device, queue, gputypes.TextureFormatBGRA8Unorm, nil)
}

func newEngine(name string, device hal.Device, queue hal.Queue, format gputypes.TextureFormat, release func()) *Engine {
	return &Engine{
		name:     name,
		device:   device,
		queue:    queue,
		format:   format,
		release:  release,
		contexts: make(map[kernel.ContextID]*gpuContext),
		textures: make(map[kernel.TextureID]*gpuTexture),
		meshes:   make(map[kernel.MeshID]*gpuMesh),
	}
}

// NewFromProvider returns an engine sharing the GPU device of a host
// application. The provider must expose its HAL device and queue through
// HalDevice() and HalQueue(). Targets use the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Engine, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	format := provider.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return newEngine("gpu", device, queue, format, nil), nil
}

// NewHeadless returns an engine on the noop HAL backend. It accepts every
// call and renders nothing, which makes it the engine of last resort for
// headless hosts and tests. Close destroys the device.
func NewHeadless() (*Engine, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: noop backend has no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open noop device: %w", err)
	}
	release := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return newEngine(HeadlessName, openDev.Device, openDev.Queue, gputypes.TextureFormatBGRA8Unorm, release), nil
}

// SetLogger sets the engine logger. kernel calls it when the engine is
// opened from the registry.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.log.Store(l)
}

func (e *Engine) logger() *slog.Logger {
	if l := e.log.Load(); l != nil {
		return l
	}
	return kernel.Logger()
}

// Close destroys every GPU object the engine still holds. Objects are
// destroyed in dependency order: mesh and texture buffers, context
// targets, then the pipeline. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	leaked := len(e.contexts) + len(e.textures) + len(e.meshes)
	for id, m := range e.meshes {
		e.destroyMeshBuffersLocked(m)
		delete(e.meshes, id)
	}
	for id, t := range e.textures {
		e.destroyTextureLocked(t)
		delete(e.textures, id)
	}
	for id, c := range e.contexts {
		e.destroyTargetLocked(c)
		delete(e.contexts, id)
	}
	if e.pipeline != nil {
		e.pipeline.destroy()
		e.pipeline = nil
	}
	if leaked > 0 {
		e.logger().Warn("gpu: engine closed with live objects", "count", leaked)
	}
	if e.release != nil {
		e.release()
	}
	e.logger().Info("gpu: engine closed", "engine", e.name)
	return nil
}

// Name implements kernel.Engine.
func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) id() uint64 {
	e.nextID++
	return e.nextID
}

func (e *Engine) contextLocked(id kernel.ContextID) (*gpuContext, error) {
	if e.closed {
		return nil, ErrClosed
	}
	c, ok := e.contexts[id]
	if !ok {
		return nil, fmt.Errorf("%w: context %d", ErrUnknownObject, id)
	}
	return c, nil
}

// CreateContext implements kernel.Engine.
func (e *Engine) CreateContext(desc kernel.SurfaceConfig) (kernel.ContextID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return kernel.InvalidID, ErrClosed
	}
	c := &gpuContext{label: desc.Label, width: desc.Width, height: desc.Height}
	if desc.Handles != nil {
		if err := e.bindLocked(c, *desc.Handles); err != nil {
			return kernel.InvalidID, err
		}
	}
	id := kernel.ContextID(e.id())
	e.contexts[id] = c
	e.logger().Debug("gpu: context created", "id", uint64(id), "width", c.width, "height", c.height, "bound", c.bound)
	return id, nil
}

// DestroyContext implements kernel.Engine.
func (e *Engine) DestroyContext(id kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	e.destroyTargetLocked(c)
	delete(e.contexts, id)
	return nil
}

// BindSurface implements kernel.Engine.
func (e *Engine) BindSurface(id kernel.ContextID, h kernel.PlatformHandles) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if c.bound {
		return fmt.Errorf("gpu: context %d surface already bound", id)
	}
	return e.bindLocked(c, h)
}

func (e *Engine) bindLocked(c *gpuContext, h kernel.PlatformHandles) error {
	if err := e.createTargetLocked(c); err != nil {
		return err
	}
	c.bound = true
	c.kind = h.Kind
	return nil
}

// ResizeSurface implements kernel.Engine. The offscreen target is
// recreated at the new extents.
func (e *Engine) ResizeSurface(id kernel.ContextID, width, height uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if c.width == width && c.height == height {
		return nil
	}
	c.width, c.height = width, height
	if !c.bound {
		return nil
	}
	e.destroyTargetLocked(c)
	return e.createTargetLocked(c)
}

func (e *Engine) createTargetLocked(c *gpuContext) error {
	tex, err := e.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "kernel_target",
		Size:          hal.Extent3D{Width: c.width, Height: c.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        e.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gpu: create target %dx%d: %w", c.width, c.height, err)
	}
	view, err := e.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "kernel_target_view",
		Format:        e.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		e.device.DestroyTexture(tex)
		return fmt.Errorf("gpu: create target view: %w", err)
	}
	c.target, c.targetView = tex, view
	return nil
}

func (e *Engine) destroyTargetLocked(c *gpuContext) {
	if c.targetView != nil {
		e.device.DestroyTextureView(c.targetView)
		c.targetView = nil
	}
	if c.target != nil {
		e.device.DestroyTexture(c.target)
		c.target = nil
	}
}

// BeginFrame implements kernel.Engine.
func (e *Engine) BeginFrame(id kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if !c.bound {
		return ErrNoSurface
	}
	if c.batch != nil {
		return fmt.Errorf("%w: frame already open on context %d", ErrFrameState, id)
	}
	c.batch = newFrameBatch(c.width, c.height)
	return nil
}

// EndFrame implements kernel.Engine. It encodes one render pass over the
// context target, one indexed draw per draw group, submits it and waits
// for the fence.
func (e *Engine) EndFrame(id kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if c.batch == nil {
		return fmt.Errorf("%w: no open frame on context %d", ErrFrameState, id)
	}
	batch := c.batch
	c.batch = nil
	c.frames++
	c.lastGroups = len(batch.groups)

	if err := e.submitLocked(c, batch); err != nil {
		return fmt.Errorf("gpu: frame %d: %w", c.frames, err)
	}
	e.logger().Debug("gpu: frame submitted",
		"context", uint64(id), "frame", c.frames, "quads", batch.quadCount(), "groups", len(batch.groups))
	return nil
}

// SetCrop implements kernel.Engine.
func (e *Engine) SetCrop(id kernel.ContextID, rect *kernel.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if c.batch == nil {
		return fmt.Errorf("%w: crop outside a frame", ErrFrameState)
	}
	c.batch.setCrop(rect)
	return nil
}

// DrawTexturedQuad implements kernel.Engine.
func (e *Engine) DrawTexturedQuad(id kernel.ContextID, tex kernel.TextureID, uv, pos kernel.Rect, tint kernel.Color) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.contextLocked(id)
	if err != nil {
		return err
	}
	if c.batch == nil {
		return fmt.Errorf("%w: draw outside a frame", ErrFrameState)
	}
	t, ok := e.textures[tex]
	if !ok || t.ctx != id {
		return fmt.Errorf("%w: texture %d", ErrUnknownObject, tex)
	}
	if t.view == nil {
		return fmt.Errorf("%w: texture %d is %dx%dx%d %s %s",
			ErrNotSampleable, tex, t.desc.Width, t.desc.Height, t.desc.Layers, t.desc.Dimension, t.desc.Format)
	}
	c.batch.addQuad(tex, uv, pos, tint)
	return nil
}

func (e *Engine) ensurePipelineLocked() (*quadPipeline, error) {
	if e.pipeline != nil {
		return e.pipeline, nil
	}
	p, err := newQuadPipeline(e.device, e.format)
	if err != nil {
		return nil, err
	}
	e.pipeline = p
	return p, nil
}

// frameResources holds the per-frame GPU objects of a batch.
type frameResources struct {
	vertBuf    hal.Buffer
	idxBuf     hal.Buffer
	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup

	// groupBinds[i] is the texture bind group of batch.groups[i], nil when
	// the texture was destroyed before the frame ended. Groups with the
	// same texture and sampler share one bind group; owned lists each once.
	groupBinds []hal.BindGroup
	owned      []hal.BindGroup
}

func (e *Engine) destroyFrameResources(r *frameResources) {
	for _, bg := range r.owned {
		e.device.DestroyBindGroup(bg)
	}
	if r.bindGroup != nil {
		e.device.DestroyBindGroup(r.bindGroup)
	}
	for _, b := range []hal.Buffer{r.vertBuf, r.idxBuf, r.uniformBuf} {
		if b != nil {
			e.device.DestroyBuffer(b)
		}
	}
}

func (e *Engine) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	e.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (e *Engine) buildFrameResources(batch *frameBatch) (*frameResources, *quadPipeline, error) {
	p, err := e.ensurePipelineLocked()
	if err != nil {
		return nil, nil, err
	}
	r := &frameResources{}
	if r.vertBuf, err = e.createAndUploadBuffer("kernel_quad_vertices", batch.vertices,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst); err != nil {
		return nil, nil, err
	}
	if r.idxBuf, err = e.createAndUploadBuffer("kernel_quad_indices", batch.indices,
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst); err != nil {
		e.destroyFrameResources(r)
		return nil, nil, err
	}
	if r.uniformBuf, err = e.createAndUploadBuffer("kernel_quad_viewport", batch.viewportUniform(),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst); err != nil {
		e.destroyFrameResources(r)
		return nil, nil, err
	}
	r.bindGroup, err = e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "kernel_quad_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: viewportUniformSize,
			}},
		},
	})
	if err != nil {
		e.destroyFrameResources(r)
		return nil, nil, fmt.Errorf("create quad bind group: %w", err)
	}
	if err := e.bindGroupTexturesLocked(r, p, batch); err != nil {
		e.destroyFrameResources(r)
		return nil, nil, err
	}
	return r, p, nil
}

// bindGroupTexturesLocked creates the texture bind group of every draw
// group.
func (e *Engine) bindGroupTexturesLocked(r *frameResources, p *quadPipeline, batch *frameBatch) error {
	type key struct {
		tex  kernel.TextureID
		tile bool
	}
	shared := make(map[key]hal.BindGroup)
	r.groupBinds = make([]hal.BindGroup, len(batch.groups))
	for i, g := range batch.groups {
		k := key{g.texture, g.tile}
		if bg, ok := shared[k]; ok {
			r.groupBinds[i] = bg
			continue
		}
		t, ok := e.textures[g.texture]
		if !ok || t.view == nil {
			e.logger().Debug("gpu: skipping draws of destroyed texture", "texture", uint64(g.texture), "quads", g.quads)
			continue
		}
		bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "kernel_quad_texture_bind",
			Layout: p.textureLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
				{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler(g.tile).NativeHandle()}},
			},
		})
		if err != nil {
			return fmt.Errorf("create texture bind group for texture %d: %w", g.texture, err)
		}
		r.owned = append(r.owned, bg)
		shared[k] = bg
		r.groupBinds[i] = bg
	}
	return nil
}

func (e *Engine) submitLocked(c *gpuContext, batch *frameBatch) error {
	var (
		res *frameResources
		p   *quadPipeline
	)
	if batch.quadCount() > 0 {
		var err error
		res, p, err = e.buildFrameResources(batch)
		if err != nil {
			return err
		}
		defer e.destroyFrameResources(res)
	}

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "kernel_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("kernel_frame"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "kernel_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       c.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	if res != nil {
		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, res.bindGroup, nil)
		rp.SetVertexBuffer(0, res.vertBuf, 0)
		rp.SetIndexBuffer(res.idxBuf, gputypes.IndexFormatUint32, 0)
		for i, g := range batch.groups {
			if g.scissor.empty() || res.groupBinds[i] == nil {
				continue
			}
			rp.SetBindGroup(1, res.groupBinds[i], nil)
			rp.SetScissorRect(g.scissor.x, g.scissor.y, g.scissor.w, g.scissor.h)
			rp.DrawIndexed(g.quads*uint32(len(quadIndices)), 1, g.firstIdx, 0, 0)
		}
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	fence, err := e.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer e.device.DestroyFence(fence)

	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := e.device.Wait(fence, 1, submitTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: timed out after %v", submitTimeout)
	}
	return nil
}

// CreateTexture implements kernel.Engine.
func (e *Engine) CreateTexture(id kernel.ContextID, desc kernel.TextureDescriptor, initial []byte) (kernel.TextureID, error) {
	format, ok := desc.Format.GPUFormat()
	if !ok {
		return kernel.InvalidID, fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc.Format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.contextLocked(id); err != nil {
		return kernel.InvalidID, err
	}
	tex, err := e.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: desc.Layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     desc.Dimension.GPUDimension(),
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return kernel.InvalidID, fmt.Errorf("gpu: create texture: %w", err)
	}
	t := &gpuTexture{ctx: id, desc: desc, width: desc.Width, height: desc.Height, tex: tex}

	if sampleable(desc) {
		view, err := e.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         desc.Label,
			Format:        format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			e.device.DestroyTexture(tex)
			return kernel.InvalidID, fmt.Errorf("gpu: create texture view: %w", err)
		}
		t.view = view
	}
	if initial != nil {
		e.writeTextureLocked(t, initial)
	}

	tid := kernel.TextureID(e.id())
	e.textures[tid] = t
	return tid, nil
}

// sampleable reports whether the quad pass can sample textures of desc
// through a filtering sampler.
func sampleable(desc kernel.TextureDescriptor) bool {
	if desc.Dimension != kernel.Dimension2D || desc.Layers != 1 {
		return false
	}
	switch desc.Format {
	case kernel.FormatR8Uint, kernel.FormatR8Sint,
		kernel.FormatRG8Uint, kernel.FormatRG8Sint,
		kernel.FormatR16Uint, kernel.FormatR16Sint,
		kernel.FormatRGBA8Uint, kernel.FormatRGBA8Sint:
		return false
	}
	return true
}

func (e *Engine) writeTextureLocked(t *gpuTexture, data []byte) {
	e.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.desc.BytesPerRow(),
			RowsPerImage: t.desc.Height,
		},
		&hal.Extent3D{Width: t.desc.Width, Height: t.desc.Height, DepthOrArrayLayers: t.desc.Layers},
	)
}

func (e *Engine) destroyTextureLocked(t *gpuTexture) {
	if t.view != nil {
		e.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		e.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// DestroyTexture implements kernel.Engine.
func (e *Engine) DestroyTexture(id kernel.TextureID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	t, ok := e.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownObject, id)
	}
	e.destroyTextureLocked(t)
	delete(e.textures, id)
	return nil
}

// UploadTexture implements kernel.Engine.
func (e *Engine) UploadTexture(ctx kernel.ContextID, id kernel.TextureID, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	t, ok := e.textures[id]
	if !ok || t.ctx != ctx {
		return fmt.Errorf("%w: texture %d", ErrUnknownObject, id)
	}
	if want := t.desc.ByteSize(); uint64(len(data)) != want {
		return fmt.Errorf("gpu: texture %d upload of %d bytes, want %d", id, len(data), want)
	}
	e.writeTextureLocked(t, data)
	return nil
}

// TextureSize implements kernel.Engine.
func (e *Engine) TextureSize(id kernel.TextureID) (uint32, uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, 0, ErrClosed
	}
	t, ok := e.textures[id]
	if !ok {
		return 0, 0, fmt.Errorf("%w: texture %d", ErrUnknownObject, id)
	}
	return t.width, t.height, nil
}

// CreateMesh implements kernel.Engine.
func (e *Engine) CreateMesh(ctx kernel.ContextID, kind kernel.MeshRenderType) (kernel.MeshID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.contextLocked(ctx); err != nil {
		return kernel.InvalidID, err
	}
	id := kernel.MeshID(e.id())
	e.meshes[id] = &gpuMesh{ctx: ctx, kind: kind}
	return id, nil
}

// DestroyMesh implements kernel.Engine.
func (e *Engine) DestroyMesh(id kernel.MeshID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	m, ok := e.meshes[id]
	if !ok {
		return fmt.Errorf("%w: mesh %d", ErrUnknownObject, id)
	}
	e.destroyMeshBuffersLocked(m)
	delete(e.meshes, id)
	return nil
}

// UploadMesh implements kernel.Engine. The streams are validated against
// each other before any buffer is replaced.
func (e *Engine) UploadMesh(ctx kernel.ContextID, id kernel.MeshID, streams kernel.MeshStreams) error {
	layout, err := validateStreams(streams)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	m, ok := e.meshes[id]
	if !ok || m.ctx != ctx {
		return fmt.Errorf("%w: mesh %d", ErrUnknownObject, id)
	}

	var vbuf, ibuf hal.Buffer
	if layout.vertices > 0 {
		data := packVertices(streams)
		if vbuf, err = e.createAndUploadBuffer("kernel_mesh_vertices", data,
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst); err != nil {
			return fmt.Errorf("gpu: mesh %d: %w", id, err)
		}
	}
	if layout.indices > 0 {
		if ibuf, err = e.createAndUploadBuffer("kernel_mesh_indices", streams.Index,
			gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst); err != nil {
			if vbuf != nil {
				e.device.DestroyBuffer(vbuf)
			}
			return fmt.Errorf("gpu: mesh %d: %w", id, err)
		}
	}

	e.destroyMeshBuffersLocked(m)
	m.vertexBuf, m.indexBuf, m.layout = vbuf, ibuf, layout
	e.logger().Debug("gpu: mesh uploaded", "id", uint64(id), "type", m.kind.String(),
		"vertices", layout.vertices, "indices", layout.indices)
	return nil
}

// ClearMesh implements kernel.Engine.
func (e *Engine) ClearMesh(ctx kernel.ContextID, id kernel.MeshID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	m, ok := e.meshes[id]
	if !ok || m.ctx != ctx {
		return fmt.Errorf("%w: mesh %d", ErrUnknownObject, id)
	}
	e.destroyMeshBuffersLocked(m)
	m.layout = meshLayout{}
	return nil
}

func (e *Engine) destroyMeshBuffersLocked(m *gpuMesh) {
	if m.vertexBuf != nil {
		e.device.DestroyBuffer(m.vertexBuf)
		m.vertexBuf = nil
	}
	if m.indexBuf != nil {
		e.device.DestroyBuffer(m.indexBuf)
		m.indexBuf = nil
	}
}

var _ kernel.Engine = (*Engine)(nil)
