// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/quad.wgsl
var quadShaderSource string

// compileSPIRV compiles WGSL to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// quadPipeline owns the GPU objects of the UI quad pass.
type quadPipeline struct {
	device hal.Device

	shader        hal.ShaderModule
	bindLayout    hal.BindGroupLayout // group 0: viewport
	textureLayout hal.BindGroupLayout // group 1: texture and sampler
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	// clamp samples UVs inside the unit square, tile repeats the texture
	// for UVs outside it.
	clamp hal.Sampler
	tile  hal.Sampler
}

// sampler returns the sampler of a draw group.
func (p *quadPipeline) sampler(tile bool) hal.Sampler {
	if tile {
		return p.tile
	}
	return p.clamp
}

// newQuadPipeline compiles the quad shader and creates the render pipeline
// for targets of the given format.
func newQuadPipeline(device hal.Device, format gputypes.TextureFormat) (*quadPipeline, error) {
	p := &quadPipeline{device: device}
	if err := p.create(format); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *quadPipeline) create(format gputypes.TextureFormat) error {
	code, err := compileSPIRV(quadShaderSource)
	if err != nil {
		return fmt.Errorf("quad shader: %w", err)
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "kernel_quad_shader",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("create quad shader module: %w", err)
	}
	p.shader = shader

	// Binding 0: viewport uniform (vertex).
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "kernel_quad_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create quad bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	textureLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "kernel_quad_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create quad texture layout: %w", err)
	}
	p.textureLayout = textureLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "kernel_quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout, p.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create quad pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	if p.clamp, err = p.createSampler("kernel_quad_sampler", gputypes.AddressModeClampToEdge); err != nil {
		return err
	}
	if p.tile, err = p.createSampler("kernel_quad_tile_sampler", gputypes.AddressModeRepeat); err != nil {
		return err
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "kernel_quad_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create quad pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

func (p *quadPipeline) createSampler(label string, mode gputypes.AddressMode) (hal.Sampler, error) {
	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: mode,
		AddressModeV: mode,
		AddressModeW: mode,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return sampler, nil
}

// destroy releases the pipeline objects in reverse creation order. Safe to
// call on a partially created pipeline.
func (p *quadPipeline) destroy() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	for _, s := range []*hal.Sampler{&p.tile, &p.clamp} {
		if *s != nil {
			p.device.DestroySampler(*s)
			*s = nil
		}
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// quadVertexLayout matches VertexInput in quad.wgsl.
func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
			},
		},
	}
}
