// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command kerneldemo drives a kernel Context through a short render loop.
//
// It loads the configuration, opens the configured engine (the native
// library if one is installed, otherwise the headless GPU engine), uploads
// a texture and a chunk mesh, and records a cropped UI frame per iteration.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/kernel"
	_ "github.com/gogpu/kernel/backend/gpu"
	"github.com/gogpu/kernel/backend/dylib"
	"github.com/gogpu/kernel/config"
	"github.com/gogpu/kernel/internal/telemetry"
	"github.com/gogpu/kernel/subsystem/framestats"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		frames     = flag.Int("frames", 3, "number of frames to render")
	)
	flag.Parse()

	if err := run(*configPath, *frames); err != nil {
		fmt.Fprintf(os.Stderr, "kerneldemo: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func openEngine(cfg config.Config) (kernel.Engine, error) {
	dylib.Configure(dylib.LibraryConfig{Name: cfg.Library.Name, Paths: cfg.Library.Paths})
	if cfg.Engine.Name != "" {
		return kernel.OpenEngine(cfg.Engine.Name)
	}
	return kernel.DefaultEngine()
}

func run(configPath string, frames int) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	kernel.SetLogger(log)

	shutdown, err := telemetry.Setup(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, shutdown(context.Background()))
	}()

	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	if c, ok := engine.(io.Closer); ok {
		defer func() { err = errors.Join(err, c.Close()) }()
	}

	opts := append(cfg.Options(), kernel.WithEngine(engine))
	ctx, err := kernel.New(cfg.SurfaceConfig(), opts...)
	if err != nil {
		return err
	}
	if ctx.State() == kernel.StateUninitialized {
		// No window in a demo: bind an offscreen target instead.
		if err := ctx.InitializeSurface(kernel.HeadlessHandles()); err != nil {
			return err
		}
	}

	stats, err := kernel.Attach(ctx, framestats.Key, framestats.Options{LogEvery: 1, Logger: log})
	if err != nil {
		return err
	}
	if err := scenario(ctx, frames); err != nil {
		if ctx.State() == kernel.StatePrepared {
			// Close the frame the scenario failed in so Dispose can run.
			err = errors.Join(err, ctx.Dispatch())
		}
		return errors.Join(err, ctx.Dispose())
	}
	if err := ctx.Dispose(); err != nil {
		return err
	}

	s := stats.Summary()
	log.Info("kerneldemo: done", "engine", engine.Name(), "frames", s.Frames, "draws", s.Draws, "mean", s.Mean)
	return nil
}

// scenario creates the resources, renders the frames and releases the
// resources again so the Context can be disposed.
func scenario(ctx *kernel.Context, frames int) (err error) {
	res := ctx.Resources()

	tex, err := res.CreateTextureFromImage(gradient(256, 256), kernel.WithImageLabel("gradient"))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, tex.Dispose()) }()

	icon, err := res.CreateTextureFromImage(gradient(64, 64),
		kernel.WithImageLabel("icon"), kernel.WithImageSize(32, 32))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, icon.Dispose()) }()

	geo, err := res.CreateGeometry(kernel.MeshOpaque)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, geo.Dispose()) }()
	if err := geo.SetMeshResource(quadMesh()); err != nil {
		return err
	}

	w, h := ctx.Surface().Width, ctx.Surface().Height
	full := kernel.R(0, 0, 1, 1)
	rec := ctx.Recorder()
	for i := range frames {
		if err := ctx.Prepare(); err != nil {
			return err
		}
		if err := rec.DrawTexture(tex, full, kernel.R(0, 0, float32(w), float32(h))); err != nil {
			return err
		}
		panel := kernel.R(16, 16, float32(w)/2, float32(h)/2)
		if err := rec.SetCrop(&panel); err != nil {
			return err
		}
		x := float32(16 + 8*i)
		if err := rec.DrawTextureTinted(icon, full, kernel.R(x, 24, x+32, 56), kernel.RGBA(255, 200, 80, 255)); err != nil {
			return err
		}
		if err := rec.ClearCrop(); err != nil {
			return err
		}
		if err := ctx.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 160,
				A: 255,
			})
		}
	}
	return img
}

// quadMesh returns a single chunk face: four vertices, two triangles.
func quadMesh() kernel.MeshStreams {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	var s kernel.MeshStreams
	for _, p := range positions {
		for _, v := range p {
			s.Position = binary.LittleEndian.AppendUint32(s.Position, math.Float32bits(v))
		}
		for _, v := range [3]float32{0, 0, 1} {
			s.Normal = binary.LittleEndian.AppendUint32(s.Normal, math.Float32bits(v))
		}
		for _, v := range [2]float32{p[0], p[1]} {
			s.UV = binary.LittleEndian.AppendUint32(s.UV, math.Float32bits(v))
		}
		s.Color = append(s.Color, 255, 255, 255, 255)
		s.Attributes = append(s.Attributes, 0, 0, 0, 0, 0, 0)
	}
	for _, i := range []uint32{0, 1, 2, 0, 2, 3} {
		s.Index = binary.LittleEndian.AppendUint32(s.Index, i)
	}
	return s
}
