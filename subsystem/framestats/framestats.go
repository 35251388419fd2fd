// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framestats is a kernel subsystem collecting per-frame statistics.
//
//	stats, err := kernel.Attach(ctx, framestats.Key, framestats.Options{Window: 120})
//	...
//	s := stats.Summary()
package framestats

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/kernel"
)

// DefaultWindow is the number of recent frames averaged when
// Options.Window is zero.
const DefaultWindow = 60

// Key attaches a *Stats to a Context.
var Key = kernel.NewSubsystemKey[*Stats, Options]("framestats")

func init() {
	kernel.RegisterSubsystem(Key, New)
}

// ErrInvalidWindow is returned for a negative Options.Window.
var ErrInvalidWindow = errors.New("framestats: negative window")

// Options configures a Stats.
type Options struct {
	// Window is the number of recent frames Mean and Max cover.
	Window int

	// LogEvery logs a summary every LogEvery frames. Zero disables it.
	LogEvery uint64

	// Logger receives the summaries. Nil uses kernel.Logger().
	Logger *slog.Logger
}

// Summary is a snapshot of the collected statistics.
type Summary struct {
	Frames      uint64
	Draws       int
	CropChanges int

	Last kernel.FrameStats

	// Mean and Max cover the most recent Window frames.
	Mean time.Duration
	Max  time.Duration
}

// Stats observes the frames of one Context.
type Stats struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	open     uint64 // frame in progress, 0 if none
	summary  Summary
	recent   []time.Duration
	next     int
	disposed bool
}

// New creates a Stats for c. It is the factory registered under Key.
func New(c *kernel.Context, _ *kernel.ResourceFactory, opts Options) (*Stats, error) {
	if opts.Window < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, opts.Window)
	}
	if opts.Window == 0 {
		opts.Window = DefaultWindow
	}
	log := opts.Logger
	if log == nil {
		log = kernel.Logger()
	}
	return &Stats{
		opts:   opts,
		log:    log.With("context", uint64(c.ID())),
		recent: make([]time.Duration, 0, opts.Window),
	}, nil
}

// FrameStarted implements kernel.FrameObserver.
func (s *Stats) FrameStarted(frame uint64) {
	s.mu.Lock()
	s.open = frame
	s.mu.Unlock()
}

// FrameFinished implements kernel.FrameObserver.
func (s *Stats) FrameFinished(fs kernel.FrameStats) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.open = 0
	s.summary.Frames++
	s.summary.Draws += fs.Draws
	s.summary.CropChanges += fs.CropChanges
	s.summary.Last = fs

	if len(s.recent) < s.opts.Window {
		s.recent = append(s.recent, fs.Duration)
	} else {
		s.recent[s.next] = fs.Duration
		s.next = (s.next + 1) % s.opts.Window
	}
	s.summary.Mean, s.summary.Max = window(s.recent)

	logNow := s.opts.LogEvery > 0 && s.summary.Frames%s.opts.LogEvery == 0
	sum := s.summary
	s.mu.Unlock()

	if logNow {
		s.log.Info("framestats: summary",
			"frames", sum.Frames, "draws", sum.Draws, "mean", sum.Mean, "max", sum.Max)
	}
}

func window(ds []time.Duration) (mean, peak time.Duration) {
	if len(ds) == 0 {
		return 0, 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
		peak = max(peak, d)
	}
	return total / time.Duration(len(ds)), peak
}

// InFrame reports whether a frame has started and not yet finished.
func (s *Stats) InFrame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open != 0
}

// Summary returns the statistics collected so far.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Dispose implements kernel.Disposer. Frames finished afterwards are
// ignored.
func (s *Stats) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	s.disposed = true
	s.log.Debug("framestats: disposed", "frames", s.summary.Frames)
	return nil
}

var (
	_ kernel.FrameObserver = (*Stats)(nil)
	_ kernel.Disposer      = (*Stats)(nil)
)
