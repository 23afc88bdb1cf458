// Package sampler implements the fixed-rate telemetry sampler. It runs in
// its own process (spawned as `fbench sample`) so its resource usage stays
// out of the measurement it takes, and communicates with the coordinator
// only through the append-only row stream.
package sampler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/fastbench/fbench/internal/domain"
)

// DefaultInterval is the default sampling cadence (1 Hz).
const DefaultInterval = time.Second

// Probe gathers one tick's worth of telemetry. Implementations report
// ok=false for sources that are unavailable (process exited, no GPU); that
// is a null reading, never an error.
type Probe interface {
	Proc() (*domain.ProcStats, bool)
	Sys() (*domain.SysStats, bool)
	GPU() (*domain.GPUStats, bool)
	OpenDataFiles() []string
}

// RowWriter receives one row per tick.
type RowWriter interface {
	Append(domain.SampleRow) error
}

// Sampler drives the tick loop. Tick times are computed on an absolute
// schedule (start + n*interval), so one slow tick does not shift the rest of
// the run; ticks that were missed entirely are written as null rows to keep
// row-count equal to elapsed intervals.
type Sampler struct {
	PID      int32
	Interval time.Duration
	Probe    Probe
	Writer   RowWriter
	Clock    clock.Clock
	Logger   *zap.Logger
}

// New creates a sampler with the real clock.
func New(pid int32, interval time.Duration, probe Probe, writer RowWriter, logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		PID:      pid,
		Interval: interval,
		Probe:    probe,
		Writer:   writer,
		Clock:    clock.New(),
		Logger:   logger,
	}
}

// Run samples until ctx is cancelled. The first row is taken immediately.
// Returns nil on cancellation; a write failure is fatal since rows are the
// sampler's only output.
func (s *Sampler) Run(ctx context.Context) error {
	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}
	start := clk.Now()
	next := 0 // index of the next tick to account for

	for {
		now := clk.Now()
		due := int(now.Sub(start) / s.Interval)

		// Ticks we slept through entirely become null rows, not gaps.
		for ; next < due; next++ {
			missed := domain.SampleRow{
				Timestamp: start.Add(time.Duration(next) * s.Interval),
				PID:       s.PID,
				Missed:    true,
			}
			if err := s.Writer.Append(missed); err != nil {
				return err
			}
			if s.Logger != nil {
				s.Logger.Warn("missed sampling tick", zap.Int("tick", next))
			}
		}

		if err := s.Writer.Append(s.collect(now)); err != nil {
			return err
		}
		next++

		target := start.Add(time.Duration(next) * s.Interval)
		delay := target.Sub(clk.Now())
		if delay < 0 {
			delay = 0
		}
		select {
		case <-ctx.Done():
			return nil
		case <-clk.After(delay):
		}
	}
}

func (s *Sampler) collect(now time.Time) domain.SampleRow {
	row := domain.SampleRow{Timestamp: now, PID: s.PID}
	if proc, ok := s.Probe.Proc(); ok {
		row.Proc = proc
	}
	if sys, ok := s.Probe.Sys(); ok {
		row.Sys = sys
	}
	if gpu, ok := s.Probe.GPU(); ok {
		row.GPU = gpu
	}
	row.OpenDataPaths = s.Probe.OpenDataFiles()
	return row
}
