// Package player replays recorded event logs with bounded timing error
// against a possibly resized or repositioned target window.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/uiauto"
)

// DefaultPollInterval bounds how long a scheduling sleep can run before the
// player rechecks cancellation and the failsafe pointer position.
const DefaultPollInterval = 250 * time.Millisecond

// MarkerFunc receives markers emitted during replay (replay_start,
// replay_end, and marker events embedded in the log).
type MarkerFunc func(event, comment string)

// Result summarizes a completed or aborted replay.
type Result struct {
	Steps         int
	MaxDeviation  time.Duration
	MeanDeviation time.Duration
	Duration      time.Duration
}

// Player dispatches a validated event log in sequence order. Each step's
// wake-up time is computed from the absolute nominal offset, never from a
// fixed per-step sleep, so scheduling error cannot accumulate with log
// length.
type Player struct {
	Dispatcher      uiauto.Dispatcher
	Clock           clock.Clock
	Markers         MarkerFunc
	Logger          *zap.Logger
	FailsafeEnabled bool
	PollInterval    time.Duration
}

// New creates a player with the default real clock and failsafe enabled.
func New(d uiauto.Dispatcher, markers MarkerFunc, logger *zap.Logger) *Player {
	return &Player{
		Dispatcher:      d,
		Clock:           clock.New(),
		Markers:         markers,
		Logger:          logger,
		FailsafeEnabled: true,
		PollInterval:    DefaultPollInterval,
	}
}

func (p *Player) mark(event, comment string) {
	if p.Markers != nil {
		p.Markers(event, comment)
	}
}

// checkFailsafe aborts if the live pointer sits at the extreme top-left
// screen corner, the operator's emergency override.
func (p *Player) checkFailsafe(seq int) error {
	if !p.FailsafeEnabled {
		return nil
	}
	x, y, err := p.Dispatcher.PointerPos()
	if err != nil {
		return nil // a driver that cannot report position disables the failsafe
	}
	if x == 0 && y == 0 {
		return &domain.FailsafeAbort{Sequence: seq}
	}
	return nil
}

// Replay validates log whole, then dispatches it. Validation failure is
// raised before any input reaches the target (fail closed). rectOverride,
// when non-zero, renormalizes coordinates against a moved or resized window.
// replay_start and replay_end markers are emitted on every path once
// dispatching has begun.
func (p *Player) Replay(ctx context.Context, log *domain.EventLog, rectOverride domain.Rect) (res Result, err error) {
	if err := log.Validate(); err != nil {
		return Result{}, err
	}
	rect := log.Rect
	if !rectOverride.IsZero() {
		if err := rectOverride.Validate(); err != nil {
			return Result{}, &domain.ValidationError{Reason: fmt.Sprintf("target rect override: %v", err)}
		}
		rect = rectOverride
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	poll := p.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	start := clk.Now()
	lastFailsafe := start
	var devSum time.Duration

	p.mark("replay_start", "")
	defer func() {
		res.Duration = clk.Now().Sub(start)
		p.mark("replay_end", "")
	}()

	for _, ev := range log.Events {
		target := start.Add(time.Duration(ev.OffsetMS) * time.Millisecond)

		// Corrective sleep: always recomputed against the absolute target,
		// in bounded slices so cancellation and the failsafe stay responsive.
		for {
			now := clk.Now()
			delay := target.Sub(now)
			if delay <= 0 {
				break
			}
			if delay > poll {
				delay = poll
			}
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-clk.After(delay):
			}
			if clk.Now().Sub(lastFailsafe) >= poll {
				lastFailsafe = clk.Now()
				if err := p.checkFailsafe(ev.Sequence); err != nil {
					return res, err
				}
			}
		}

		if err := p.dispatch(ev, rect); err != nil {
			return res, fmt.Errorf("dispatch failed at event %d: %w", ev.Sequence, err)
		}

		dev := clk.Now().Sub(target)
		if dev < 0 {
			dev = -dev
		}
		if dev > res.MaxDeviation {
			res.MaxDeviation = dev
		}
		devSum += dev
		res.Steps++
		if p.Logger != nil {
			p.Logger.Debug("dispatched event",
				zap.Int("sequence", ev.Sequence),
				zap.String("kind", string(ev.Kind)),
				zap.Int64("offset_ms", ev.OffsetMS),
				zap.Duration("deviation", dev))
		}
	}

	if res.Steps > 0 {
		res.MeanDeviation = devSum / time.Duration(res.Steps)
	}
	return res, nil
}

func (p *Player) dispatch(ev domain.Event, rect domain.Rect) error {
	switch ev.Kind {
	case domain.KindPointerMove:
		x, y := rect.ToAbs(ev.XRel, ev.YRel)
		return p.Dispatcher.MoveTo(x, y)
	case domain.KindPointerButton:
		x, y := rect.ToAbs(ev.XRel, ev.YRel)
		if err := p.Dispatcher.MoveTo(x, y); err != nil {
			return err
		}
		return p.Dispatcher.Button(ev.Button, ev.Action)
	case domain.KindKey:
		return p.Dispatcher.Key(ev.Code, ev.Action)
	case domain.KindScroll:
		return p.Dispatcher.Scroll(ev.Delta)
	case domain.KindMarker:
		// markers in the log are checkpoints, not input
		p.mark(ev.Label, "from event log")
		return nil
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}
