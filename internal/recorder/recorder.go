// Package recorder captures live device input into an ordered event log with
// window-relative coordinates.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/uiauto"
)

// Recorder owns one recording session. Input hooking is global while the
// session is active, so callers must warn the operator that capture is not
// scoped to the target window.
type Recorder struct {
	hook uiauto.Hook
	rect domain.Rect
	clk  clock.Clock

	mu            sync.Mutex
	active        bool
	paused        bool
	events        []domain.Event
	segmentStart  time.Time
	activeElapsed time.Duration
	createdAt     time.Time
	done          chan struct{}
	stopHook      context.CancelFunc
}

// New creates a recorder for the given hook and captured window rectangle.
func New(hook uiauto.Hook, rect domain.Rect, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.New()
	}
	return &Recorder{hook: hook, rect: rect, clk: clk}
}

// Start begins capture. If the window rectangle is invalid the session fails
// closed: no hook is acquired and no partial log can be written.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.rect.Validate(); err != nil {
		return fmt.Errorf("cannot start recording: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return errors.New("recording already active")
	}
	hookCtx, cancel := context.WithCancel(ctx)
	events, err := r.hook.Start(hookCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("cannot start recording: %w", err)
	}
	r.active = true
	r.paused = false
	r.events = nil
	r.createdAt = r.clk.Now()
	r.segmentStart = r.createdAt
	r.activeElapsed = 0
	r.stopHook = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for raw := range events {
			r.observe(raw)
		}
	}()
	return nil
}

// offsetLocked returns elapsed active recording time. Paused intervals are
// excluded: while paused the offset is frozen at the accumulated total.
func (r *Recorder) offsetLocked() time.Duration {
	if r.paused {
		return r.activeElapsed
	}
	return r.activeElapsed + r.clk.Now().Sub(r.segmentStart)
}

func (r *Recorder) observe(raw uiauto.RawInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.paused {
		return
	}
	ev := domain.Event{
		Sequence: len(r.events),
		OffsetMS: r.offsetLocked().Milliseconds(),
		Kind:     raw.Kind,
	}
	switch raw.Kind {
	case domain.KindPointerMove, domain.KindPointerButton:
		ev.XRel, ev.YRel = r.rect.ToRel(raw.X, raw.Y)
		ev.Button = raw.Button
		ev.Action = raw.Action
	case domain.KindKey:
		ev.Code = raw.Code
		ev.Action = raw.Action
	case domain.KindScroll:
		ev.Delta = raw.Delta
	default:
		return
	}
	r.events = append(r.events, ev)
}

// Pause suspends capture without closing the log.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.paused {
		return
	}
	r.activeElapsed += r.clk.Now().Sub(r.segmentStart)
	r.paused = true
}

// Resume continues a paused session.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || !r.paused {
		return
	}
	r.segmentStart = r.clk.Now()
	r.paused = false
}

// Mark inserts a marker event at the current offset.
func (r *Recorder) Mark(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.events = append(r.events, domain.Event{
		Sequence: len(r.events),
		OffsetMS: r.offsetLocked().Milliseconds(),
		Kind:     domain.KindMarker,
		Label:    label,
	})
}

// Stop releases the input hook and returns the finalized log. The log is
// immutable from here on; persisting it is the caller's job.
func (r *Recorder) Stop() (*domain.EventLog, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, errors.New("recording not active")
	}
	if !r.paused {
		r.activeElapsed += r.clk.Now().Sub(r.segmentStart)
	}
	r.active = false
	r.paused = false
	cancel := r.stopHook
	done := r.done
	r.mu.Unlock()

	cancel()
	if err := r.hook.Stop(); err != nil {
		return nil, fmt.Errorf("failed to release input hook: %w", err)
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	log := &domain.EventLog{
		SchemaVersion: domain.EventLogSchemaVersion,
		Rect:          r.rect,
		CreatedAt:     r.createdAt,
		Events:        r.events,
	}
	r.events = nil
	return log, nil
}
