// Package runner implements the run coordination state machine: cache
// preparation, target attach, sampler lifecycle, interaction phase, marker
// collection and the run manifest.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/output"
	"github.com/fastbench/fbench/internal/runindex"
	"github.com/fastbench/fbench/internal/uiauto"
)

// State names the run coordination states.
type State string

const (
	StateIdle           State = "idle"
	StateCachePrep      State = "cache_prep"
	StateAttaching      State = "attaching"
	StateSamplingActive State = "sampling_active"
	StateInteracting    State = "interacting"
	StateDraining       State = "draining"
	StateFinalized      State = "finalized"
	StateAborted        State = "aborted"
)

// CachePolicy selects whether caches are purged before the run.
type CachePolicy string

const (
	CacheCold CachePolicy = "cold"
	CacheWarm CachePolicy = "warm"
)

// ParseCachePolicy validates a policy name before any side effect.
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch CachePolicy(s) {
	case CacheCold, CacheWarm:
		return CachePolicy(s), nil
	}
	return "", &domain.ConfigError{Field: "cache_policy", Reason: fmt.Sprintf("unknown policy %q (want cold or warm)", s)}
}

// CacheRunner invokes the external cache purge. Only consulted for the cold
// policy; warm performs no external call.
type CacheRunner interface {
	Purge(ctx context.Context) error
}

// SamplerProc controls the out-of-process telemetry sampler.
type SamplerProc interface {
	Start(ctx context.Context, pid int32, outPath string) error
	Stop() error
}

// Source drives the interaction phase: a recorded log replayed by the
// player, or a named scripted workflow.
type Source interface {
	ID() string
	Play(ctx context.Context, rect domain.Rect, emit func(event, comment string)) error
}

// Runner executes one benchmark run on a single control goroutine, blocking
// at each phase boundary. Capabilities are injected so tests can fake the
// environment.
type Runner struct {
	Attacher      uiauto.Attacher
	AttachTimeout time.Duration
	CachePolicy   CachePolicy
	Cache         CacheRunner
	Sampler       SamplerProc
	Source        Source
	Mode          string
	Operator      string
	Host          domain.Host
	RunDir        string
	EventLogPath  string
	Clock         clock.Clock
	Logger        *zap.Logger
	Index         *runindex.Index
	OnState       func(State)
	OnMarker      func(domain.Marker)

	mu      sync.Mutex
	markers []domain.Marker
	state   State
}

func (r *Runner) clk() clock.Clock {
	if r.Clock == nil {
		r.Clock = clock.New()
	}
	return r.Clock
}

func (r *Runner) setState(s State) {
	r.state = s
	if r.Logger != nil {
		r.Logger.Info("run state", zap.String("state", string(s)))
	}
	if r.OnState != nil {
		r.OnState(s)
	}
}

// emit records a marker with the current timestamp and its originating phase.
func (r *Runner) emit(phase domain.Phase, event, comment string) {
	m := domain.Marker{Timestamp: r.clk().Now().UTC(), Event: event, Comment: comment, Phase: phase}
	r.mu.Lock()
	r.markers = append(r.markers, m)
	r.mu.Unlock()
	if r.OnMarker != nil {
		r.OnMarker(m)
	}
}

func (r *Runner) manifestPath() string { return filepath.Join(r.RunDir, "manifest.json") }

// Execute runs the state machine to completion. It always returns the
// manifest, finalized and persisted, even on abort: partial telemetry and
// markers are preserved for post-mortem diagnosis, never deleted.
func (r *Runner) Execute(ctx context.Context) (*domain.RunManifest, error) {
	r.setState(StateIdle)

	manifest := &domain.RunManifest{
		RunID:       uuid.NewString(),
		Mode:        r.Mode,
		Source:      r.Source.ID(),
		CachePolicy: string(r.CachePolicy),
		Host:        r.Host,
		Operator:    r.Operator,
		StartedAt:   r.clk().Now().UTC(),
		EventLog:    r.EventLogPath,
		State:       domain.RunStateRunning,
	}
	if err := manifest.Save(r.manifestPath()); err != nil {
		return manifest, err
	}

	samplerRunning := false

	// CachePrep: cold blocks on the external purge, warm is a no-op.
	r.setState(StateCachePrep)
	if r.CachePolicy == CacheCold {
		r.emit(domain.PhaseCache, "cache_clear_start", "")
		if err := r.Cache.Purge(ctx); err != nil {
			return r.abort(manifest, samplerRunning, err)
		}
		r.emit(domain.PhaseCache, "cache_clear_end", "")
	}

	// Attaching: bounded retry budget, tolerant of the target still
	// launching, never retried past the budget.
	r.setState(StateAttaching)
	window, err := r.Attacher.Attach(ctx, r.AttachTimeout)
	if err != nil {
		return r.abort(manifest, samplerRunning, err)
	}
	rect, err := r.Attacher.Rect(window)
	if err != nil {
		return r.abort(manifest, samplerRunning, err)
	}
	if err := r.Attacher.Focus(window); err != nil && r.Logger != nil {
		r.Logger.Warn("could not focus target window", zap.Error(err))
	}
	r.emit(domain.PhaseAttach, "attach_complete", fmt.Sprintf("pid=%d", window.PID))

	// SamplingActive: a run with no telemetry is not a valid measurement.
	r.setState(StateSamplingActive)
	metricsPath := filepath.Join(r.RunDir, "metrics.csv")
	if err := r.Sampler.Start(ctx, window.PID, metricsPath); err != nil {
		return r.abort(manifest, samplerRunning, &domain.SamplerError{Op: "start", Err: err})
	}
	samplerRunning = true
	manifest.MetricsPath = metricsPath

	// Interacting: drive the event source to completion or failure.
	r.setState(StateInteracting)
	r.emit(domain.PhaseInteraction, "open_start", r.Source.ID())
	if err := r.Source.Play(ctx, rect, func(event, comment string) {
		r.emit(domain.PhaseInteraction, event, comment)
	}); err != nil {
		return r.abort(manifest, samplerRunning, err)
	}
	r.emit(domain.PhaseInteraction, "session_end", "")

	// Draining: stop the sampler, flush all markers.
	r.setState(StateDraining)
	samplerRunning = false
	if err := r.Sampler.Stop(); err != nil {
		return r.abort(manifest, false, err)
	}
	if err := r.flushMarkers(manifest); err != nil {
		return r.abort(manifest, false, err)
	}

	// Finalized: the single point of successful completion.
	if err := manifest.Finalize(domain.RunStateFinalized, r.clk().Now().UTC(), nil); err != nil {
		return manifest, err
	}
	if err := manifest.Save(r.manifestPath()); err != nil {
		return manifest, err
	}
	r.setState(StateFinalized)
	r.record(manifest)
	return manifest, nil
}

// flushMarkers merges markers from all phases (timestamp order, phase
// precedence on ties) and writes the markers artifact.
func (r *Runner) flushMarkers(manifest *domain.RunManifest) error {
	r.mu.Lock()
	merged := domain.MergeMarkers(r.markers)
	r.mu.Unlock()

	path := filepath.Join(r.RunDir, "markers.csv")
	w, err := output.NewMarkerWriter(path)
	if err != nil {
		return err
	}
	if err := w.AppendAll(merged); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	manifest.MarkersPath = path
	return nil
}

// abort stops whatever is still running, persists a best-effort manifest and
// marker artifact, and surfaces the triggering error. A failsafe abort is an
// operator-intended interrupt and gets its own terminal state.
func (r *Runner) abort(manifest *domain.RunManifest, samplerRunning bool, cause error) (*domain.RunManifest, error) {
	if samplerRunning {
		if stopErr := r.Sampler.Stop(); stopErr != nil && r.Logger != nil {
			r.Logger.Warn("sampler stop during abort", zap.Error(stopErr))
		}
	}
	if err := r.flushMarkers(manifest); err != nil && r.Logger != nil {
		r.Logger.Warn("marker flush during abort", zap.Error(err))
	}

	state := domain.RunStateAborted
	var failsafe *domain.FailsafeAbort
	if errors.As(cause, &failsafe) {
		state = domain.RunStateAbortedByOperator
	}
	if err := manifest.Finalize(state, r.clk().Now().UTC(), cause); err != nil && r.Logger != nil {
		r.Logger.Warn("manifest finalize during abort", zap.Error(err))
	}
	if err := manifest.Save(r.manifestPath()); err != nil && r.Logger != nil {
		r.Logger.Warn("manifest save during abort", zap.Error(err))
	}
	r.setState(StateAborted)
	r.record(manifest)
	return manifest, cause
}

// record indexes the finalized run. Index failures are logged, never fatal:
// the manifest on disk remains the authoritative record.
func (r *Runner) record(manifest *domain.RunManifest) {
	if r.Index == nil {
		return
	}
	if err := r.Index.Record(manifest, r.manifestPath()); err != nil && r.Logger != nil {
		r.Logger.Warn("run index update failed", zap.Error(err))
	}
}
