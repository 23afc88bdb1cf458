package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/player"
	"github.com/fastbench/fbench/internal/workflow"
)

// LogSource replays a recorded event log, renormalized against the window
// rectangle observed at attach time.
type LogSource struct {
	Path   string
	Log    *domain.EventLog
	Player *player.Player
	Logger *zap.Logger
}

func (s *LogSource) ID() string { return "log:" + s.Path }

func (s *LogSource) Play(ctx context.Context, rect domain.Rect, emit func(event, comment string)) error {
	s.Player.Markers = player.MarkerFunc(emit)
	res, err := s.Player.Replay(ctx, s.Log, rect)
	if s.Logger != nil {
		s.Logger.Info("replay finished",
			zap.Int("steps", res.Steps),
			zap.Duration("max_deviation", res.MaxDeviation),
			zap.Duration("duration", res.Duration))
	}
	return err
}

// WorkflowSource builds a named scripted workflow against the live window
// rectangle and plays it like a recording.
type WorkflowSource struct {
	Name   string
	Params workflow.Params
	Player *player.Player
	Logger *zap.Logger
}

func (s *WorkflowSource) ID() string { return "workflow:" + s.Name }

func (s *WorkflowSource) Play(ctx context.Context, rect domain.Rect, emit func(event, comment string)) error {
	log, err := workflow.Build(s.Name, rect, s.Params)
	if err != nil {
		return err
	}
	s.Player.Markers = player.MarkerFunc(emit)
	res, err := s.Player.Replay(ctx, log, domain.Rect{})
	if s.Logger != nil {
		s.Logger.Info("workflow finished",
			zap.String("workflow", s.Name),
			zap.Int("steps", res.Steps),
			zap.Duration("max_deviation", res.MaxDeviation))
	}
	return err
}
