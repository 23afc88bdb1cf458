package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/fastbench/fbench/internal/domain"
)

// readiness and shutdown bounds for the sampler child
const (
	samplerReadyTimeout = 5 * time.Second
	samplerStopGrace    = 5 * time.Second
)

// ChildSampler runs the telemetry sampler as an independent child process
// (`fbench sample`), so sampling overhead stays out of the coordinator's
// process and a sampler crash cannot corrupt coordinator state. The only
// shared channel is the append-only CSV the child writes.
type ChildSampler struct {
	Interval time.Duration
	Logger   *zap.Logger

	cmd    *exec.Cmd
	waitCh chan error
}

// Start spawns the child bound to the monitored pid and waits until the
// output file header appears, which is the readiness signal.
func (s *ChildSampler) Start(ctx context.Context, pid int32, outPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	cmd := exec.Command(exe, "sample",
		"--pid", fmt.Sprint(pid),
		"--out", outPath,
		"--interval", interval.String())
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	s.cmd = cmd
	s.waitCh = make(chan error, 1)
	go func() { s.waitCh <- cmd.Wait() }()

	deadline := time.Now().Add(samplerReadyTimeout)
	for {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return nil
		}
		select {
		case err := <-s.waitCh:
			s.cmd = nil
			return fmt.Errorf("sampler exited before becoming ready: %w", errOrExited(err))
		case <-ctx.Done():
			s.kill()
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			s.kill()
			return errors.New("sampler produced no output within the readiness window")
		}
	}
}

func errOrExited(err error) error {
	if err == nil {
		return errors.New("exited early")
	}
	return err
}

func (s *ChildSampler) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		<-s.waitCh
		s.cmd = nil
	}
}

// Stop asks the child to flush and exit. Finding it already dead is a
// sampler crash: fatal to the run, though rows it wrote remain on disk.
func (s *ChildSampler) Stop() error {
	if s.cmd == nil {
		return nil
	}
	select {
	case err := <-s.waitCh:
		s.cmd = nil
		return &domain.SamplerError{Op: "crash", Err: errOrExited(err)}
	default:
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		// some platforms cannot deliver interrupts; fall back to kill
		if s.Logger != nil {
			s.Logger.Debug("interrupt failed, killing sampler", zap.Error(err))
		}
		s.kill()
		return nil
	}
	select {
	case <-s.waitCh:
		s.cmd = nil
		return nil
	case <-time.After(samplerStopGrace):
		s.kill()
		return nil
	}
}
