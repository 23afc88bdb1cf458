package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastbench/fbench/internal/output"
	"github.com/fastbench/fbench/internal/sampler"
)

// SampleCmd is the out-of-process telemetry sampler entry point. The run
// coordinator spawns it as an independent child so sampling overhead stays
// out of the measured process tree; it can also be run by hand against any
// pid.
type SampleCmd struct {
	PID      int32         `required:"" help:"Process id to monitor"`
	Out      string        `required:"" help:"Output CSV path" type:"path"`
	Interval time.Duration `default:"1s" help:"Sampling cadence"`
	Duration time.Duration `help:"Stop after this long (default: until signalled)"`
}

// Run executes the sample command.
func (c *SampleCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()
	if c.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.Duration)
		defer cancelTimeout()
	}

	writer, err := output.NewSampleWriter(c.Out)
	if err != nil {
		return outputErrorCommon(globals, "SAMPLER_ERROR", err.Error())
	}

	logger := newRunLogger(globals)
	defer logger.Sync()

	probe := sampler.NewSystemProbe(c.PID, globals.Config.Sampler.DataExtensions)
	s := sampler.New(c.PID, c.Interval, probe, writer, logger)

	runErr := s.Run(ctx)
	if closeErr := writer.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return outputErrorCommon(globals, "SAMPLER_ERROR", runErr.Error())
	}
	return nil
}
