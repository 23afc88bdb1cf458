package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/output"
	"github.com/fastbench/fbench/internal/player"
	"github.com/fastbench/fbench/internal/uiauto"
)

// ReplayCmd replays a recorded event log outside a coordinated run, for
// verifying a recording before using it in a benchmark.
type ReplayCmd struct {
	Log        string `arg:"" help:"Recorded event log to replay" type:"path"`
	Rect       string `help:"Target rect override as left,top,right,bottom"`
	NoFailsafe bool   `help:"Disable the pointer-corner emergency abort"`
}

// Run executes the replay command.
func (c *ReplayCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	log, err := domain.LoadEventLog(c.Log)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_EVENT_LOG", err.Error())
	}

	var override domain.Rect
	if c.Rect != "" {
		if _, err := fmt.Sscanf(c.Rect, "%d,%d,%d,%d", &override.Left, &override.Top, &override.Right, &override.Bottom); err != nil {
			return outputErrorCommon(globals, "INVALID_RECT", fmt.Sprintf("cannot parse rect %q: %v", c.Rect, err))
		}
	}

	dispatcher, err := uiauto.StartHelperDispatcher(ctx, globals.Config.HelperCommand())
	if err != nil {
		return outputErrorCommon(globals, "HELPER_FAILED", err.Error(),
			"configure uiauto.helper with the UI automation helper command")
	}
	defer dispatcher.Close()

	logger := newRunLogger(globals)
	defer logger.Sync()

	ndjson := output.NewNDJSONWriter(globals.Stdout)
	p := player.New(dispatcher, func(event, comment string) {
		if globals.Format == "ndjson" {
			ndjson.WriteInfo("marker: " + event)
		} else if !globals.Quiet {
			fmt.Fprintf(globals.Stderr, "marker: %s\n", event)
		}
	}, logger)
	p.FailsafeEnabled = globals.Config.Player.Failsafe && !c.NoFailsafe

	res, err := p.Replay(ctx, log, override)
	if err != nil {
		return outputErrorCommon(globals, errorCode(err), err.Error())
	}

	if globals.Format == "ndjson" {
		ndjson.WriteReplayResult(res.Steps,
			float64(res.MaxDeviation.Microseconds())/1000,
			float64(res.MeanDeviation.Microseconds())/1000,
			res.Duration.Milliseconds())
	} else if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Replayed %d events in %s (max deviation %s)\n",
			res.Steps, res.Duration, res.MaxDeviation)
	}
	return nil
}
