package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/fastbench/fbench/internal/output"
	"github.com/fastbench/fbench/internal/recorder"
	"github.com/fastbench/fbench/internal/uiauto"
)

// RecordCmd captures a live interaction session into an event log.
type RecordCmd struct {
	Out string `short:"o" required:"" help:"Path for the recorded event log" type:"path"`
}

// Run executes the record command. The session is controlled from stdin:
// pause / resume / mark <label> / stop (or Ctrl+C).
func (c *RecordCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg := globals.Config
	attachTimeout, err := time.ParseDuration(cfg.Target.AttachTimeout)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", fmt.Sprintf("invalid target.attach_timeout: %v", err))
	}

	attacher := uiauto.NewHelperAttacher(cfg.HelperCommand(), cfg.Target.TitleHint)
	window, err := attacher.Attach(ctx, attachTimeout)
	if err != nil {
		return outputErrorCommon(globals, "ATTACH_FAILED", err.Error())
	}
	rect, err := attacher.Rect(window)
	if err != nil {
		// fail closed: no rect means no partial log
		return outputErrorCommon(globals, "ATTACH_FAILED", err.Error())
	}

	warning := "input capture is global: everything typed or clicked is recorded, not just the target window"
	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteWarning(warning)
	} else if !globals.Quiet {
		fmt.Fprintf(globals.Stderr, "Warning: %s\n", warning)
	}

	hook := &uiauto.HelperHook{Helper: cfg.HelperCommand()}
	rec := recorder.New(hook, rect, nil)
	if err := rec.Start(ctx); err != nil {
		return outputErrorCommon(globals, "RECORD_FAILED", err.Error())
	}

	// command prompt only makes sense on an interactive terminal
	if !globals.Quiet && globals.Format != "ndjson" && isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintln(globals.Stderr, "Recording. Commands: pause | resume | mark <label> | stop")
	}

	// stdin command loop, interruptible by signal
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			switch {
			case line == "pause":
				rec.Pause()
			case line == "resume":
				rec.Resume()
			case strings.HasPrefix(line, "mark "):
				rec.Mark(strings.TrimPrefix(line, "mark "))
			case line == "stop":
				break loop
			}
		}
	}

	log, err := rec.Stop()
	if err != nil {
		return outputErrorCommon(globals, "RECORD_FAILED", err.Error())
	}
	if err := log.Save(c.Out); err != nil {
		return outputErrorCommon(globals, "RECORD_FAILED", err.Error())
	}

	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteRecorded(c.Out, len(log.Events), log.Duration().Milliseconds())
	} else if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Recorded %d events (%s) to %s\n", len(log.Events), log.Duration(), c.Out)
	}
	return nil
}
