package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fastbench/fbench/internal/domain"
	"github.com/fastbench/fbench/internal/hostinfo"
	"github.com/fastbench/fbench/internal/output"
	"github.com/fastbench/fbench/internal/player"
	"github.com/fastbench/fbench/internal/runindex"
	"github.com/fastbench/fbench/internal/runner"
	"github.com/fastbench/fbench/internal/uiauto"
	"github.com/fastbench/fbench/internal/workflow"
)

// RunCmd executes one coordinated benchmark run.
type RunCmd struct {
	Mode           string `short:"m" required:"" help:"Backend mode for this run (configured under modes:)"`
	Log            string `short:"l" help:"Recorded event log to replay" type:"path"`
	Workflow       string `short:"w" help:"Named scripted workflow to drive instead of a recording"`
	WorkflowParams string `help:"YAML file with workflow parameters" type:"path"`
	CachePolicy    string `short:"c" default:"warm" help:"Cache policy: cold or warm"`
	Operator       string `help:"Operator name recorded in the manifest"`
	OutDir         string `short:"o" help:"Output directory (default from config)"`
}

// Run executes the run command.
func (c *RunCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg := globals.Config
	logger := newRunLogger(globals)
	defer logger.Sync()

	policy, err := runner.ParseCachePolicy(c.CachePolicy)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CACHE_POLICY", err.Error())
	}
	if (c.Log == "") == (c.Workflow == "") {
		return outputErrorCommon(globals, "INVALID_SOURCE", "exactly one of --log or --workflow is required")
	}
	if len(cfg.Modes) > 0 {
		if _, ok := cfg.Modes[c.Mode]; !ok {
			return outputErrorCommon(globals, "UNKNOWN_MODE", fmt.Sprintf("mode %q is not configured", c.Mode))
		}
	}
	attachTimeout, err := time.ParseDuration(cfg.Target.AttachTimeout)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", fmt.Sprintf("invalid target.attach_timeout: %v", err))
	}
	samplerInterval, err := time.ParseDuration(cfg.Sampler.Interval)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", fmt.Sprintf("invalid sampler.interval: %v", err))
	}
	cacheTimeout, err := time.ParseDuration(cfg.Cache.Timeout)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", fmt.Sprintf("invalid cache.timeout: %v", err))
	}

	outDir := c.OutDir
	if outDir == "" {
		outDir = cfg.OutDir
	}
	runDir := filepath.Join(outDir, fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102_150405"), c.Mode))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return outputErrorCommon(globals, "OUTPUT_DIR", err.Error())
	}

	dispatcher, err := uiauto.StartHelperDispatcher(ctx, cfg.HelperCommand())
	if err != nil {
		return outputErrorCommon(globals, "HELPER_FAILED", err.Error(),
			"configure uiauto.helper with the UI automation helper command")
	}
	defer dispatcher.Close()

	p := player.New(dispatcher, nil, logger)
	p.FailsafeEnabled = cfg.Player.Failsafe

	var source runner.Source
	eventLogPath := ""
	if c.Log != "" {
		log, err := domain.LoadEventLog(c.Log)
		if err != nil {
			return outputErrorCommon(globals, "INVALID_EVENT_LOG", err.Error())
		}
		source = &runner.LogSource{Path: c.Log, Log: log, Player: p, Logger: logger}
		eventLogPath = c.Log
	} else {
		params := workflow.Params{
			Count:   cfg.Defaults.ScrubCount,
			DelayMS: cfg.Defaults.ScrubDelayMS,
			Key:     cfg.Defaults.ScrubKey,
		}
		if c.WorkflowParams != "" {
			loaded, err := workflow.LoadParams(c.WorkflowParams)
			if err != nil {
				return outputErrorCommon(globals, "INVALID_WORKFLOW_PARAMS", err.Error())
			}
			params = loaded
		}
		source = &runner.WorkflowSource{Name: c.Workflow, Params: params, Player: p, Logger: logger}
	}

	var index *runindex.Index
	if idx, err := runindex.Open(outDir); err == nil {
		index = idx
		defer index.Close()
	} else {
		globals.Debug("run index unavailable: %v", err)
	}

	ndjson := output.NewNDJSONWriter(globals.Stdout)

	r := &runner.Runner{
		Attacher:      uiauto.NewHelperAttacher(cfg.HelperCommand(), cfg.Target.TitleHint),
		AttachTimeout: attachTimeout,
		CachePolicy:   policy,
		Cache:         &runner.CommandCache{Command: cfg.Cache.ColdCommand, Timeout: cacheTimeout},
		Sampler:       &runner.ChildSampler{Interval: samplerInterval, Logger: logger},
		Source:        source,
		Mode:          c.Mode,
		Operator:      firstNonEmpty(c.Operator, cfg.Operator),
		Host:          hostinfo.Collect(),
		RunDir:        runDir,
		EventLogPath:  eventLogPath,
		Logger:        logger,
		Index:         index,
		OnState: func(s runner.State) {
			if globals.Format == "ndjson" {
				ndjson.WriteRunState(string(s))
			} else if !globals.Quiet {
				fmt.Fprintf(globals.Stderr, "state: %s\n", s)
			}
		},
		OnMarker: func(m domain.Marker) {
			if globals.Format == "ndjson" {
				ndjson.WriteMarker(m)
			} else if !globals.Quiet {
				fmt.Fprintf(globals.Stderr, "marker: %s %s\n", domain.FormatUTC(m.Timestamp), m.Event)
			}
		},
	}

	manifest, runErr := r.Execute(ctx)
	if runErr != nil {
		return outputErrorCommon(globals, errorCode(runErr), runErr.Error(),
			fmt.Sprintf("partial artifacts preserved in %s", runDir))
	}

	if globals.Format == "ndjson" {
		ndjson.WriteInfo(fmt.Sprintf("run %s finalized: %s", manifest.RunID, filepath.Join(runDir, "manifest.json")))
	} else if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Run %s finalized\n", manifest.RunID)
		fmt.Fprintf(globals.Stdout, "Manifest: %s\n", filepath.Join(runDir, "manifest.json"))
		fmt.Fprintf(globals.Stdout, "Telemetry: %s\n", manifest.MetricsPath)
		fmt.Fprintf(globals.Stdout, "Markers: %s\n", manifest.MarkersPath)
	}
	return nil
}

// errorCode maps the error taxonomy to stable machine-readable codes.
func errorCode(err error) string {
	var (
		cfgErr      *domain.ConfigError
		valErr      *domain.ValidationError
		attachErr   *domain.AttachTimeoutError
		samplerErr  *domain.SamplerError
		failsafe    *domain.FailsafeAbort
		externalErr *domain.ExternalCommandError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "CONFIG_ERROR"
	case errors.As(err, &valErr):
		return "VALIDATION_ERROR"
	case errors.As(err, &attachErr):
		return "ATTACH_TIMEOUT"
	case errors.As(err, &samplerErr):
		return "SAMPLER_ERROR"
	case errors.As(err, &failsafe):
		return "FAILSAFE_ABORT"
	case errors.As(err, &externalErr):
		return "EXTERNAL_COMMAND_FAILED"
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	}
	return "RUN_FAILED"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
