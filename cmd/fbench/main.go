package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/fastbench/fbench/internal/cli"
	"github.com/fastbench/fbench/internal/config"
)

const quickStart = `fbench - deterministic file-access benchmark driver

Quick start:
  fbench record -o scrub.json           Record an interaction session
  fbench replay scrub.json              Verify a recording (no measurement)
  fbench run --mode shared_zgy --workflow scrub --cache cold
  fbench runs                           List past runs

For help:
  fbench --help                         All commands and flags
  fbench config generate                Sample configuration file
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing
	// These will be overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format": cfg.Format,
	}

	ctx := kong.Parse(&c,
		kong.Name("fbench"),
		kong.Description("fbench: benchmark file-access performance of an interactive desktop application"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
