package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fastbench/fbench/internal/config"
)

// ConfigCmd groups configuration inspection subcommands.
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is in use"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample configuration file"`
}

// ConfigShowCmd shows the effective configuration.
type ConfigShowCmd struct{}

// Run executes the config show command.
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]any{
			"type":     "config",
			"format":   cfg.Format,
			"out_dir":  cfg.OutDir,
			"operator": cfg.Operator,
			"target":   cfg.Target,
			"uiauto":   cfg.UIAuto,
			"modes":    cfg.Modes,
			"cache":    cfg.Cache,
			"sampler":  cfg.Sampler,
			"player":   cfg.Player,
			"defaults": cfg.Defaults,
		})
	}

	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintf(globals.Stdout, "  format: %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  out_dir: %s\n", cfg.OutDir)
	fmt.Fprintf(globals.Stdout, "  operator: %s\n", cfg.Operator)
	fmt.Fprintf(globals.Stdout, "  target.exe_path: %s\n", cfg.Target.ExePath)
	fmt.Fprintf(globals.Stdout, "  target.title_hint: %s\n", cfg.Target.TitleHint)
	fmt.Fprintf(globals.Stdout, "  target.attach_timeout: %s\n", cfg.Target.AttachTimeout)
	fmt.Fprintf(globals.Stdout, "  uiauto.helper: %s\n", cfg.UIAuto.Helper)
	fmt.Fprintf(globals.Stdout, "  cache.cold_command: %s\n", cfg.Cache.ColdCommand)
	fmt.Fprintf(globals.Stdout, "  sampler.interval: %s\n", cfg.Sampler.Interval)
	fmt.Fprintf(globals.Stdout, "  sampler.data_extensions: %v\n", cfg.Sampler.DataExtensions)
	fmt.Fprintf(globals.Stdout, "  player.failsafe: %v\n", cfg.Player.Failsafe)
	fmt.Fprintln(globals.Stdout, "  Modes:")
	for name, mode := range cfg.Modes {
		fmt.Fprintf(globals.Stdout, "    %s: %s\n", name, mode.ProjectPath)
	}
	fmt.Fprintln(globals.Stdout, "  Defaults:")
	fmt.Fprintf(globals.Stdout, "    scrub_count: %d\n", cfg.Defaults.ScrubCount)
	fmt.Fprintf(globals.Stdout, "    scrub_delay_ms: %d\n", cfg.Defaults.ScrubDelayMS)
	fmt.Fprintf(globals.Stdout, "    scrub_key: %s\n", cfg.Defaults.ScrubKey)
	return nil
}

// ConfigPathCmd shows the config file in use.
type ConfigPathCmd struct{}

// Run executes the config path command.
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]any{
			"type": "config_path",
			"path": path,
		})
	}
	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found (using defaults)")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}
	return nil
}

// ConfigGenerateCmd prints a sample configuration file.
type ConfigGenerateCmd struct{}

const sampleConfig = `# fbench configuration file
format: ndjson
out_dir: runs
operator: ""

target:
  exe_path: "C:/Program Files/Target/Target.exe"
  title_hint: "Target"
  attach_timeout: 180s

uiauto:
  helper: "fbench-uiauto-helper"

modes:
  shared_zgy:
    project_path: "D:/projects/shared_zgy.proj"
    hint: "//nas/seismic"
  fast_vzgy:
    project_path: "D:/projects/fast_vzgy.proj"
    hint: "fast-cache"

cache:
  cold_command: "purge-caches --all"
  timeout: 120s

sampler:
  interval: 1s
  data_extensions: [".zgy"]

player:
  failsafe: true

defaults:
  scrub_count: 100
  scrub_delay_ms: 40
  scrub_key: pgdn
`

// Run executes the config generate command.
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	fmt.Fprint(globals.Stdout, sampleConfig)
	return nil
}
