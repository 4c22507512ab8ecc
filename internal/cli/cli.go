package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/y0sshi/conveyor/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("conveyor", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Conveyor - a dependency-ordered pipeline executor with keyed artifact caching.

Usage:
  conveyor [options] [MANIFEST_PATH]

Arguments:
  MANIFEST_PATH
    Path to a single manifest file (.hcl, .yml, .yaml) or a directory
    containing manifests.

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to the manifest file or directory.")
	mFlag := flagSet.String("m", "", "Path to the manifest file or directory (shorthand).")
	workDirFlag := flagSet.String("workdir", "", "Directory job commands run in. Defaults to the current directory.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Artifact cache directory. Empty disables caching.")
	settingsFlag := flagSet.String("settings", "", "Path to a TOML settings file with runner defaults.")
	listenFlag := flagSet.String("listen", "", "Webhook listen address (e.g. ':8080'). Empty runs a single event and exits.")
	eventFlag := flagSet.String("event", "push", "Triggering event kind for one-shot mode. Options: 'push' or 'pull_request'.")
	branchFlag := flagSet.String("branch", "", "Triggering branch for one-shot mode.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	path := ""
	if *manifestFlag != "" {
		path = *manifestFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Manifest path determined.", "path", path)

	if path == "" {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg := app.Config{
		ManifestPath: path,
		WorkDir:      *workDirFlag,
		CacheDir:     *cacheDirFlag,
		Listen:       *listenFlag,
		Event:        strings.ToLower(*eventFlag),
		Branch:       *branchFlag,
		LogFormat:    strings.ToLower(*logFormatFlag),
		LogLevel:     strings.ToLower(*logLevelFlag),
		WorkerCount:  *workersFlag,
	}

	// Settings fill in whatever the user did not say on the command line.
	if *settingsFlag != "" {
		settings, err := app.LoadSettings(*settingsFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		applySettings(&cfg, settings, explicit)
		slog.Debug("Settings file applied.", "path", *settingsFlag)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if cfg.Event != "push" && cfg.Event != "pull_request" {
		return nil, false, &ExitError{Code: 2, Message: "invalid event: must be 'push' or 'pull_request'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// applySettings copies settings values into cfg for every field whose flag
// the user did not set explicitly.
func applySettings(cfg *app.Config, s *app.Settings, explicit map[string]bool) {
	if !explicit["workers"] && s.Workers > 0 {
		cfg.WorkerCount = s.Workers
	}
	if !explicit["cache-dir"] && s.CacheDir != "" {
		cfg.CacheDir = s.CacheDir
	}
	if !explicit["workdir"] && s.WorkDir != "" {
		cfg.WorkDir = s.WorkDir
	}
	if !explicit["listen"] && s.Listen != "" {
		cfg.Listen = s.Listen
	}
	if !explicit["log-level"] && s.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(s.LogLevel)
	}
	if !explicit["log-format"] && s.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(s.LogFormat)
	}
}
