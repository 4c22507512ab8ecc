package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/y0sshi/conveyor/internal/app"
	"github.com/y0sshi/conveyor/internal/cli"
	"github.com/y0sshi/conveyor/internal/hcl"
	"github.com/y0sshi/conveyor/internal/yamlcfg"
)

// main is the entrypoint for the conveyor application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, parseErr := cli.Parse(args, outW)
	if parseErr != nil {
		return parseErr
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors, so we recover here to turn
	// the panic into a clean error for the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	// Instantiate the concrete manifest loaders to pass to the app.
	conveyorApp := app.NewApp(outW, appConfig, hcl.NewLoader(), yamlcfg.NewLoader())

	return conveyorApp.Run(context.Background(), appConfig)
}
