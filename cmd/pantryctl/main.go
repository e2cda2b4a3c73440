package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rl1809/pantry-sync/internal/app"
	"github.com/rl1809/pantry-sync/internal/cli"
	"github.com/rl1809/pantry-sync/internal/config"
)

func main() {
	_ = godotenv.Load()

	cmd := cli.NewRootCommand(openBackend)
	if err := cmd.Execute(); err != nil {
		// ExitErrors were already rendered by the command.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

func openBackend(ctx context.Context, opts *cli.RootOptions) (*cli.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Keep stdout for command output.
	cfg.Log.Output = "stderr"
	cfg.Log.Format = "console"
	cfg.Log.Level = "warn"
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	infra, err := app.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, err
	}
	infra.StartCleanupWorkers(ctx)

	return &cli.Backend{
		Synchronizer: infra.Synchronizer(),
		Identity:     infra.Identity(),
		Close:        infra.Shutdown,
	}, nil
}
