// Package main implements the nutridb CLI for building and inspecting the
// local nutrition database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/nutridb/internal/checkpoint"
	"github.com/fyrsmithlabs/nutridb/internal/fdc"
	"github.com/fyrsmithlabs/nutridb/internal/pipeline"
)

// Exit codes. Interrupted runs exit 3 so wrappers can distinguish "resume
// me" from real failures.
const (
	exitOK          = 0
	exitFailure     = 1
	exitSetup       = 2
	exitInterrupted = 3
)

// errSetup marks failures that happen before the run mutates any state.
var errSetup = errors.New("setup failed")

var (
	// configPath is the --config override for the YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	// First SIGINT/SIGTERM cancels the run context; the pipeline saves a
	// resumable checkpoint on its way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Unregister the handler once the first signal lands, restoring the
	// default disposition so a second signal kills the process instead
	// of being swallowed while the checkpoint save finishes.
	go func() {
		<-ctx.Done()
		stop()
	}()

	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, pipeline.ErrInterrupted) {
		fmt.Fprintln(os.Stderr, "interrupted: checkpoint saved, rerun with --resume")
	}
	return exitCode(err)
}

// exitCode maps a command error onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrInterrupted):
		return exitInterrupted
	case errors.Is(err, errSetup),
		errors.Is(err, pipeline.ErrLocked),
		errors.Is(err, checkpoint.ErrCorrupt),
		errors.Is(err, fdc.ErrCredential):
		return exitSetup
	default:
		return exitFailure
	}
}

var rootCmd = &cobra.Command{
	Use:   "nutridb",
	Short: "Build a local SQLite nutrition database from FoodData Central",
	Long: `nutridb populates a local SQLite database with USDA FoodData Central
records: food descriptions, a canonical nutrient catalog, per-food nutrient
amounts and a full-text search index.

Runs are rate-limited, checkpointed and resumable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (default ~/.config/nutridb/config.yaml)")
}
