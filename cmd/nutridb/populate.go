package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nutridb/internal/checkpoint"
	"github.com/fyrsmithlabs/nutridb/internal/config"
	"github.com/fyrsmithlabs/nutridb/internal/fdc"
	"github.com/fyrsmithlabs/nutridb/internal/logging"
	"github.com/fyrsmithlabs/nutridb/internal/pipeline"
	"github.com/fyrsmithlabs/nutridb/internal/ratelimit"
	"github.com/fyrsmithlabs/nutridb/internal/store"
	"github.com/fyrsmithlabs/nutridb/internal/validate"
)

var (
	flagAPIKey string
	flagOutput string
	flagFoods  int
	flagResume bool
	flagQuery  string
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Fetch the food catalog and populate the local database",
	Long: `Populate fetches the SR Legacy catalog from FoodData Central, resolves
each food's nutrient profile and writes everything into a local SQLite
database, finishing with a full-text search index and a validation pass.

The run is checkpointed: an interrupted run (Ctrl-C) saves progress and
exits with code 3; rerun with --resume to pick up where it stopped.

Examples:
  # Full run (key from USDA_API_KEY or config file)
  nutridb populate --output data/nutrients.db

  # Bounded trial run
  nutridb populate --api-key DEMO_KEY --foods 100

  # Resume after an interruption
  nutridb populate --resume`,
	Args: cobra.NoArgs,
	RunE: runPopulate,
}

func init() {
	populateCmd.Flags().StringVar(&flagAPIKey, "api-key", "", "FoodData Central API key (overrides config and USDA_API_KEY)")
	populateCmd.Flags().StringVar(&flagOutput, "output", "", "SQLite database path (overrides config)")
	populateCmd.Flags().IntVar(&flagFoods, "foods", 0, "stop after this many completed foods (0 = all)")
	populateCmd.Flags().BoolVar(&flagResume, "resume", false, "resume from the existing checkpoint")
	populateCmd.Flags().StringVar(&flagQuery, "query", "", "narrow the catalog search (default: all records)")
	rootCmd.AddCommand(populateCmd)
}

func runPopulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagAPIKey != "" {
		cfg.API.Key = config.Secret(flagAPIKey)
	}
	if flagFoods > 0 {
		cfg.Pipeline.TargetCount = flagFoods
	}
	if flagQuery != "" {
		cfg.Pipeline.Query = flagQuery
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	if !cfg.API.Key.IsSet() {
		return fmt.Errorf("%w: no API key (use --api-key, NUTRIDB_API_KEY or USDA_API_KEY)", fdc.ErrCredential)
	}

	for _, dir := range []string{filepath.Dir(cfg.Database.Path), filepath.Dir(cfg.Checkpoint.Path)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create output directory %s: %v", errSetup, dir, err)
		}
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("%w: open database: %v", errSetup, err)
	}
	defer st.Close()

	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Ceiling:      cfg.RateLimit.Ceiling,
		Window:       cfg.RateLimit.Window.Duration(),
		PaceInterval: cfg.RateLimit.PaceInterval.Duration(),
	}, logger)

	client, err := fdc.NewClient(&fdc.Config{
		APIKey:   cfg.API.Key.Value(),
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout.Duration(),
		DataType: cfg.API.DataType,
		Retry:    &fdc.RetryConfig{MaxRetries: cfg.API.MaxRetries},
	}, limiter, logger)
	if err != nil {
		return err
	}

	checkpoints := checkpoint.NewStore(cfg.Checkpoint.Path, logger)

	p, err := pipeline.New(&pipeline.Config{
		TargetCount: cfg.Pipeline.TargetCount,
		Resume:      flagResume,
		SaveEvery:   cfg.Checkpoint.SaveEvery,
		Query:       cfg.Pipeline.Query,
		PageSize:    cfg.Pipeline.PageSize,
		LockPath:    cfg.Pipeline.LockPath,
		Validation: &validate.Config{
			MinFoods:         cfg.Validation.MinFoods,
			MinAvgNutrients:  cfg.Validation.MinAvgNutrients,
			MaxSearchLatency: cfg.Validation.MaxSearchLatency.Duration(),
			SampleQuery:      cfg.Validation.SampleQuery,
		},
	}, client, limiter, st, checkpoints, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", errSetup, err)
	}

	logger.Info("starting population run",
		zap.String("database", cfg.Database.Path),
		zap.String("checkpoint", cfg.Checkpoint.Path),
		zap.Int("target_count", cfg.Pipeline.TargetCount),
		zap.Bool("resume", flagResume),
		logging.Secret("api_key", cfg.API.Key),
	)

	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	printRunSummary(cmd, res)
	return nil
}

func printRunSummary(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run finished: %s\n", res.State)
	fmt.Fprintf(out, "  completed: %d\n", res.Completed)
	fmt.Fprintf(out, "  failed:    %d\n", res.Failed)
	fmt.Fprintf(out, "  success:   %.1f%%\n", res.SuccessRate)
	if res.Validation != nil {
		printReport(cmd, res.Validation)
	}
}

// loadConfig loads the YAML/env config, honoring the --output flag. The
// lock file follows the database path so two runs against different
// databases do not block each other.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSetup, err)
	}
	if flagOutput != "" {
		cfg.Database.Path = flagOutput
		cfg.Pipeline.LockPath = flagOutput + ".lock"
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	lcfg := logging.NewDefaultConfig()
	lcfg.Level = cfg.Logging.Level
	lcfg.Format = cfg.Logging.Format

	logger, err := logging.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSetup, err)
	}
	return logger, nil
}
