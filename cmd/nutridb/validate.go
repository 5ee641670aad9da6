package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/nutridb/internal/logging"
	"github.com/fyrsmithlabs/nutridb/internal/store"
	"github.com/fyrsmithlabs/nutridb/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run sanity checks against a populated database",
	Long: `Validate runs read-only checks against an existing database: food count
lower bound, average nutrient coverage per food and sample search latency.

Exits non-zero when any check fails.

Examples:
  nutridb validate --output data/nutrients.db`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&flagOutput, "output", "", "SQLite database path (overrides config)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("%w: open database: %v", errSetup, err)
	}
	defer st.Close()

	v, err := validate.NewValidator(&validate.Config{
		MinFoods:         cfg.Validation.MinFoods,
		MinAvgNutrients:  cfg.Validation.MinAvgNutrients,
		MaxSearchLatency: cfg.Validation.MaxSearchLatency.Duration(),
		SampleQuery:      cfg.Validation.SampleQuery,
	}, st, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", errSetup, err)
	}

	report, err := v.Run()
	if err != nil {
		return err
	}

	printReport(cmd, report)
	if !report.Passed {
		return errors.New("validation failed")
	}
	return nil
}

func printReport(cmd *cobra.Command, report *validate.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validation:")
	for _, c := range report.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(out, "  [%s] %s: %s\n", status, c.Name, c.Detail)
	}
}
