package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/nutridb/internal/logging"
	"github.com/fyrsmithlabs/nutridb/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary statistics for a populated database",
	Long: `Stats prints record counts, nutrient coverage and the food count per
category for an existing database.

Examples:
  nutridb stats --output data/nutrients.db`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&flagOutput, "output", "", "SQLite database path (overrides config)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	stats, err := st.CollectStats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", cfg.Database.Path)
	fmt.Fprintf(out, "  foods:               %d\n", stats.Foods)
	fmt.Fprintf(out, "  nutrient definitions: %d\n", stats.NutrientDefs)
	fmt.Fprintf(out, "  nutrient rows:        %d\n", stats.NutrientRows)
	fmt.Fprintf(out, "  avg nutrients/food:   %.1f\n", stats.AvgNutrientsPerFood)

	if len(stats.FoodsByCategory) > 0 {
		fmt.Fprintln(out, "Foods by category:")
		for _, cc := range stats.FoodsByCategory {
			name := cc.Category
			if name == "" {
				name = "(uncategorized)"
			}
			fmt.Fprintf(out, "  %-40s %d\n", name, cc.Count)
		}
	}
	return nil
}
