package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/analysis"
	"github.com/canopy-analytics/canopy-cli/internal/config"
	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/split"
	"github.com/canopy-analytics/canopy-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Pittsburgh street-tree benefit analysis pipeline",
	Long:  "Loads the WPRDC street-tree inventory, cleans it, and trains random-forest models for the stormwater, air-quality, overhead-utility, and land-use research questions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// analysisOptions translates the loaded config into pipeline options.
func analysisOptions() analysis.Options {
	return analysis.Options{
		DataPath:     cfg.Data.Path,
		ArtifactsDir: cfg.Artifacts.Dir,
		ReportPath:   cfg.Report.Path,
		Split: split.Config{
			Proportion: cfg.Split.Proportion,
			Seed:       cfg.Split.Seed,
			MinRows:    cfg.Split.MinRows,
		},
		Forest: forest.Config{
			Trees:   cfg.Forest.Trees,
			MTry:    cfg.Forest.MTry,
			MinLeaf: cfg.Forest.MinLeaf,
			Seed:    cfg.Forest.Seed,
		},
		TopK: cfg.Evaluate.TopK,
	}
}

// openStore opens and migrates the run registry.
func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
