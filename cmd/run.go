package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/canopy-analytics/canopy-cli/internal/analysis"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis for all four research questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := analysisOptions()
		opts.Force = runForce
		opts.Store = st

		report, err := analysis.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "analysis run")
		}

		zap.L().Info("analysis complete",
			zap.String("run_id", report.RunID),
			zap.Int("train_rows", report.TrainRows),
			zap.Int("holdout_rows", report.HoldoutRows),
		)

		// Print the report YAML to stdout as well.
		data, err := yaml.Marshal(report)
		if err != nil {
			return eris.Wrap(err, "marshal report")
		}
		_, err = fmt.Fprint(os.Stdout, string(data))
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "retrain even when a valid cached artifact exists")
	rootCmd.AddCommand(runCmd)
}
