package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canopy-analytics/canopy-cli/internal/analysis"
)

var (
	trainQuestion string
	trainForce    bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train (or load the cached model for) a single research question",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analysisOptions()
		opts.Force = trainForce

		outcome, err := analysis.TrainOne(trainQuestion, opts)
		if err != nil {
			return eris.Wrapf(err, "train %s", trainQuestion)
		}

		data, err := yaml.Marshal(outcome)
		if err != nil {
			return eris.Wrap(err, "marshal outcome")
		}
		_, err = fmt.Fprint(os.Stdout, string(data))
		return err
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainQuestion, "question", "", "research question id (stormwater, air, overhead, landuse)")
	trainCmd.Flags().BoolVar(&trainForce, "force", false, "retrain even when a valid cached artifact exists")
	_ = trainCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(trainCmd)
}
