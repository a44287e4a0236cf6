package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canopy-analytics/canopy-cli/internal/analysis"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run the shared cleaning pipeline and report row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analysis.Prepare(cfg.Data.Path)
		if err != nil {
			return eris.Wrap(err, "clean")
		}

		data, err := yaml.Marshal(res.Report)
		if err != nil {
			return eris.Wrap(err, "marshal clean report")
		}
		_, err = fmt.Fprint(os.Stdout, string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
