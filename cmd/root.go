// Package cmd assembles the command line interface of the mapping service.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clinmap/clinmap-go/cmd/config"
	"github.com/clinmap/clinmap-go/cmd/export"
	"github.com/clinmap/clinmap-go/cmd/predict"
	"github.com/clinmap/clinmap-go/cmd/serve"
	"github.com/clinmap/clinmap-go/cmd/train"
	"github.com/clinmap/clinmap-go/cmd/validate"
	"github.com/clinmap/clinmap-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clinmap",
		Short: "Clinical data mapping resolution and validation engine",
		Long: "clinmap trains predictive models from ODM and ViewMapping documents, " +
			"infers visit and attribute mappings for new documents, validates candidate " +
			"mapping sets and writes confirmed mappings back into the source XML.",
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(settings),
		train.Command(settings),
		predict.Command(settings),
		validate.Command(settings),
		export.Command(settings),
		config.Command(settings),
	)

	return rootCmd
}
