// Package config implements the configuration write-out subcommand.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinmap/clinmap-go/internal/conf"
)

// Command creates the config subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to a file",
		Long: "Write the fully merged configuration, defaults, config file, environment " +
			"and flags combined, including the compiled-in sponsor profiles, to a YAML file " +
			"that can be edited and used as config.yaml.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(settings, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "config.yaml", "Path to write the configuration to")

	return cmd
}

func runConfig(settings *conf.Settings, output string) error {
	if err := conf.SaveYAMLConfig(output, settings); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", output)
	return nil
}
