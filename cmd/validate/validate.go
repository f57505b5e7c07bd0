// Package validate implements the offline validation subcommand.
package validate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinmap/clinmap-go/cmd/predict"
	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/validation"
)

// Command creates the validate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var sponsor string
	var version int

	cmd := &cobra.Command{
		Use:   "validate [viewmap.xml]",
		Short: "Validate a candidate mapping document",
		Long: "Check every mapping in a ViewMapping document against the known-correct set " +
			"of a trained model and print per-field correction suggestions for the mismatches.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(settings, args[0], sponsor, version)
		},
	}

	cmd.Flags().StringVar(&sponsor, "sponsor", "default", "Sponsor schema profile to use")
	cmd.Flags().IntVar(&version, "version", 0, "Model version to validate against (0 means latest)")

	return cmd
}

func runValidate(settings *conf.Settings, viewPath, sponsor string, version int) error {
	profile, err := settings.Profile(sponsor)
	if err != nil {
		return err
	}

	viewData, err := os.ReadFile(viewPath)
	if err != nil {
		return errors.Newf("reading %s: %w", viewPath, err).
			Component("validate").
			Category(errors.CategoryFileIO).
			Build()
	}

	candidates, err := extract.ViewEntriesFromBytes(viewData, viewPath, &profile)
	if err != nil {
		return err
	}

	model, record, err := predict.LoadModel(settings, version)
	if err != nil {
		return err
	}

	results := validation.Validate(model.Corpus, candidates)
	summary := validation.Summarize(results)

	out, err := json.MarshalIndent(map[string]any{
		"model_version": record.Version,
		"results":       results,
		"summary":       summary,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
