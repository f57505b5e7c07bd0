// Package predict implements the offline prediction subcommand.
package predict

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinmap/clinmap-go/internal/artifact"
	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// Command creates the predict subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var sponsor string
	var version int
	var output string

	cmd := &cobra.Command{
		Use:   "predict [odm.xml]",
		Short: "Predict mappings for a local ODM document",
		Long:  "Run a trained model over the associations extracted from an ODM document and print the predicted mappings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(settings, args[0], sponsor, version, output)
		},
	}

	cmd.Flags().StringVar(&sponsor, "sponsor", "default", "Sponsor schema profile to use")
	cmd.Flags().IntVar(&version, "version", 0, "Model version to use (0 means latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the predictions to a file instead of stdout")

	return cmd
}

func runPredict(settings *conf.Settings, odmPath, sponsor string, version int, output string) error {
	profile, err := settings.Profile(sponsor)
	if err != nil {
		return err
	}

	odmData, err := os.ReadFile(odmPath)
	if err != nil {
		return errors.Newf("reading %s: %w", odmPath, err).
			Component("predict").
			Category(errors.CategoryFileIO).
			Build()
	}

	assocs, err := extract.AssociationsFromBytes(odmData, odmPath, &profile)
	if err != nil {
		return err
	}

	model, record, err := LoadModel(settings, version)
	if err != nil {
		return err
	}

	mappings := model.Predict(assocs)
	unmapped := training.Unmapped(assocs, mappings)
	if mappings == nil {
		mappings = []training.PredictedMapping{}
	}

	out, err := json.MarshalIndent(map[string]any{
		"model_version": record.Version,
		"mappings":      mappings,
		"unmapped":      unmapped,
		"count":         len(mappings),
	}, "", "  ")
	if err != nil {
		return err
	}

	if output != "" {
		return os.WriteFile(output, out, 0o644)
	}
	fmt.Println(string(out))
	return nil
}

// LoadModel resolves a registry version (0 meaning latest) to a loaded model.
func LoadModel(settings *conf.Settings, version int) (*training.Model, *knowledge.ModelRecord, error) {
	kb := knowledge.New(settings.Storage.KnowledgeDB)
	if err := kb.Open(); err != nil {
		return nil, nil, err
	}
	defer kb.Close()

	var record *knowledge.ModelRecord
	var err error
	if version <= 0 {
		record, err = kb.LatestModel()
	} else {
		var records []knowledge.ModelRecord
		records, err = kb.Models()
		if err == nil {
			for i := range records {
				if records[i].Version == version {
					record = &records[i]
					break
				}
			}
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, errors.New(errors.ErrModelUnavailable).
			Component("predict").
			Category(errors.CategoryModelLoad).
			Build()
	}

	artifacts, err := artifact.NewStore(settings.Storage.ModelPath)
	if err != nil {
		return nil, nil, err
	}
	path := record.ArtifactPath
	if path == "" {
		path = artifacts.Path(record.Version)
	}
	model, err := artifacts.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return model, record, nil
}
