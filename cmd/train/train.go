// Package train implements the offline training subcommand.
package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clinmap/clinmap-go/internal/artifact"
	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// Command creates the train subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var sponsor string

	cmd := &cobra.Command{
		Use:   "train [odm.xml] [viewmap.xml]",
		Short: "Train a mapping model from local documents",
		Long: "Join an ODM document against a ViewMapping document, fit a fresh model, " +
			"persist the artifact and register the new version in the knowledge base.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(settings, args[0], args[1], sponsor)
		},
	}

	cmd.Flags().StringVar(&sponsor, "sponsor", "default", "Sponsor schema profile to use")
	cmd.Flags().IntVar(&settings.Classifier.Trees, "trees", viper.GetInt("classifier.trees"), "Number of bagged trees per classifier")
	cmd.Flags().Int64Var(&settings.Classifier.Seed, "seed", viper.GetInt64("classifier.seed"), "Random seed for deterministic training")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runTrain(settings *conf.Settings, odmPath, viewPath, sponsor string) error {
	profile, err := settings.Profile(sponsor)
	if err != nil {
		return err
	}

	odmData, err := os.ReadFile(odmPath)
	if err != nil {
		return errors.Newf("reading %s: %w", odmPath, err).
			Component("train").
			Category(errors.CategoryFileIO).
			Build()
	}
	viewData, err := os.ReadFile(viewPath)
	if err != nil {
		return errors.Newf("reading %s: %w", viewPath, err).
			Component("train").
			Category(errors.CategoryFileIO).
			Build()
	}

	assocs, err := extract.AssociationsFromBytes(odmData, odmPath, &profile)
	if err != nil {
		return err
	}
	corpus, err := extract.ViewEntriesFromBytes(viewData, viewPath, &profile)
	if err != nil {
		return err
	}

	table, err := training.BuildTrainingTable(assocs, corpus)
	if err != nil {
		return err
	}

	model, err := training.Fit(table, corpus, training.Options{
		Trees: settings.Classifier.Trees,
		Seed:  settings.Classifier.Seed,
	})
	if err != nil {
		return err
	}

	kb := knowledge.New(settings.Storage.KnowledgeDB)
	if err := kb.Open(); err != nil {
		return err
	}
	defer kb.Close()

	artifacts, err := artifact.NewStore(settings.Storage.ModelPath)
	if err != nil {
		return err
	}

	version, err := kb.NextVersion()
	if err != nil {
		return err
	}
	path, err := artifacts.Save(model, version)
	if err != nil {
		return err
	}

	if err := kb.RegisterModel(&knowledge.ModelRecord{
		Version:          version,
		ArtifactID:       model.Metadata.ID,
		ArtifactPath:     path,
		TrainedAt:        model.Metadata.TrainedAt,
		ODMFilename:      filepath.Base(odmPath),
		ViewMapFilename:  filepath.Base(viewPath),
		TrainSamples:     model.Metadata.TrainSamples,
		MappingsCount:    model.Metadata.MappingsCount,
		AccuracyEstimate: model.Metadata.AccuracyEstimate,
		Notes:            model.Metadata.Notes,
	}); err != nil {
		return err
	}
	if err := kb.AddActivity(knowledge.ActivityTrain, fmt.Sprintf("model v%d trained on %d samples", version, model.Metadata.TrainSamples)); err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"model_version":  version,
		"artifact":       path,
		"train_samples":  model.Metadata.TrainSamples,
		"mappings_count": model.Metadata.MappingsCount,
		"accuracy":       model.Metadata.AccuracyEstimate,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
