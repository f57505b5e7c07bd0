// Package export implements the offline document export subcommand.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/export"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// Command creates the export subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var sponsor string
	var output string

	cmd := &cobra.Command{
		Use:   "export [odm.xml]",
		Short: "Write saved mappings back into an ODM document",
		Long: "Overlay the corrected mappings saved in the knowledge base onto a local ODM " +
			"document and write the updated XML to a file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings, args[0], sponsor, output)
		},
	}

	cmd.Flags().StringVar(&sponsor, "sponsor", "default", "Sponsor schema profile to use")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path for the updated document (defaults to the configured export name)")

	return cmd
}

func runExport(settings *conf.Settings, odmPath, sponsor, output string) error {
	profile, err := settings.Profile(sponsor)
	if err != nil {
		return err
	}

	odmData, err := os.ReadFile(odmPath)
	if err != nil {
		return errors.Newf("reading %s: %w", odmPath, err).
			Component("export").
			Category(errors.CategoryFileIO).
			Build()
	}

	kb := knowledge.New(settings.Storage.KnowledgeDB)
	if err := kb.Open(); err != nil {
		return err
	}
	defer kb.Close()

	userMappings, err := kb.UserMappings()
	if err != nil {
		return err
	}
	if len(userMappings) == 0 {
		return errors.Newf("no saved mappings to export").
			Component("export").
			Category(errors.CategoryExport).
			Build()
	}

	mappings := make([]training.PredictedMapping, 0, len(userMappings))
	for i := range userMappings {
		mappings = append(mappings, training.PredictedMapping{
			StudyEventOID:     userMappings[i].StudyEventOID,
			ItemOID:           userMappings[i].ItemOID,
			TargetVisitID:     userMappings[i].TargetVisitID,
			TargetAttributeID: userMappings[i].TargetAttributeID,
		})
	}

	updated, err := export.UpdateODM(odmData, mappings, &profile)
	if err != nil {
		return err
	}

	if output == "" {
		output = settings.Storage.ExportedName
	}
	if err := os.WriteFile(output, updated, 0o644); err != nil {
		return errors.Newf("writing %s: %w", output, err).
			Component("export").
			Category(errors.CategoryFileIO).
			Build()
	}

	fmt.Printf("updated document written to %s (%d mappings)\n", output, len(mappings))
	return nil
}
