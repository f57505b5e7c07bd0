package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/clinmap/clinmap-go/internal/conf"
)

func TestConfigCommandWritesEffectiveSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.Main.Name = "clinmap-test"
	settings.Server = conf.ServerSettings{Host: "127.0.0.1", Port: 9090}
	settings.Classifier = conf.ClassifierSettings{Trees: 25, Seed: 7}
	settings.Storage = conf.StorageSettings{
		UploadPath:   "uploads/",
		ModelPath:    "models/",
		KnowledgeDB:  "knowledge.db",
		ExportedName: "updated_odm.xml",
	}
	settings.Sponsors = map[string]conf.SchemaProfile{
		"sponsor_e": conf.ProfileWithSuffix("SponsE"),
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	cmd := Command(settings)
	require.NoError(t, cmd.Flags().Set("output", path))
	require.NoError(t, cmd.RunE(cmd, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written conf.Settings
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, settings.Server, written.Server)
	assert.Equal(t, settings.Classifier, written.Classifier)
	assert.Equal(t, "ItemOIDSponsE", written.Sponsors["sponsor_e"].ItemAttr)
}
