package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinmap/clinmap-go/internal/errors"
)

func TestProfileWithSuffix(t *testing.T) {
	t.Parallel()

	p := ProfileWithSuffix("SponsE")
	assert.Equal(t, "StudyEventOIDSponsE", p.EventAttr)
	assert.Equal(t, "ItemOIDSponsE", p.ItemAttr)
	assert.Equal(t, "EDCVisitIDSponsE", p.SourceVisitAttr)
	assert.Equal(t, "IMPACTAttributeIDSponsE", p.TargetAttributeAttr)
	// subject and repeat keys are shared across sponsors
	assert.Equal(t, "SubjectKey", p.SubjectKeyAttr)
	assert.Equal(t, "StudyEventRepeatKey", p.EventRepeatAttr)
}

func TestProfileLookup(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	mergeDefaultProfiles(settings)

	p, err := settings.Profile("sponsor_e")
	require.NoError(t, err)
	assert.Equal(t, "ItemOIDSponsE", p.ItemAttr)

	_, err = settings.Profile("sponsor_x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownProfile))
}

func TestProfileValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SchemaProfile)
		wantErr bool
	}{
		{name: "base profile is valid", mutate: func(p *SchemaProfile) {}},
		{
			name:    "duplicate identifier attribute",
			mutate:  func(p *SchemaProfile) { p.ItemAttr = p.EventAttr },
			wantErr: true,
		},
		{
			name:    "empty attribute name",
			mutate:  func(p *SchemaProfile) { p.SourceVisitAttr = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := baseProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Server.Port = 8080
	settings.Classifier.Trees = 100
	settings.Storage.UploadPath = "uploads/"
	settings.Storage.ModelPath = "models/"
	settings.Storage.KnowledgeDB = "knowledge.db"
	mergeDefaultProfiles(settings)

	require.NoError(t, ValidateSettings(settings))

	settings.Server.Port = 0
	settings.Classifier.Trees = 0
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "trees")
}
