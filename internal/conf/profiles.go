// profiles.go: per-sponsor schema profiles binding logical mapping fields
// to the attribute names a sponsor's ODM and ViewMapping documents use.
package conf

import (
	"fmt"

	"github.com/clinmap/clinmap-go/internal/errors"
)

// SchemaProfile describes how one sponsor's XML documents expose the mapping
// fields. Profiles are data: adding a sponsor means adding a profile, never
// new traversal code.
type SchemaProfile struct {
	// ODM document attributes
	SubjectKeyAttr  string // subject identifier on SubjectData
	EventAttr       string // source event identifier on StudyEventData
	EventRepeatAttr string // repeat key on StudyEventData
	ItemAttr        string // source item identifier on ItemData

	// ViewMapping document attributes
	TargetVisitAttr     string // target visit identifier on Visit
	SourceVisitAttr     string // source visit identifier on Visit
	TargetAttributeAttr string // target attribute identifier on Attribute
	SourceAttributeAttr string // source attribute identifier on Attribute
}

// baseProfile returns the attribute names used by unsuffixed documents.
func baseProfile() SchemaProfile {
	return SchemaProfile{
		SubjectKeyAttr:      "SubjectKey",
		EventAttr:           "StudyEventOID",
		EventRepeatAttr:     "StudyEventRepeatKey",
		ItemAttr:            "ItemOID",
		TargetVisitAttr:     "IMPACTVisitID",
		SourceVisitAttr:     "EDCVisitID",
		TargetAttributeAttr: "IMPACTAttributeID",
		SourceAttributeAttr: "EDCAttributeID",
	}
}

// ProfileWithSuffix returns the base profile with the sponsor naming suffix
// applied to the identifier attributes. Subject and repeat keys are never
// suffixed in sponsor documents.
func ProfileWithSuffix(suffix string) SchemaProfile {
	p := baseProfile()
	p.EventAttr += suffix
	p.ItemAttr += suffix
	p.TargetVisitAttr += suffix
	p.SourceVisitAttr += suffix
	p.TargetAttributeAttr += suffix
	p.SourceAttributeAttr += suffix
	return p
}

// defaultProfiles are the compiled-in sponsor profiles. Additional sponsors
// are added through the config file only.
func defaultProfiles() map[string]SchemaProfile {
	return map[string]SchemaProfile{
		"default":   baseProfile(),
		"sponsor_a": ProfileWithSuffix("SponsA"),
		"sponsor_c": ProfileWithSuffix("SponsC"),
		"sponsor_e": ProfileWithSuffix("SponsE"),
	}
}

// mergeDefaultProfiles fills in compiled-in profiles for sponsors the config
// file does not mention.
func mergeDefaultProfiles(settings *Settings) {
	if settings.Sponsors == nil {
		settings.Sponsors = make(map[string]SchemaProfile)
	}
	for id, profile := range defaultProfiles() {
		if _, ok := settings.Sponsors[id]; !ok {
			settings.Sponsors[id] = profile
		}
	}
}

// Profile resolves a sponsor identifier to its schema profile.
func (s *Settings) Profile(sponsor string) (SchemaProfile, error) {
	profile, ok := s.Sponsors[sponsor]
	if !ok {
		return SchemaProfile{}, errors.Newf("%w: %q", errors.ErrUnknownProfile, sponsor).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("sponsor", sponsor).
			Build()
	}
	return profile, nil
}

// Validate checks that the profile binds every field and that the four
// identifier attributes are distinct. A violation is a configuration error
// surfaced at load time, not a runtime XML error.
func (p *SchemaProfile) Validate() error {
	named := map[string]string{
		"event":            p.EventAttr,
		"item":             p.ItemAttr,
		"target visit":     p.TargetVisitAttr,
		"source visit":     p.SourceVisitAttr,
		"target attribute": p.TargetAttributeAttr,
		"source attribute": p.SourceAttributeAttr,
		"subject key":      p.SubjectKeyAttr,
		"event repeat":     p.EventRepeatAttr,
	}
	for field, attr := range named {
		if attr == "" {
			return fmt.Errorf("profile field %s has no attribute name", field)
		}
	}

	identifiers := []string{p.EventAttr, p.ItemAttr, p.TargetVisitAttr, p.SourceVisitAttr, p.TargetAttributeAttr, p.SourceAttributeAttr}
	seen := make(map[string]struct{}, len(identifiers))
	for _, attr := range identifiers {
		if _, dup := seen[attr]; dup {
			return fmt.Errorf("profile attribute name %q bound to more than one field", attr)
		}
		seen[attr] = struct{}{}
	}
	return nil
}
