package extract

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
)

const odmDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ODM xmlns="http://www.cdisc.org/ns/odm/v1.3">
  <ClinicalData>
    <SubjectData SubjectKey="SUBJ-001">
      <StudyEventData StudyEventOID="SE.SCREENING" StudyEventRepeatKey="1">
        <FormData FormOID="F.VITALS">
          <ItemGroupData ItemGroupOID="IG.VITALS">
            <ItemData ItemOID="IT.HEIGHT" Value="180"/>
            <ItemData ItemOID="IT.WEIGHT" Value="75"/>
            <ItemData Value="orphaned"/>
          </ItemGroupData>
        </FormData>
      </StudyEventData>
      <StudyEventData>
        <FormData>
          <ItemGroupData>
            <ItemData ItemOID="IT.DROPPED"/>
          </ItemGroupData>
        </FormData>
      </StudyEventData>
    </SubjectData>
  </ClinicalData>
</ODM>`

const viewDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ViewMapping>
  <Visit IMPACTVisitID="V100" EDCVisitID="SE.SCREENING">
    <Attribute IMPACTAttributeID="A200" EDCAttributeID="IT.HEIGHT"/>
    <Attribute IMPACTAttributeID="A201" EDCAttributeID="IT.WEIGHT"/>
    <Attribute EDCAttributeID="IT.INCOMPLETE"/>
  </Visit>
  <Visit IMPACTVisitID="V101" EDCVisitID="SE.BASELINE">
    <Attribute IMPACTAttributeID="A202" EDCAttributeID="IT.PULSE"/>
  </Visit>
</ViewMapping>`

func defaultProfile(t *testing.T) *conf.SchemaProfile {
	t.Helper()
	p := conf.ProfileWithSuffix("")
	require.NoError(t, p.Validate())
	return &p
}

func TestAssociationsNamespacedDocument(t *testing.T) {
	t.Parallel()

	profile := defaultProfile(t)
	records, err := AssociationsFromBytes([]byte(odmDoc), "odm.xml", profile)
	require.NoError(t, err)

	// two complete items; the orphaned item and the event without an OID are skipped
	require.Len(t, records, 2)
	assert.Equal(t, AssociationRecord{
		SubjectKey:          "SUBJ-001",
		StudyEventOID:       "SE.SCREENING",
		StudyEventRepeatKey: "1",
		ItemOID:             "IT.HEIGHT",
	}, records[0])
	assert.Equal(t, "IT.WEIGHT", records[1].ItemOID)
}

func TestAssociationsAreRestartable(t *testing.T) {
	t.Parallel()

	profile := defaultProfile(t)
	doc, err := ParseDocument([]byte(odmDoc), "odm.xml")
	require.NoError(t, err)

	first := Associations(doc, profile)
	second := Associations(doc, profile)
	assert.Equal(t, first, second)
}

func TestViewEntries(t *testing.T) {
	t.Parallel()

	profile := defaultProfile(t)
	entries, err := ViewEntriesFromBytes([]byte(viewDoc), "viewmap.xml", profile)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, ViewEntry{
		TargetVisitID:     "V100",
		SourceVisitID:     "SE.SCREENING",
		TargetAttributeID: "A200",
		SourceAttributeID: "IT.HEIGHT",
	}, entries[0])
	assert.Equal(t, "SE.BASELINE", entries[2].SourceVisitID)
}

func TestSponsorSuffixProfile(t *testing.T) {
	t.Parallel()

	suffixed := `<ODM><ClinicalData><SubjectData SubjectKey="S1">
		<StudyEventData StudyEventOIDSponsE="SE.1" StudyEventRepeatKey="2">
			<FormData><ItemGroupData>
				<ItemData ItemOIDSponsE="IT.1"/>
				<ItemData ItemOID="IT.WRONG-PROFILE"/>
			</ItemGroupData></FormData>
		</StudyEventData>
	</SubjectData></ClinicalData></ODM>`

	profile := conf.ProfileWithSuffix("SponsE")
	records, err := AssociationsFromBytes([]byte(suffixed), "odm.xml", &profile)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SE.1", records[0].StudyEventOID)
	assert.Equal(t, "IT.1", records[0].ItemOID)
}

func TestMalformedDocumentCarriesLine(t *testing.T) {
	t.Parallel()

	profile := defaultProfile(t)
	_, err := AssociationsFromBytes([]byte("<ODM>\n<SubjectData>\n</ODM>"), "broken.xml", profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedDocument))

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	line, ok := enhanced.ContextValue("line")
	require.True(t, ok)
	assert.Greater(t, line.(int), 1)
}

func TestConcurrentExtraction(t *testing.T) {
	t.Parallel()

	profile := defaultProfile(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := AssociationsFromBytes([]byte(odmDoc), "odm.xml", profile)
			assert.NoError(t, err)
			assert.Len(t, records, 2)

			entries, err := ViewEntriesFromBytes([]byte(viewDoc), "viewmap.xml", profile)
			assert.NoError(t, err)
			assert.Len(t, entries, 3)
		}()
	}
	wg.Wait()
}

func TestKeyAccessors(t *testing.T) {
	t.Parallel()

	r := AssociationRecord{StudyEventOID: "E1", ItemOID: "I1"}
	assert.Equal(t, AssociationKey{Event: "E1", Item: "I1"}, r.Key())

	v := ViewEntry{TargetVisitID: "V1", SourceVisitID: "E1", TargetAttributeID: "A1", SourceAttributeID: "I1"}
	assert.Equal(t, AssociationKey{Event: "E1", Item: "I1"}, v.SourceKey())
	assert.Equal(t, MappingTuple{"V1", "E1", "A1", "I1"}, v.Tuple())
}
