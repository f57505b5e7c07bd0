// Package validation checks candidate mapping sets against the known-correct
// corpus retained by a trained model and suggests per-field corrections.
package validation

import (
	"math"

	"github.com/clinmap/clinmap-go/internal/extract"
)

// Field names used in correction suggestions. These are the wire names the
// documents themselves use.
const (
	FieldTargetVisitID     = "IMPACTVisitID"
	FieldSourceVisitID     = "EDCVisitID"
	FieldTargetAttributeID = "IMPACTAttributeID"
	FieldSourceAttributeID = "EDCAttributeID"
)

// Suggestion proposes the values that would make one field of a flagged
// candidate consistent with the other three.
type Suggestion struct {
	Field          string   `json:"field"`
	CorrectOptions []string `json:"correct_options"`
}

// Result is the per-candidate verdict. TrueMappings is empty for members of
// the known-correct set, and may also be empty for non-members when no
// single-field fix exists (a multi-field corruption).
type Result struct {
	extract.ViewEntry
	WronglyMapped bool         `json:"wrongly_mapped"`
	TrueMappings  []Suggestion `json:"TrueMappings"`
}

// Summary aggregates a validation run.
type Summary struct {
	Total    int      `json:"total"`
	Wrong    int      `json:"wrong"`
	Accuracy *float64 `json:"accuracy"`
}

// Validate tests each candidate for exact membership in the known-correct
// corpus. Non-members are flagged and, independently for each of the four
// fields, get the set of values observed among corpus entries matching the
// candidate on the other three fields. The repair is per-axis by design: it
// never proposes changing more than one field at a time.
func Validate(corpus []extract.ViewEntry, candidates []extract.ViewEntry) []Result {
	known := make(map[extract.MappingTuple]struct{}, len(corpus))
	for i := range corpus {
		known[corpus[i].Tuple()] = struct{}{}
	}

	results := make([]Result, 0, len(candidates))
	for i := range candidates {
		candidate := candidates[i]
		result := Result{ViewEntry: candidate, TrueMappings: []Suggestion{}}

		if _, ok := known[candidate.Tuple()]; !ok {
			result.WronglyMapped = true
			result.TrueMappings = suggestions(corpus, &candidate)
		}

		results = append(results, result)
	}
	return results
}

// suggestions computes the per-axis correction sets for a flagged candidate.
// A suggestion is emitted only when the option set is non-empty and does not
// already contain the candidate's own value.
func suggestions(corpus []extract.ViewEntry, candidate *extract.ViewEntry) []Suggestion {
	axes := []struct {
		field   string
		value   string
		matches func(*extract.ViewEntry) bool
		pick    func(*extract.ViewEntry) string
	}{
		{
			field: FieldSourceVisitID,
			value: candidate.SourceVisitID,
			matches: func(e *extract.ViewEntry) bool {
				return e.TargetVisitID == candidate.TargetVisitID &&
					e.TargetAttributeID == candidate.TargetAttributeID &&
					e.SourceAttributeID == candidate.SourceAttributeID
			},
			pick: func(e *extract.ViewEntry) string { return e.SourceVisitID },
		},
		{
			field: FieldSourceAttributeID,
			value: candidate.SourceAttributeID,
			matches: func(e *extract.ViewEntry) bool {
				return e.TargetVisitID == candidate.TargetVisitID &&
					e.SourceVisitID == candidate.SourceVisitID &&
					e.TargetAttributeID == candidate.TargetAttributeID
			},
			pick: func(e *extract.ViewEntry) string { return e.SourceAttributeID },
		},
		{
			field: FieldTargetVisitID,
			value: candidate.TargetVisitID,
			matches: func(e *extract.ViewEntry) bool {
				return e.SourceVisitID == candidate.SourceVisitID &&
					e.TargetAttributeID == candidate.TargetAttributeID &&
					e.SourceAttributeID == candidate.SourceAttributeID
			},
			pick: func(e *extract.ViewEntry) string { return e.TargetVisitID },
		},
		{
			field: FieldTargetAttributeID,
			value: candidate.TargetAttributeID,
			matches: func(e *extract.ViewEntry) bool {
				return e.TargetVisitID == candidate.TargetVisitID &&
					e.SourceVisitID == candidate.SourceVisitID &&
					e.SourceAttributeID == candidate.SourceAttributeID
			},
			pick: func(e *extract.ViewEntry) string { return e.TargetAttributeID },
		},
	}

	var out []Suggestion
	for _, axis := range axes {
		options := distinctMatches(corpus, axis.matches, axis.pick)
		if len(options) == 0 {
			continue
		}
		if containsString(options, axis.value) {
			continue
		}
		out = append(out, Suggestion{Field: axis.field, CorrectOptions: options})
	}
	return out
}

func distinctMatches(corpus []extract.ViewEntry, matches func(*extract.ViewEntry) bool, pick func(*extract.ViewEntry) string) []string {
	seen := make(map[string]struct{})
	var options []string
	for i := range corpus {
		if !matches(&corpus[i]) {
			continue
		}
		value := pick(&corpus[i])
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, value)
	}
	return options
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Summarize computes the aggregate verdict for a validation run. Accuracy is
// nil when there were no candidates.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for i := range results {
		if results[i].WronglyMapped {
			s.Wrong++
		}
	}
	if s.Total > 0 {
		acc := math.Round(float64(s.Total-s.Wrong)/float64(s.Total)*100*100) / 100
		s.Accuracy = &acc
	}
	return s
}
