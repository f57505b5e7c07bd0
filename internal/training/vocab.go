package training

// Vocabulary is an insertion-stable categorical encoder: each distinct value
// gets the index of its first appearance. Values seen at inference time that
// were absent during training are out-of-vocabulary, never synthesized.
// Only Values is persisted; the reverse index is rebuilt on demand.
type Vocabulary struct {
	Values []string

	index map[string]int
}

// NewVocabulary builds a vocabulary from the given values in order.
func NewVocabulary(values ...string) *Vocabulary {
	v := &Vocabulary{}
	for _, value := range values {
		v.Add(value)
	}
	return v
}

func (v *Vocabulary) ensureIndex() {
	if v.index == nil || len(v.index) != len(v.Values) {
		v.index = make(map[string]int, len(v.Values))
		for i, value := range v.Values {
			v.index[value] = i
		}
	}
}

// Add inserts a value if unseen and returns its index.
func (v *Vocabulary) Add(value string) int {
	v.ensureIndex()
	if i, ok := v.index[value]; ok {
		return i
	}
	i := len(v.Values)
	v.Values = append(v.Values, value)
	v.index[value] = i
	return i
}

// Index returns the encoded index of value and whether it is in vocabulary.
func (v *Vocabulary) Index(value string) (int, bool) {
	v.ensureIndex()
	i, ok := v.index[value]
	return i, ok
}

// Contains reports whether value was seen during training.
func (v *Vocabulary) Contains(value string) bool {
	_, ok := v.Index(value)
	return ok
}

// Value decodes an index back to its categorical value.
func (v *Vocabulary) Value(i int) string {
	return v.Values[i]
}

// Len returns the number of distinct values.
func (v *Vocabulary) Len() int {
	return len(v.Values)
}
