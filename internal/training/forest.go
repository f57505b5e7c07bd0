package training

import (
	"math/rand"

	"github.com/clinmap/clinmap-go/internal/errors"
)

// PairKey is an encoded (event, item) feature pair.
type PairKey struct {
	Event int
	Item  int
}

// Classifier is the replaceable capability behind the predictive model: a
// deterministic multi-class classifier over encoded identifier pairs,
// optionally exposing an internal held-out accuracy estimate in [0,1].
type Classifier interface {
	Fit(features []PairKey, labels []int, classes int) error
	Predict(feature PairKey) int
	AccuracyEstimate() (float64, bool)
}

// BagTree is one bootstrap-sampled member of the forest: an exact lookup
// over the pairs present in its sample, falling back to the sample majority
// class for unseen pairs.
type BagTree struct {
	Table    map[PairKey]int
	Majority int
}

func (t *BagTree) predict(feature PairKey) int {
	if label, ok := t.Table[feature]; ok {
		return label
	}
	return t.Majority
}

// Forest is the default Classifier: bagged majority-vote lookup trees with
// an out-of-bag accuracy estimate. Training is deterministic for a fixed
// seed. All fields are exported for artifact serialization.
type Forest struct {
	Trees   []BagTree
	Classes int
	Seed    int64
	OOB     float64
	HasOOB  bool

	// NumTrees is the configured ensemble size, retained so a loaded model
	// reports the shape it was trained with.
	NumTrees int
}

// NewForest returns an unfitted forest with the given ensemble size and seed.
func NewForest(numTrees int, seed int64) *Forest {
	return &Forest{NumTrees: numTrees, Seed: seed}
}

// Fit trains the forest on the encoded features and labels.
func (f *Forest) Fit(features []PairKey, labels []int, classes int) error {
	if len(features) == 0 || len(features) != len(labels) {
		return errors.Newf("invalid training input: %d features, %d labels", len(features), len(labels)).
			Component("training").
			Category(errors.CategoryTraining).
			Build()
	}
	if f.NumTrees < 1 {
		f.NumTrees = 1
	}

	n := len(features)
	f.Classes = classes
	f.Trees = make([]BagTree, 0, f.NumTrees)
	rng := rand.New(rand.NewSource(f.Seed)) //nolint:gosec // deterministic training, not crypto

	// inBag[t][i] tracks bootstrap membership for the OOB estimate
	inBag := make([][]bool, f.NumTrees)

	for t := 0; t < f.NumTrees; t++ {
		votes := make(map[PairKey]map[int]int)
		classCounts := make([]int, classes)
		inBag[t] = make([]bool, n)

		for range n {
			i := rng.Intn(n)
			inBag[t][i] = true
			key := features[i]
			if votes[key] == nil {
				votes[key] = make(map[int]int)
			}
			votes[key][labels[i]]++
			classCounts[labels[i]]++
		}

		tree := BagTree{
			Table:    make(map[PairKey]int, len(votes)),
			Majority: argmaxSlice(classCounts),
		}
		for key, counts := range votes {
			tree.Table[key] = argmaxMap(counts)
		}
		f.Trees = append(f.Trees, tree)
	}

	f.computeOOB(features, labels, inBag)
	return nil
}

// computeOOB scores each sample with the trees whose bootstrap missed it.
// Samples every tree saw are skipped; with no scorable samples there is no
// estimate.
func (f *Forest) computeOOB(features []PairKey, labels []int, inBag [][]bool) {
	scored, correct := 0, 0
	for i := range features {
		counts := make(map[int]int)
		for t := range f.Trees {
			if inBag[t][i] {
				continue
			}
			counts[f.Trees[t].predict(features[i])]++
		}
		if len(counts) == 0 {
			continue
		}
		scored++
		if argmaxMap(counts) == labels[i] {
			correct++
		}
	}
	if scored > 0 {
		f.OOB = float64(correct) / float64(scored)
		f.HasOOB = true
	}
}

// Predict returns the majority vote of the ensemble for the feature pair.
func (f *Forest) Predict(feature PairKey) int {
	counts := make(map[int]int, 4)
	for t := range f.Trees {
		counts[f.Trees[t].predict(feature)]++
	}
	return argmaxMap(counts)
}

// AccuracyEstimate returns the out-of-bag accuracy in [0,1] when available.
func (f *Forest) AccuracyEstimate() (float64, bool) {
	return f.OOB, f.HasOOB
}

// argmaxMap returns the key with the highest count, preferring the smallest
// key on ties so votes resolve deterministically.
func argmaxMap(counts map[int]int) int {
	best, bestCount, found := 0, -1, false
	for label, count := range counts {
		if count > bestCount || (count == bestCount && found && label < best) {
			best, bestCount, found = label, count, true
		}
	}
	return best
}

// argmaxSlice returns the index of the largest count, lowest index on ties.
func argmaxSlice(counts []int) int {
	best := 0
	for i := range counts {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
