package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingPairs() ([]PairKey, []int) {
	features := []PairKey{
		{Event: 0, Item: 0},
		{Event: 0, Item: 1},
		{Event: 1, Item: 2},
		{Event: 0, Item: 0},
		{Event: 0, Item: 1},
		{Event: 1, Item: 2},
		{Event: 0, Item: 0},
		{Event: 1, Item: 2},
	}
	labels := []int{0, 0, 1, 0, 0, 1, 0, 1}
	return features, labels
}

func TestForestLearnsSeenPairs(t *testing.T) {
	t.Parallel()

	features, labels := trainingPairs()
	f := NewForest(50, 42)
	require.NoError(t, f.Fit(features, labels, 2))

	for i := range features {
		assert.Equal(t, labels[i], f.Predict(features[i]), "feature %v", features[i])
	}
}

func TestForestDeterministicForFixedSeed(t *testing.T) {
	t.Parallel()

	features, labels := trainingPairs()

	a := NewForest(25, 7)
	require.NoError(t, a.Fit(features, labels, 2))
	b := NewForest(25, 7)
	require.NoError(t, b.Fit(features, labels, 2))

	assert.Equal(t, a.Trees, b.Trees)

	accA, okA := a.AccuracyEstimate()
	accB, okB := b.AccuracyEstimate()
	assert.Equal(t, okA, okB)
	assert.InDelta(t, accA, accB, 0)
}

func TestForestAccuracyEstimateBounds(t *testing.T) {
	t.Parallel()

	features, labels := trainingPairs()
	f := NewForest(50, 42)
	require.NoError(t, f.Fit(features, labels, 2))

	acc, ok := f.AccuracyEstimate()
	require.True(t, ok, "enough samples for an out-of-bag estimate")
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)
}

func TestForestRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	f := NewForest(10, 1)
	assert.Error(t, f.Fit(nil, nil, 0))
	assert.Error(t, f.Fit([]PairKey{{}}, nil, 1))
}
