package replay

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaWithID(id string, steps int) MetaTransition {
	m := MetaTransition{
		EpisodeID: id,
		Obs:       []float64{0},
		Goal:      []float64{1},
		NextObs:   []float64{float64(steps)},
	}
	for t := 0; t < steps; t++ {
		m.Steps = append(m.Steps, WorkerStep{
			Obs:     []float64{float64(t)},
			Goal:    []float64{1},
			Action:  []float64{0.5},
			Reward:  -1,
			NextObs: []float64{float64(t + 1)},
		})
	}
	return m
}

func TestBufferRejectsBadArguments(t *testing.T) {
	_, err := NewBuffer(0, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	_, err = NewBuffer(10, nil)
	require.Error(t, err)
}

func TestBufferEvictsOldestAtCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b, err := NewBuffer(5, rng)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		b.Add(Entry{Meta: metaWithID(fmt.Sprintf("ep-%d", i), 2)})
	}

	assert.Equal(t, 5, b.Len())
	assert.False(t, b.Contains("ep-0"), "oldest entry must be evicted")
	for i := 1; i < 6; i++ {
		assert.True(t, b.Contains(fmt.Sprintf("ep-%d", i)))
	}
}

func TestBufferFIFOOrderAcrossMultipleEvictions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b, err := NewBuffer(3, rng)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		b.Add(Entry{Meta: metaWithID(fmt.Sprintf("ep-%d", i), 1)})
	}
	for i := 0; i < 5; i++ {
		assert.False(t, b.Contains(fmt.Sprintf("ep-%d", i)))
	}
	for i := 5; i < 8; i++ {
		assert.True(t, b.Contains(fmt.Sprintf("ep-%d", i)))
	}
}

func TestSampleInsufficientData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b, err := NewBuffer(10, rng)
	require.NoError(t, err)

	b.Add(Entry{Meta: metaWithID("ep-0", 2)})
	_, err = b.Sample(2)
	assert.ErrorIs(t, err, ErrInsufficientData)

	b.Add(Entry{Meta: metaWithID("ep-1", 2)})
	batch, err := b.Sample(2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestSampleWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b, err := NewBuffer(20, rng)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b.Add(Entry{Meta: metaWithID(fmt.Sprintf("ep-%d", i), 1)})
	}

	batch, err := b.Sample(20)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, e := range batch {
		assert.False(t, seen[e.Meta.EpisodeID], "duplicate entry in batch")
		seen[e.Meta.EpisodeID] = true
	}
}

func TestAssemblePadsTruncatedPeriods(t *testing.T) {
	entries := []Entry{
		{Meta: metaWithID("full", 3)},
		{Meta: metaWithID("truncated", 1)},
	}
	batch := Assemble(entries, 3)

	assert.Equal(t, 3, batch.K)
	assert.Equal(t, []float64{1, 1, 1}, batch.Mask[0])
	assert.Equal(t, []float64{1, 0, 0}, batch.Mask[1])

	// Padded slots are zero-reward no-ops with the right shapes.
	assert.Equal(t, 0.0, batch.WorkerRewards[1][2])
	assert.Equal(t, []float64{0}, batch.WorkerActions[1][1])
	assert.Len(t, batch.WorkerObs[1][2], 1)
}

func TestProvenanceStrings(t *testing.T) {
	assert.Equal(t, "original", Original.String())
	assert.Equal(t, "hindsight-action", HindsightAction.String())
	assert.Equal(t, "hindsight-goal", HindsightGoal.String())
}

func TestAssembleZeroStepEntryIsFullyMasked(t *testing.T) {
	entry := Entry{Meta: MetaTransition{
		EpisodeID: "ep-0",
		Obs:       []float64{1, 2},
		Goal:      []float64{3},
		NextObs:   []float64{4, 5},
	}}

	b := Assemble([]Entry{entry}, 3)
	require.Len(t, b.Mask, 1)
	assert.Equal(t, []float64{0, 0, 0}, b.Mask[0])
	for tt := 0; tt < 3; tt++ {
		assert.Equal(t, []float64{0, 0}, b.WorkerObs[0][tt])
		assert.Equal(t, []float64{0}, b.WorkerGoals[0][tt])
		assert.Empty(t, b.WorkerActions[0][tt])
	}
}
