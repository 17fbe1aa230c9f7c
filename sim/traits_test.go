package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraits_DerivedQuantities(t *testing.T) {
	tr := Traits{RM: 0.05, AM: 0.02, CM: 0.1, EC: 4, Inc: 2}
	assert.InDelta(t, 0.17, tr.PB(), 1e-12)
	assert.InDelta(t, 0.4, tr.TP(), 1e-12)
	assert.True(t, tr.Conjugative())

	nonConj := Traits{RM: 0.05, EC: 4, Inc: 1}
	assert.Equal(t, 0.0, nonConj.TP())
	assert.False(t, nonConj.Conjugative())

	clamped := Traits{CM: 0.5, EC: 5}
	assert.Equal(t, 1.0, clamped.TP(), "tp is clamped to 1")
}

func TestTraitSampler_Sample_RespectsRanges(t *testing.T) {
	// GIVEN the default trait distributions
	cfg := DefaultConfig().Traits
	s := NewTraitSampler(cfg)
	rng := newRandFromSeed(7)

	conjugative := 0
	const n = 5000
	for i := 0; i < n; i++ {
		// WHEN sampling many trait vectors
		tr, err := s.Sample(rng)
		require.NoError(t, err)

		// THEN every vector lies inside the admissible ranges
		assert.GreaterOrEqual(t, tr.RM, cfg.MinRC)
		assert.LessOrEqual(t, tr.RM, 1.0)
		if tr.CM != 0 {
			conjugative++
			assert.GreaterOrEqual(t, tr.CM, cfg.MinCC)
			assert.LessOrEqual(t, tr.CM, 1.0)
		}
		assert.GreaterOrEqual(t, tr.AM, 0.0)
		assert.Less(t, tr.AM, cfg.AMMax)
		assert.GreaterOrEqual(t, tr.EC, 0.0)
		assert.GreaterOrEqual(t, tr.CM*tr.EC, 0.0)
		assert.LessOrEqual(t, tr.CM*tr.EC, 1.0)
		assert.GreaterOrEqual(t, tr.Inc, 1)
		assert.LessOrEqual(t, tr.Inc, cfg.IncNumbers)
		assert.False(t, tr.Res)
	}

	// THEN roughly half of the plasmids are conjugative
	assert.InDelta(t, 0.5, float64(conjugative)/n, 0.05)
}

func TestTraitSampler_Sample_Deterministic(t *testing.T) {
	s := NewTraitSampler(DefaultConfig().Traits)
	a, b := newRandFromSeed(3), newRandFromSeed(3)
	for i := 0; i < 100; i++ {
		ta, err := s.Sample(a)
		require.NoError(t, err)
		tb, err := s.Sample(b)
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
	}
}

func TestTraitSampler_Sample_SingleIncGroup(t *testing.T) {
	cfg := DefaultConfig().Traits
	cfg.IncNumbers = 1
	s := NewTraitSampler(cfg)
	rng := newRandFromSeed(11)
	for i := 0; i < 200; i++ {
		tr, err := s.Sample(rng)
		require.NoError(t, err)
		assert.Equal(t, 1, tr.Inc)
	}
}

func TestTraitSampler_Sample_UnsatisfiableMean(t *testing.T) {
	// GIVEN an rm distribution centred far above its admissible range
	cfg := DefaultConfig().Traits
	cfg.RMMean = 100
	cfg.DevStrength = 0.01
	cfg.MaxRejections = 1000
	s := NewTraitSampler(cfg)

	// WHEN sampling
	_, err := s.Sample(newRandFromSeed(1))

	// THEN the rejection cap turns the infinite loop into an error
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsatisfiableTraits)
}

func TestTraitSampler_Sample_ZeroDeviationIsDegenerate(t *testing.T) {
	cfg := DefaultConfig().Traits
	cfg.DevStrength = 0
	cfg.ECMean = 2
	s := NewTraitSampler(cfg)
	rng := newRandFromSeed(5)
	for i := 0; i < 50; i++ {
		tr, err := s.Sample(rng)
		require.NoError(t, err)
		assert.Equal(t, cfg.RMMean, tr.RM)
		assert.Equal(t, 2.0, tr.EC)
		if tr.CM != 0 {
			assert.Equal(t, cfg.CMMean, tr.CM)
		}
	}
}
