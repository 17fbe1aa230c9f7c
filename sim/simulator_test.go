package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmid-sim/plasmid-sim/sim/trace"
)

// recordingObserver keeps every summary and the final stop reason.
type recordingObserver struct {
	summaries []Summary
	reason    StopReason
	finished  int
	failAt    int
}

func (o *recordingObserver) ObserveTick(_ context.Context, _ *State, s Summary) error {
	if o.failAt > 0 && s.Tick == o.failAt {
		return errors.New("observer failure")
	}
	o.summaries = append(o.summaries, s)
	return nil
}

func (o *recordingObserver) Finish(_ context.Context, _ *State, _ Summary, reason StopReason) error {
	o.reason = reason
	o.finished++
	return nil
}

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, trace.TraceConfig{Level: trace.TraceLevelTicks})
	require.NoError(t, err)
	return s
}

func TestSimulator_TickBudget(t *testing.T) {
	cfg := testConfig()
	cfg.SimulationTime = 5
	s := newTestSimulator(t, cfg)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopTickBudget, result.Reason)
	assert.Equal(t, 5, result.Ticks)
	assert.Equal(t, 5, result.Final.Tick)
	require.Len(t, obs.summaries, 6, "tick 0 plus one summary per tick")
	for i, sm := range obs.summaries {
		assert.Equal(t, i, sm.Tick)
	}
	assert.Equal(t, StopTickBudget, obs.reason)
	assert.Equal(t, 1, obs.finished)
	assert.Len(t, s.Trace.Ticks, 5)
}

func TestSimulator_MortalityOneEmptiesLattice(t *testing.T) {
	// GIVEN mortality 1, no initial plasmids and no immigration
	cfg := testConfig()
	cfg.Mortality = 1
	cfg.InitialPlasmidDensity = 0
	s := newTestSimulator(t, cfg)

	// WHEN running
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	// THEN the lattice is empty after tick 1
	assert.Equal(t, 1, result.Ticks)
	assert.Equal(t, 0, result.Final.Fc)
	assert.Equal(t, 0, result.Final.Pc)
}

func TestSimulator_NoPlasmidsStopsAtFirstTick(t *testing.T) {
	// GIVEN no initial plasmids and no immigration
	cfg := testConfig()
	cfg.InitialPlasmidDensity = 0
	cfg.Immigration = 0
	s := newTestSimulator(t, cfg)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	// WHEN running
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	// THEN the run ends after tick 1 by plasmid extinction and no plasmid ever existed
	assert.Equal(t, StopPlasmidExtinction, result.Reason)
	assert.Equal(t, 1, result.Ticks)
	for _, sm := range obs.summaries {
		assert.Equal(t, 0, sm.PlasmidCount)
	}
	assert.Greater(t, result.Final.Fc, 0)
}

func TestSimulator_SameSeedSameTrajectory(t *testing.T) {
	cfg := testConfig()
	cfg.SimulationTime = 4
	cfg.Immigration = 0.001
	cfg.Resistance.Mode = ResistanceMeanProperties

	run := func() []Summary {
		s := newTestSimulator(t, cfg)
		obs := &recordingObserver{}
		s.AddObserver(obs)
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		return obs.summaries
	}
	assert.Equal(t, run(), run())

	cfg.Seed++
	other := run()
	assert.Len(t, other, 5)
}

func TestSimulator_ResistanceLost(t *testing.T) {
	// GIVEN a seeded resistance plasmid that immediately disappears
	cfg := testConfig()
	cfg.Resistance.Mode = ResistanceMeanProperties
	cfg.Resistance.StopWhenLost = true
	s := newTestSimulator(t, cfg)
	require.Greater(t, s.Summary.ARP, 0)
	for _, p := range s.State.Registry.All() {
		if p.Traits.Res {
			s.State.Registry.Remove(p)
		}
	}

	// WHEN running
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	// THEN the resistance stop rule fires at the first tick boundary
	assert.Equal(t, StopResistanceLost, result.Reason)
	assert.Equal(t, 1, result.Ticks)
}

func TestSimulator_ResistanceStopRequiresResistanceMode(t *testing.T) {
	cfg := testConfig()
	cfg.SimulationTime = 2
	cfg.Resistance.StopWhenLost = true
	s := newTestSimulator(t, cfg)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopTickBudget, result.Reason)
}

func TestSimulator_StopPriority(t *testing.T) {
	cfg := testConfig()
	cfg.Resistance.Mode = ResistanceMeanProperties
	cfg.Resistance.StopWhenLost = true
	cfg.SimulationTime = 1
	s := newTestSimulator(t, cfg)

	s.State.Tick = 1
	s.Summary = Summary{Pc: 0, ARP: 0}
	assert.Equal(t, StopPlasmidExtinction, s.stopReason())

	s.Summary = Summary{Pc: 3, ARP: 0}
	assert.Equal(t, StopResistanceLost, s.stopReason())

	s.Summary = Summary{Pc: 3, ARP: 1}
	assert.Equal(t, StopTickBudget, s.stopReason())

	s.State.Tick = 0
	assert.Equal(t, StopReason(""), s.stopReason())
}

func TestSimulator_CanceledContext(t *testing.T) {
	s := newTestSimulator(t, testConfig())
	obs := &recordingObserver{}
	s.AddObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StopCanceled, result.Reason)
	assert.Equal(t, 0, result.Ticks)
	assert.Equal(t, StopCanceled, obs.reason)
}

func TestSimulator_ObserverErrorAbortsRun(t *testing.T) {
	s := newTestSimulator(t, testConfig())
	s.AddObserver(&recordingObserver{failAt: 2})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer failure")
	assert.Equal(t, 2, s.State.Tick)
}

func TestNewSimulator_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.IncSegMechanism = "bogus"
	_, err := NewSimulator(cfg, trace.TraceConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewSimulator_UnsatisfiableTraits(t *testing.T) {
	cfg := testConfig()
	cfg.Traits.RMMean = 50
	cfg.Traits.DevStrength = 0.001
	cfg.Traits.MaxRejections = 100
	_, err := NewSimulator(cfg, trace.TraceConfig{})
	assert.ErrorIs(t, err, ErrUnsatisfiableTraits)
}
