package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func seededState(t *testing.T, mutate func(*Config)) *State {
	t.Helper()
	cfg := testConfig()
	cfg.Width, cfg.Height = 20, 20
	if mutate != nil {
		mutate(&cfg)
	}
	st := newTestState(t, cfg)
	require.NoError(t, st.Seed())
	return st
}

func resistant(st *State) []*Plasmid {
	var out []*Plasmid
	for _, p := range st.Registry.All() {
		if p.Traits.Res {
			out = append(out, p)
		}
	}
	return out
}

func TestSeed_InitialPopulation(t *testing.T) {
	st := seededState(t, nil)

	hosts := st.Lattice.OccupiedCount()
	assert.Greater(t, hosts, 0)
	assert.Less(t, hosts, st.Lattice.Size())
	assert.Equal(t, int(math.Floor(float64(hosts)*st.Config.InitialPlasmidDensity)), st.Registry.Count())
	for _, site := range st.Lattice.OccupiedSites() {
		assert.LessOrEqual(t, len(st.Registry.Residents(site)), 1)
	}
	assert.Empty(t, resistant(st))
	assert.Equal(t, 0, st.Tick)
}

func TestSeed_MortalityOneLeavesLatticeEmpty(t *testing.T) {
	st := seededState(t, func(c *Config) { c.Mortality = 1 })
	assert.Equal(t, 0, st.Lattice.OccupiedCount())
	assert.Equal(t, 0, st.Registry.Count())
}

func TestSeed_Deterministic(t *testing.T) {
	a := seededState(t, func(c *Config) { c.Resistance.Mode = ResistanceRandomProperties })
	b := seededState(t, func(c *Config) { c.Resistance.Mode = ResistanceRandomProperties })
	require.Equal(t, a.Registry.Count(), b.Registry.Count())
	pa, pb := a.Registry.All(), b.Registry.All()
	for i := range pa {
		assert.Equal(t, pa[i].Traits, pb[i].Traits)
		assert.Equal(t, pa[i].PID, pb[i].PID)
		assert.Equal(t, pa[i].Site(), pb[i].Site())
	}
}

func TestSeed_SinglePlasmidDynamics(t *testing.T) {
	st := seededState(t, func(c *Config) { c.SinglePlasmidDynamics = true })
	require.Greater(t, st.Registry.Count(), 1)
	assert.Equal(t, 1, countDistinctPIDs(st.Registry.All()))
}

func TestSeed_MeanProperties(t *testing.T) {
	for _, conjugative := range []bool{true, false} {
		st := seededState(t, func(c *Config) {
			c.Resistance.Mode = ResistanceMeanProperties
			c.Resistance.Conjugative = conjugative
		})

		res := resistant(st)
		require.NotEmpty(t, res)
		assert.Equal(t, 1, countDistinctPIDs(res), "every resistance plasmid is a clone of the seeded one")
		for _, p := range res {
			assert.Len(t, st.Registry.Residents(p.Site()), 1, "taken-over hosts carry only the resistance plasmid")
		}

		tr := res[0].Traits
		assert.Equal(t, conjugative, tr.Conjugative())
		assert.GreaterOrEqual(t, tr.RM, st.Config.Traits.MinRC)
		assert.GreaterOrEqual(t, tr.Inc, 1)
		assert.LessOrEqual(t, tr.Inc, st.Config.Traits.IncNumbers)
	}
}

func TestSeed_MeanProperties_TakeoverIsLocal(t *testing.T) {
	st := seededState(t, func(c *Config) {
		c.Width, c.Height = 40, 40
		c.Resistance.Mode = ResistanceMeanProperties
	})
	res := resistant(st)
	require.NotEmpty(t, res)

	// every clone lies within two takeover radii of every other
	for _, p := range res {
		px, py := st.Lattice.Coord(p.Site())
		for _, q := range res {
			qx, qy := st.Lattice.Coord(q.Site())
			assert.LessOrEqual(t, math.Hypot(float64(px-qx), float64(py-qy)), 2*takeoverRadius)
		}
	}
	assert.Less(t, len(res), st.Registry.Count())
}

func TestSeed_RandomProperties(t *testing.T) {
	for _, conjugative := range []bool{true, false} {
		st := seededState(t, func(c *Config) {
			c.Resistance.Mode = ResistanceRandomProperties
			c.Resistance.Conjugative = conjugative
		})
		res := resistant(st)
		require.NotEmpty(t, res)
		assert.Equal(t, 1, countDistinctPIDs(res))
		assert.Equal(t, conjugative, res[0].Traits.Conjugative())
	}
}

func TestSeed_ManyRandomNearMeanAM(t *testing.T) {
	// GIVEN a tenth of the host population's worth of plasmids to be marked resistant
	st := seededState(t, func(c *Config) {
		c.Width, c.Height = 30, 30
		c.Resistance.Mode = ResistanceManyRandomNearMeanAM
		c.Resistance.ARPProp = 0.1
	})
	all := st.Registry.All()
	res := resistant(st)

	// THEN at most that share is marked, all within one sd of the mean am
	require.NotEmpty(t, res)
	assert.LessOrEqual(t, len(res), int(0.1*float64(st.Lattice.OccupiedCount())))
	ams := traitValues(all, func(t Traits) float64 { return t.AM })
	mean, sd := stat.MeanStdDev(ams, nil)
	for _, p := range res {
		assert.LessOrEqual(t, math.Abs(p.Traits.AM-mean), sd+1e-12)
	}

	// THEN no spatial takeover happened: plasmid count matches the initial density
	assert.Equal(t, int(math.Floor(float64(st.Lattice.OccupiedCount())*st.Config.InitialPlasmidDensity)), len(all))
}

func TestSeed_ResistanceWithoutPlasmids(t *testing.T) {
	for _, mode := range []ResistanceMode{ResistanceMeanProperties, ResistanceRandomProperties, ResistanceManyRandomNearMeanAM} {
		t.Run(string(mode), func(t *testing.T) {
			st := seededState(t, func(c *Config) {
				c.InitialPlasmidDensity = 0
				c.Resistance.Mode = mode
			})
			assert.Equal(t, 0, st.Registry.Count())
		})
	}
}

func TestCentralPlasmidHost_FallsBackOutsideCentre(t *testing.T) {
	// GIVEN a single plasmid-bearing host in a corner of a large lattice
	cfg := testConfig()
	cfg.Width, cfg.Height = 20, 20
	st := newTestState(t, cfg)
	corner := st.Lattice.SiteAt(0, 0)
	host(st, corner, Traits{RM: 0.1, Inc: 1})
	host(st, st.Lattice.Center())

	site, ok := st.centralPlasmidHost(newRandFromSeed(1))
	require.True(t, ok)
	assert.Equal(t, corner, site)
}
