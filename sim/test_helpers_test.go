package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig returns a small, fast configuration for engine tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 10
	cfg.Height = 10
	cfg.SimulationTime = 20
	return cfg
}

// newTestState builds an unseeded State from cfg, failing the test on validation errors.
func newTestState(t *testing.T, cfg Config) *State {
	t.Helper()
	st, err := NewState(cfg)
	require.NoError(t, err)
	return st
}

// host occupies site and places one plasmid per trait vector on it.
func host(st *State, site Site, traits ...Traits) []*Plasmid {
	st.Lattice.Occupy(site)
	placed := make([]*Plasmid, 0, len(traits))
	for _, t := range traits {
		placed = append(placed, st.Registry.Create(site, t))
	}
	return placed
}

// conflictFree reports whether no two residents share an incompatibility group.
func conflictFree(residents []*Plasmid) bool {
	seen := make(map[int]bool, len(residents))
	for _, p := range residents {
		if seen[p.Traits.Inc] {
			return false
		}
		seen[p.Traits.Inc] = true
	}
	return true
}

// incs lists the incompatibility groups of residents in enumeration order.
func incs(residents []*Plasmid) []int {
	out := make([]int, len(residents))
	for i, p := range residents {
		out[i] = p.Traits.Inc
	}
	return out
}
