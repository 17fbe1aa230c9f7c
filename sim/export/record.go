// Package export builds per-pid export records from a simulation state and
// persists them to SQLite.
package export

import (
	"sort"

	"github.com/plasmid-sim/plasmid-sim/sim"
)

// Record is one row per distinct plasmid identity per export tick.
// X and Y locate the first site, in site order, hosting that pid.
type Record struct {
	RunID      string
	Tick       int
	PID        int
	CloneCount int
	X, Y       int
	PB         float64
	RM         float64
	CM         float64
	AM         float64
	EC         float64
	TP         float64
	Inc        int
	Res        bool
}

// Records collects the export records of the current state, ordered by pid.
func Records(runID string, st *sim.State) []Record {
	byPID := make(map[int]*Record)
	for _, p := range st.Registry.All() {
		if r, ok := byPID[p.PID]; ok {
			r.CloneCount++
			continue
		}
		x, y := st.Lattice.Coord(p.Site())
		t := p.Traits
		byPID[p.PID] = &Record{
			RunID: runID, Tick: st.Tick, PID: p.PID, CloneCount: 1, X: x, Y: y,
			PB: t.PB(), RM: t.RM, CM: t.CM, AM: t.AM, EC: t.EC, TP: t.TP(), Inc: t.Inc, Res: t.Res,
		}
	}

	records := make([]Record, 0, len(byPID))
	for _, r := range byPID {
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records
}
