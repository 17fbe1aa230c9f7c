// Per-tick population summaries consumed by stop rules, telemetry and export.

package sim

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"
)

// Summary is the population state after a tick.
type Summary struct {
	Tick int

	Fc int // plasmid-free hosts
	Pc int // plasmid-bearing hosts

	PlasmidCount   int
	IncDiv         int // distinct incompatibility groups present
	PlasmidDiv     int // distinct pids present
	PlasmidHostDiv int // distinct per-host total burden values among plasmid-bearing hosts

	ARP int // resistance plasmids
	ARB int // hosts carrying at least one resistance plasmid

	// Fitness holds max(0, 1 - Σpb) for every occupied site, in site order.
	Fitness     []float64
	MeanFitness float64
}

// Hosts is Fc + Pc, the number of occupied sites.
func (s Summary) Hosts() int {
	return s.Fc + s.Pc
}

// burdenKeyScale rounds burden sums before comparing them so that equal
// loads summed in different orders count as one combination.
const burdenKeyScale = 1e9

// Summarize computes the Summary of the current state.
func Summarize(st *State) Summary {
	s := Summary{Tick: st.Tick, PlasmidCount: st.Registry.Count()}
	incs := make(map[int]struct{})
	pids := make(map[int]struct{})
	loads := make(map[int64]struct{})

	for _, site := range st.Lattice.OccupiedSites() {
		residents := st.Registry.Residents(site)
		s.Fitness = append(s.Fitness, HostFitness(residents))
		if len(residents) == 0 {
			s.Fc++
			continue
		}
		s.Pc++
		burden := 0.0
		resistant := false
		for _, p := range residents {
			burden += p.PB()
			incs[p.Traits.Inc] = struct{}{}
			pids[p.PID] = struct{}{}
			if p.Traits.Res {
				s.ARP++
				resistant = true
			}
		}
		if resistant {
			s.ARB++
		}
		loads[int64(math.Round(burden*burdenKeyScale))] = struct{}{}
	}

	s.IncDiv = len(incs)
	s.PlasmidDiv = len(pids)
	s.PlasmidHostDiv = len(loads)
	if len(s.Fitness) > 0 {
		s.MeanFitness = stat.Mean(s.Fitness, nil)
	}
	return s
}

// FitnessHistogram bins host fitness into n equal-width bins over [0, 1].
// A fitness of exactly 1 falls in the last bin.
func (s Summary) FitnessHistogram(n int) []int {
	bins := make([]int, n)
	if n == 0 {
		return bins
	}
	for _, f := range s.Fitness {
		i := int(f * float64(n))
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i]++
	}
	return bins
}

// Print displays the summary at the end of a run.
func (s Summary) Print() {
	fmt.Println("=== Population Summary ===")
	fmt.Printf("Tick                 : %s\n", humanize.Comma(int64(s.Tick)))
	fmt.Printf("Plasmid-free hosts   : %s\n", humanize.Comma(int64(s.Fc)))
	fmt.Printf("Plasmid-bearing hosts: %s\n", humanize.Comma(int64(s.Pc)))
	fmt.Printf("Plasmids             : %s\n", humanize.Comma(int64(s.PlasmidCount)))
	fmt.Printf("Inc groups present   : %d\n", s.IncDiv)
	fmt.Printf("Plasmid types        : %d\n", s.PlasmidDiv)
	fmt.Printf("Host load types      : %d\n", s.PlasmidHostDiv)
	fmt.Printf("Resistance plasmids  : %s (%s hosts)\n", humanize.Comma(int64(s.ARP)), humanize.Comma(int64(s.ARB)))
	if s.Hosts() > 0 {
		fmt.Printf("Mean host fitness    : %.4f\n", s.MeanFitness)
	}
}

func countDistinctPIDs(plasmids []*Plasmid) int {
	pids := make(map[int]struct{}, len(plasmids))
	for _, p := range plasmids {
		pids[p.PID] = struct{}{}
	}
	return len(pids)
}
