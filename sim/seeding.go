package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

const (
	// takeoverRadius bounds the neighbourhood overwritten by a seeded resistance plasmid.
	takeoverRadius = 5.0
	// templateRadius bounds the search for a random-properties template.
	templateRadius = 3.0
)

// Seed establishes the tick-0 population: random occupancy, initial
// plasmids, optional single-plasmid collapse, then resistance seeding.
// It draws only from the setup stream.
func (st *State) Seed() error {
	rng := st.RNG.ForSubsystem(SubsystemSetup)
	if err := st.seedPopulation(rng); err != nil {
		return err
	}
	if st.Config.SinglePlasmidDynamics {
		st.collapseToSinglePlasmid(rng)
	}

	switch st.Config.Resistance.Mode {
	case ResistanceMeanProperties:
		st.seedMeanProperties(rng)
	case ResistanceRandomProperties:
		st.seedRandomProperties(rng)
	case ResistanceManyRandomNearMeanAM:
		st.seedManyNearMeanAM(rng)
	}

	logrus.Infof("[tick %05d] seeded %d hosts carrying %d plasmids (%d distinct)",
		st.Tick, st.Lattice.OccupiedCount(), st.Registry.Count(), countDistinctPIDs(st.Registry.All()))
	return nil
}

// seedPopulation occupies each site with probability 1 - mortality, then
// gives floor(occupied × density) occupied sites, chosen without
// replacement, one fresh plasmid each.
func (st *State) seedPopulation(rng *rand.Rand) error {
	for i := 0; i < st.Lattice.Size(); i++ {
		if rng.Float64() < 1-st.Config.Mortality {
			st.Lattice.Occupy(Site(i))
		}
	}

	hosts := st.Lattice.OccupiedSites()
	n := int(math.Floor(float64(len(hosts)) * st.Config.InitialPlasmidDensity))
	rng.Shuffle(len(hosts), func(i, j int) { hosts[i], hosts[j] = hosts[j], hosts[i] })
	for _, site := range hosts[:n] {
		traits, err := st.Sampler.Sample(rng)
		if err != nil {
			return fmt.Errorf("sampling initial plasmid: %w", err)
		}
		st.Registry.Create(site, traits)
	}
	return nil
}

// collapseToSinglePlasmid rewrites every initial plasmid into a clone of one
// randomly chosen plasmid.
func (st *State) collapseToSinglePlasmid(rng *rand.Rand) {
	all := st.Registry.All()
	if len(all) == 0 {
		logrus.Warnf("single-plasmid dynamics requested but no plasmid was seeded")
		return
	}
	template := all[rng.Intn(len(all))]
	for _, p := range all {
		if p != template {
			st.Registry.Retrait(p, template.Traits)
		}
	}
}

// seedMeanProperties turns one central plasmid-bearing host into a
// resistance carrier with population-mean traits and lets it take over the
// plasmid load of every plasmid-bearing host within takeoverRadius.
func (st *State) seedMeanProperties(rng *rand.Rand) {
	host, ok := st.centralPlasmidHost(rng)
	if !ok {
		logrus.Warnf("resistance seeding skipped: no plasmid-bearing host")
		return
	}
	all := st.Registry.All()
	traits := Traits{
		RM:  stat.Mean(traitValues(all, func(t Traits) float64 { return t.RM }), nil),
		AM:  stat.Mean(traitValues(all, func(t Traits) float64 { return t.AM }), nil),
		EC:  stat.Mean(traitValues(all, func(t Traits) float64 { return t.EC }), nil),
		Inc: st.Registry.Residents(host)[0].Traits.Inc,
		Res: true,
	}
	if st.Config.Resistance.Conjugative {
		var conjugative []*Plasmid
		for _, p := range all {
			if p.Traits.Conjugative() {
				conjugative = append(conjugative, p)
			}
		}
		if len(conjugative) > 0 {
			traits.CM = stat.Mean(traitValues(conjugative, func(t Traits) float64 { return t.CM }), nil)
		}
	}
	st.takeOver(host, traits)
}

// seedRandomProperties picks a central plasmid-bearing host and a random
// plasmid within templateRadius of it that matches the conjugative filter;
// that plasmid, marked resistant, takes over the surrounding hosts.
func (st *State) seedRandomProperties(rng *rand.Rand) {
	host, ok := st.centralPlasmidHost(rng)
	if !ok {
		logrus.Warnf("resistance seeding skipped: no plasmid-bearing host")
		return
	}
	var candidates []*Plasmid
	for _, site := range st.Lattice.Within(host, templateRadius) {
		for _, p := range st.Registry.Residents(site) {
			if p.Traits.Conjugative() == st.Config.Resistance.Conjugative {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		logrus.Warnf("resistance seeding skipped: no plasmid with conjugative=%t within radius %.0f",
			st.Config.Resistance.Conjugative, templateRadius)
		return
	}
	traits := candidates[rng.Intn(len(candidates))].Traits
	traits.Res = true
	st.takeOver(host, traits)
}

// seedManyNearMeanAM marks int(ARPProp × hosts) plasmids resistant, drawn
// among plasmids whose accessory cost lies within one standard deviation of
// the mean. No spatial takeover.
func (st *State) seedManyNearMeanAM(rng *rand.Rand) {
	all := st.Registry.All()
	if len(all) == 0 {
		logrus.Warnf("resistance seeding skipped: no plasmid was seeded")
		return
	}
	ams := traitValues(all, func(t Traits) float64 { return t.AM })
	mean, sd := stat.MeanStdDev(ams, nil)
	if len(ams) < 2 {
		sd = 0
	}

	var candidates []*Plasmid
	for _, p := range all {
		if math.Abs(p.Traits.AM-mean) <= sd {
			candidates = append(candidates, p)
		}
	}
	n := min(int(st.Config.Resistance.ARPProp*float64(st.Lattice.OccupiedCount())), len(candidates))
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	for _, p := range candidates[:n] {
		traits := p.Traits
		traits.Res = true
		st.Registry.Retrait(p, traits)
	}
	logrus.Infof("marked %d of %d near-mean-am plasmids resistant (mean am %.4f, sd %.4f)", n, len(candidates), mean, sd)
}

// takeOver replaces the load of host with one plasmid of the given traits and
// overwrites every plasmid-bearing host within takeoverRadius with a clone.
// Plasmid-free hosts stay plasmid-free.
func (st *State) takeOver(host Site, traits Traits) {
	st.Registry.Clear(host)
	resistant := st.Registry.Create(host, traits)
	overwritten := 0
	for _, site := range st.Lattice.Within(host, takeoverRadius) {
		if site == host || len(st.Registry.Residents(site)) == 0 {
			continue
		}
		st.Registry.Clear(site)
		st.Registry.Clone(resistant, site)
		overwritten++
	}
	x, y := st.Lattice.Coord(host)
	logrus.Infof("seeded resistance plasmid pid=%d at (%d,%d), %d neighbouring hosts taken over",
		resistant.PID, x, y, overwritten)
}

// centralPlasmidHost picks a random plasmid-bearing host within a quarter of
// the grid's smaller side from the centre, falling back to any
// plasmid-bearing host.
func (st *State) centralPlasmidHost(rng *rand.Rand) (Site, bool) {
	radius := float64(min(st.Lattice.Width(), st.Lattice.Height())) / 4
	var central []Site
	for _, site := range st.Lattice.Within(st.Lattice.Center(), radius) {
		if len(st.Registry.Residents(site)) > 0 {
			central = append(central, site)
		}
	}
	if len(central) == 0 {
		for _, site := range st.Lattice.OccupiedSites() {
			if len(st.Registry.Residents(site)) > 0 {
				central = append(central, site)
			}
		}
	}
	if len(central) == 0 {
		return 0, false
	}
	return central[rng.Intn(len(central))], true
}

func traitValues(plasmids []*Plasmid, field func(Traits) float64) []float64 {
	vals := make([]float64, len(plasmids))
	for i, p := range plasmids {
		vals[i] = field(p.Traits)
	}
	return vals
}
