package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/plasmid-sim/plasmid-sim/sim/trace"
)

// State is the complete mutable state of a run: lattice, plasmid registry,
// pid counter (inside the registry) and random streams. It is owned by one
// goroutine and reset only by building a new State.
type State struct {
	Config   Config
	Lattice  *Lattice
	Registry *Registry
	Sampler  *TraitSampler
	Resolver IncompatibilityResolver
	RNG      *PartitionedRNG

	// Tick is the number of completed ticks.
	Tick int
	// BAA is the bacteriostatic antibiotic action currently in force.
	BAA float64

	// Events counts what happened during the tick in progress (or the last one).
	Events trace.TickRecord
}

// NewState validates cfg and builds an empty lattice. Call Seed to populate it.
func NewState(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &State{
		Config:   cfg,
		Lattice:  NewLattice(cfg.Width, cfg.Height, cfg.MixedEnvironment),
		Registry: NewRegistry(cfg.Sites()),
		Sampler:  NewTraitSampler(cfg.Traits),
		Resolver: NewIncompatibilityResolver(cfg.IncSegMechanism),
		RNG:      NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		BAA:      cfg.Antibiotic.BAA,
	}, nil
}

// RunTick performs one generation: TrialsPerTick independent trials, each on
// a site drawn uniformly with replacement, occupied or not.
func (st *State) RunTick() error {
	if st.BAA > 0 && st.Tick >= st.Config.Antibiotic.Generations {
		logrus.Infof("[tick %05d] antibiotic exposure window elapsed, baa reset to 0", st.Tick)
		st.BAA = 0
	}

	rng := st.RNG.ForSubsystem(SubsystemEngine)
	trials := st.Config.TrialsPerTick()
	st.Events = trace.TickRecord{Tick: st.Tick + 1, Trials: trials}
	for i := 0; i < trials; i++ {
		if err := st.Trial(rng, st.Lattice.RandomSite(rng)); err != nil {
			return fmt.Errorf("tick %d: %w", st.Tick+1, err)
		}
	}
	st.Tick++
	logrus.Debugf("[tick %05d] lysis=%d fission=%d transfer=%d immigration=%d",
		st.Tick, st.Events.Lysis, st.Events.Fission, st.Events.TransferAccepted, st.Events.Immigration)
	return nil
}

// Trial applies at most one of lysis, fission or transfer to site, then the
// independent immigration check.
func (st *State) Trial(rng *rand.Rand, site Site) error {
	if st.Lattice.Occupied(site) {
		u := rng.Float64()
		p := ComputePropensities(st.Registry.Residents(site), st.Lattice.ResourceAvailability(site), st.BAA, st.Config.Mortality)
		switch ChooseEvent(u, p) {
		case EventLysis:
			st.Lysis(site)
		case EventFission:
			st.Fission(rng, site)
		case EventTransfer:
			st.Transfer(rng, site)
		}
	}
	if st.Config.Immigration > 0 && rng.Float64() < st.Config.Immigration {
		return st.Immigrate(rng, site)
	}
	return nil
}

// Lysis kills the host at site and destroys its plasmids.
// Lysing an empty site is a no-op.
func (st *State) Lysis(site Site) {
	if st.Lattice.IsEmpty(site) {
		return
	}
	st.Registry.Clear(site)
	st.Lattice.Vacate(site)
	st.Events.Lysis++
}

// Fission divides the host at site into a random empty target. Residents are
// inherited through the incompatibility resolver; with probability SegProb
// one plasmid of the combined mother+daughter load is lost. Returns the
// daughter site, or false when no empty target existed.
func (st *State) Fission(rng *rand.Rand, site Site) (Site, bool) {
	daughter, ok := st.Lattice.ReproductionTarget(rng, site)
	if !ok {
		st.Events.FissionBlocked++
		return 0, false
	}
	st.Lattice.Occupy(daughter)
	st.Events.Fission++

	if len(st.Registry.Residents(site)) == 0 {
		return daughter, true
	}

	st.Events.IncompatibilityDiscards += st.Resolver.Inherit(st.Registry, site, daughter)

	if rng.Float64() < st.Config.SegProb {
		mother, child := st.Registry.Residents(site), st.Registry.Residents(daughter)
		if n := len(mother) + len(child); n > 0 {
			i := rng.Intn(n)
			if i < len(mother) {
				st.Registry.Remove(mother[i])
			} else {
				st.Registry.Remove(child[i-len(mother)])
			}
			st.Events.SegregationLoss++
		}
	}

	st.Events.IncompatibilityDiscards += st.Resolver.Resolve(st.Registry, rng, site)
	st.Events.IncompatibilityDiscards += st.Resolver.Resolve(st.Registry, rng, daughter)
	return daughter, true
}

// Transfer attempts conjugation from the host at site. One resident is chosen
// by a single draw weighted by transfer probability; it is cloned into an
// occupied contact target unless the target already hosts the same pid or,
// under surface exclusion, any plasmid of the same incompatibility group.
// The incompatibility resolver is not invoked.
func (st *State) Transfer(rng *rand.Rand, site Site) TransferOutcome {
	donor := selectDonor(rng, st.Registry.Residents(site))
	if donor == nil {
		return TransferNoDonor
	}
	target, ok := st.Lattice.ContactTarget(rng, site)
	if !ok || st.Lattice.IsEmpty(target) {
		st.Events.TransferNoRecipient++
		return TransferNoRecipient
	}
	if st.Registry.HostsPID(target, donor.PID) {
		st.Events.TransferRejectedPID++
		return TransferRejectedPID
	}
	if st.Config.SurfaceExclusion && st.Registry.HostsInc(target, donor.Traits.Inc) {
		st.Events.TransferRejectedInc++
		return TransferRejectedInc
	}
	st.Registry.Clone(donor, target)
	st.Events.TransferAccepted++
	return TransferAccepted
}

// selectDonor draws r ~ U(0, Σtp) and walks residents in enumeration order,
// returning the first whose cumulative tp exceeds r. Returns nil when no
// resident can transfer.
func selectDonor(rng *rand.Rand, residents []*Plasmid) *Plasmid {
	total := 0.0
	for _, p := range residents {
		total += p.TP()
	}
	if total <= 0 {
		return nil
	}
	r := rng.Float64() * total
	acc := 0.0
	var last *Plasmid
	for _, p := range residents {
		tp := p.TP()
		if tp <= 0 {
			continue
		}
		acc += tp
		last = p
		if acc > r {
			return p
		}
	}
	// floating-point shortfall: the draw landed on the final boundary
	return last
}

// Immigrate replaces whatever lives at site with a fresh colonizer. The
// colonizer carries one freshly sampled plasmid with probability equal to the
// initial plasmid density (0.5 when that density is 0), otherwise none.
func (st *State) Immigrate(rng *rand.Rand, site Site) error {
	st.Registry.Clear(site)
	st.Lattice.Occupy(site)
	st.Events.Immigration++

	density := st.Config.InitialPlasmidDensity
	if density == 0 {
		density = 0.5
	}
	if rng.Float64() >= density {
		return nil
	}
	traits, err := st.Sampler.Sample(rng)
	if err != nil {
		return fmt.Errorf("sampling immigrant plasmid: %w", err)
	}
	st.Registry.Create(site, traits)
	return nil
}
