package sim

import (
	"fmt"
	"math/rand"
)

// IncompatibilityResolver enforces at most one plasmid per incompatibility
// group per site across a fission.
//
// The engine calls Inherit to copy the mother's load into the daughter, then
// applies segregation loss, then calls Resolve on mother and daughter.
// It is never called after conjugative transfer.
type IncompatibilityResolver interface {
	// Inherit clones the mother's residents into daughter and returns the
	// number of plasmids discarded in doing so.
	Inherit(reg *Registry, mother, daughter Site) int
	// Resolve restores the one-per-group invariant at site and returns the
	// number of plasmids discarded.
	Resolve(reg *Registry, rng *rand.Rand, site Site) int
}

// RandomLoadResolver clones every resident into the daughter. Afterwards each
// site independently keeps one uniformly chosen plasmid per duplicated group,
// so mother and daughter may retain different members of the same group.
type RandomLoadResolver struct{}

func (RandomLoadResolver) Inherit(reg *Registry, mother, daughter Site) int {
	for _, p := range reg.Residents(mother) {
		reg.Clone(p, daughter)
	}
	return 0
}

func (RandomLoadResolver) Resolve(reg *Registry, rng *rand.Rand, site Site) int {
	discarded := 0
	for _, group := range groupByInc(reg.Residents(site)) {
		if len(group) < 2 {
			continue
		}
		keep := rng.Intn(len(group))
		for i, p := range group {
			if i != keep {
				reg.Remove(p)
				discarded++
			}
		}
	}
	return discarded
}

// IdenticalLoadResolver clones a mother resident only if the daughter has no
// plasmid of its group yet, so the first resident of each group in
// enumeration order is inherited. The mother then drops the residents that
// were not inherited and both cells start with the same load.
type IdenticalLoadResolver struct{}

func (IdenticalLoadResolver) Inherit(reg *Registry, mother, daughter Site) int {
	discarded := 0
	for _, p := range reg.Residents(mother) {
		if reg.HostsInc(daughter, p.Traits.Inc) {
			reg.Remove(p)
			discarded++
			continue
		}
		reg.Clone(p, daughter)
	}
	return discarded
}

// Resolve is a no-op: Inherit already leaves both sites conflict-free and
// segregation only removes plasmids.
func (IdenticalLoadResolver) Resolve(_ *Registry, _ *rand.Rand, _ Site) int {
	return 0
}

// NewIncompatibilityResolver creates the resolver for a mechanism.
// Panics on unrecognized names; Config.Validate rejects them first.
func NewIncompatibilityResolver(mech IncSegMechanism) IncompatibilityResolver {
	switch mech {
	case RandomDaughterLoad:
		return RandomLoadResolver{}
	case IdenticalDaughterLoad:
		return IdenticalLoadResolver{}
	default:
		panic(fmt.Sprintf("unhandled inc_seg_mechanism %q", mech))
	}
}

// groupByInc partitions residents by incompatibility group. Groups appear in
// order of first occurrence and members keep enumeration order.
func groupByInc(residents []*Plasmid) [][]*Plasmid {
	index := make(map[int]int)
	var groups [][]*Plasmid
	for _, p := range residents {
		i, ok := index[p.Traits.Inc]
		if !ok {
			i = len(groups)
			index[p.Traits.Inc] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}
	return groups
}
