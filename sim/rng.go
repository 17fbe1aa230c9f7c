package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys with equal Config
// reproduce the same lattice history and summary.
type SimulationKey int64

// NewSimulationKey wraps a config seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemSetup drives initial host placement, plasmid trait sampling
	// and resistance placement. It draws from the master seed itself.
	SubsystemSetup = "setup"

	// SubsystemEngine drives site trials: site picks, event choice,
	// fission and contact targets, and immigrant plasmids.
	SubsystemEngine = "engine"
)

// PartitionedRNG hands each simulation phase its own random stream.
// The setup stream is seeded with the master seed; every other stream is
// seeded with masterSeed XOR fnv1a64(name).
//
// Not safe for concurrent use. A State owns one and drives it from the
// tick loop.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG returns an empty partition for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Streams are independent: however many draws seeding makes, for example
// when a resistance mode samples extra plasmids, the engine sequence of a
// run with the same seed is unchanged.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	seed := int64(p.key)
	if name != SubsystemSetup {
		seed ^= fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
