package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrUnsatisfiableTraits is returned when a rejection loop exceeds
// TraitConfig.MaxRejections, which happens when a distribution mean lies far
// outside its admissible range.
var ErrUnsatisfiableTraits = errors.New("unsatisfiable trait configuration")

// Traits is the trait vector of a plasmid. It is comparable and doubles as
// the interning key for plasmid identity: equal vectors share a pid.
type Traits struct {
	RM  float64 // replication cost
	AM  float64 // accessory cost
	CM  float64 // conjugation cost; 0 for non-conjugative plasmids
	EC  float64 // conjugation efficiency
	Inc int     // incompatibility group, 1..inc_numbers
	Res bool    // confers antibiotic resistance
}

// PB is the plasmid burden imposed on the host.
func (t Traits) PB() float64 {
	return t.RM + t.AM + t.CM
}

// TP is the transfer probability, cm·ec clamped to [0, 1].
func (t Traits) TP() float64 {
	return math.Max(0, math.Min(1, t.CM*t.EC))
}

// Conjugative reports whether the plasmid can attempt transfer at all.
func (t Traits) Conjugative() bool {
	return t.CM > 0
}

// TraitSampler draws valid trait vectors from the configured distributions.
type TraitSampler struct {
	cfg TraitConfig
}

// NewTraitSampler creates a sampler for the given trait parameters.
func NewTraitSampler(cfg TraitConfig) *TraitSampler {
	return &TraitSampler{cfg: cfg}
}

// Sample draws one trait vector. The returned vector always satisfies
// MinRC <= RM <= 1, CM == 0 or MinCC <= CM <= 1, 0 <= TP <= 1 and
// 1 <= Inc <= IncNumbers; Res is always false.
func (s *TraitSampler) Sample(rng *rand.Rand) (Traits, error) {
	var t Traits
	var err error

	t.RM, err = s.truncatedNormal(rng, "rm", s.cfg.RMMean, s.cfg.RMMean*s.cfg.DevStrength, s.cfg.MinRC, 1)
	if err != nil {
		return Traits{}, err
	}

	if rng.Float64() >= 0.5 {
		t.CM, err = s.truncatedNormal(rng, "cm", s.cfg.CMMean, s.cfg.CMMean*s.cfg.DevStrength, s.cfg.MinCC, 1)
		if err != nil {
			return Traits{}, err
		}
	}

	t.AM = rng.Float64() * s.cfg.AMMax

	t.EC, err = s.efficiency(rng, t.CM)
	if err != nil {
		return Traits{}, err
	}

	t.Inc = 1 + rng.Intn(s.cfg.IncNumbers)
	return t, nil
}

// efficiency draws a non-negative ec and redraws it until cm·ec lies in [0, 1].
func (s *TraitSampler) efficiency(rng *rand.Rand, cm float64) (float64, error) {
	for i := 0; s.unbounded() || i < s.cfg.MaxRejections; i++ {
		ec, err := s.truncatedNormal(rng, "ec", s.cfg.ECMean, s.cfg.DevStrength, 0, math.Inf(1))
		if err != nil {
			return 0, err
		}
		if tp := cm * ec; tp >= 0 && tp <= 1 {
			return ec, nil
		}
	}
	return 0, fmt.Errorf("%w: tp = cm*ec stayed outside [0, 1] for cm=%g after %d attempts",
		ErrUnsatisfiableTraits, cm, s.cfg.MaxRejections)
}

func (s *TraitSampler) truncatedNormal(rng *rand.Rand, name string, mean, sd, lo, hi float64) (float64, error) {
	for i := 0; s.unbounded() || i < s.cfg.MaxRejections; i++ {
		v := rng.NormFloat64()*sd + mean
		if v >= lo && v <= hi {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s ~ normal(%g, %g) never fell in [%g, %g] after %d attempts",
		ErrUnsatisfiableTraits, name, mean, sd, lo, hi, s.cfg.MaxRejections)
}

func (s *TraitSampler) unbounded() bool {
	return s.cfg.MaxRejections == 0
}
