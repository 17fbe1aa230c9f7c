package sim

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// maxTrialsPerTick bounds sites/mortality so the per-tick trial count fits an int.
const maxTrialsPerTick = math.MaxInt32

// IncSegMechanism selects how incompatibility conflicts are resolved at fission.
type IncSegMechanism string

const (
	// RandomDaughterLoad clones every resident and lets each resulting site
	// keep one random plasmid per duplicated incompatibility group.
	RandomDaughterLoad IncSegMechanism = "random-daughter-load"
	// IdenticalDaughterLoad clones only the first resident of each group,
	// so mother and daughter start from the same load.
	IdenticalDaughterLoad IncSegMechanism = "identical-daughter-load"
)

// ResistanceMode selects the setup-time antibiotic-resistance seeding policy.
type ResistanceMode string

const (
	ResistanceNone                 ResistanceMode = "none"
	ResistanceMeanProperties       ResistanceMode = "mean-properties"
	ResistanceRandomProperties     ResistanceMode = "random-properties"
	ResistanceManyRandomNearMeanAM ResistanceMode = "many-random-near-mean-am"
)

// Valid value registries.
var (
	validIncSegMechanisms = map[IncSegMechanism]bool{
		RandomDaughterLoad: true, IdenticalDaughterLoad: true,
	}
	validResistanceModes = map[ResistanceMode]bool{
		"": true, ResistanceNone: true, ResistanceMeanProperties: true,
		ResistanceRandomProperties: true, ResistanceManyRandomNearMeanAM: true,
	}
)

// TraitConfig parameterizes the trait sampler.
type TraitConfig struct {
	RMMean      float64 `yaml:"rm_mean"`      // mean replication cost
	AMMax       float64 `yaml:"am_max"`       // upper bound of the uniform accessory cost
	CMMean      float64 `yaml:"cm_mean"`      // mean conjugation cost
	MinRC       float64 `yaml:"min_rc"`       // lower bound of rm
	MinCC       float64 `yaml:"min_cc"`       // lower bound of a non-zero cm
	ECMean      float64 `yaml:"ec_mean"`      // mean conjugation efficiency
	DevStrength float64 `yaml:"dev_strength"` // coefficient of variation (sd for ec)
	IncNumbers  int     `yaml:"inc_numbers"`  // number of incompatibility groups
	// MaxRejections caps each rejection loop; 0 means unbounded.
	MaxRejections int `yaml:"max_rejections"`
}

// AntibioticConfig controls bacteriostatic antibiotic pressure.
type AntibioticConfig struct {
	BAA         float64 `yaml:"baa"`                                // fission suppression of non-resistant hosts
	Generations int     `yaml:"generations_of_antibiotic_presence"` // exposure window in ticks
}

// ResistanceConfig controls resistance seeding and the resistance stop rule.
type ResistanceConfig struct {
	Mode         ResistanceMode `yaml:"mode"`
	Conjugative  bool           `yaml:"conjugative"`
	ARPProp      float64        `yaml:"arp_prop"`
	StopWhenLost bool           `yaml:"stop_when_resistance_is_lost"`
}

// Config is the full configuration surface of a run.
// It is read by setup and by the engine but never mutated by either.
type Config struct {
	Width                 int              `yaml:"width"`
	Height                int              `yaml:"height"`
	Mortality             float64          `yaml:"mortality"`
	InitialPlasmidDensity float64          `yaml:"initial_plasmid_density"`
	Traits                TraitConfig      `yaml:"traits"`
	SegProb               float64          `yaml:"seg_prob"`
	MixedEnvironment      bool             `yaml:"mixed_environment"`
	SurfaceExclusion      bool             `yaml:"surface_exclusion"`
	IncSegMechanism       IncSegMechanism  `yaml:"inc_seg_mechanism"`
	Antibiotic            AntibioticConfig `yaml:"antibiotic"`
	Resistance            ResistanceConfig `yaml:"resistance"`
	SinglePlasmidDynamics bool             `yaml:"single_plasmid_dynamics"`
	Immigration           float64          `yaml:"immigration"`
	SimulationTime        int              `yaml:"simulation_time"` // tick budget
	Seed                  int64            `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file or flag overrides a field.
func DefaultConfig() Config {
	return Config{
		Width:                 50,
		Height:                50,
		Mortality:             0.1,
		InitialPlasmidDensity: 0.5,
		Traits: TraitConfig{
			RMMean:        0.05,
			AMMax:         0.05,
			CMMean:        0.05,
			MinRC:         0.01,
			MinCC:         0.01,
			ECMean:        5,
			DevStrength:   0.2,
			IncNumbers:    5,
			MaxRejections: 1_000_000,
		},
		SegProb:         0.01,
		IncSegMechanism: RandomDaughterLoad,
		Resistance:      ResistanceConfig{Mode: ResistanceNone, Conjugative: true, ARPProp: 0.01},
		SimulationTime:  1000,
		Seed:            42,
	}
}

// LoadConfig reads a YAML configuration file layered over DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Sites returns the number of lattice sites.
func (c *Config) Sites() int {
	return c.Width * c.Height
}

// TrialsPerTick is ceil(sites / mortality): at the configured mortality the
// expected number of lysis events in a full lattice is one population turnover.
func (c *Config) TrialsPerTick() int {
	return int(math.Ceil(float64(c.Sites()) / c.Mortality))
}

// ResistanceEnabled reports whether a resistance seeding policy is configured.
func (c *Config) ResistanceEnabled() bool {
	return c.Resistance.Mode != "" && c.Resistance.Mode != ResistanceNone
}

// Validate checks ranges and enum values. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return invalid("grid must be at least 1x1, got %dx%d", c.Width, c.Height)
	}
	if err := validateFinite("mortality", c.Mortality); err != nil {
		return err
	}
	if c.Mortality <= 0 || c.Mortality > 1 {
		return invalid("mortality must be in (0, 1], got %f", c.Mortality)
	}
	if trials := float64(c.Sites()) / c.Mortality; trials > maxTrialsPerTick {
		return invalid("sites/mortality = %g trials per tick exceeds %d; raise mortality or shrink the grid", trials, maxTrialsPerTick)
	}
	probabilities := []struct {
		name string
		val  float64
	}{
		{"initial_plasmid_density", c.InitialPlasmidDensity},
		{"seg_prob", c.SegProb},
		{"immigration", c.Immigration},
		{"antibiotic.baa", c.Antibiotic.BAA},
		{"resistance.arp_prop", c.Resistance.ARPProp},
	}
	for _, p := range probabilities {
		if err := validateProbability(p.name, p.val); err != nil {
			return err
		}
	}
	if !validIncSegMechanisms[c.IncSegMechanism] {
		return invalid("unknown inc_seg_mechanism %q; valid: random-daughter-load, identical-daughter-load", c.IncSegMechanism)
	}
	if !validResistanceModes[c.Resistance.Mode] {
		return invalid("unknown resistance.mode %q; valid: none, mean-properties, random-properties, many-random-near-mean-am", c.Resistance.Mode)
	}
	if c.Antibiotic.Generations < 0 {
		return invalid("antibiotic.generations_of_antibiotic_presence must be non-negative, got %d", c.Antibiotic.Generations)
	}
	if c.SimulationTime <= 0 {
		return invalid("simulation_time must be positive, got %d", c.SimulationTime)
	}
	return c.Traits.validate()
}

func (t *TraitConfig) validate() error {
	for name, val := range map[string]float64{
		"traits.rm_mean": t.RMMean, "traits.am_max": t.AMMax, "traits.cm_mean": t.CMMean,
		"traits.min_rc": t.MinRC, "traits.min_cc": t.MinCC, "traits.ec_mean": t.ECMean,
		"traits.dev_strength": t.DevStrength,
	} {
		if err := validateFinite(name, val); err != nil {
			return err
		}
		if val < 0 {
			return invalid("%s must be non-negative, got %f", name, val)
		}
	}
	if t.MinRC > 1 || t.MinCC > 1 {
		return invalid("traits.min_rc and traits.min_cc must not exceed 1, got %f and %f", t.MinRC, t.MinCC)
	}
	if t.IncNumbers < 1 {
		return invalid("traits.inc_numbers must be at least 1, got %d", t.IncNumbers)
	}
	if t.MaxRejections < 0 {
		return invalid("traits.max_rejections must be non-negative, got %d", t.MaxRejections)
	}
	return nil
}

func validateFinite(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return invalid("%s must be a finite number, got %f", name, val)
	}
	return nil
}

func validateProbability(name string, val float64) error {
	if err := validateFinite(name, val); err != nil {
		return err
	}
	if val < 0 || val > 1 {
		return invalid("%s must be in [0, 1], got %f", name, val)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
