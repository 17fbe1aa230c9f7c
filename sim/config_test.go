package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.ResistanceEnabled())
}

func TestConfig_TrialsPerTick(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		mortality float64
		want      int
	}{
		{"exact", 10, 10, 0.1, 1000},
		{"rounds up", 3, 3, 0.2, 45},
		{"ceil of fraction", 1, 7, 0.3, 24},
		{"mortality one", 4, 5, 1, 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Width, cfg.Height, cfg.Mortality = tc.w, tc.h, tc.mortality
			assert.Equal(t, tc.want, cfg.TrialsPerTick())
		})
	}
}

func TestConfig_Validate_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"negative height", func(c *Config) { c.Height = -1 }},
		{"zero mortality", func(c *Config) { c.Mortality = 0 }},
		{"mortality above one", func(c *Config) { c.Mortality = 1.5 }},
		{"nan mortality", func(c *Config) { c.Mortality = math.NaN() }},
		{"vanishing mortality overflows trials", func(c *Config) { c.Mortality = 1e-300 }},
		{"trials just above cap", func(c *Config) {
			c.Width, c.Height = 1, 1
			c.Mortality = 1 / (float64(math.MaxInt32) + 1024)
		}},
		{"density above one", func(c *Config) { c.InitialPlasmidDensity = 1.1 }},
		{"negative seg prob", func(c *Config) { c.SegProb = -0.1 }},
		{"immigration above one", func(c *Config) { c.Immigration = 2 }},
		{"baa above one", func(c *Config) { c.Antibiotic.BAA = 1.01 }},
		{"negative antibiotic window", func(c *Config) { c.Antibiotic.Generations = -1 }},
		{"arp prop above one", func(c *Config) { c.Resistance.ARPProp = 3 }},
		{"unknown mechanism", func(c *Config) { c.IncSegMechanism = "coin-flip" }},
		{"unknown resistance mode", func(c *Config) { c.Resistance.Mode = "all" }},
		{"zero tick budget", func(c *Config) { c.SimulationTime = 0 }},
		{"zero inc groups", func(c *Config) { c.Traits.IncNumbers = 0 }},
		{"negative rm mean", func(c *Config) { c.Traits.RMMean = -0.1 }},
		{"infinite ec mean", func(c *Config) { c.Traits.ECMean = math.Inf(1) }},
		{"min rc above one", func(c *Config) { c.Traits.MinRC = 1.5 }},
		{"negative rejection cap", func(c *Config) { c.Traits.MaxRejections = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_Validate_TrialsAtCap(t *testing.T) {
	// GIVEN a single site and a mortality putting sites/mortality just under the cap
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 1, 1
	cfg.Mortality = 1 / (float64(math.MaxInt32) - 1024)

	// THEN it validates and the trial count stays positive
	require.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.TrialsPerTick(), 0)
	assert.LessOrEqual(t, cfg.TrialsPerTick(), math.MaxInt32)
}

func TestConfig_Validate_AcceptsBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 1, 1
	cfg.Mortality = 1
	cfg.InitialPlasmidDensity = 0
	cfg.SegProb = 1
	cfg.Immigration = 1
	cfg.Resistance.Mode = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_LayersOverDefaults(t *testing.T) {
	// GIVEN a file setting only a few fields
	path := filepath.Join(t.TempDir(), "run.yaml")
	yaml := `
width: 30
mortality: 0.2
traits:
  inc_numbers: 3
resistance:
  mode: mean-properties
  stop_when_resistance_is_lost: true
antibiotic:
  baa: 0.5
  generations_of_antibiotic_presence: 100
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	// WHEN loading it
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// THEN set fields are applied and every other field keeps its default
	def := DefaultConfig()
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, def.Height, cfg.Height)
	assert.Equal(t, 0.2, cfg.Mortality)
	assert.Equal(t, 3, cfg.Traits.IncNumbers)
	assert.Equal(t, def.Traits.RMMean, cfg.Traits.RMMean)
	assert.Equal(t, ResistanceMeanProperties, cfg.Resistance.Mode)
	assert.True(t, cfg.Resistance.StopWhenLost)
	assert.True(t, cfg.Resistance.Conjugative, "nested default must survive partial override")
	assert.Equal(t, 100, cfg.Antibiotic.Generations)
	assert.True(t, cfg.ResistanceEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mortallity: 0.2\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
