package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/plasmid-sim/plasmid-sim/sim"
)

// configOverride copies one flag-backed field from the flag config into the
// resolved config.
type configOverride struct {
	flag  string
	apply func(dst, src *sim.Config)
}

// configOverrides lists every simulation flag. A flag missing here is
// registered but never applied, so keep it in sync with registerConfigFlags.
var configOverrides = []configOverride{
	{"seed", func(d, s *sim.Config) { d.Seed = s.Seed }},
	{"width", func(d, s *sim.Config) { d.Width = s.Width }},
	{"height", func(d, s *sim.Config) { d.Height = s.Height }},
	{"mortality", func(d, s *sim.Config) { d.Mortality = s.Mortality }},
	{"initial-plasmid-density", func(d, s *sim.Config) { d.InitialPlasmidDensity = s.InitialPlasmidDensity }},
	{"rm-mean", func(d, s *sim.Config) { d.Traits.RMMean = s.Traits.RMMean }},
	{"am-max", func(d, s *sim.Config) { d.Traits.AMMax = s.Traits.AMMax }},
	{"cm-mean", func(d, s *sim.Config) { d.Traits.CMMean = s.Traits.CMMean }},
	{"min-rc", func(d, s *sim.Config) { d.Traits.MinRC = s.Traits.MinRC }},
	{"min-cc", func(d, s *sim.Config) { d.Traits.MinCC = s.Traits.MinCC }},
	{"ec-mean", func(d, s *sim.Config) { d.Traits.ECMean = s.Traits.ECMean }},
	{"dev-strength", func(d, s *sim.Config) { d.Traits.DevStrength = s.Traits.DevStrength }},
	{"inc-numbers", func(d, s *sim.Config) { d.Traits.IncNumbers = s.Traits.IncNumbers }},
	{"max-rejections", func(d, s *sim.Config) { d.Traits.MaxRejections = s.Traits.MaxRejections }},
	{"seg-prob", func(d, s *sim.Config) { d.SegProb = s.SegProb }},
	{"mixed-environment", func(d, s *sim.Config) { d.MixedEnvironment = s.MixedEnvironment }},
	{"surface-exclusion", func(d, s *sim.Config) { d.SurfaceExclusion = s.SurfaceExclusion }},
	{"inc-seg-mechanism", func(d, s *sim.Config) { d.IncSegMechanism = s.IncSegMechanism }},
	{"baa", func(d, s *sim.Config) { d.Antibiotic.BAA = s.Antibiotic.BAA }},
	{"generations-of-antibiotic-presence", func(d, s *sim.Config) { d.Antibiotic.Generations = s.Antibiotic.Generations }},
	{"resistance-mode", func(d, s *sim.Config) { d.Resistance.Mode = s.Resistance.Mode }},
	{"resistance-conjugative", func(d, s *sim.Config) { d.Resistance.Conjugative = s.Resistance.Conjugative }},
	{"arp-prop", func(d, s *sim.Config) { d.Resistance.ARPProp = s.Resistance.ARPProp }},
	{"stop-when-resistance-is-lost", func(d, s *sim.Config) { d.Resistance.StopWhenLost = s.Resistance.StopWhenLost }},
	{"single-plasmid-dynamics", func(d, s *sim.Config) { d.SinglePlasmidDynamics = s.SinglePlasmidDynamics }},
	{"immigration", func(d, s *sim.Config) { d.Immigration = s.Immigration }},
	{"simulation-time", func(d, s *sim.Config) { d.SimulationTime = s.SimulationTime }},
}

// registerConfigFlags binds every simulation flag to flagCfg.
func registerConfigFlags(c *cobra.Command) {
	f := c.Flags()
	f.Int64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "Seed for the setup and engine random streams")

	// Lattice and population
	f.IntVar(&flagCfg.Width, "width", flagCfg.Width, "Lattice width in sites")
	f.IntVar(&flagCfg.Height, "height", flagCfg.Height, "Lattice height in sites")
	f.Float64Var(&flagCfg.Mortality, "mortality", flagCfg.Mortality, "Per-trial lysis probability, in (0, 1]")
	f.Float64Var(&flagCfg.InitialPlasmidDensity, "initial-plasmid-density", flagCfg.InitialPlasmidDensity, "Fraction of initial hosts carrying a plasmid")
	f.BoolVar(&flagCfg.MixedEnvironment, "mixed-environment", flagCfg.MixedEnvironment, "Well-mixed suspension instead of a structured biofilm")
	f.Float64Var(&flagCfg.Immigration, "immigration", flagCfg.Immigration, "Per-trial probability of replacing the visited site by a colonizer")
	f.IntVar(&flagCfg.SimulationTime, "simulation-time", flagCfg.SimulationTime, "Tick budget")

	// Trait distributions
	f.Float64Var(&flagCfg.Traits.RMMean, "rm-mean", flagCfg.Traits.RMMean, "Mean replication cost")
	f.Float64Var(&flagCfg.Traits.AMMax, "am-max", flagCfg.Traits.AMMax, "Maximum accessory cost")
	f.Float64Var(&flagCfg.Traits.CMMean, "cm-mean", flagCfg.Traits.CMMean, "Mean conjugation cost")
	f.Float64Var(&flagCfg.Traits.MinRC, "min-rc", flagCfg.Traits.MinRC, "Minimum replication cost")
	f.Float64Var(&flagCfg.Traits.MinCC, "min-cc", flagCfg.Traits.MinCC, "Minimum non-zero conjugation cost")
	f.Float64Var(&flagCfg.Traits.ECMean, "ec-mean", flagCfg.Traits.ECMean, "Mean conjugation efficiency")
	f.Float64Var(&flagCfg.Traits.DevStrength, "dev-strength", flagCfg.Traits.DevStrength, "Trait coefficient of variation")
	f.IntVar(&flagCfg.Traits.IncNumbers, "inc-numbers", flagCfg.Traits.IncNumbers, "Number of incompatibility groups")
	f.IntVar(&flagCfg.Traits.MaxRejections, "max-rejections", flagCfg.Traits.MaxRejections, "Rejection-sampling cap per trait draw (0 = unbounded)")

	// Inheritance and transfer
	f.Float64Var(&flagCfg.SegProb, "seg-prob", flagCfg.SegProb, "Probability of losing one plasmid at fission")
	f.BoolVar(&flagCfg.SurfaceExclusion, "surface-exclusion", flagCfg.SurfaceExclusion, "Reject incoming plasmids sharing an incompatibility group with a resident")
	f.StringVar((*string)(&flagCfg.IncSegMechanism), "inc-seg-mechanism", string(flagCfg.IncSegMechanism), "Incompatibility resolution at fission (random-daughter-load, identical-daughter-load)")

	// Antibiotic and resistance
	f.Float64Var(&flagCfg.Antibiotic.BAA, "baa", flagCfg.Antibiotic.BAA, "Bacteriostatic antibiotic action on non-resistant hosts")
	f.IntVar(&flagCfg.Antibiotic.Generations, "generations-of-antibiotic-presence", flagCfg.Antibiotic.Generations, "Antibiotic exposure window in ticks")
	f.StringVar((*string)(&flagCfg.Resistance.Mode), "resistance-mode", string(flagCfg.Resistance.Mode), "Resistance seeding (none, mean-properties, random-properties, many-random-near-mean-am)")
	f.BoolVar(&flagCfg.Resistance.Conjugative, "resistance-conjugative", flagCfg.Resistance.Conjugative, "Seed a conjugative (true) or non-conjugative (false) resistance plasmid")
	f.Float64Var(&flagCfg.Resistance.ARPProp, "arp-prop", flagCfg.Resistance.ARPProp, "Share of plasmids marked resistant by many-random-near-mean-am")
	f.BoolVar(&flagCfg.Resistance.StopWhenLost, "stop-when-resistance-is-lost", flagCfg.Resistance.StopWhenLost, "Stop once no resistance plasmid remains")
	f.BoolVar(&flagCfg.SinglePlasmidDynamics, "single-plasmid-dynamics", flagCfg.SinglePlasmidDynamics, "Collapse the initial plasmids to clones of one")
}

// validateCmd checks a configuration file without running it
var validateCmd = &cobra.Command{
	Use:   "validate <config.yaml>",
	Short: "Validate a simulation configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := sim.LoadConfig(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%dx%d, %d trials per tick)\n",
			args[0], cfg.Width, cfg.Height, cfg.TrialsPerTick())
		return nil
	},
}

// defaultsCmd prints the default configuration as YAML
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default simulation configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := yaml.Marshal(sim.DefaultConfig())
		if err != nil {
			logrus.Fatalf("Failed to encode defaults: %v", err)
		}
		_, _ = cmd.OutOrStdout().Write(out)
	},
}
