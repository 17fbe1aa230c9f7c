package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/plasmid-sim/plasmid-sim/sim"
	"github.com/plasmid-sim/plasmid-sim/sim/export"
	"github.com/plasmid-sim/plasmid-sim/sim/telemetry"
	"github.com/plasmid-sim/plasmid-sim/sim/trace"
)

var (
	// CLI flags outside the simulation configuration
	logLevel        string // Log verbosity level
	configPath      string // YAML configuration file layered under CLI flags
	traceLevel      string // Event trace level
	exportDBPath    string // SQLite file receiving per-pid export records
	exportEvery     int    // Export interval in ticks
	runID           string // Run identifier stamped on export records
	metricsTextfile string // Prometheus textfile written at the end of the run

	// flagCfg receives every simulation flag; only flags the user changed are
	// copied over the file configuration.
	flagCfg = sim.DefaultConfig()
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "plasmid-sim",
	Short: "Stochastic lattice simulator of plasmid spread, coexistence and loss",
}

// runCmd executes the simulation using the configuration file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the plasmid population simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q; valid: none, ticks", traceLevel)
		}

		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("Could not build configuration: %v", err)
		}

		logrus.Infof("Starting simulation on a %dx%d %s lattice, mortality=%g, density=%g, seed=%d, horizon=%d ticks",
			cfg.Width, cfg.Height, environmentName(cfg.MixedEnvironment), cfg.Mortality,
			cfg.InitialPlasmidDensity, cfg.Seed, cfg.SimulationTime)

		startTime := time.Now()

		s, err := sim.NewSimulator(cfg, trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		if err != nil {
			logrus.Fatalf("Could not initialize simulation: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if exportDBPath != "" {
			store := export.NewSQLiteStore(exportDBPath, runID, exportEvery)
			if err := store.Init(ctx); err != nil {
				logrus.Fatalf("Could not open export database %s: %v", exportDBPath, err)
			}
			defer func() { _ = store.Close() }()
			logrus.Infof("Exporting plasmid records for run %s to %s", store.RunID(), exportDBPath)
			s.AddObserver(store)
		}
		if metricsTextfile != "" {
			s.AddObserver(telemetry.NewCollector(metricsTextfile))
		}

		result, err := s.Run(ctx)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		fmt.Printf("Stop reason          : %s after %d ticks (%s)\n", result.Reason, result.Ticks, time.Since(startTime).Round(time.Millisecond))
		result.Final.Print()
		if s.Trace.Config.Enabled() {
			printTraceSummary(trace.Summarize(s.Trace))
		}

		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers the configuration file (or the defaults) under the
// flags the user explicitly set, then validates the result.
func resolveConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = *loaded
	}
	for _, o := range configOverrides {
		if cmd.Flags().Changed(o.flag) {
			o.apply(&cfg, &flagCfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

func environmentName(mixed bool) string {
	if mixed {
		return "well-mixed"
	}
	return "structured"
}

func printTraceSummary(ts *trace.TraceSummary) {
	fmt.Println("=== Event Trace ===")
	fmt.Printf("Traced ticks         : %d\n", ts.Ticks)
	fmt.Printf("Mean lysis per tick  : %.2f\n", ts.MeanLysisPerTick)
	fmt.Printf("Fissions             : %d (%d blocked)\n", ts.Totals.Fission, ts.Totals.FissionBlocked)
	fmt.Printf("Segregation losses   : %d\n", ts.Totals.SegregationLoss)
	fmt.Printf("Inc discards         : %d\n", ts.Totals.IncompatibilityDiscards)
	fmt.Printf("Transfers            : %d (acceptance %.3f)\n", ts.Totals.TransferAccepted, ts.TransferAcceptance)
	fmt.Printf("Immigrations         : %d\n", ts.Totals.Immigration)
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file; explicitly set flags take precedence")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Event trace level (none, ticks)")
	runCmd.Flags().StringVar(&exportDBPath, "export-db", "", "SQLite file receiving per-plasmid export records")
	runCmd.Flags().IntVar(&exportEvery, "export-every", 0, "Export interval in ticks (0 = final tick only)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier for export records (default: random UUID)")
	runCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file at the end of the run")

	registerConfigFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(defaultsCmd)
}
