package cmd

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/transport-sim/transport-sim/sim"
	_ "github.com/transport-sim/transport-sim/sim/handlers" // register built-in handler types
)

var (
	// CLI flags for the transport run
	seed         int64   // Master seed for all RNG subsystems
	logLevel     string  // Log verbosity level
	physicsPath  string  // YAML physics configuration path ("" = built-in defaults)
	numTracks    int     // Number of primary tracks to transport
	numWorkers   int     // Number of independent worker contexts
	species      string  // Primary species name
	energyMean   float64 // Mean primary kinetic energy (MeV)
	energyStdev  float64 // Stdev of primary kinetic energy (MeV)
	maxSteps     int     // Per-track step cap (0 = config/default)
	lengthFactor float64 // Interaction-length factor override (0 = config value)
)

// envDefaults are environment-variable fallbacks applied before flag
// parsing, so flags still win.
type envDefaults struct {
	Seed     int64  `env:"TSIM_SEED" envDefault:"42"`
	LogLevel string `env:"TSIM_LOG_LEVEL" envDefault:"info"`
	Physics  string `env:"TSIM_PHYSICS"`
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "transport-sim",
	Short: "Interaction-scheduling core for discrete-event particle transport",
}

// runCmd executes a transport run using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transport primary tracks through the configured handlers",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		setup, cfg, err := buildSetup(physicsPath)
		if err != nil {
			logrus.Fatalf("Physics configuration rejected: %v", err)
		}
		if lengthFactor > 0 {
			if err := setup.SetInteractionLengthFactor(lengthFactor); err != nil {
				logrus.Fatalf("Invalid interaction-length factor: %v", err)
			}
		}
		if maxSteps > 0 {
			setup.SetMaxSteps(maxSteps)
		}
		if !speciesDefined(cfg, species) {
			logrus.Fatalf("Primary species %q is not defined in the physics configuration", species)
		}

		logrus.Infof("Starting transport: %d tracks of %s at %g MeV across %d workers (seed %d)",
			numTracks, species, energyMean, numWorkers, seed)
		startTime := time.Now()

		key := sim.NewSimulationKey(seed)
		total := sim.NewMetrics()
		for id := 0; id < numWorkers; id++ {
			worker, err := setup.BuildWorker(id, key)
			if err != nil {
				logrus.Fatalf("Worker %d build failed: %v", id, err)
			}
			source := worker.RNG().ForSubsystem(sim.SubsystemSource)
			for i := id; i < numTracks; i += numWorkers {
				energy := energyMean
				if energyStdev > 0 {
					energy += source.NormFloat64() * energyStdev
					if energy <= 0 {
						energy = energyMean
					}
				}
				tr, err := worker.NewTrack(species, energy)
				if err != nil {
					logrus.Fatalf("Track creation failed: %v", err)
				}
				if err := worker.Transport(tr); err != nil {
					logrus.Fatalf("Transport aborted: %v", err)
				}
			}
			total.Merge(worker.Metrics)
		}

		total.Print()
		logrus.Infof("Transport complete in %v.", time.Since(startTime))
	},
}

// validateCmd checks a physics configuration without running
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a physics configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		setup, _, err := buildSetup(physicsPath)
		if err != nil {
			logrus.Fatalf("Physics configuration rejected: %v", err)
		}
		// A throwaway worker exercises handler construction and ranks.
		if _, err := setup.BuildWorker(0, sim.NewSimulationKey(1)); err != nil {
			logrus.Fatalf("Physics configuration rejected: %v", err)
		}
		logrus.Info("Physics configuration OK.")
	},
}

// buildSetup loads the physics config from path, or the built-in defaults
// when path is empty, and materializes the Setup.
func buildSetup(path string) (*sim.Setup, *sim.PhysicsConfig, error) {
	var cfg *sim.PhysicsConfig
	if path == "" {
		cfg = DefaultPhysicsConfig()
	} else {
		loaded, err := sim.LoadPhysicsConfig(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	setup, err := cfg.BuildSetup()
	if err != nil {
		return nil, nil, err
	}
	return setup, cfg, nil
}

func speciesDefined(cfg *sim.PhysicsConfig, name string) bool {
	for _, sp := range cfg.Species {
		if sp.Name == name {
			return true
		}
	}
	return false
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		// Malformed environment values should not brick the CLI; fall back
		// to the compiled defaults.
		logrus.Warnf("Ignoring malformed TSIM_* environment: %v", err)
		defaults = envDefaults{Seed: 42, LogLevel: "info"}
	}

	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Master seed for all RNG subsystems")
	runCmd.Flags().StringVar(&logLevel, "log", defaults.LogLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&physicsPath, "physics", defaults.Physics, "YAML physics configuration (empty = built-in defaults)")
	runCmd.Flags().IntVar(&numTracks, "tracks", 1000, "Number of primary tracks")
	runCmd.Flags().IntVar(&numWorkers, "workers", 1, "Number of independent worker contexts")
	runCmd.Flags().StringVar(&species, "species", "proton", "Primary species name")
	runCmd.Flags().Float64Var(&energyMean, "energy", 10.0, "Mean primary kinetic energy (MeV)")
	runCmd.Flags().Float64Var(&energyStdev, "energy-stdev", 0.0, "Stdev of primary kinetic energy (MeV)")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Per-track step cap (0 = config value)")
	runCmd.Flags().Float64Var(&lengthFactor, "interaction-length-factor", 0, "Global interaction-length factor override (0 = config value)")

	validateCmd.Flags().StringVar(&physicsPath, "physics", defaults.Physics, "YAML physics configuration (empty = built-in defaults)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
