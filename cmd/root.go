package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/wetherc/cogo-bikeshare/sim"
)

var (
	// CLI flags for run parameters
	seed                int64   // Seed for all stochastic draws
	bikeCount           int     // Fixed fleet size
	startHour           int     // Simulated hour of day at tick 0
	numTicks            int     // Number of ticks (minutes) to simulate
	saturationThreshold float64 // Occupancy cap for initial distribution
	logLevel            string  // Log verbosity level

	// CLI flags for input/output paths
	scenarioPath    string // YAML scenario bundling tables + parameters
	stationsPath    string // Station topology CSV
	transitionsPath string // Station-pair transition CSV
	hourlyRatesPath string // Per-station-per-hour timing CSV
	statsOutPath    string // Optional stat log CSV export
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cogo-bikeshare",
	Short: "Discrete-event simulator for bikeshare dock circulation",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bikeshare simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		dataset, err := loadDataset(cmd)
		if err != nil {
			logrus.Fatalf("Loading input tables: %v", err)
		}

		logrus.Infof("Starting simulation with %d bikes across %d stations, start=%02d:00, ticks=%d, seed=%d",
			bikeCount, len(dataset.Stations), startHour, numTicks, seed)

		collector := &sim.CollectorSink{}
		orch, err := sim.NewOrchestrator(dataset, sim.Config{
			BikeCount:           bikeCount,
			SaturationThreshold: saturationThreshold,
			Seed:                seed,
			Sink:                sim.MultiSink{sim.LogSink{}, collector},
		})
		if err != nil {
			logrus.Fatalf("Building simulation: %v", err)
		}
		if err := orch.Run(startHour, numTicks); err != nil {
			logrus.Fatalf("Running simulation: %v", err)
		}

		orch.Metrics().Print(orch.Tick(), orch.Stats(), orch.DockedCount(), orch.InTransitCount())

		summary := sim.Summarize(collector.Events)
		if summary.TotalLostDemand > 0 {
			fmt.Println("=== Lost demand by station ===")
			for _, id := range summary.LossiestStations() {
				fmt.Printf("%-12s %d\n", id, summary.LostDemandByStation[id])
			}
		}

		if statsOutPath != "" {
			if err := sim.ExportStatLogCSV(orch.Stats(), statsOutPath); err != nil {
				logrus.Fatalf("Exporting stat log: %v", err)
			}
			logrus.Infof("Stat log written to %s", statsOutPath)
		}

		logrus.Info("Simulation complete.")
	},
}

// loadDataset assembles the three input tables, either from a single
// YAML scenario (which also supplies run parameters unless overridden
// on the command line) or from the CSV table triplet.
func loadDataset(cmd *cobra.Command) (*sim.Dataset, error) {
	if scenarioPath != "" {
		sc, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		if !cmd.Flags().Changed("seed") {
			seed = sc.Seed
		}
		if !cmd.Flags().Changed("bikes") {
			bikeCount = sc.Bikes
		}
		if !cmd.Flags().Changed("start-hour") {
			startHour = sc.StartHour
		}
		if !cmd.Flags().Changed("ticks") && sc.Ticks > 0 {
			numTicks = sc.Ticks
		}
		if !cmd.Flags().Changed("saturation-threshold") && sc.SaturationThreshold > 0 {
			saturationThreshold = sc.SaturationThreshold
		}
		return sc.Dataset(), nil
	}

	stations, err := sim.LoadStationsCSV(stationsPath)
	if err != nil {
		return nil, err
	}
	transitions, err := sim.LoadTransitionsCSV(transitionsPath)
	if err != nil {
		return nil, err
	}
	rates, err := sim.LoadHourlyRatesCSV(hourlyRatesPath)
	if err != nil {
		return nil, err
	}
	return &sim.Dataset{Stations: stations, Transitions: transitions, HourlyRates: rates}, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for all stochastic draws")
	runCmd.Flags().IntVar(&bikeCount, "bikes", 100, "Fixed fleet size")
	runCmd.Flags().IntVar(&startHour, "start-hour", 8, "Simulated hour of day at tick 0 (0-23)")
	runCmd.Flags().IntVar(&numTicks, "ticks", 480, "Number of ticks (minutes) to simulate")
	runCmd.Flags().Float64Var(&saturationThreshold, "saturation-threshold", sim.DefaultSaturationThreshold, "Occupancy ratio above which initial distribution skips a station")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (tables + run parameters)")
	runCmd.Flags().StringVar(&stationsPath, "stations", "", "Station topology CSV")
	runCmd.Flags().StringVar(&transitionsPath, "transitions", "", "Station-pair transition CSV")
	runCmd.Flags().StringVar(&hourlyRatesPath, "hourly-rates", "", "Per-station-per-hour timing CSV")
	runCmd.Flags().StringVar(&statsOutPath, "stats-out", "", "Write the per-tick stat log to this CSV path")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
