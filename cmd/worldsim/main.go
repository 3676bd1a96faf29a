// Command worldsim runs the world food-economy simulation: headless year runs,
// text reports, state digests and an auto-advancing server with a read-only API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "worldsim",
		Short:        "World food-economy year simulation",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./famine.yaml or ./configs/famine.yaml)")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(reportCmd(&configPath))
	rootCmd.AddCommand(digestCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(datasetCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// simFlags are the overrides shared by the commands that build a simulation.
type simFlags struct {
	seed      int64
	startYear int
	years     int
	dataset   string
	plan      string
}

func (f *simFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed (overrides config; 0 keeps config)")
	cmd.Flags().IntVar(&f.startYear, "start-year", 0, "first simulated year (overrides config)")
	cmd.Flags().IntVarP(&f.years, "years", "n", 0, "years to advance (overrides config)")
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "YAML dataset path (overrides config)")
	cmd.Flags().StringVar(&f.plan, "plan", "", "YAML policy plan with effects per year")
}

func runCmd(configPath *string) *cobra.Command {
	var flags simFlags
	var runID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Advance the simulation headless and record every committed year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHeadless(cmd.Context(), *configPath, flags, runID, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "replay into an existing recorded run")
	return cmd
}

func reportCmd(configPath *string) *cobra.Command {
	var flags simFlags
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Advance the simulation and print the per-region report of one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd.Context(), *configPath, flags, year, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&year, "year", 0, "year to report (default: last simulated year)")
	return cmd
}

func digestCmd(configPath *string) *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Advance the simulation and print the state digest for golden comparisons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd.Context(), *configPath, flags, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	var flags simFlags
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Auto-advance the simulation and serve the read-only diagnostics API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath, flags, port)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides config)")
	return cmd
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect world datasets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the built-in synthetic dataset as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exportDataset(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a YAML dataset against the schema and data rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateDataset(args[0], cmd.OutOrStdout())
		},
	})
	return cmd
}
