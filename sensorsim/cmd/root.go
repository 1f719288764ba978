// Package cmd provides the command-line interface of sensorsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix starts the names of the environment variables that provide flag
// defaults, e.g. SENSORSIM_SENSORS for --sensors.
const EnvPrefix = "SENSORSIM_"

// NewRootCmd creates the command tree.
func NewRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "sensorsim",
		Short: "Simulate random-walk message relaying in a sensor network.",
		Long: `sensorsim builds a network of N sensors, each linked to M random ` +
			`peers, gives every sensor one message addressed to another ` +
			`sensor, and relays the messages hop by hop to random neighbors ` +
			`until all of them are delivered. It prints how many messages ` +
			`needed each number of hops.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setUp(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"file to load environment variables from, if it exists")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info",
		"log level: debug, info, warn, or error")

	addRunFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		return 1
	}

	return 0
}

func setUp(cmd *cobra.Command, opts *runOptions) error {
	err := loadEnvFile(opts.envFile)
	if err != nil {
		return err
	}

	err = applyEnv(cmd.Flags())
	if err != nil {
		return err
	}

	err = applyEnv(cmd.InheritedFlags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, opts.logLevel)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)
	opts.logger = logger

	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnv sets every flag that was not given on the command line from its
// environment variable, if there is one.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := os.LookupEnv(EnvName(f.Name))
		if !ok {
			return
		}

		if setErr := flags.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("%s: %w", EnvName(f.Name), setErr)
		}
	})

	return err
}

// EnvName returns the environment variable that provides the default of a
// flag.
func EnvName(flagName string) string {
	return EnvPrefix +
		strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var l slog.Level

	err := l.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: l})

	return slog.New(handler), nil
}
