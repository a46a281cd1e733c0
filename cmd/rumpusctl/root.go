package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rumpus-tracker/internal/config"
)

var (
	// Global flags
	cfgFile string
	beta    bool
	baseURL string
	key     string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rumpusctl",
	Short: "Query the Rumpus CE API and drive the tracker",
	Long: `rumpusctl runs one-off searches against the Rumpus CE API using the
same query builders as the tracker, and queues watch polls over Kafka.

The delegation key is read from --key, RUMPUS_DELEGATION_KEY or the
config file, in that order.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&beta, "beta", false, "use the beta API")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the API base URL")
	rootCmd.PersistentFlags().StringVar(&key, "key", "", "delegation key")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the config file when it exists and applies the global
// flags on top. A missing file falls back to defaults and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.DefaultConfig()
		err = cfg.ApplyEnv()
	}
	if err != nil {
		return nil, err
	}

	if beta {
		cfg.Rumpus.Beta = true
	}
	if baseURL != "" {
		cfg.Rumpus.BaseURL = baseURL
	}
	if key != "" {
		cfg.Rumpus.DelegationKey = key
	}
	return cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
