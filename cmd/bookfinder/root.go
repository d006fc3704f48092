package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-bookfinder/adapter/browser"
	"github.com/aluiziolira/go-bookfinder/config"
	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/registry"
	"github.com/aluiziolira/go-bookfinder/search"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagVerbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookfinder",
	Short: "Search used-book marketplaces for the best price",
	Long: `bookfinder queries multiple book marketplaces concurrently, normalizes
their listings into a single ranked list, and records observed prices so you
can track them over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, level := newLogger(flagVerbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())

		path := flagConfig
		if path == "" {
			if value, ok := config.EnvString("BOOKFINDER_CONFIG"); ok {
				path = value
			} else {
				path = config.DefaultPath()
			}
		}

		loaded, warnings, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		for _, w := range warnings {
			slog.Warn("config", slog.String("warning", w))
		}
		if flagVerbose {
			loaded.Verbose = true
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.config/bookfinder/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
}

// openStore opens the price history database at the configured path.
func openStore() (*history.Store, error) {
	return history.Open(cfg.DatabasePath, slog.Default())
}

// newEngine assembles the registry and engine. store may be nil for
// commands that never persist.
func newEngine(store *history.Store) *search.Engine {
	reg := registry.New(cfg, browser.New())
	return search.NewEngine(reg, storeOrNil(store), cfg)
}

// storeOrNil avoids wrapping a nil *history.Store in a non-nil interface.
func storeOrNil(store *history.Store) search.Store {
	if store == nil {
		return nil
	}
	return store
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
