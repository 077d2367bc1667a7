package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/config"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/regen"
	"fivem/resonance/internal/store"
)

var (
	dbPath     string
	configPath string
	jsonLogs   bool
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "resonance",
	Short: "Resonance echo: survey scene generation, rendering and serving",
	Long: `Resonance turns survey responses into a timed node-and-edge scene and
replays it as an animation of rippling markers joined by proximity lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLogs, verbose); err != nil {
			return errors.Wrap(err, "initializing logger")
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.File != "" {
			logger.Logger.Debugw("Loaded config", logger.FieldPath, cfg.File)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to "+store.FileName+" database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to "+config.FileName+" (default: nearest one walking up from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*store.DB, error) {
	path, err := store.Discover(dbPath)
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

// openService opens the store unless noStore is set and builds the
// regeneration service on top of it. The returned close function releases
// the store.
func openService(noStore bool) (*regen.Service, *store.DB, func(), error) {
	var db *store.DB
	closeFn := func() {}
	if !noStore {
		var err error
		if db, err = OpenDatabase(); err != nil {
			return nil, nil, nil, err
		}
		closeFn = func() { db.Close() }
	}
	svc, err := regen.New(cfg, db, nil, clock.System{})
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return svc, db, closeFn, nil
}

// loadScene restores the newest scene from the store or the artifact.
func loadScene(ctx context.Context, noStore bool) (*regen.Service, func(), error) {
	svc, _, closeFn, err := openService(noStore)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Restore(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
