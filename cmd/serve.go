package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/server"
)

var (
	serveAddr       string
	serveRegenerate bool
	serveWatch      bool
	serveNoStore    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scene, rendered frames and regeneration over HTTP",
	Long: `Restores the newest scene and serves it. Viewers create a session to
get a stable timeline, then fetch frames for any instant of it. With --watch
the scene is regenerated whenever the survey files change and connected
websocket clients are told about the new generation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Address = serveAddr
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch.Enabled = serveWatch
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, db, closeFn, err := openService(serveNoStore)
		if err != nil {
			return err
		}
		defer closeFn()

		log := logger.ComponentLogger("serve")
		if serveRegenerate {
			if _, err := svc.Regenerate(ctx); err != nil {
				return err
			}
		} else if err := svc.Restore(ctx); err != nil {
			if !errors.IsNotFound(err) {
				return err
			}
			log.Warnw("No scene yet, serving empty until the first regeneration", logger.FieldError, err)
		}

		var persist clock.Persister
		if db != nil {
			persist = db
		}
		sessions := clock.NewRegistry(clock.System{}, persist)

		srv, err := server.New(cfg, svc, sessions, nil)
		if err != nil {
			return err
		}

		if !logger.JSONOutput {
			pterm.Info.Printfln("Serving on http://%s", cfg.Server.Address)
		}

		if cfg.Watch.Enabled {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := svc.Watch(ctx, cfg.Watch.Debounce); err != nil {
					log.Errorw("Watcher stopped, shutting down", logger.FieldError, err)
					cancel()
				}
			}()
		}
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.address)")
	serveCmd.Flags().BoolVar(&serveRegenerate, "regenerate", false, "Regenerate from the survey before serving")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Regenerate when the survey files change (default: watch.enabled)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Do not use the database")
	rootCmd.AddCommand(serveCmd)
}
