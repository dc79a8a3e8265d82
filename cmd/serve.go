package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nuveplayer/nuve/internal/adapter/catalog"
	"github.com/nuveplayer/nuve/internal/adapter/repository/sqlite"
	"github.com/nuveplayer/nuve/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the profile API",
	Long:  `Serve user profiles and the media catalog over HTTP from a SQLite database. An empty catalog is seeded with the demo tracks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, closeLog, err := loadSettings()
		if err != nil {
			return err
		}
		defer closeLog()

		db, err := sqlite.Open(settings.Server.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		catalogStore := sqlite.NewCatalogStore(db)
		seeded, err := catalogStore.Seed(ctx, catalog.Demo())
		if err != nil {
			return err
		}
		if seeded {
			log.Info("catalog seeded with demo tracks")
		}

		srv := server.New(log, sqlite.NewProfileStore(db), catalogStore)
		log.Info("starting profile API",
			slog.String("addr", settings.Server.Addr),
			slog.String("db", settings.Server.DBPath))
		return srv.ListenAndServe(ctx, settings.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// commandContext is the context of one-shot commands; it ends on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
