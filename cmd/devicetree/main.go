package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/johnwards/devicetree/internal/config"
	"github.com/johnwards/devicetree/internal/database"
	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/hierarchy"
	"github.com/johnwards/devicetree/internal/platform"
	"github.com/johnwards/devicetree/internal/seed"
	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "devicetree",
		Short:         "Serve and browse a lazily loaded asset and device hierarchy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			slog.SetDefault(slog.New(logHandler(cmd.ErrOrStderr(), cfg)))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer func() { _ = db.Close() }()
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				slog.Info("migrations applied", "db", cfg.DBPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the demo smart-home dataset",
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, closeDB, err := openStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer closeDB()
				if err := seed.Seed(cmd.Context(), st.DB); err != nil {
					return fmt.Errorf("seed data: %w", err)
				}
				slog.Info("demo data seeded", "db", cfg.DBPath)
				return nil
			},
		},
		newTreeCmd(&cfg),
	)
	return root
}

func logHandler(w io.Writer, cfg config.Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// openStore opens and migrates the SQLite database.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, func(), error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return store.New(db), func() { _ = db.Close() }, nil
}

// hierarchySource is what the tree needs from a backend, whichever one is
// configured.
type hierarchySource interface {
	hierarchy.Source
	hierarchy.RelationWriter
	session.RootFinder
	FetchRelationsTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error)
}

func remoteSource(cfg config.Config) hierarchySource {
	return platform.New(cfg.RemoteURL, cfg.RemoteToken, platform.WithTimeout(cfg.FetchTimeout))
}

func hierarchyConfig(cfg config.Config) hierarchy.Config {
	return hierarchy.Config{SupportedTypes: cfg.SupportedTypes}
}
