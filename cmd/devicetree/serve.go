package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/johnwards/devicetree/internal/api"
	"github.com/johnwards/devicetree/internal/api/admin"
	"github.com/johnwards/devicetree/internal/api/entities"
	"github.com/johnwards/devicetree/internal/api/hierarchy"
	"github.com/johnwards/devicetree/internal/api/relations"
	"github.com/johnwards/devicetree/internal/api/trees"
	"github.com/johnwards/devicetree/internal/config"
	"github.com/johnwards/devicetree/internal/metrics"
	"github.com/johnwards/devicetree/internal/seed"
	"github.com/johnwards/devicetree/internal/session"
)

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := metrics.New()
	mux := http.NewServeMux()

	var (
		src      hierarchySource
		sessions *session.Manager
	)
	switch cfg.Source {
	case config.SourceRemote:
		src = remoteSource(cfg)
		sessions = newManager(src, cfg, reg)
		slog.Info("reading hierarchy from remote platform", "url", cfg.RemoteURL)
	default:
		st, closeDB, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		if err := seed.Seed(ctx, st.DB); err != nil {
			return fmt.Errorf("seed data: %w", err)
		}
		src = st
		sessions = newManager(src, cfg, reg)

		// The local store also exposes entity CRUD and the admin API.
		entities.RegisterRoutes(mux, st)
		admin.RegisterRoutes(mux, st.DB, sessions)
	}
	relations.RegisterRoutes(mux, src)
	hierarchy.RegisterRoutes(mux, src, src, hierarchy.Config{
		Hierarchy:    hierarchyConfig(cfg),
		RootProfile:  cfg.RootProfile,
		FetchTimeout: cfg.FetchTimeout,
		Metrics:      reg,
	})
	trees.RegisterRoutes(mux, sessions, cfg.RootProfile)

	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": sessions.Len()})
	})

	// Catch-all: return 404 in the API error format.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		corrID := api.CorrelationID(r.Context())
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(
			fmt.Sprintf("No route found for %s %s", r.Method, r.URL.Path),
			corrID,
		))
	})

	handler := api.Chain(mux,
		api.Recovery(),
		api.RequestID(),
		api.Metrics(reg),
		api.Auth(cfg.AuthToken),
		api.JSONContentType(),
		api.Logging(),
	)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go sessions.Run(ctx)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting devicetree server", "addr", cfg.Addr, "source", cfg.Source)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func newManager(src hierarchySource, cfg config.Config, reg *metrics.Registry) *session.Manager {
	return session.NewManager(src, src, session.Options{
		Hierarchy:    hierarchyConfig(cfg),
		TTL:          cfg.SessionTTL,
		FetchTimeout: cfg.FetchTimeout,
		Metrics:      reg,
	})
}
