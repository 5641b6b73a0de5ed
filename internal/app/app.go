package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angularhub/hub/internal/config"
	"github.com/angularhub/hub/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, event loading, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context, cfg config.Application) (*Application, error) {
	deps, err := BuildDependencies(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	SetupMiddleware(r)

	// Routes
	RegisterRoutes(r, deps)

	// Frontend
	if cfg.Frontend.Enabled {
		frontend := rest.NewFrontendHandler(cfg.Frontend.Dir, cfg.Frontend.Index)
		r.PathPrefix("/").Handler(frontend)
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, router: r, srv: srv}, nil
}

// Handler returns the application's router.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Load runs the first event load. A failure is logged and leaves the listing
// unavailable until a reload succeeds.
func (a *Application) Load(ctx context.Context) {
	if _, err := a.deps.EventLoader.Load(ctx); err != nil {
		log.Errorf("Initial event load failed, listing is unavailable until a reload succeeds: %v", err)
	}
}

// Run loads the events, starts the refresh schedule and the HTTP server, and
// blocks until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.deps.Close()

	a.Load(ctx)

	if a.deps.EventRefresher != nil {
		a.deps.EventRefresher.Start()
		defer a.deps.EventRefresher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
