// Package app wires the dashboard server: configuration, logging, metrics,
// the dataset store, the analytics service, the push hub and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"attendash/internal/config"
	"attendash/internal/infrastructure"
	"attendash/internal/middleware"
	"attendash/internal/services"
	"attendash/internal/store"
	transporthttp "attendash/internal/transport/http"
	"attendash/internal/websocket"
	"attendash/pkg/contracts"
)

var (
	metricsOnce   sync.Once
	sharedMetrics *infrastructure.Metrics
)

// Application bundles the server and its collaborators.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *http.Server
	Service *services.AttendanceService
	Hub     *websocket.Hub
}

// New builds the application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Collectors register against the default registry once per process.
	metricsOnce.Do(func() {
		sharedMetrics = infrastructure.NewMetrics(prometheus.DefaultRegisterer)
	})
	metrics := sharedMetrics
	hub := websocket.NewHub(logger, metrics.WSClients)

	st := store.New(logger)
	if mode, err := store.ParseResolutionMode(cfg.Ingest.DefaultResolution); err == nil {
		st.SetResolutionMode(mode)
	}

	svc := services.NewAttendanceService(logger, st, services.Options{
		Metrics:       metrics,
		Hub:           hub,
		UploadTimeout: cfg.Ingest.UploadTimeout,
	})

	a := &Application{
		Config:  cfg,
		Logger:  logger,
		Service: svc,
		Hub:     hub,
	}
	a.Server = &http.Server{
		Addr:           cfg.ListenAddr(),
		Handler:        a.buildRouter(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return a, nil
}

func (a *Application) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.Compress(5))

	if a.Config.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}
	if a.Config.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}

	handler := transporthttp.NewHandler(a.Service, a.Config, a.Hub, a.Logger)
	r.Mount("/", handler.Routes())
	return r
}

// Run starts the hub and the HTTP server, blocking until a shutdown signal
// or a server error.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Hub.Start()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("starting", slog.String("version", contracts.GetVersionString()))

	g.Go(func() error {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Hub.Shutdown()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
