package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/social-security/patient-office/internal/auth"
	"github.com/social-security/patient-office/internal/records"
	"github.com/social-security/patient-office/internal/shared/config"
	"github.com/social-security/patient-office/internal/shared/database"
	"github.com/social-security/patient-office/internal/shared/events"
	"github.com/social-security/patient-office/internal/shared/guard"
	"github.com/social-security/patient-office/internal/shared/logging"
	"github.com/social-security/patient-office/internal/shared/metrics"
	secmiddleware "github.com/social-security/patient-office/internal/shared/middleware"
	"github.com/social-security/patient-office/internal/web"
)

// App holds all application dependencies
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Store        auth.Store
	StoreBackend string
	Bus          events.EventBus
	BusBackend   string
	Sessions     *auth.Manager
	Records      *records.Repository

	closers []func()
}

// Close releases the store and event bus connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Log)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(app),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("session_store", app.StoreBackend).
		Str("session_codec", cfg.Session.Codec).
		Str("event_bus", app.BusBackend).
		Msg("patient office listening")

	// The listener is up before the stored session is restored, so the
	// guard answers with the loading page until Initialize completes.
	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.InitTimeout)
		defer cancel()
		app.Sessions.Initialize(initCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// newApp builds the session manager, its store and event bus, and the
// record repository.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	store, backend, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Store = auth.Instrument(store, backend)
	app.StoreBackend = backend
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	codec, err := newCodec(cfg.Session)
	if err != nil {
		app.Close()
		return nil, err
	}

	bus, busBackend, err := events.NewEventBus(ctx, cfg.KurrentDB)
	if err != nil {
		logger.Warn().Err(err).Msg("KurrentDB not available, keeping session events in memory")
		bus, busBackend = events.NewMemoryBus(events.DefaultMemoryCapacity), "memory"
	}
	app.Bus = bus
	app.BusBackend = busBackend
	app.closers = append(app.closers, bus.Close)

	app.Sessions = auth.NewManager(
		auth.NewDemoDirectory(),
		app.Store,
		auth.WithCodec(codec),
		auth.WithLogger(logger),
		auth.WithPublisher(bus),
	)

	repo, err := records.NewRepository(records.DefaultFixtures())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}
	app.Records = repo

	return app, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.Store, string, func(), error) {
	switch cfg.Session.Store {
	case config.StoreMemory:
		return auth.NewMemoryStore(), config.StoreMemory, nil, nil

	case config.StoreFile:
		store, err := auth.NewFileStore(cfg.Session.Dir, cfg.Session.Key)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open session file: %w", err)
		}
		logger.Info().Str("path", store.Path()).Msg("session file store")
		return store, config.StoreFile, nil, nil

	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		applied, err := database.Migrate(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, "", nil, fmt.Errorf("migration failed: %w", err)
		}
		for _, version := range applied {
			logger.Info().Str("version", version).Msg("applied migration")
		}
		return auth.NewPostgresStore(db.Pool, cfg.Session.Key), config.StorePostgres, db.Close, nil

	case config.StoreMSSQL:
		db, err := database.OpenMSSQL(ctx, cfg.MSSQL)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to connect to SQL Server: %w", err)
		}
		store, err := auth.NewMSSQLStore(ctx, db, cfg.Session.Key)
		if err != nil {
			db.Close()
			return nil, "", nil, err
		}
		return store, config.StoreMSSQL, func() { db.Close() }, nil

	default:
		return nil, "", nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func newCodec(cfg config.SessionConfig) (auth.Codec, error) {
	switch cfg.Codec {
	case config.CodecJWT:
		codec, err := auth.NewJWTCodec(cfg.Secret)
		if err != nil {
			return nil, err
		}
		return codec, nil
	case config.CodecJSON, "":
		return auth.JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown session codec %q", cfg.Codec)
	}
}

func newRouter(app *App) http.Handler {
	cfg := app.Config
	logger := app.Logger

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	g := guard.New(app.Sessions, logger)

	// Login flow
	loginHandler := web.NewHandler(web.Config{
		Sessions:     app.Sessions,
		Directory:    auth.NewDemoDirectory(),
		Guard:        g,
		Limiter:      secmiddleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst),
		Events:       app.Bus,
		Logger:       logger,
		LoginTimeout: cfg.Session.LoginTimeout,
	})
	loginHandler.Register(r)

	// Everything else sits behind the route guard
	recordsHandler := records.NewHandler(app.Records, logger)
	r.Group(func(r chi.Router) {
		r.Use(g.Middleware)
		r.Mount("/", recordsHandler.Routes())
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		select {
		case <-app.Sessions.Ready():
			checks["session"] = "ready"
		default:
			checks["session"] = "not ready: restoring"
		}

		if err := auth.StoreHealth(r.Context(), app.Store); err != nil {
			checks["session_store"] = "not ready: " + err.Error()
		} else {
			checks["session_store"] = "ready"
		}

		if err := app.Bus.Health(); err != nil {
			checks["event_bus"] = "not ready: " + err.Error()
		} else {
			checks["event_bus"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
