// Package server provides the HTTP ranking service for larder.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/internal/cache"
	"github.com/feastwise/larder/internal/config"
	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/internal/db/gorm"
	"github.com/feastwise/larder/internal/db/sqlite"
	"github.com/feastwise/larder/internal/discovery"
	"github.com/feastwise/larder/internal/engine"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBody caps incoming request bodies.
	MaxRequestBody = 1 << 20 // 1 MiB

	// ReadyPollInterval is how often WaitReady checks initialization status.
	ReadyPollInterval = 50 * time.Millisecond
)

// Service is the HTTP front for the ranking engine. The server starts
// immediately with the health endpoint available while store
// initialization happens in the background.
type Service struct {
	// Version of the server binary
	version string

	// Configuration
	config *config.Config

	// Storage (set during async init)
	stores     db.Stores
	pinger     db.Pinger
	closeStore func() error

	// Domain services
	engine    *engine.Service
	discovery *discovery.Manager
	respCache *cache.ResponseCache

	// Settings hot reload
	watcher *config.Watcher

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	metrics *metrics

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Initialization state (for deferred init)
	ready     atomic.Bool
	initError error
	initMu    sync.RWMutex
}

// NewService creates a new ranking service with deferred initialization.
// The HTTP surface is usable immediately; database and cache setup
// happens in the background.
func NewService(version string) (*Service, error) {
	cfg := config.Get()

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:   version,
		config:    cfg,
		router:    chi.NewRouter(),
		metrics:   newMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	// Setup middleware and routes (health endpoint works immediately)
	svc.setupMiddleware()
	svc.setupRoutes()

	// Start async initialization
	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync performs heavy initialization in the background.
func (s *Service) initializeAsync() {
	log.Info().Msg("Starting async initialization...")

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		s.setInitError(fmt.Errorf("ensure data dir: %w", err))
		return
	}

	// Open the configured store backend (migrations run on open)
	var (
		stores     db.Stores
		pinger     db.Pinger
		closeStore func() error
	)
	switch s.config.Backend {
	case config.BackendPostgres:
		store, err := gorm.NewStore(gorm.Config{DSN: s.config.PostgresDSN, MaxConns: s.config.MaxConns})
		if err != nil {
			s.setInitError(fmt.Errorf("init postgres store: %w", err))
			return
		}
		stores, pinger, closeStore = store.Stores(), store, store.Close
	default:
		store, err := sqlite.NewStore(sqlite.StoreConfig{Path: s.config.SQLitePath, MaxConns: s.config.MaxConns})
		if err != nil {
			s.setInitError(fmt.Errorf("init sqlite store: %w", err))
			return
		}
		stores, pinger, closeStore = store.Stores(), store, store.Close
	}

	// Create domain services on top of the stores
	engineSvc := engine.NewService(engine.Sources{
		Inventory: stores.Inventory,
		Catalog:   stores.Catalog,
		Profiles:  stores.Profiles,
		History:   stores.History,
	}, s.config.ScoringConfig())

	discoveryMgr := discovery.NewManager(stores.Catalog, stores.Profiles)

	// Response cache is optional; an unreachable Redis degrades to misses
	respCache := cache.New(s.config.RedisAddr, time.Duration(s.config.CacheTTLSeconds)*time.Second)
	if respCache.Enabled() {
		pingCtx, pingCancel := context.WithTimeout(s.ctx, 2*time.Second)
		if err := respCache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, response cache degrades to misses")
		} else {
			log.Info().Str("addr", s.config.RedisAddr).Msg("Response cache enabled")
		}
		pingCancel()
	}

	// Watch settings so scoring weight edits apply without a restart
	watcher, err := config.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher, hot reload disabled")
		watcher = nil
	} else {
		watcher.Subscribe(func(cfg *config.Config) {
			engineSvc.UpdateScoringConfig(cfg.ScoringConfig())
			log.Info().Msg("Scoring weights reloaded from settings")
		})
		watcher.Start()
	}

	// Set all the initialized components
	s.initMu.Lock()
	s.stores = stores
	s.pinger = pinger
	s.closeStore = closeStore
	s.engine = engineSvc
	s.discovery = discoveryMgr
	s.respCache = respCache
	s.watcher = watcher
	s.initMu.Unlock()

	// Mark as ready
	s.ready.Store(true)
	log.Info().Str("backend", s.config.Backend).Msg("Async initialization complete - service ready")
}

// setInitError records an initialization error.
func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
	log.Error().Err(err).Msg("Async initialization failed")
}

// GetInitError returns any initialization error.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// WaitReady blocks until initialization finishes, fails, or the context
// ends.
func (s *Service) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(ReadyPollInterval)
	defer ticker.Stop()

	for {
		if s.ready.Load() {
			return nil
		}
		if err := s.GetInitError(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(SecurityHeaders)
	s.router.Use(RequestID)
	s.router.Use(MaxBodySize(MaxRequestBody))
	s.router.Use(s.instrument)
	s.router.Use(NewTokenAuth(s.config.APIToken).Middleware)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	// Liveness (returns 200 immediately, even during init)
	s.router.Get("/", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)

	// Version endpoint for deploy checks
	s.router.Get("/api/version", s.handleVersion)

	// Readiness check - returns 200 only when stores are up
	s.router.Get("/api/ready", s.handleReady)

	// Routes that require the stores to be ready
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireReady)
		r.Use(RequireJSONContentType)

		r.Post("/recommend", s.handleRecommend)

		r.Post("/inventory/items", s.handleAddInventoryItem)
		r.Get("/inventory/{userID}", s.handleGetInventory)
		r.Get("/inventory/{userID}/urgent", s.handleGetUrgentItems)

		r.Post("/history/cooked", s.handleRecordCooked)

		r.Get("/recipes/{id}", s.handleGetRecipe)

		r.Post("/discovery/search", s.handleDiscoverySearch)
	})
}

// Start starts the HTTP server. Store initialization continues in the
// background; /api/ready reports when it completes.
func (s *Service) Start() error {
	port := config.GetHTTPPort()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().
		Int("port", port).
		Int("pid", os.Getpid()).
		Msg("Ranking HTTP server started (initialization in progress)")

	return nil
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	s.initMu.RLock()
	watcher := s.watcher
	discoveryMgr := s.discovery
	respCache := s.respCache
	closeStore := s.closeStore
	s.initMu.RUnlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	if discoveryMgr != nil {
		discoveryMgr.Close()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	if respCache != nil {
		if err := respCache.Close(); err != nil {
			log.Error().Err(err).Msg("Response cache close error")
		}
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Database close error")
		}
	}

	s.wg.Wait()

	log.Info().Msg("Service shutdown complete")
	return nil
}
