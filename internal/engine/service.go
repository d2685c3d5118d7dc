package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// RankRequest identifies the user and carries the tuning parameters for
// one ranking call. Params fields sit inline in the JSON body.
type RankRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Params
}

// Sources bundles the data collaborators the engine pulls from. The
// interfaces live here so the ranking core carries no storage
// dependency; both store backends satisfy them structurally.
type Sources struct {
	Inventory InventorySource
	Catalog   CatalogSource
	Profiles  ProfileSource
	History   HistorySource
}

// InventorySource supplies a user's inventory rows.
type InventorySource interface {
	// Holdings returns the user's holdings. The snapshot builder applies
	// the quantity and expiry validity rules itself, so pre-filtering in
	// the store is an optimization, not a contract.
	Holdings(ctx context.Context, userID string) ([]models.InventoryHolding, error)
}

// CatalogSource supplies the recipe catalog.
type CatalogSource interface {
	// Recipes returns the full catalog with requirement lists attached.
	Recipes(ctx context.Context) ([]models.Recipe, error)
}

// ProfileSource supplies taste profiles.
type ProfileSource interface {
	// Profile returns the user's flavor profile. Implementations return
	// the neutral profile, not an error, when none is stored.
	Profile(ctx context.Context, userID string) (flavor.Vector, error)
}

// HistorySource supplies cook history.
type HistorySource interface {
	// CookedRecipeIDs returns the set of recipes the user has cooked at
	// least once.
	CookedRecipeIDs(ctx context.Context, userID string) (map[int64]struct{}, error)
}

// Service fetches ranking inputs concurrently and runs the pure
// pipeline over them.
type Service struct {
	sources Sources

	mu     sync.RWMutex
	config *models.ScoringConfig

	clock func() time.Time
}

// NewService creates a ranking service. A nil config selects the
// default scoring weights.
func NewService(sources Sources, config *models.ScoringConfig) *Service {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Service{sources: sources, config: config, clock: time.Now}
}

// SetClock replaces the time source. Intended for tests that need a
// fixed "today".
func (s *Service) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// UpdateScoringConfig swaps the scoring weights at runtime, typically
// when the settings watcher republishes them. Nil is ignored.
func (s *Service) UpdateScoringConfig(config *models.ScoringConfig) {
	if config == nil {
		return
	}
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
}

// ScoringConfig returns the configuration currently in force.
func (s *Service) ScoringConfig() *models.ScoringConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Rank validates the request, fans out the input fetches, and runs the
// pipeline. Any fetch failure aborts the whole request; the engine
// never ranks on partial input.
func (s *Service) Rank(ctx context.Context, req *RankRequest) (*Response, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	in := Input{UserID: req.UserID, Params: req.Params, Now: s.clock()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		holdings, err := s.sources.Inventory.Holdings(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("fetch holdings: %w", err)
		}
		in.Holdings = holdings
		return nil
	})
	g.Go(func() error {
		recipes, err := s.sources.Catalog.Recipes(gctx)
		if err != nil {
			return fmt.Errorf("fetch catalog: %w", err)
		}
		in.Recipes = recipes
		return nil
	})
	g.Go(func() error {
		profile, err := s.sources.Profiles.Profile(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("fetch flavor profile: %w", err)
		}
		in.Profile = profile
		return nil
	})
	g.Go(func() error {
		cooked, err := s.sources.History.CookedRecipeIDs(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("fetch cook history: %w", err)
		}
		in.Cooked = cooked
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	return Rank(in, cfg), nil
}
