package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/internal/db/gorm"
	"github.com/feastwise/larder/internal/discovery"
	"github.com/feastwise/larder/internal/engine"
	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// Inventory defaults applied when the request omits a field.
const (
	DefaultIngredientCategory = "Pantry"
	DefaultHoldingUnit        = "pcs"
	DefaultHoldingLocation    = "Fridge"
	DefaultHoldingQuantity    = 1.0
	DefaultExpiryDays         = 7
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth handles liveness requests.
// Returns 200 OK immediately (even during init) so deploy probes can
// connect quickly. Use /api/ready for the full readiness check.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	} else if err := s.GetInitError(); err != nil {
		status = "error"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"version": s.version,
	})
}

// handleVersion returns the server version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.version,
	})
}

// healthChecker is satisfied by the Postgres store, which reports pool
// and latency detail beyond a bare ping.
type healthChecker interface {
	HealthCheck(ctx context.Context) *gorm.HealthInfo
}

// handleReady handles readiness check requests.
// Returns 200 only when the stores are up, 503 otherwise.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		if err := s.GetInitError(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeError(w, http.StatusServiceUnavailable, errors.New("service initializing"))
		return
	}

	s.initMu.RLock()
	pinger := s.pinger
	s.initMu.RUnlock()

	if err := pinger.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	if hc, ok := pinger.(healthChecker); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ready",
			"database": hc.HealthCheck(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requireReady is middleware that returns 503 if service isn't ready.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			if err := s.GetInitError(); err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Errorf("service initialization failed: %w", err))
				return
			}
			writeError(w, http.StatusServiceUnavailable, errors.New("service initializing"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// applyRankDefaults fills zero-valued tuning parameters from the
// service configuration. Runs before the cache key is computed so an
// omitted parameter and its explicit default share a cache entry.
func (s *Service) applyRankDefaults(req *engine.RankRequest) {
	if req.MaxPerTier == 0 {
		req.MaxPerTier = s.config.MaxPerTier
	}
	if req.FallbackMinThreshold == 0 {
		req.FallbackMinThreshold = s.config.FallbackMinThreshold
	}
}

// handleRecommend handles ranking requests: fetch the user's inventory,
// profile, and history concurrently, run the tier pipeline, and return
// the tier-keyed response. Responses are cached per (user, params) when
// Redis is configured.
func (s *Service) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req engine.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	s.applyRankDefaults(&req)

	s.initMu.RLock()
	engineSvc := s.engine
	respCache := s.respCache
	s.initMu.RUnlock()

	var cacheKey string
	if respCache.Enabled() {
		cacheKey = respCache.Key(req.UserID, req.Params)
		if payload, err := respCache.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(payload)
			return
		}
	}

	resp, err := engineSvc.Rank(r.Context(), &req)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Ranking failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.observeTiers(r.Context(), resp)

	payload, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if respCache.Enabled() {
		if err := respCache.Set(r.Context(), req.UserID, cacheKey, payload); err != nil {
			log.Warn().Err(err).Str("user_id", req.UserID).Msg("Response cache store failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// AddInventoryItemRequest is the request body for adding a holding.
type AddInventoryItemRequest struct {
	UserID         string     `json:"user_id"`
	IngredientName string     `json:"ingredient_name"`
	Category       string     `json:"category,omitempty"`
	Quantity       float64    `json:"quantity,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	Location       string     `json:"location,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

// handleAddInventoryItem resolves the ingredient by name (creating it
// under the Pantry category when new) and inserts a holding. Omitted
// fields get kitchen defaults; the expiry defaults to a week out.
func (s *Service) handleAddInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req AddInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if req.IngredientName == "" {
		writeError(w, http.StatusBadRequest, errors.New("ingredient_name is required"))
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, errors.New("quantity must not be negative"))
		return
	}

	if req.Category == "" {
		req.Category = DefaultIngredientCategory
	}
	if req.Quantity == 0 {
		req.Quantity = DefaultHoldingQuantity
	}
	if req.Unit == "" {
		req.Unit = DefaultHoldingUnit
	}
	if req.Location == "" {
		req.Location = DefaultHoldingLocation
	}
	if req.ExpiryDate == nil {
		exp := time.Now().UTC().AddDate(0, 0, DefaultExpiryDays)
		req.ExpiryDate = &exp
	}

	s.initMu.RLock()
	stores := s.stores
	respCache := s.respCache
	s.initMu.RUnlock()

	ingredient, err := stores.Catalog.FindOrCreateIngredient(r.Context(), req.IngredientName, req.Category)
	if err != nil {
		log.Error().Err(err).Str("name", req.IngredientName).Msg("Ingredient resolution failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	holding := &models.InventoryHolding{
		UserID:         req.UserID,
		IngredientID:   ingredient.ID,
		IngredientName: ingredient.Name,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Location:       req.Location,
		Expiry:         req.ExpiryDate,
	}
	if err := stores.Inventory.AddHolding(r.Context(), holding); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Holding insert failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The user's inventory changed, so their cached rankings are stale
	if err := respCache.InvalidateUser(r.Context(), req.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("Cache invalidation failed")
	}

	writeJSON(w, http.StatusCreated, holding)
}

// handleGetInventory returns a user's current holdings, newest first.
func (s *Service) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.initMu.RLock()
	stores := s.stores
	s.initMu.RUnlock()

	holdings, err := stores.Inventory.Holdings(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Inventory fetch failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"items":   holdings,
		"count":   len(holdings),
	})
}

// handleGetUrgentItems returns the holdings expiring within two days,
// the same filter the ranking response surfaces as urgent_items.
func (s *Service) handleGetUrgentItems(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.initMu.RLock()
	stores := s.stores
	s.initMu.RUnlock()

	holdings, err := stores.Inventory.Holdings(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Inventory fetch failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	urgent := engine.UrgentItems(holdings, time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"urgent_items": urgent,
		"count":        len(urgent),
	})
}

// RecordCookedRequest is the request body for recording a cook event.
type RecordCookedRequest struct {
	UserID   string    `json:"user_id"`
	RecipeID int64     `json:"recipe_id"`
	CookedAt time.Time `json:"cooked_at,omitempty"`
}

// handleRecordCooked stores a {user, recipe} cook event. Repeats are
// no-ops; only existence feeds the familiarity term.
func (s *Service) handleRecordCooked(w http.ResponseWriter, r *http.Request) {
	var req RecordCookedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if req.RecipeID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("recipe_id is required"))
		return
	}
	if req.CookedAt.IsZero() {
		req.CookedAt = time.Now().UTC()
	}

	s.initMu.RLock()
	stores := s.stores
	respCache := s.respCache
	s.initMu.RUnlock()

	if _, err := stores.Catalog.RecipeByID(r.Context(), req.RecipeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	entry := &models.CookHistoryEntry{
		UserID:   req.UserID,
		RecipeID: req.RecipeID,
		CookedAt: req.CookedAt,
	}
	if err := stores.History.RecordCooked(r.Context(), entry); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Int64("recipe_id", req.RecipeID).Msg("Cook event insert failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// Familiarity input changed, so cached rankings are stale
	if err := respCache.InvalidateUser(r.Context(), req.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("Cache invalidation failed")
	}

	writeJSON(w, http.StatusCreated, entry)
}

// handleGetRecipe returns one catalog recipe with its requirement list.
func (s *Service) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("recipe id must be an integer"))
		return
	}

	s.initMu.RLock()
	stores := s.stores
	s.initMu.RUnlock()

	recipe, err := stores.Catalog.RecipeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Recipe fetch failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

// DiscoverySearchRequest is the request body for catalog-wide flavor
// search. Either query_vector or user_id must be set; with both, the
// explicit vector wins.
type DiscoverySearchRequest struct {
	UserID      string    `json:"user_id,omitempty"`
	QueryVector []float64 `json:"query_vector,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// handleDiscoverySearch ranks the whole catalog by flavor similarity
// against the caller's vector or the user's stored profile.
func (s *Service) handleDiscoverySearch(w http.ResponseWriter, r *http.Request) {
	var req DiscoverySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.UserID == "" && len(req.QueryVector) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("user_id or query_vector is required"))
		return
	}

	params := discovery.Params{
		UserID: req.UserID,
		Tags:   req.Tags,
		Limit:  req.Limit,
	}
	if len(req.QueryVector) > 0 {
		vec, err := flavor.FromSlice(req.QueryVector)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := vec.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params.Query = vec
		params.HasQuery = true
	}

	s.initMu.RLock()
	discoveryMgr := s.discovery
	s.initMu.RUnlock()

	result, err := discoveryMgr.Search(r.Context(), params)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Discovery search failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
