package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// stubSources satisfies all four source interfaces from canned data.
type stubSources struct {
	holdings []models.InventoryHolding
	recipes  []models.Recipe
	profile  flavor.Vector
	cooked   map[int64]struct{}

	holdingsErr error
	recipesErr  error
	profileErr  error
	historyErr  error

	fetches    atomic.Int32
	lastUserID atomic.Value
}

func (st *stubSources) Holdings(_ context.Context, userID string) ([]models.InventoryHolding, error) {
	st.fetches.Add(1)
	st.lastUserID.Store(userID)
	return st.holdings, st.holdingsErr
}

func (st *stubSources) Recipes(_ context.Context) ([]models.Recipe, error) {
	st.fetches.Add(1)
	return st.recipes, st.recipesErr
}

func (st *stubSources) Profile(_ context.Context, userID string) (flavor.Vector, error) {
	st.fetches.Add(1)
	if st.profileErr != nil {
		return flavor.Vector{}, st.profileErr
	}
	if st.profile.IsZero() {
		return flavor.Neutral(), nil
	}
	return st.profile, nil
}

func (st *stubSources) CookedRecipeIDs(_ context.Context, userID string) (map[int64]struct{}, error) {
	st.fetches.Add(1)
	return st.cooked, st.historyErr
}

func (st *stubSources) asSources() Sources {
	return Sources{Inventory: st, Catalog: st, Profiles: st, History: st}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_RankEndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 2)
	st := &stubSources{
		holdings: []models.InventoryHolding{
			{UserID: "u1", IngredientID: 1, Quantity: 1, Expiry: &soon},
			{UserID: "u1", IngredientID: 2, Quantity: 1},
		},
		recipes: []models.Recipe{
			{ID: 7, Title: "pan bread", Required: requiredIDs(1, 2), Flavor: flavor.Neutral()},
		},
		cooked: map[int64]struct{}{7: {}},
	}

	svc := NewService(st.asSources(), nil)
	svc.SetClock(fixedClock(now))

	off := false
	resp, err := svc.Rank(context.Background(), &RankRequest{
		UserID: "u1",
		Params: Params{IncludeFallback: &off},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, now, resp.GeneratedAt)
	assert.Equal(t, "u1", st.lastUserID.Load())
	assert.EqualValues(t, 4, st.fetches.Load(), "all four inputs fetched")

	tier1 := resp.Tiers["1"]
	require.Len(t, tier1, 1)
	assert.Equal(t, int64(7), tier1[0].RecipeID)
	assert.True(t, tier1[0].IsComfort)
}

func TestService_RankRejectsMissingUserID(t *testing.T) {
	st := &stubSources{}
	svc := NewService(st.asSources(), nil)

	resp, err := svc.Rank(context.Background(), &RankRequest{})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "user_id", "error identifies the offending field")
	assert.Zero(t, st.fetches.Load(), "nothing is fetched for invalid requests")
}

func TestService_RankRejectsNilRequest(t *testing.T) {
	svc := NewService((&stubSources{}).asSources(), nil)

	_, err := svc.Rank(context.Background(), nil)

	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestService_RankRejectsBadParams(t *testing.T) {
	st := &stubSources{}
	svc := NewService(st.asSources(), nil)

	_, err := svc.Rank(context.Background(), &RankRequest{
		UserID: "u1",
		Params: Params{MaxPerTier: -3},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "max_per_tier")
	assert.Zero(t, st.fetches.Load())
}

func TestService_RankAbortsOnFetchFailure(t *testing.T) {
	st := &stubSources{recipesErr: errors.New("connection refused")}
	svc := NewService(st.asSources(), nil)

	resp, err := svc.Rank(context.Background(), &RankRequest{UserID: "u1"})

	require.Error(t, err)
	assert.Nil(t, resp, "no partial results on failed input fetch")
	assert.Contains(t, err.Error(), "fetch catalog")
}

func TestService_UpdateScoringConfig(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)
	st := &stubSources{
		holdings: []models.InventoryHolding{{UserID: "u1", IngredientID: 1, Quantity: 1, Expiry: &tomorrow}},
		recipes:  []models.Recipe{{ID: 1, Title: "soup", Required: requiredIDs(1), Flavor: flavor.Neutral()}},
	}
	svc := NewService(st.asSources(), nil)
	svc.SetClock(fixedClock(now))

	off := false
	req := &RankRequest{UserID: "u1", Params: Params{IncludeFallback: &off}}

	before, err := svc.Rank(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, before.Tiers["2"], 1)
	assert.InDelta(t, 0.776, before.Tiers["2"][0].RelevanceScore, 0.0005)

	svc.UpdateScoringConfig(&models.ScoringConfig{
		UrgencyWeight:     1.0,
		AffinityWeight:    0.0,
		FamiliarityWeight: 0.0,
		ExpiryHorizonDays: 7,
		FamiliarityFloor:  0.2,
	})

	after, err := svc.Rank(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, after.Tiers["2"], 1)
	assert.InDelta(t, 0.857, after.Tiers["2"][0].RelevanceScore, 0.0005)
}

func TestService_ScoringConfigDefaults(t *testing.T) {
	svc := NewService((&stubSources{}).asSources(), nil)

	cfg := svc.ScoringConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 0.45, cfg.UrgencyWeight)
	svc.UpdateScoringConfig(nil)
	assert.Same(t, cfg, svc.ScoringConfig(), "nil updates are ignored")
}
