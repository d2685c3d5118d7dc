// Package scoring computes relevance scores for candidate recipes.
package scoring

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/feastwise/larder/pkg/flavor"
	"github.com/feastwise/larder/pkg/models"
)

// CalculatorSuite is a test suite for the Calculator.
type CalculatorSuite struct {
	suite.Suite
	calc   *Calculator
	config *models.ScoringConfig
	now    time.Time
}

func (s *CalculatorSuite) SetupTest() {
	s.config = models.DefaultScoringConfig()
	s.calc = NewCalculator(s.config)
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

// expiring returns expiry timestamps the given numbers of days after s.now.
func (s *CalculatorSuite) expiring(days ...int) []time.Time {
	out := make([]time.Time, len(days))
	for i, d := range days {
		out[i] = s.now.AddDate(0, 0, d)
	}
	return out
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *CalculatorSuite) TestCalculate_GoodScenarios_ComfortWithUrgentMatch() {
	// Comfort recipe, identical flavors, one match expiring tomorrow
	in := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(1),
		IsComfort:       true,
	}

	score := s.calc.Calculate(in, s.now)

	// Urgency: 1 - 1/7 = 0.8571, contrib 0.45 × 0.8571 = 0.3857
	// Affinity: identical vectors = 1.0, contrib 0.35
	// Familiarity: comfort = 1.0, contrib 0.20
	// Total: 0.9357 → 0.936
	s.InDelta(0.936, score, 0.0005, "comfort recipe with urgent match should score ~0.936")
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_UrgencyOrdersRecipes() {
	// Two otherwise identical recipes; the one whose match expires sooner wins
	tomorrow := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(1),
	}
	nextWeek := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(6),
	}

	soonScore := s.calc.Calculate(tomorrow, s.now)
	lateScore := s.calc.Calculate(nextWeek, s.now)

	// Tomorrow: 0.45×(6/7) + 0.35×1.0 + 0.20×0.2 = 0.776
	// Six days: 0.45×(1/7) + 0.35×1.0 + 0.20×0.2 = 0.454
	s.InDelta(0.776, soonScore, 0.0005)
	s.InDelta(0.454, lateScore, 0.0005)
	s.Greater(soonScore, lateScore, "sooner expiry should rank higher")
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_UrgencyIsMeanOverMatches() {
	in := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(1, 6),
	}

	components := s.calc.CalculateComponents(in, s.now)

	// mean(6/7, 1/7) = 0.5
	s.InDelta(0.5, components.Urgency, 0.0001, "urgency averages per-ingredient values")
	s.InDelta(0.225, components.UrgencyContrib, 0.0001)
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_NonComfortUsesFloor() {
	in := Input{
		RecipeFlavor: flavor.Neutral(),
		UserFlavor:   flavor.Neutral(),
	}

	components := s.calc.CalculateComponents(in, s.now)

	s.Equal(0.2, components.Familiarity, "never-cooked recipes keep the familiarity floor")
	s.InDelta(0.04, components.FamiliarityContrib, 0.0001)
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_ExpiringTodayIsMaxUrgency() {
	in := Input{MatchedExpiries: s.expiring(0)}

	components := s.calc.CalculateComponents(in, s.now)

	s.Equal(1.0, components.Urgency, "item expiring today should contribute full urgency")
}

// =============================================================================
// WORSE SCENARIOS - Degraded but acceptable operations
// =============================================================================

func (s *CalculatorSuite) TestCalculate_WorseScenarios_NoExpiringMatches() {
	// A pantry of stable goods: urgency must be zero, not neutral
	in := Input{
		RecipeFlavor: flavor.Neutral(),
		UserFlavor:   flavor.Neutral(),
		IsComfort:    false,
	}

	score := s.calc.Calculate(in, s.now)

	// 0.45×0 + 0.35×1.0 + 0.20×0.2 = 0.39
	s.InDelta(0.39, score, 0.0005, "no expiring matches should zero the urgency term")
}

func (s *CalculatorSuite) TestCalculate_WorseScenarios_UnknownRecipeFlavor() {
	// A recipe with no taste data degrades to neutral affinity
	var zero flavor.Vector
	in := Input{
		RecipeFlavor: zero,
		UserFlavor:   flavor.Neutral(),
		IsComfort:    true,
	}

	components := s.calc.CalculateComponents(in, s.now)

	// 0.45×0 + 0.35×0.5 + 0.20×1.0 = 0.375
	s.Equal(0.5, components.Affinity, "zero-magnitude flavor should read as neutral")
	s.InDelta(0.375, components.FinalScore, 0.0005)
}

func (s *CalculatorSuite) TestCalculate_WorseScenarios_MatchAtHorizon() {
	in := Input{MatchedExpiries: s.expiring(7)}

	components := s.calc.CalculateComponents(in, s.now)

	// 1 - 7/7 = 0
	s.Equal(0.0, components.Urgency, "expiry at the horizon contributes nothing")
}

func (s *CalculatorSuite) TestCalculate_WorseScenarios_MatchBeyondHorizon() {
	in := Input{MatchedExpiries: s.expiring(30)}

	components := s.calc.CalculateComponents(in, s.now)

	s.Equal(0.0, components.Urgency, "expiry beyond the horizon clamps to zero")
}

// =============================================================================
// BAD SCENARIOS - Edge cases and error conditions
// =============================================================================

func (s *CalculatorSuite) TestCalculate_BadScenarios_ExpiredMatchClamped() {
	// Snapshots exclude expired holdings, but clamp anyway
	in := Input{MatchedExpiries: s.expiring(-3)}

	components := s.calc.CalculateComponents(in, s.now)

	// 1 - (-3)/7 = 1.43 → clamped to 1.0
	s.Equal(1.0, components.Urgency, "already-expired match should clamp, not overflow")
}

func (s *CalculatorSuite) TestCalculate_BadScenarios_ScoreNeverExceedsOne() {
	// Worst case for overflow: expired match, perfect affinity, comfort
	in := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(-10),
		IsComfort:       true,
	}

	score := s.calc.Calculate(in, s.now)

	s.LessOrEqual(score, 1.0)
	s.InDelta(1.0, score, 0.0005, "maxed components should sum to exactly 1.0")
}

func (s *CalculatorSuite) TestCalculate_BadScenarios_DayBoundaryUsesCalendarDays() {
	// 23:00 tonight vs 00:30 tomorrow is one calendar day, not 1.5 hours
	lateTonight := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	earlyTomorrow := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)

	in := Input{MatchedExpiries: []time.Time{earlyTomorrow}}

	components := s.calc.CalculateComponents(in, lateTonight)

	// days_until_expiry = 1 → 1 - 1/7 = 6/7
	s.InDelta(6.0/7.0, components.Urgency, 0.0001, "expiry arithmetic works on calendar days")
}

// =============================================================================
// CALCULATE COMPONENTS TESTS
// =============================================================================

func (s *CalculatorSuite) TestCalculateComponents_ReturnsAllComponents() {
	in := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(1),
		IsComfort:       true,
	}

	components := s.calc.CalculateComponents(in, s.now)

	s.InDelta(6.0/7.0, components.Urgency, 0.0001)
	s.InDelta(1.0, components.Affinity, 0.0001)
	s.Equal(1.0, components.Familiarity)
	s.InDelta(0.3857, components.UrgencyContrib, 0.0005)
	s.InDelta(0.35, components.AffinityContrib, 0.0001)
	s.InDelta(0.20, components.FamiliarityContrib, 0.0001)
	s.InDelta(0.936, components.FinalScore, 0.0005)
}

func (s *CalculatorSuite) TestCalculateComponents_MatchesCalculate() {
	in := Input{
		RecipeFlavor:    flavor.Vector{0.9, 0.1, 0.3, 0.2, 0.8, 0.4},
		UserFlavor:      flavor.Vector{0.5, 0.5, 0.2, 0.1, 0.9, 0.6},
		MatchedExpiries: s.expiring(2, 5),
		IsComfort:       false,
	}

	score := s.calc.Calculate(in, s.now)
	components := s.calc.CalculateComponents(in, s.now)

	s.InDelta(score, components.FinalScore, 0.0001, "Calculate and CalculateComponents should match")
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func (s *CalculatorSuite) TestNewCalculator_NilConfig() {
	calc := NewCalculator(nil)
	s.NotNil(calc)
	s.NotNil(calc.config)
	s.Equal(0.45, calc.config.UrgencyWeight)
}

func (s *CalculatorSuite) TestUpdateConfig() {
	newConfig := &models.ScoringConfig{
		UrgencyWeight:     1.0,
		AffinityWeight:    0.0,
		FamiliarityWeight: 0.0,
		ExpiryHorizonDays: 7,
		FamiliarityFloor:  0.2,
	}

	s.calc.UpdateConfig(newConfig)

	in := Input{
		RecipeFlavor:    flavor.Neutral(),
		UserFlavor:      flavor.Neutral(),
		MatchedExpiries: s.expiring(1),
		IsComfort:       true,
	}

	score := s.calc.Calculate(in, s.now)

	// Pure urgency: 6/7 → 0.857
	s.InDelta(0.857, score, 0.0005)
}

func (s *CalculatorSuite) TestUpdateConfig_NilIgnored() {
	originalConfig := s.calc.GetConfig()
	s.calc.UpdateConfig(nil)
	s.Equal(originalConfig, s.calc.GetConfig())
}

func (s *CalculatorSuite) TestHorizonOverride() {
	// A cloned config with a wider horizon flattens urgency
	cfg := s.config.Clone()
	cfg.ExpiryHorizonDays = 14
	calc := NewCalculator(cfg)

	in := Input{MatchedExpiries: s.expiring(7)}

	components := calc.CalculateComponents(in, s.now)

	// 1 - 7/14 = 0.5 instead of 0 at the default horizon
	s.InDelta(0.5, components.Urgency, 0.0001)
	s.Equal(0.0, s.calc.CalculateComponents(in, s.now).Urgency)
}

// =============================================================================
// STANDALONE TESTS (non-suite)
// =============================================================================

func TestNewCalculator_DefaultConfig(t *testing.T) {
	calc := NewCalculator(nil)
	require.NotNil(t, calc)
	assert.Equal(t, 0.45, calc.config.UrgencyWeight)
	assert.Equal(t, 0.35, calc.config.AffinityWeight)
	assert.Equal(t, 0.20, calc.config.FamiliarityWeight)
	assert.Equal(t, 7, calc.config.ExpiryHorizonDays)
}

func TestCalculator_ConcurrentAccess(t *testing.T) {
	calc := NewCalculator(nil)
	now := time.Now()

	// Test that calculator is safe for concurrent reads
	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(days int) {
			in := Input{
				RecipeFlavor:    flavor.Neutral(),
				UserFlavor:      flavor.Neutral(),
				MatchedExpiries: []time.Time{now.AddDate(0, 0, days)},
			}
			score := calc.Calculate(in, now)
			assert.Greater(t, score, 0.0)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestCalculator_UrgencyPrecision(t *testing.T) {
	calc := NewCalculator(nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		days            int
		expectedUrgency float64
	}{
		{0, 1.0},
		{1, 6.0 / 7.0},
		{3, 4.0 / 7.0},
		{6, 1.0 / 7.0},
		{7, 0.0},
	}

	for _, tc := range testCases {
		t.Run(string(rune('0'+tc.days))+"_days_out", func(t *testing.T) {
			in := Input{MatchedExpiries: []time.Time{now.AddDate(0, 0, tc.days)}}
			components := calc.CalculateComponents(in, now)
			assert.InDelta(t, tc.expectedUrgency, components.Urgency, 0.0001)
		})
	}
}

func TestCalculator_ScoreBoundsProperty(t *testing.T) {
	calc := NewCalculator(nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	randomVector := func() flavor.Vector {
		var v flavor.Vector
		for i := range v {
			v[i] = rng.Float64()
		}
		return v
	}

	for i := 0; i < 500; i++ {
		numExpiries := rng.Intn(5)
		expiries := make([]time.Time, numExpiries)
		for j := range expiries {
			expiries[j] = now.AddDate(0, 0, rng.Intn(25)-5)
		}

		in := Input{
			RecipeFlavor:    randomVector(),
			UserFlavor:      randomVector(),
			MatchedExpiries: expiries,
			IsComfort:       rng.Intn(2) == 0,
		}

		score := calc.Calculate(in, now)

		require.False(t, math.IsNaN(score), "score must never be NaN")
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)

		// Scores are reported at three decimal places
		scaled := score * 1000
		require.InDelta(t, math.Round(scaled), scaled, 1e-9,
			"score should carry at most three decimals")
	}
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.936, Round3(0.93571428))
	assert.Equal(t, 0.454, Round3(0.45428571))
	assert.Equal(t, 0.0, Round3(0.0))
	assert.Equal(t, 1.0, Round3(0.99999))
}
