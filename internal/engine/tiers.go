package engine

import "github.com/feastwise/larder/pkg/models"

// NearMissLimit is the most missing ingredients a recipe may have and
// still land in a near-match tier.
const NearMissLimit = 3

// tierRule pairs a predicate with the tier it assigns.
type tierRule struct {
	tier    models.Tier
	applies func(m Match, isComfort bool) bool
}

// tierRules is the classification table, evaluated in order with the
// first match winning. The order encodes priority: perfect matches
// outrank near matches, familiarity outranks novelty.
var tierRules = []tierRule{
	{models.TierPerfectComfort, func(m Match, comfort bool) bool { return m.Fraction == 1.0 && comfort }},
	{models.TierPerfectNovel, func(m Match, comfort bool) bool { return m.Fraction == 1.0 && !comfort }},
	{models.TierNearComfort, func(m Match, comfort bool) bool { return nearMatch(m) && comfort }},
	{models.TierNearNovel, func(m Match, comfort bool) bool { return nearMatch(m) && !comfort }},
}

func nearMatch(m Match) bool {
	missing := m.MissingCount()
	return missing >= 1 && missing <= NearMissLimit
}

// ClassifyTier assigns a tier from the rule table. Non-matchable
// recipes and recipes missing more than NearMissLimit ingredients stay
// unclassified, eligible only for discovery.
func ClassifyTier(m Match, isComfort bool) models.Tier {
	if !m.Matchable() {
		return models.TierUnclassified
	}
	for _, rule := range tierRules {
		if rule.applies(m, isComfort) {
			return rule.tier
		}
	}
	return models.TierUnclassified
}
