package screening

// ListClass is the static risk-escalation policy of a list source. Blocking
// lists (asset-freeze, denied-party) force a blocking outcome at any match
// strength; advisory lists trigger review from moderate strength up.
type ListClass string

const (
	ListClassBlocking ListClass = "blocking"
	ListClassAdvisory ListClass = "advisory"
)

// DefaultMatchThreshold is the screening threshold applied when the caller
// does not supply one.
const DefaultMatchThreshold = 0.85

// Match-strength tier cut points, in score-as-percentage terms. The moderate
// cut is calibrated to the default threshold so a qualifying match is never
// tiered below moderate at default settings.
const (
	exactCut    = 100.0
	strongCut   = 90.0
	moderateCut = DefaultMatchThreshold * 100
)

// StrengthForScore tiers a 0-100 score into a MatchStrength.
func StrengthForScore(score float64) MatchStrength {
	switch {
	case score >= exactCut:
		return MatchStrengthExact
	case score >= strongCut:
		return MatchStrengthStrong
	case score >= moderateCut:
		return MatchStrengthModerate
	default:
		return MatchStrengthWeak
	}
}

// riskTable maps every (list class, match strength) combination to exactly
// one risk level. Configuration, not failure logic; the mapping is total.
var riskTable = map[ListClass]map[MatchStrength]RiskLevel{
	ListClassBlocking: {
		MatchStrengthExact:    RiskLevelCritical,
		MatchStrengthStrong:   RiskLevelCritical,
		MatchStrengthModerate: RiskLevelHigh,
		MatchStrengthWeak:     RiskLevelMedium,
	},
	ListClassAdvisory: {
		MatchStrengthExact:    RiskLevelHigh,
		MatchStrengthStrong:   RiskLevelHigh,
		MatchStrengthModerate: RiskLevelMedium,
		MatchStrengthWeak:     RiskLevelLow,
	},
}

// Classifier converts similarity scores into match tiers and, combined with
// per-list policy, risk outcomes.
type Classifier struct {
	threshold float64
	classes   map[string]ListClass
}

// NewClassifier builds a classifier with the given qualification threshold
// and per-list class assignments. Lists without an assignment are treated as
// advisory. A zero threshold falls back to the default.
func NewClassifier(threshold float64, classes map[string]ListClass) *Classifier {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	c := &Classifier{threshold: threshold, classes: make(map[string]ListClass, len(classes))}
	for list, class := range classes {
		c.classes[list] = class
	}
	return c
}

// Threshold returns the qualification threshold in [0,1] terms.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Qualifies reports whether a [0,1] similarity score clears the threshold.
func (c *Classifier) Qualifies(score float64) bool {
	return score >= c.threshold
}

// ClassOf returns the risk-escalation class of a list.
func (c *Classifier) ClassOf(list string) ListClass {
	if class, ok := c.classes[list]; ok {
		return class
	}
	return ListClassAdvisory
}

// RiskFor resolves the risk level for a match on the given list.
func (c *Classifier) RiskFor(list string, strength MatchStrength) RiskLevel {
	return riskTable[c.ClassOf(list)][strength]
}

// RequiresBlocking reports whether a match on the list forces a blocking
// outcome regardless of strength.
func (c *Classifier) RequiresBlocking(list string) bool {
	return c.ClassOf(list) == ListClassBlocking
}

// RequiresReview reports whether a match on the list at the given strength
// requires manual review.
func (c *Classifier) RequiresReview(list string, strength MatchStrength) bool {
	return c.ClassOf(list) == ListClassAdvisory && strength.AtLeast(MatchStrengthModerate)
}
