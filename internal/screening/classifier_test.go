package screening_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

func TestStrengthForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected screening.MatchStrength
	}{
		{100, screening.MatchStrengthExact},
		{99.9, screening.MatchStrengthStrong},
		{90, screening.MatchStrengthStrong},
		{89.9, screening.MatchStrengthModerate},
		{85, screening.MatchStrengthModerate},
		{84.9, screening.MatchStrengthWeak},
		{0, screening.MatchStrengthWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, screening.StrengthForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestClassifierThresholdDefault(t *testing.T) {
	c := screening.NewClassifier(0, nil)
	assert.Equal(t, screening.DefaultMatchThreshold, c.Threshold())
	assert.True(t, c.Qualifies(0.85))
	assert.False(t, c.Qualifies(0.8499))
}

func TestClassifierListClasses(t *testing.T) {
	c := screening.NewClassifier(0.85, map[string]screening.ListClass{
		"ofac_sdn":      screening.ListClassBlocking,
		"adverse_media": screening.ListClassAdvisory,
	})

	assert.Equal(t, screening.ListClassBlocking, c.ClassOf("ofac_sdn"))
	assert.Equal(t, screening.ListClassAdvisory, c.ClassOf("adverse_media"))
	// Lists without an assignment default to advisory.
	assert.Equal(t, screening.ListClassAdvisory, c.ClassOf("somewhere_new"))

	assert.True(t, c.RequiresBlocking("ofac_sdn"))
	assert.False(t, c.RequiresBlocking("adverse_media"))
}

func TestClassifierRiskTable(t *testing.T) {
	c := screening.NewClassifier(0.85, map[string]screening.ListClass{
		"blocklist": screening.ListClassBlocking,
	})

	tests := []struct {
		list     string
		strength screening.MatchStrength
		expected screening.RiskLevel
	}{
		{"blocklist", screening.MatchStrengthExact, screening.RiskLevelCritical},
		{"blocklist", screening.MatchStrengthStrong, screening.RiskLevelCritical},
		{"blocklist", screening.MatchStrengthModerate, screening.RiskLevelHigh},
		{"blocklist", screening.MatchStrengthWeak, screening.RiskLevelMedium},
		{"watchlist", screening.MatchStrengthExact, screening.RiskLevelHigh},
		{"watchlist", screening.MatchStrengthStrong, screening.RiskLevelHigh},
		{"watchlist", screening.MatchStrengthModerate, screening.RiskLevelMedium},
		{"watchlist", screening.MatchStrengthWeak, screening.RiskLevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.RiskFor(tt.list, tt.strength),
			"%s/%s", tt.list, tt.strength)
	}
}

func TestClassifierRequiresReview(t *testing.T) {
	c := screening.NewClassifier(0.85, map[string]screening.ListClass{
		"blocklist": screening.ListClassBlocking,
	})

	assert.True(t, c.RequiresReview("watchlist", screening.MatchStrengthModerate))
	assert.True(t, c.RequiresReview("watchlist", screening.MatchStrengthExact))
	assert.False(t, c.RequiresReview("watchlist", screening.MatchStrengthWeak))
	// Blocking lists escalate through blocking, not review.
	assert.False(t, c.RequiresReview("blocklist", screening.MatchStrengthExact))
}
