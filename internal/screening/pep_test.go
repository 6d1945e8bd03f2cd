package screening_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

func newPEPScreener(repo *fakeRepo) *screening.PEPScreener {
	return screening.NewPEPScreener(repo, screening.DefaultConfig(), zap.NewNop().Sugar())
}

func TestScreenForPepInvalidParty(t *testing.T) {
	repo := newFakeRepo()
	screener := newPEPScreener(repo)

	_, err := screener.ScreenForPep(context.Background(), &screening.Party{ID: "p1"}, screening.DefaultPepScreenOptions())
	var invalid *screening.InvalidPartyError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, repo.pepFindCalls)
}

func TestScreenForPepLookupFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.pepErr = errors.New("index offline")
	screener := newPEPScreener(repo)

	_, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	var failed *screening.ScreeningFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "p1", failed.Subject)
	assert.ErrorIs(t, err, repo.pepErr)
}

func TestPepLevelInferenceFromPosition(t *testing.T) {
	tests := []struct {
		position string
		expected screening.RiskLevel
	}{
		{"Minister of Finance", screening.RiskLevelHigh},
		{"President of the Republic", screening.RiskLevelHigh},
		{"Central Bank Governor", screening.RiskLevelHigh},
		{"Deputy Director of Customs", screening.RiskLevelMedium},
		{"Ambassador to France", screening.RiskLevelMedium},
		{"Regional procurement clerk", screening.RiskLevelLow},
		{"", screening.RiskLevelLow},
	}
	for _, tt := range tests {
		repo := newFakeRepo()
		repo.peps = []screening.PepRecord{{ID: "pep-1", Name: "John Smith", Position: tt.position}}
		screener := newPEPScreener(repo)

		profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
		require.NoError(t, err)
		require.Len(t, profiles, 1, "position %q", tt.position)
		assert.Equal(t, tt.expected, profiles[0].Level, "position %q", tt.position)
	}
}

func TestFormerPepDowngradedToLow(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{
		ID:       "pep-1",
		Name:     "John Smith",
		Position: "Minister of Finance",
		EndDate:  monthsAgoWire(18),
	}}
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, screening.RiskLevelLow, profiles[0].Level)
	assert.NotNil(t, profiles[0].EndDate)
}

func TestRecentlyEndedRoleKeepsInferredLevel(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{
		ID:       "pep-1",
		Name:     "John Smith",
		Position: "Minister of Finance",
		EndDate:  monthsAgoWire(6),
	}}
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, screening.RiskLevelHigh, profiles[0].Level)
}

func TestExplicitLevelWinsOverInference(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{
		ID:       "pep-1",
		Name:     "John Smith",
		Position: "Minister of Finance",
		EndDate:  monthsAgoWire(18),
		Level:    "critical",
	}}
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, screening.RiskLevelCritical, profiles[0].Level)
}

func TestScreenForPepExcludesFormerWhenAsked(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{
		{ID: "pep-1", Name: "John Smith", Position: "Minister of Finance"},
		{ID: "pep-2", Name: "John Smith", Position: "Senator", EndDate: monthsAgoWire(2)},
	}
	screener := newPEPScreener(repo)

	opts := screening.DefaultPepScreenOptions()
	opts.IncludeFormer = false
	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), opts)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "pep-1", profiles[0].PepID)
}

func TestScreenForPepMinRiskLevelFilter(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{
		{ID: "pep-1", Name: "John Smith", Position: "Minister of Finance"},
		{ID: "pep-2", Name: "John Smith", Position: "Regional clerk"},
	}
	screener := newPEPScreener(repo)

	opts := screening.DefaultPepScreenOptions()
	opts.MinRiskLevel = screening.RiskLevelMedium
	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), opts)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "pep-1", profiles[0].PepID)
}

func TestScreenForPepDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{
		{ID: "pep-1", Name: "John Smith", Position: "Senator"},
		{ID: "pep-1", Name: "John Smith", Position: "Senator"},
	}
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestScreenForPepRelatedExpansion(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{
		ID: "pep-1", Name: "John Smith", Position: "Minister of Finance", RelatedIDs: []string{"pep-2", "pep-3"},
	}}
	repo.related["pep-1"] = []screening.PepRecord{
		{ID: "pep-2", Name: "Jane Smith", Relation: screening.RelationFamily},
		{ID: "pep-3", Name: "Carl Vance", Relation: screening.RelationAssociate, Position: "Director of Operations"},
	}
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	opts := screening.DefaultPepScreenOptions()
	opts.IncludeAssociates = false
	profiles, err = screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), opts)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "pep-2", profiles[1].PepID)

	opts = screening.DefaultPepScreenOptions()
	opts.IncludeFamily = false
	opts.IncludeAssociates = false
	profiles, err = screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), opts)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestScreenForPepRelatedLookupFailureIsolated(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{ID: "pep-1", Name: "John Smith", Position: "Senator"}}
	repo.relatedErr["pep-1"] = errors.New("graph unavailable")
	screener := newPEPScreener(repo)

	profiles, err := screener.ScreenForPep(context.Background(), individual("p1", "John Smith"), screening.DefaultPepScreenOptions())
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestAssessRiskLevel(t *testing.T) {
	screener := newPEPScreener(newFakeRepo())
	party := individual("p1", "John Smith")

	medium := func(id string) screening.PepProfile {
		return screening.PepProfile{PepID: id, Level: screening.RiskLevelMedium}
	}

	assert.Equal(t, screening.RiskLevelNone, screener.AssessRiskLevel(party, nil))
	assert.Equal(t, screening.RiskLevelMedium,
		screener.AssessRiskLevel(party, []screening.PepProfile{medium("a"), medium("b")}))
	// Three or more distinct profiles escalate one tier.
	assert.Equal(t, screening.RiskLevelHigh,
		screener.AssessRiskLevel(party, []screening.PepProfile{medium("a"), medium("b"), medium("c")}))
	// Duplicates of the same pep do not count toward escalation.
	assert.Equal(t, screening.RiskLevelMedium,
		screener.AssessRiskLevel(party, []screening.PepProfile{medium("a"), medium("a"), medium("a")}))
	// HIGH does not escalate further.
	assert.Equal(t, screening.RiskLevelHigh,
		screener.AssessRiskLevel(party, []screening.PepProfile{
			{PepID: "a", Level: screening.RiskLevelHigh}, medium("b"), medium("c"),
		}))
}

func TestRequiresEdd(t *testing.T) {
	screener := newPEPScreener(newFakeRepo())
	party := individual("p1", "John Smith")

	assert.False(t, screener.RequiresEdd(party, nil))
	assert.False(t, screener.RequiresEdd(party, []screening.PepProfile{
		{PepID: "a", Level: screening.RiskLevelMedium},
	}))
	assert.True(t, screener.RequiresEdd(party, []screening.PepProfile{
		{PepID: "a", Level: screening.RiskLevelHigh},
	}))
	assert.True(t, screener.RequiresEdd(party, []screening.PepProfile{
		{PepID: "a", Level: screening.RiskLevelCritical},
	}))
}

func TestCheckRelatedPersons(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{
		ID: "pep-1", Name: "John Smith", Position: "Senator", RelatedIDs: []string{"pep-2"},
	}}
	repo.related["pep-1"] = []screening.PepRecord{
		{ID: "pep-2", Name: "Jane Smith", Relation: screening.RelationFamily},
		{ID: "pep-1", Name: "John Smith", Relation: screening.RelationAssociate},
	}
	screener := newPEPScreener(repo)

	network, err := screener.CheckRelatedPersons(context.Background(), individual("p1", "John Smith"))
	require.NoError(t, err)
	// Directly matched profiles are excluded from the network.
	require.Len(t, network, 1)
	assert.Equal(t, "pep-2", network[0].PepID)
}

func TestPepScreenMultipleIsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.peps = []screening.PepRecord{{ID: "pep-1", Name: "John Smith", Position: "Senator"}}
	screener := newPEPScreener(repo)

	valid := individual("p1", "John Smith")
	invalid := &screening.Party{ID: "p2"}

	results := screener.ScreenMultiple(context.Background(), []*screening.Party{valid, invalid}, screening.DefaultPepScreenOptions())
	require.Len(t, results, 1)
	require.Contains(t, results, "p1")
	assert.Len(t, results["p1"], 1)
}
