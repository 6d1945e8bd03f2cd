package screening

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening/matching"
)

// ScreenOptions control a single sanctions screening call.
type ScreenOptions struct {
	// Threshold overrides the configured qualification threshold when > 0.
	Threshold float64
	// IncludeAliases extends the screened name set with the party's aliases.
	IncludeAliases bool
}

// DefaultScreenOptions returns the standard screening options.
func DefaultScreenOptions() ScreenOptions {
	return ScreenOptions{
		Threshold:      0, // resolved against configuration at call time
		IncludeAliases: true,
	}
}

// SanctionsScreener determines whether a party matches entries on sanctions
// and watch lists. Screening calls are stateless pure-computation-plus-
// repository-read and safe to invoke concurrently across distinct parties.
type SanctionsScreener struct {
	logger     *zap.SugaredLogger
	repo       ListRepository
	engine     *matching.Engine
	classifier *Classifier
}

// NewSanctionsScreener creates a sanctions screener against the given list
// repository.
func NewSanctionsScreener(repo ListRepository, cfg *Config, logger *zap.SugaredLogger) *SanctionsScreener {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SanctionsScreener{
		logger:     logger,
		repo:       repo,
		engine:     matching.NewEngine(cfg.Matching.Similarity),
		classifier: NewClassifier(cfg.Matching.MatchThreshold, cfg.Lists.Classes),
	}
}

// Screen screens one party against the requested lists and aggregates all
// qualifying matches into a single result. A failure screening one list is
// logged and does not abort screening of the remaining lists; a list the
// repository reports unavailable is skipped and logged.
func (s *SanctionsScreener) Screen(ctx context.Context, party *Party, lists []string, opts ScreenOptions) (*ScreeningResult, error) {
	if err := ValidateParty(party); err != nil {
		screeningsTotal.WithLabelValues("invalid_party").Inc()
		return nil, err
	}

	started := time.Now()
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.classifier.Threshold()
	}

	names := s.nameSet(party, opts)
	s.logger.Infow("sanctions screening started",
		"party_id", party.ID,
		"lists", lists,
		"names_screened", len(names),
		"threshold", threshold,
	)

	var (
		matches       []SanctionsMatch
		listsScreened []string
	)
	for _, list := range lists {
		if !s.repo.IsListAvailable(ctx, list) {
			listUnavailableTotal.WithLabelValues(list).Inc()
			s.logger.Warnw("list unavailable, skipping",
				"party_id", party.ID,
				"list_id", list,
			)
			continue
		}

		listMatches, err := s.screenList(ctx, party, names, list, threshold)
		if err != nil {
			// Isolation per list: collect and continue.
			failure := &ScreeningFailedError{Subject: party.ID, Stage: "list:" + list, Err: err}
			s.logger.Errorw("list screening failed",
				"party_id", party.ID,
				"list_id", list,
				"error", failure,
			)
			continue
		}
		matches = append(matches, listMatches...)
		listsScreened = append(listsScreened, list)
	}

	matches = dedupeMatches(matches)

	result := &ScreeningResult{
		ScreeningID:      uuid.New().String(),
		PartyID:          party.ID,
		PartyName:        party.Name,
		PartyType:        party.Type,
		HasMatches:       len(matches) > 0,
		Matches:          matches,
		OverallRiskLevel: RiskLevelNone,
		Metadata: map[string]interface{}{
			"lists_requested": lists,
			"lists_screened":  listsScreened,
			"threshold":       threshold,
			"names_screened":  names,
		},
		ScreenedAt: started,
	}
	for _, match := range matches {
		if s.classifier.RequiresBlocking(match.List) {
			result.RequiresBlocking = true
		}
		if s.classifier.RequiresReview(match.List, match.Strength) {
			result.RequiresReview = true
		}
		result.OverallRiskLevel = MaxRiskLevel(result.OverallRiskLevel, s.classifier.RiskFor(match.List, match.Strength))
	}
	result.Duration = time.Since(started)

	screeningsTotal.WithLabelValues("completed").Inc()
	sanctionsMatchesTotal.Add(float64(len(matches)))
	screeningDuration.Observe(result.Duration.Seconds())

	s.logger.Infow("sanctions screening completed",
		"party_id", party.ID,
		"screening_id", result.ScreeningID,
		"total_matches", len(matches),
		"requires_blocking", result.RequiresBlocking,
		"requires_review", result.RequiresReview,
		"overall_risk_level", result.OverallRiskLevel,
		"duration", result.Duration,
	)
	return result, nil
}

// screenList queries one list for every name in the set and classifies the
// candidates.
func (s *SanctionsScreener) screenList(ctx context.Context, party *Party, names []string, list string, threshold float64) ([]SanctionsMatch, error) {
	var matches []SanctionsMatch
	for _, name := range names {
		candidates, err := s.repo.FindByName(ctx, matching.NormalizeName(name), list, threshold)
		if err != nil {
			return nil, err
		}
		for _, candidate := range candidates {
			score := s.engine.Similarity(name, candidate.Name)
			if score < threshold {
				continue
			}
			scorePct := score * 100
			matches = append(matches, SanctionsMatch{
				List:        list,
				EntryID:     candidate.EntryID,
				MatchedName: candidate.Name,
				Strength:    StrengthForScore(scorePct),
				Score:       scorePct,
				Details:     candidate.Details,
				MatchedAt:   time.Now(),
			})
		}
	}
	return matches, nil
}

// ScreenMultiple screens each party independently. A failure for one party
// is logged and excluded from the returned map; it never aborts the batch.
// Per-party work has no ordering dependency; results are keyed by party id.
func (s *SanctionsScreener) ScreenMultiple(ctx context.Context, parties []*Party, lists []string, opts ScreenOptions) map[string]*ScreeningResult {
	results := make(map[string]*ScreeningResult, len(parties))
	for _, party := range parties {
		result, err := s.Screen(ctx, party, lists, opts)
		if err != nil {
			partyID := ""
			if party != nil {
				partyID = party.ID
			}
			s.logger.Errorw("batch screening failed for party",
				"party_id", partyID,
				"error", err,
			)
			continue
		}
		results[result.PartyID] = result
	}
	return results
}

// CalculateSimilarity exposes the similarity engine for ad hoc comparisons
// outside a full screening call.
func (s *SanctionsScreener) CalculateSimilarity(a, b string) float64 {
	return s.engine.Similarity(a, b)
}

// RecommendedFrequency maps the party's declared risk rating to a screening
// cadence. Absent or unrecognized ratings get the conservative quarterly
// default.
func (s *SanctionsScreener) RecommendedFrequency(party *Party) ScreeningFrequency {
	if party == nil {
		return FrequencyQuarterly
	}
	switch party.RiskRating {
	case RiskLevelHigh, RiskLevelCritical:
		return FrequencyDaily
	case RiskLevelMedium:
		return FrequencyWeekly
	case RiskLevelLow:
		return FrequencyMonthly
	default:
		return FrequencyQuarterly
	}
}

// nameSet builds the set of names to screen: the primary name plus aliases
// when requested, with blank entries dropped.
func (s *SanctionsScreener) nameSet(party *Party, opts ScreenOptions) []string {
	names := []string{party.Name}
	if opts.IncludeAliases {
		for _, alias := range party.Aliases {
			if strings.TrimSpace(alias) != "" {
				names = append(names, alias)
			}
		}
	}
	return names
}

// dedupeMatches keeps the first occurrence per (entry id, list) pair.
func dedupeMatches(matches []SanctionsMatch) []SanctionsMatch {
	if len(matches) < 2 {
		return matches
	}
	type matchKey struct {
		entryID string
		list    string
	}
	seen := make(map[matchKey]struct{}, len(matches))
	deduped := matches[:0]
	for _, match := range matches {
		key := matchKey{entryID: match.EntryID, list: match.List}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, match)
	}
	return deduped
}
