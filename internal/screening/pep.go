package screening

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening/matching"
)

// PepScreenOptions control a single PEP screening call.
type PepScreenOptions struct {
	// Threshold overrides the configured PEP match threshold when > 0.
	Threshold float64
	// MinRiskLevel drops profiles below the given level. Empty means no
	// floor.
	MinRiskLevel RiskLevel
	// IncludeFormer retains profiles whose role has already ended.
	IncludeFormer bool
	// IncludeFamily expands retained profiles with family members.
	IncludeFamily bool
	// IncludeAssociates expands retained profiles with close associates.
	IncludeAssociates bool
}

// DefaultPepScreenOptions returns the standard PEP screening options.
func DefaultPepScreenOptions() PepScreenOptions {
	return PepScreenOptions{
		Threshold:         0, // resolved against configuration at call time
		MinRiskLevel:      RiskLevelNone,
		IncludeFormer:     true,
		IncludeFamily:     true,
		IncludeAssociates: true,
	}
}

// pepDateLayouts are the wire forms accepted for tenure dates.
var pepDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"02/01/2006",
	"02 Jan 2006",
	"January 2, 2006",
	"2006",
}

// PEPScreener determines whether a party is a Politically Exposed Person,
// infers PEP levels from position text and tenure dates, and aggregates
// multi-connection risk. Stateless; safe for concurrent use across parties.
type PEPScreener struct {
	logger *zap.SugaredLogger
	repo   ListRepository
	engine *matching.Engine
	cfg    PepConfig
}

// NewPEPScreener creates a PEP screener against the given list repository.
func NewPEPScreener(repo ListRepository, cfg *Config, logger *zap.SugaredLogger) *PEPScreener {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &PEPScreener{
		logger: logger,
		repo:   repo,
		engine: matching.NewEngine(cfg.Matching.Similarity),
		cfg:    cfg.Pep,
	}
}

// ScreenForPep screens one party for PEP status and returns the derived
// profiles, deduplicated by pep id with first occurrence kept.
func (p *PEPScreener) ScreenForPep(ctx context.Context, party *Party, opts PepScreenOptions) ([]PepProfile, error) {
	if err := ValidateParty(party); err != nil {
		pepScreeningsTotal.WithLabelValues("invalid_party").Inc()
		return nil, err
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = p.cfg.MatchThreshold
	}
	now := time.Now()

	records, err := p.repo.FindPepByName(ctx, matching.NormalizeName(party.Name), threshold)
	if err != nil {
		failure := &ScreeningFailedError{Subject: party.ID, Stage: "pep_lookup", Err: err}
		p.logger.Errorw("pep lookup failed",
			"party_id", party.ID,
			"error", failure,
		)
		pepScreeningsTotal.WithLabelValues("failed").Inc()
		return nil, failure
	}

	var profiles []PepProfile
	for _, record := range records {
		profile := p.buildProfile(record, now)
		if !p.retain(profile, opts, now) {
			continue
		}
		profiles = append(profiles, profile)
	}

	if opts.IncludeFamily || opts.IncludeAssociates {
		profiles = append(profiles, p.expandRelated(ctx, party, profiles, opts, now)...)
	}
	profiles = dedupeProfiles(profiles)

	pepScreeningsTotal.WithLabelValues("completed").Inc()
	p.logger.Infow("pep screening completed",
		"party_id", party.ID,
		"profiles", len(profiles),
		"threshold", threshold,
	)
	return profiles, nil
}

// ScreenMultiple screens each party independently; a failure for one party
// is logged and excluded from the returned map.
func (p *PEPScreener) ScreenMultiple(ctx context.Context, parties []*Party, opts PepScreenOptions) map[string][]PepProfile {
	results := make(map[string][]PepProfile, len(parties))
	for _, party := range parties {
		profiles, err := p.ScreenForPep(ctx, party, opts)
		if err != nil {
			partyID := ""
			if party != nil {
				partyID = party.ID
			}
			p.logger.Errorw("batch pep screening failed for party",
				"party_id", partyID,
				"error", err,
			)
			continue
		}
		results[party.ID] = profiles
	}
	return results
}

// AssessRiskLevel returns the maximum level across the profiles, escalated
// one tier when three or more distinct profiles are present: multiple PEP
// connections compound risk. NONE and HIGH are unaffected by escalation.
func (p *PEPScreener) AssessRiskLevel(party *Party, profiles []PepProfile) RiskLevel {
	level := RiskLevelNone
	distinct := make(map[string]struct{}, len(profiles))
	for _, profile := range profiles {
		level = MaxRiskLevel(level, profile.Level)
		distinct[profile.PepID] = struct{}{}
	}
	if len(distinct) >= 3 {
		level = level.Escalate()
	}
	return level
}

// RequiresEdd reports whether the assessed level is at or above the
// enhanced-due-diligence threshold.
func (p *PEPScreener) RequiresEdd(party *Party, profiles []PepProfile) bool {
	return p.AssessRiskLevel(party, profiles).AtLeast(p.cfg.EddThreshold)
}

// CheckRelatedPersons screens for PEP status without expansion, then expands
// only the matched profiles' related persons. Used when the caller already
// knows the party is a PEP and only wants the network.
func (p *PEPScreener) CheckRelatedPersons(ctx context.Context, party *Party) ([]PepProfile, error) {
	opts := DefaultPepScreenOptions()
	opts.IncludeFamily = false
	opts.IncludeAssociates = false

	direct, err := p.ScreenForPep(ctx, party, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expansion := DefaultPepScreenOptions()
	related := p.expandRelated(ctx, party, direct, expansion, now)
	related = dedupeProfiles(related)

	// Exclude profiles already present in the direct matches.
	seen := make(map[string]struct{}, len(direct))
	for _, profile := range direct {
		seen[profile.PepID] = struct{}{}
	}
	network := related[:0]
	for _, profile := range related {
		if _, ok := seen[profile.PepID]; ok {
			continue
		}
		network = append(network, profile)
	}
	return network, nil
}

// buildProfile derives a PepProfile from raw repository data. An explicit
// repository level wins over everything; otherwise the former-PEP downgrade
// takes precedence over keyword inference.
func (p *PEPScreener) buildProfile(record PepRecord, now time.Time) PepProfile {
	profile := PepProfile{
		PepID:        record.ID,
		Name:         record.Name,
		Position:     record.Position,
		Country:      record.Country,
		Organization: record.Organization,
		StartDate:    parsePepDate(record.StartDate),
		EndDate:      parsePepDate(record.EndDate),
		RelatedIDs:   record.RelatedIDs,
		Details:      record.Details,
		IdentifiedAt: now,
	}

	if explicit := RiskLevel(strings.ToUpper(record.Level)); record.Level != "" && explicit.Valid() {
		profile.Level = explicit
		return profile
	}
	if p.isFormer(profile.EndDate, now) {
		profile.Level = RiskLevelLow
		return profile
	}
	profile.Level = p.inferLevel(record.Position)
	return profile
}

// inferLevel matches position text against the seniority keyword sets.
func (p *PEPScreener) inferLevel(position string) RiskLevel {
	position = strings.ToLower(position)
	for _, keyword := range p.cfg.HighSeniorityKeywords {
		if strings.Contains(position, keyword) {
			return RiskLevelHigh
		}
	}
	for _, keyword := range p.cfg.MidSeniorityKeywords {
		if strings.Contains(position, keyword) {
			return RiskLevelMedium
		}
	}
	return RiskLevelLow
}

// isFormer reports whether the role ended more than the configured cutoff
// before now.
func (p *PEPScreener) isFormer(endDate *time.Time, now time.Time) bool {
	if endDate == nil {
		return false
	}
	return endDate.Before(now.AddDate(0, -p.cfg.FormerCutoffMonths, 0))
}

// retain applies the caller's risk floor and former-role filters.
func (p *PEPScreener) retain(profile PepProfile, opts PepScreenOptions, now time.Time) bool {
	if opts.MinRiskLevel != "" && !profile.Level.AtLeast(opts.MinRiskLevel) {
		return false
	}
	if !opts.IncludeFormer && profile.EndDate != nil && profile.EndDate.Before(now) {
		return false
	}
	return true
}

// expandRelated fetches related persons for every retained profile and
// derives profiles for those relations the options admit. A repository
// failure for one pep is logged and does not abort the expansion.
func (p *PEPScreener) expandRelated(ctx context.Context, party *Party, profiles []PepProfile, opts PepScreenOptions, now time.Time) []PepProfile {
	var expanded []PepProfile
	for _, profile := range profiles {
		records, err := p.repo.GetRelatedPersons(ctx, profile.PepID)
		if err != nil {
			p.logger.Warnw("related persons lookup failed",
				"party_id", party.ID,
				"pep_id", profile.PepID,
				"error", err,
			)
			continue
		}
		for _, record := range records {
			switch record.Relation {
			case RelationFamily:
				if !opts.IncludeFamily {
					continue
				}
			case RelationAssociate:
				if !opts.IncludeAssociates {
					continue
				}
			}
			relatedProfile := p.buildProfile(record, now)
			if opts.MinRiskLevel != "" && !relatedProfile.Level.AtLeast(opts.MinRiskLevel) {
				continue
			}
			expanded = append(expanded, relatedProfile)
		}
	}
	return expanded
}

// dedupeProfiles keeps the first occurrence per pep id.
func dedupeProfiles(profiles []PepProfile) []PepProfile {
	if len(profiles) < 2 {
		return profiles
	}
	seen := make(map[string]struct{}, len(profiles))
	deduped := profiles[:0]
	for _, profile := range profiles {
		if _, ok := seen[profile.PepID]; ok {
			continue
		}
		seen[profile.PepID] = struct{}{}
		deduped = append(deduped, profile)
	}
	return deduped
}

// parsePepDate parses a wire-form tenure date, trying each accepted layout.
// Unparseable dates are treated as absent.
func parsePepDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range pepDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
