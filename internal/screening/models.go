package screening

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel represents the risk classification assigned to a party or match.
type RiskLevel string

const (
	RiskLevelNone     RiskLevel = "NONE"
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

var riskLevelRank = map[RiskLevel]int{
	RiskLevelNone:     0,
	RiskLevelLow:      1,
	RiskLevelMedium:   2,
	RiskLevelHigh:     3,
	RiskLevelCritical: 4,
}

// Rank returns the position of the level in the severity order. Unknown
// values rank below NONE so they never escalate a result.
func (r RiskLevel) Rank() int {
	if rank, ok := riskLevelRank[r]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether r is at or above other in the severity order.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// Valid reports whether r is one of the recognized levels.
func (r RiskLevel) Valid() bool {
	_, ok := riskLevelRank[r]
	return ok
}

// Escalate bumps the level one tier up. Only LOW and MEDIUM escalate; NONE,
// HIGH and CRITICAL are returned unchanged.
func (r RiskLevel) Escalate() RiskLevel {
	switch r {
	case RiskLevelLow:
		return RiskLevelMedium
	case RiskLevelMedium:
		return RiskLevelHigh
	default:
		return r
	}
}

// MaxRiskLevel returns the higher of the two levels.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// MatchStrength is the discrete tier assigned to a qualifying match.
type MatchStrength string

const (
	MatchStrengthExact    MatchStrength = "EXACT"
	MatchStrengthStrong   MatchStrength = "STRONG"
	MatchStrengthModerate MatchStrength = "MODERATE"
	MatchStrengthWeak     MatchStrength = "WEAK"
)

var matchStrengthRank = map[MatchStrength]int{
	MatchStrengthWeak:     0,
	MatchStrengthModerate: 1,
	MatchStrengthStrong:   2,
	MatchStrengthExact:    3,
}

// Rank returns the position of the strength in the tier order.
func (m MatchStrength) Rank() int {
	return matchStrengthRank[m]
}

// AtLeast reports whether m is at or above other in the tier order.
func (m MatchStrength) AtLeast(other MatchStrength) bool {
	return m.Rank() >= other.Rank()
}

// PartyType identifies the kind of party being screened.
type PartyType string

const (
	PartyTypeIndividual   PartyType = "INDIVIDUAL"
	PartyTypeOrganization PartyType = "ORGANIZATION"
)

// Valid reports whether t is one of the two recognized party types.
func (t PartyType) Valid() bool {
	return t == PartyTypeIndividual || t == PartyTypeOrganization
}

// Party is the immutable subject of a screening, supplied by the external
// party provider. The screening core never mutates it.
type Party struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Aliases    []string  `json:"aliases,omitempty"`
	Type       PartyType `json:"type"`
	RiskRating RiskLevel `json:"risk_rating,omitempty"`
}

// ValidateParty checks the identity fields required before any repository
// access. All violations are aggregated into a single InvalidPartyError.
func ValidateParty(party *Party) error {
	if party == nil {
		return &InvalidPartyError{Violations: []string{"party is nil"}}
	}

	var violations []string
	if strings.TrimSpace(party.ID) == "" {
		violations = append(violations, "party id must not be empty")
	}
	name := strings.TrimSpace(party.Name)
	if name == "" {
		violations = append(violations, "party name must not be empty")
	} else if len([]rune(name)) < 3 {
		violations = append(violations, "party name must be at least 3 characters")
	}
	if !party.Type.Valid() {
		violations = append(violations, fmt.Sprintf("party type %q must be INDIVIDUAL or ORGANIZATION", party.Type))
	}

	if len(violations) > 0 {
		return &InvalidPartyError{PartyID: party.ID, Violations: violations}
	}
	return nil
}

// SanctionsMatch is one qualifying candidate hit against a sanctions list.
// Immutable once created.
type SanctionsMatch struct {
	List        string                 `json:"list"`
	EntryID     string                 `json:"entry_id"`
	MatchedName string                 `json:"matched_name"`
	Strength    MatchStrength          `json:"strength"`
	Score       float64                `json:"score"` // 0-100, tier-consistent with Strength
	Details     map[string]interface{} `json:"details,omitempty"`
	MatchedAt   time.Time              `json:"matched_at"`
}

// PepProfile is a Politically Exposed Person record derived from repository
// data. Profiles are built fresh on every screening call; the level is
// inferred from position text and tenure unless the repository supplies one.
type PepProfile struct {
	PepID        string                 `json:"pep_id"`
	Name         string                 `json:"name"`
	Level        RiskLevel              `json:"level"`
	Position     string                 `json:"position,omitempty"`
	Country      string                 `json:"country,omitempty"`
	Organization string                 `json:"organization,omitempty"`
	StartDate    *time.Time             `json:"start_date,omitempty"`
	EndDate      *time.Time             `json:"end_date,omitempty"`
	RelatedIDs   []string               `json:"related_ids,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	IdentifiedAt time.Time              `json:"identified_at"`
}

// ScreeningResult is the aggregate outcome of one sanctions screening call.
// Immutable once constructed.
type ScreeningResult struct {
	ScreeningID      string                 `json:"screening_id"`
	PartyID          string                 `json:"party_id"`
	PartyName        string                 `json:"party_name"`
	PartyType        PartyType              `json:"party_type"`
	HasMatches       bool                   `json:"has_matches"`
	Matches          []SanctionsMatch       `json:"matches"`
	PepProfiles      []PepProfile           `json:"pep_profiles,omitempty"`
	RequiresBlocking bool                   `json:"requires_blocking"`
	RequiresReview   bool                   `json:"requires_review"`
	OverallRiskLevel RiskLevel              `json:"overall_risk_level"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ScreenedAt       time.Time              `json:"screened_at"`
	Duration         time.Duration          `json:"duration"`
}

// ScreeningFrequency is the cadence at which a party is re-screened.
type ScreeningFrequency string

const (
	FrequencyDaily     ScreeningFrequency = "DAILY"
	FrequencyWeekly    ScreeningFrequency = "WEEKLY"
	FrequencyMonthly   ScreeningFrequency = "MONTHLY"
	FrequencyQuarterly ScreeningFrequency = "QUARTERLY"
	FrequencyAnnual    ScreeningFrequency = "ANNUAL"
)

var frequencyDays = map[ScreeningFrequency]int{
	FrequencyDaily:     1,
	FrequencyWeekly:    7,
	FrequencyMonthly:   30,
	FrequencyQuarterly: 90,
	FrequencyAnnual:    365,
}

// Valid reports whether f is a recognized frequency.
func (f ScreeningFrequency) Valid() bool {
	_, ok := frequencyDays[f]
	return ok
}

// Days returns the fixed interval length for the frequency. Unknown
// frequencies fall back to the quarterly interval.
func (f ScreeningFrequency) Days() int {
	if days, ok := frequencyDays[f]; ok {
		return days
	}
	return frequencyDays[FrequencyQuarterly]
}

// NextDate computes the next screening date from a reference date. Pure
// function of (frequency, reference).
func (f ScreeningFrequency) NextDate(reference time.Time) time.Time {
	return reference.AddDate(0, 0, f.Days())
}

// ScheduleStatus is the lifecycle state of a screening schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive           ScheduleStatus = "active"
	ScheduleStatusPendingImmediate ScheduleStatus = "pending_immediate"
	ScheduleStatusCancelled        ScheduleStatus = "cancelled"
	// ScheduleStatusFailed marks a schedule whose retries are exhausted and
	// which needs manual intervention. No automatic transition out of it.
	ScheduleStatusFailed ScheduleStatus = "failed"
)

// ScreeningSchedule is the persisted scheduling state for one party. Created
// on the first scheduling call, mutated by every execution or frequency
// update, never physically deleted (cancellation is a status transition).
type ScreeningSchedule struct {
	ID              string                 `json:"id"`
	PartyID         string                 `json:"party_id"`
	Frequency       ScreeningFrequency     `json:"frequency"`
	NextScreeningAt time.Time              `json:"next_screening_at"`
	CreatedAt       time.Time              `json:"created_at"`
	Lists           []string               `json:"lists,omitempty"`
	Options         map[string]interface{} `json:"options,omitempty"`
	Status          ScheduleStatus         `json:"status"`
	ExecutionCount  int                    `json:"execution_count"`
	LastExecutedAt  *time.Time             `json:"last_executed_at,omitempty"`
	LastOutcome     string                 `json:"last_outcome,omitempty"`
	FailedAttempts  int                    `json:"failed_attempts"`
	LastError       string                 `json:"last_error,omitempty"`
}

// ExecutionSummary reports the outcome of one scheduler sweep.
type ExecutionSummary struct {
	Executed     int               `json:"executed"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
	MatchesFound int               `json:"matches_found"`
	Duration     time.Duration     `json:"duration"`
	Errors       map[string]string `json:"errors,omitempty"` // keyed by party id
	// RetryAfter is a scheduling hint for the caller's execution loop, not a
	// delay applied inside the scheduler.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// BulkScheduleSummary reports the outcome of a bulk scheduling call.
type BulkScheduleSummary struct {
	Scheduled int               `json:"scheduled"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"` // keyed by party id
}

// ExecutionStatistics aggregates schedule execution history for reporting.
type ExecutionStatistics struct {
	TotalSchedules     int        `json:"total_schedules"`
	ActiveSchedules    int        `json:"active_schedules"`
	PendingImmediate   int        `json:"pending_immediate"`
	CancelledSchedules int        `json:"cancelled_schedules"`
	FailedSchedules    int        `json:"failed_schedules"`
	TotalExecutions    int        `json:"total_executions"`
	ExecutedSince      int        `json:"executed_since"`
	FailedAttempts     int        `json:"failed_attempts"`
	LastExecutionAt    *time.Time `json:"last_execution_at,omitempty"`
}
