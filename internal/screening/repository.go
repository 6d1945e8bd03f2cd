package screening

import (
	"context"
	"time"
)

// ListCandidate is one near-name candidate returned by the list repository.
// Beyond the entry id and name, every field the underlying list carries is
// passed through as Details.
type ListCandidate struct {
	EntryID string                 `json:"entry_id"`
	Name    string                 `json:"name"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RelationType classifies a related-person PEP record.
type RelationType string

const (
	RelationFamily    RelationType = "family"
	RelationAssociate RelationType = "associate"
)

// PepRecord is the raw PEP data supplied by the list repository. Dates arrive
// in wire form and are parsed during profile derivation; Level is an optional
// explicit override that wins over position-based inference.
type PepRecord struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Position     string                 `json:"position,omitempty"`
	Country      string                 `json:"country,omitempty"`
	Organization string                 `json:"organization,omitempty"`
	StartDate    string                 `json:"start_date,omitempty"`
	EndDate      string                 `json:"end_date,omitempty"`
	Level        string                 `json:"level,omitempty"`
	RelatedIDs   []string               `json:"related_ids,omitempty"`
	Relation     RelationType           `json:"relation,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// ListRepository supplies candidate sanctions-list entries and PEP records.
// Data sourcing, caching, and list-refresh mechanics are its responsibility;
// timeouts and cancellation ride on the supplied context.
type ListRepository interface {
	// FindByName returns near-name candidates from one list at the given
	// similarity threshold. The name is already normalized.
	FindByName(ctx context.Context, normalizedName, list string, threshold float64) ([]ListCandidate, error)
	// IsListAvailable reports whether a list can currently be screened
	// against. Unavailability is a degraded-coverage condition, not an error.
	IsListAvailable(ctx context.Context, list string) bool
	// FindPepByName returns PEP candidates for a name at the given threshold.
	FindPepByName(ctx context.Context, name string, threshold float64) ([]PepRecord, error)
	// GetRelatedPersons returns the family members and close associates
	// recorded for a PEP.
	GetRelatedPersons(ctx context.Context, pepID string) ([]PepRecord, error)
}

// PartyProvider exposes read-only party identity data.
type PartyProvider interface {
	GetParty(ctx context.Context, partyID string) (*Party, error)
}

// ScheduleStore persists screening schedules. Implementations own whatever
// locking discipline is needed so that two concurrent execution sweeps never
// double-count an execution; the scheduler treats each read-modify-write as
// externally synchronized.
type ScheduleStore interface {
	// Create inserts a schedule for a party. An existing terminal schedule
	// (cancelled or failed) is replaced so the party can be re-enrolled; an
	// existing live schedule is an error.
	Create(ctx context.Context, schedule *ScreeningSchedule) error
	Get(ctx context.Context, partyID string) (*ScreeningSchedule, error)
	Update(ctx context.Context, schedule *ScreeningSchedule) error
	// ListDue returns schedules due at or before asOf that are eligible to
	// run (active or pending_immediate), bounded by limit.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*ScreeningSchedule, error)
	// ListRetryable returns runnable schedules with at least one failed
	// attempt, regardless of due date.
	ListRetryable(ctx context.Context) ([]*ScreeningSchedule, error)
	Stats(ctx context.Context, since time.Time) (*ExecutionStatistics, error)
}
