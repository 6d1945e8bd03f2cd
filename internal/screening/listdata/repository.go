// Package listdata serves sanctions-list and PEP snapshots loaded from JSON
// files through the screening list-repository contract. List acquisition and
// refresh live elsewhere; this package only indexes and serves what it is
// given.
package listdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
	"github.com/azaharizaman/atomy-sub011/internal/screening/matching"
)

// Entry is one sanctions-list row in a snapshot file.
type Entry struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	AlternateNames []string               `json:"alternate_names,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// List is one list in a snapshot file.
type List struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	Entries   []Entry `json:"entries"`
}

// Pep is one PEP row in a snapshot file.
type Pep struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Position     string                 `json:"position,omitempty"`
	Country      string                 `json:"country,omitempty"`
	Organization string                 `json:"organization,omitempty"`
	StartDate    string                 `json:"start_date,omitempty"`
	EndDate      string                 `json:"end_date,omitempty"`
	Level        string                 `json:"level,omitempty"`
	RelatedIDs   []string               `json:"related_ids,omitempty"`
	Relation     string                 `json:"relation,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// Snapshot is the on-disk file format.
type Snapshot struct {
	Lists   []List            `json:"lists"`
	Peps    []Pep             `json:"peps"`
	Parties []screening.Party `json:"parties,omitempty"`
}

// Repository is an in-memory list repository over loaded snapshots. Reads
// are lock-free after construction except for availability toggles.
type Repository struct {
	mu     sync.RWMutex
	logger *zap.SugaredLogger
	engine *matching.Engine

	lists     map[string]*List
	available map[string]bool
	peps      map[string]Pep
	parties   map[string]screening.Party
}

var _ screening.ListRepository = (*Repository)(nil)
var _ screening.PartyProvider = (*Repository)(nil)

// New creates an empty repository; lists and PEPs are added via AddList and
// AddPep or a snapshot load.
func New(logger *zap.SugaredLogger) *Repository {
	return &Repository{
		logger:    logger,
		engine:    matching.NewEngine(matching.DefaultOptions()),
		lists:     make(map[string]*List),
		available: make(map[string]bool),
		peps:      make(map[string]Pep),
		parties:   make(map[string]screening.Party),
	}
}

// Load reads a snapshot file into a fresh repository.
func Load(path string, logger *zap.SugaredLogger) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list snapshot %s: %w", path, err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse list snapshot %s: %w", path, err)
	}

	repo := New(logger)
	for i := range snapshot.Lists {
		repo.AddList(&snapshot.Lists[i])
	}
	for _, pep := range snapshot.Peps {
		repo.AddPep(pep)
	}
	for _, party := range snapshot.Parties {
		repo.AddParty(party)
	}
	logger.Infow("list snapshot loaded",
		"path", path,
		"lists", len(snapshot.Lists),
		"peps", len(snapshot.Peps),
		"parties", len(snapshot.Parties),
	)
	return repo, nil
}

// AddList registers a list and its availability.
func (r *Repository) AddList(list *List) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[list.ID] = list
	r.available[list.ID] = list.Available
}

// AddPep registers a PEP record.
func (r *Repository) AddPep(pep Pep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peps[pep.ID] = pep
}

// AddParty registers a party for the provider view.
func (r *Repository) AddParty(party screening.Party) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[party.ID] = party
}

// GetParty implements the party-provider contract over snapshot data.
func (r *Repository) GetParty(ctx context.Context, partyID string) (*screening.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	party, ok := r.parties[partyID]
	if !ok {
		return nil, fmt.Errorf("unknown party %q", partyID)
	}
	return &party, nil
}

// SetListAvailable toggles a list's availability, simulating upstream
// outage or staleness.
func (r *Repository) SetListAvailable(listID string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[listID] = available
}

// FindByName returns entries of one list whose primary or alternate name
// clears the similarity threshold against the queried name.
func (r *Repository) FindByName(ctx context.Context, normalizedName, list string, threshold float64) ([]screening.ListCandidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.lists[list]
	if !ok {
		return nil, fmt.Errorf("unknown list %q", list)
	}

	var candidates []screening.ListCandidate
	for _, entry := range target.Entries {
		name, score := entry.Name, r.engine.Similarity(normalizedName, entry.Name)
		for _, alt := range entry.AlternateNames {
			if altScore := r.engine.Similarity(normalizedName, alt); altScore > score {
				name, score = alt, altScore
			}
		}
		if score >= threshold {
			candidates = append(candidates, screening.ListCandidate{
				EntryID: entry.ID,
				Name:    name,
				Details: entry.Details,
			})
		}
	}
	return candidates, nil
}

// IsListAvailable reports whether a list was loaded and is marked available.
func (r *Repository) IsListAvailable(ctx context.Context, list string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[list]
}

// FindPepByName returns PEP records whose name clears the threshold.
func (r *Repository) FindPepByName(ctx context.Context, name string, threshold float64) ([]screening.PepRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []screening.PepRecord
	for _, pep := range r.peps {
		if r.engine.Similarity(name, pep.Name) >= threshold {
			records = append(records, toRecord(pep))
		}
	}
	return records, nil
}

// GetRelatedPersons resolves the related-person references of a PEP.
func (r *Repository) GetRelatedPersons(ctx context.Context, pepID string) ([]screening.PepRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pep, ok := r.peps[pepID]
	if !ok {
		return nil, fmt.Errorf("unknown pep %q", pepID)
	}

	var records []screening.PepRecord
	for _, relatedID := range pep.RelatedIDs {
		related, ok := r.peps[relatedID]
		if !ok {
			r.logger.Warnw("dangling related-person reference",
				"pep_id", pepID,
				"related_id", relatedID,
			)
			continue
		}
		records = append(records, toRecord(related))
	}
	return records, nil
}

func toRecord(pep Pep) screening.PepRecord {
	return screening.PepRecord{
		ID:           pep.ID,
		Name:         pep.Name,
		Position:     pep.Position,
		Country:      pep.Country,
		Organization: pep.Organization,
		StartDate:    pep.StartDate,
		EndDate:      pep.EndDate,
		Level:        pep.Level,
		RelatedIDs:   pep.RelatedIDs,
		Relation:     screening.RelationType(pep.Relation),
		Details:      pep.Details,
	}
}
