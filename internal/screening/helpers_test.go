package screening_test

import (
	"context"
	"fmt"
	"time"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

// fakeRepo is an in-test list repository with scriptable data and failures.
type fakeRepo struct {
	entries     map[string][]screening.ListCandidate // keyed by list id
	unavailable map[string]bool
	listErr     map[string]error

	peps       []screening.PepRecord
	pepErr     error
	related    map[string][]screening.PepRecord
	relatedErr map[string]error

	findCalls    int
	pepFindCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		entries:     make(map[string][]screening.ListCandidate),
		unavailable: make(map[string]bool),
		listErr:     make(map[string]error),
		related:     make(map[string][]screening.PepRecord),
		relatedErr:  make(map[string]error),
	}
}

func (f *fakeRepo) FindByName(ctx context.Context, normalizedName, list string, threshold float64) ([]screening.ListCandidate, error) {
	f.findCalls++
	if err := f.listErr[list]; err != nil {
		return nil, err
	}
	return f.entries[list], nil
}

func (f *fakeRepo) IsListAvailable(ctx context.Context, list string) bool {
	return !f.unavailable[list]
}

func (f *fakeRepo) FindPepByName(ctx context.Context, name string, threshold float64) ([]screening.PepRecord, error) {
	f.pepFindCalls++
	if f.pepErr != nil {
		return nil, f.pepErr
	}
	return f.peps, nil
}

func (f *fakeRepo) GetRelatedPersons(ctx context.Context, pepID string) ([]screening.PepRecord, error) {
	if err := f.relatedErr[pepID]; err != nil {
		return nil, err
	}
	return f.related[pepID], nil
}

// fakeParties is an in-test party provider.
type fakeParties struct {
	parties map[string]*screening.Party
}

func newFakeParties(parties ...*screening.Party) *fakeParties {
	f := &fakeParties{parties: make(map[string]*screening.Party)}
	for _, party := range parties {
		f.parties[party.ID] = party
	}
	return f
}

func (f *fakeParties) GetParty(ctx context.Context, partyID string) (*screening.Party, error) {
	party, ok := f.parties[partyID]
	if !ok {
		return nil, fmt.Errorf("unknown party %q", partyID)
	}
	return party, nil
}

func individual(id, name string) *screening.Party {
	return &screening.Party{ID: id, Name: name, Type: screening.PartyTypeIndividual}
}

func daysAgo(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

func monthsAgoWire(months int) string {
	return time.Now().AddDate(0, -months, 0).Format("2006-01-02")
}
