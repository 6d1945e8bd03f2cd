package listdata_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
	"github.com/azaharizaman/atomy-sub011/internal/screening/listdata"
)

func testRepo() *listdata.Repository {
	repo := listdata.New(zap.NewNop().Sugar())
	repo.AddList(&listdata.List{
		ID:        "ofac_sdn",
		Name:      "OFAC SDN",
		Available: true,
		Entries: []listdata.Entry{
			{ID: "sdn-001", Name: "Jon Smith", AlternateNames: []string{"Johnny Smith"}},
			{ID: "sdn-002", Name: "Maria Garcia"},
		},
	})
	repo.AddPep(listdata.Pep{
		ID: "pep-1", Name: "John Smith", Position: "Minister of Finance",
		RelatedIDs: []string{"pep-2", "pep-missing"},
	})
	repo.AddPep(listdata.Pep{ID: "pep-2", Name: "Jane Smith", Relation: "family"})
	return repo
}

func TestRepositoryFindByName(t *testing.T) {
	repo := testRepo()
	ctx := context.Background()

	candidates, err := repo.FindByName(ctx, "john smith", "ofac_sdn", 0.85)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "sdn-001", candidates[0].EntryID)

	_, err = repo.FindByName(ctx, "john smith", "unknown_list", 0.85)
	assert.Error(t, err)
}

func TestRepositoryFindByNameUsesBestAlternate(t *testing.T) {
	repo := testRepo()

	candidates, err := repo.FindByName(context.Background(), "johnny smith", "ofac_sdn", 0.95)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Johnny Smith", candidates[0].Name)
}

func TestRepositoryAvailability(t *testing.T) {
	repo := testRepo()
	ctx := context.Background()

	assert.True(t, repo.IsListAvailable(ctx, "ofac_sdn"))
	assert.False(t, repo.IsListAvailable(ctx, "never_loaded"))

	repo.SetListAvailable("ofac_sdn", false)
	assert.False(t, repo.IsListAvailable(ctx, "ofac_sdn"))
}

func TestRepositoryFindPepByName(t *testing.T) {
	repo := testRepo()

	records, err := repo.FindPepByName(context.Background(), "john smith", 0.85)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pep-1", records[0].ID)
	assert.Equal(t, "Minister of Finance", records[0].Position)
}

func TestRepositoryGetRelatedPersons(t *testing.T) {
	repo := testRepo()
	ctx := context.Background()

	// Dangling references are skipped, not fatal.
	related, err := repo.GetRelatedPersons(ctx, "pep-1")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "pep-2", related[0].ID)
	assert.Equal(t, screening.RelationFamily, related[0].Relation)

	_, err = repo.GetRelatedPersons(ctx, "pep-unknown")
	assert.Error(t, err)
}

func TestRepositoryGetParty(t *testing.T) {
	repo := testRepo()
	repo.AddParty(screening.Party{ID: "p1", Name: "John Smith", Type: screening.PartyTypeIndividual})

	party, err := repo.GetParty(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", party.Name)

	_, err = repo.GetParty(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	snapshot := `{
  "lists": [
    {
      "id": "ofac_sdn",
      "name": "OFAC SDN",
      "available": true,
      "entries": [{"id": "sdn-001", "name": "Jon Smith"}]
    }
  ],
  "peps": [{"id": "pep-1", "name": "John Smith", "position": "Senator"}],
  "parties": [{"id": "p1", "name": "John Smith", "type": "INDIVIDUAL"}]
}`
	path := filepath.Join(t.TempDir(), "lists.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o600))

	repo, err := listdata.Load(path, zap.NewNop().Sugar())
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, repo.IsListAvailable(ctx, "ofac_sdn"))

	candidates, err := repo.FindByName(ctx, "jon smith", "ofac_sdn", 0.85)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	party, err := repo.GetParty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, screening.PartyTypeIndividual, party.Type)
}

func TestLoadSnapshotErrors(t *testing.T) {
	_, err := listdata.Load("/nonexistent/lists.json", zap.NewNop().Sugar())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = listdata.Load(path, zap.NewNop().Sugar())
	assert.Error(t, err)
}
