package researchers

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/verdantlab/floralog/internal/db"
	"github.com/verdantlab/floralog/internal/models"
)

// newTestDB creates an in-memory SQLite DB with the domain schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func strPtr(s string) *string { return &s }

func seedResearcher(t *testing.T, store *Store, name string, opts ...func(*models.Researcher)) *models.Researcher {
	t.Helper()
	record := &models.Researcher{
		ResearcherID: uuid.New().String(),
		FullName:     name,
		Contact:      models.JSONMap{},
	}
	for _, opt := range opts {
		opt(record)
	}
	require.NoError(t, store.Create(record))
	return record
}

func TestStore_CRUD(t *testing.T) {
	store := NewStore(newTestDB(t))

	created := seedResearcher(t, store, "Ada Vella", func(r *models.Researcher) {
		r.Affiliation = strPtr("University of Palermo")
		r.Contact = models.JSONMap{"email": "ada@unipa.it", "phone": "+39 091 000"}
	})

	got, err := store.Get(created.ResearcherID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada Vella", got.FullName)
	assert.Equal(t, "ada@unipa.it", got.Contact["email"])

	got.FullName = "Ada Vella-Rossi"
	require.NoError(t, store.Update(got))

	reloaded, err := store.Get(created.ResearcherID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Vella-Rossi", reloaded.FullName)

	n, err := store.Delete(created.ResearcherID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	gone, err := store.Get(created.ResearcherID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStore_UpdateMissingRow(t *testing.T) {
	store := NewStore(newTestDB(t))
	err := store.Update(&models.Researcher{ResearcherID: "missing", FullName: "X"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStore_ListOrdersNewestFirst(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	older := seedResearcher(t, store, "First")
	require.NoError(t, gdb.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := seedResearcher(t, store, "Second")

	records, err := store.List("")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newer.ResearcherID, records[0].ResearcherID)
	assert.Equal(t, older.ResearcherID, records[1].ResearcherID)
}

func TestStore_ListFreeTextSearch(t *testing.T) {
	store := NewStore(newTestDB(t))

	seedResearcher(t, store, "Maria Bonafede", func(r *models.Researcher) {
		r.Affiliation = strPtr("Orto Botanico")
	})
	seedResearcher(t, store, "John Smith", func(r *models.Researcher) {
		r.Contact = models.JSONMap{"email": "jsmith@kew.org"}
	})

	byName, err := store.List("bonafede")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Maria Bonafede", byName[0].FullName)

	byAffiliation, err := store.List("botanico")
	require.NoError(t, err)
	assert.Len(t, byAffiliation, 1)

	byEmail, err := store.List("kew.org")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "John Smith", byEmail[0].FullName)

	none, err := store.List("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_GetByAuthID(t *testing.T) {
	store := NewStore(newTestDB(t))
	created := seedResearcher(t, store, "Ada Vella", func(r *models.Researcher) {
		r.AuthID = strPtr("auth-123")
	})

	got, err := store.GetByAuthID("auth-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ResearcherID, got.ResearcherID)

	missing, err := store.GetByAuthID("auth-999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
