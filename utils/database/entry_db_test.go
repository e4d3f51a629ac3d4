package database_test

import (
	"path/filepath"
	"testing"
	"time"
	"warden/model"
	"warden/utils/database"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEntry(task, guild, subject string, runAt time.Time) model.ScheduledEntry {
	return model.ScheduledEntry{
		ID:        uuid.NewString(),
		TaskName:  task,
		GuildID:   guild,
		SubjectID: subject,
		Args:      model.EncodeArgs([]string{"role-99"}),
		CreatedAt: runAt.Add(-time.Hour),
		RunAt:     runAt,
	}
}

func TestEntryRoundTripAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "entries.db")

	store, err := database.InitEntryStore(openTestDB(t, path))
	require.NoError(t, err)

	entry := sampleEntry("remove_role", "1", "42", time.Now().Add(time.Hour).Truncate(time.Second))
	require.NoError(t, store.Put(entry))

	// Reopen a fresh handle on the same file, as a restart would.
	reopened, err := database.InitEntryStore(openTestDB(t, path))
	require.NoError(t, err)

	entries, err := reopened.ListAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.TaskName, got.TaskName)
	assert.Equal(t, entry.GuildID, got.GuildID)
	assert.Equal(t, entry.SubjectID, got.SubjectID)
	assert.Equal(t, entry.Args, got.Args)
	assert.Equal(t, entry.RunAt.Unix(), got.RunAt.Unix())
	assert.Equal(t, entry.CreatedAt.Unix(), got.CreatedAt.Unix())

	args, err := got.ArgList()
	require.NoError(t, err)
	assert.Equal(t, []string{"role-99"}, args)
}

func TestEntryListAllOrderedByRunAt(t *testing.T) {
	t.Parallel()
	store, err := database.InitEntryStore(openTestDB(t, filepath.Join(t.TempDir(), "entries.db")))
	require.NoError(t, err)

	later := sampleEntry("unban", "1", "42", time.Now().Add(2*time.Hour))
	sooner := sampleEntry("unmute", "1", "43", time.Now().Add(time.Hour))
	require.NoError(t, store.Put(later))
	require.NoError(t, store.Put(sooner))

	entries, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, sooner.ID, entries[0].ID)
	assert.Equal(t, later.ID, entries[1].ID)
}

func TestEntryFindByKey(t *testing.T) {
	t.Parallel()
	store, err := database.InitEntryStore(openTestDB(t, filepath.Join(t.TempDir(), "entries.db")))
	require.NoError(t, err)

	entry := sampleEntry("unban", "1", "42", time.Now().Add(time.Hour))
	require.NoError(t, store.Put(entry))

	found, err := store.FindByKey("1", "42", "unban")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.ID, found.ID)

	missing, err := store.FindByKey("1", "42", "unmute")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEntryRemoveIdempotent(t *testing.T) {
	t.Parallel()
	store, err := database.InitEntryStore(openTestDB(t, filepath.Join(t.TempDir(), "entries.db")))
	require.NoError(t, err)

	entry := sampleEntry("unban", "1", "42", time.Now().Add(time.Hour))
	require.NoError(t, store.Put(entry))

	require.NoError(t, store.Remove(entry.ID))
	// Removing an already-removed entry is not an error.
	require.NoError(t, store.Remove(entry.ID))

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
