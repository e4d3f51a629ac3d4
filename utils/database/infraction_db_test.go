package database_test

import (
	"path/filepath"
	"testing"
	"time"
	"warden/model"
	"warden/utils/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInfractionStore(t *testing.T) *database.InfractionStore {
	t.Helper()
	store, err := database.InitInfractionStore(openTestDB(t, filepath.Join(t.TempDir(), "infractions.db")))
	require.NoError(t, err)
	return store
}

func sampleInfraction(actionType model.InfractionType, status model.InfractionStatus) model.Infraction {
	now := time.Now().Unix()
	return model.Infraction{
		GuildID:         "1",
		SubjectID:       "42",
		ModeratorID:     "7",
		ActionType:      actionType,
		Reason:          "spam",
		DurationSeconds: 3600,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestInfractionAddAndGet(t *testing.T) {
	t.Parallel()
	store := newInfractionStore(t)

	id, err := store.Add(sampleInfraction(model.InfractionMute, model.InfractionActive))
	require.NoError(t, err)
	require.Positive(t, id)

	rec, err := store.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.InfractionMute, rec.ActionType)
	assert.Equal(t, model.InfractionActive, rec.Status)
	assert.Equal(t, "spam", rec.Reason)

	missing, err := store.GetByID(id + 100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInfractionResolveClaimsOnce(t *testing.T) {
	t.Parallel()
	store := newInfractionStore(t)

	id, err := store.Add(sampleInfraction(model.InfractionBan, model.InfractionActive))
	require.NoError(t, err)

	claimed, err := store.Resolve(id, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	// The second claim loses: the record is no longer active.
	claimed, err = store.Resolve(id, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)

	rec, err := store.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, model.InfractionResolved, rec.Status)
}

func TestInfractionResolveActiveByType(t *testing.T) {
	t.Parallel()
	store := newInfractionStore(t)

	_, err := store.Add(sampleInfraction(model.InfractionBan, model.InfractionActive))
	require.NoError(t, err)
	_, err = store.Add(sampleInfraction(model.InfractionMassBan, model.InfractionActive))
	require.NoError(t, err)
	_, err = store.Add(sampleInfraction(model.InfractionMute, model.InfractionActive))
	require.NoError(t, err)

	n, err := store.ResolveActive("1", "42",
		[]model.InfractionType{model.InfractionBan, model.InfractionMassBan}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The mute stays active.
	records, err := store.ListBySubject("1", "42")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		if rec.ActionType == model.InfractionMute {
			assert.Equal(t, model.InfractionActive, rec.Status)
		} else {
			assert.Equal(t, model.InfractionResolved, rec.Status)
		}
	}
}

func TestInfractionCountBySubject(t *testing.T) {
	t.Parallel()
	store := newInfractionStore(t)

	_, err := store.Add(sampleInfraction(model.InfractionWarn, model.InfractionResolved))
	require.NoError(t, err)
	_, err = store.Add(sampleInfraction(model.InfractionKick, model.InfractionResolved))
	require.NoError(t, err)

	count, err := store.CountBySubject("1", "42")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountBySubject("1", "999")
	require.NoError(t, err)
	assert.Zero(t, count)
}
