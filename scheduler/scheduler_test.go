package scheduler_test

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	"warden/model"
	"warden/scheduler"
	"warden/utils/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openStore(t *testing.T, path string) *database.EntryStore {
	t.Helper()
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := database.InitEntryStore(db)
	require.NoError(t, err)
	return store
}

func setupTest(t *testing.T) (*scheduler.Scheduler, *scheduler.Registry, *database.EntryStore) {
	t.Helper()
	store := openStore(t, filepath.Join(t.TempDir(), "entries.db"))
	registry := scheduler.NewRegistry()
	sched := scheduler.New(store, registry, scheduler.SystemClock{}, zaptest.NewLogger(t))
	t.Cleanup(sched.Stop)
	return sched, registry, store
}

func testEntry(task, guild, subject string, runAt time.Time) model.ScheduledEntry {
	created := time.Now()
	if runAt.Before(created) {
		created = runAt.Add(-time.Minute)
	}
	return model.ScheduledEntry{
		ID:        uuid.NewString(),
		TaskName:  task,
		GuildID:   guild,
		SubjectID: subject,
		Args:      model.EncodeArgs(nil),
		CreatedAt: created,
		RunAt:     runAt,
	}
}

func TestScheduleFiresOnce(t *testing.T) {
	t.Parallel()
	sched, registry, store := setupTest(t)

	var fired atomic.Int32
	registry.Register("expire", func(guildID, subjectID string, args []string) error {
		fired.Add(1)
		return nil
	})

	var completions atomic.Int32
	entry := testEntry("expire", "1", "42", time.Now().Add(50*time.Millisecond))
	err := sched.Schedule(entry, func(_ model.ScheduledEntry, err error) {
		assert.NoError(t, err)
		completions.Add(1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fired.Load() == 1 && completions.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// One-shot: the entry must be gone from the store.
	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// And it never fires again.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestPastDueFiresOnStart(t *testing.T) {
	t.Parallel()
	sched, registry, store := setupTest(t)

	var fired atomic.Int32
	registry.Register("expire", func(guildID, subjectID string, args []string) error {
		fired.Add(1)
		return nil
	})

	// Simulates an entry whose deadline passed while the process was down.
	entry := testEntry("expire", "1", "42", time.Now().Add(-time.Hour))
	require.NoError(t, store.Put(entry))

	require.NoError(t, sched.Start())

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSupersession(t *testing.T) {
	t.Parallel()
	sched, registry, store := setupTest(t)
	registry.Register("expire", func(string, string, []string) error { return nil })

	first := testEntry("expire", "1", "42", time.Now().Add(time.Hour))
	second := testEntry("expire", "1", "42", time.Now().Add(2*time.Hour))

	require.NoError(t, sched.Schedule(first, nil))
	require.NoError(t, sched.Schedule(second, nil))

	entries, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, second.RunAt.Unix(), entries[0].RunAt.Unix())
	assert.Equal(t, 1, sched.PendingCount())
}

func TestSupersessionAcrossKeys(t *testing.T) {
	t.Parallel()
	sched, registry, store := setupTest(t)
	registry.Register("expire", func(string, string, []string) error { return nil })

	// Different subjects do not supersede each other.
	require.NoError(t, sched.Schedule(testEntry("expire", "1", "42", time.Now().Add(time.Hour)), nil))
	require.NoError(t, sched.Schedule(testEntry("expire", "1", "43", time.Now().Add(time.Hour)), nil))

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCancelIdempotent(t *testing.T) {
	t.Parallel()
	sched, registry, store := setupTest(t)
	registry.Register("expire", func(string, string, []string) error { return nil })

	entry := testEntry("expire", "1", "42", time.Now().Add(time.Hour))
	require.NoError(t, sched.Schedule(entry, nil))

	found, err := sched.Cancel("1", "42", "expire")
	require.NoError(t, err)
	assert.True(t, found)

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Second cancel reports not found, without error.
	found, err = sched.Cancel("1", "42", "expire")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCancelledEntryNeverFires(t *testing.T) {
	t.Parallel()
	sched, registry, _ := setupTest(t)

	var fired atomic.Int32
	registry.Register("expire", func(string, string, []string) error {
		fired.Add(1)
		return nil
	})

	entry := testEntry("expire", "1", "42", time.Now().Add(80*time.Millisecond))
	require.NoError(t, sched.Schedule(entry, nil))

	found, err := sched.Cancel("1", "42", "expire")
	require.NoError(t, err)
	require.True(t, found)

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestUnknownTaskRemovedWithoutRetry(t *testing.T) {
	t.Parallel()
	sched, _, store := setupTest(t)

	entry := testEntry("no_such_task", "1", "42", time.Now().Add(-time.Hour))
	require.NoError(t, store.Put(entry))

	require.NoError(t, sched.Start())

	// The entry is dropped so the next restart does not reattempt it.
	require.Eventually(t, func() bool {
		entries, err := store.ListAll()
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompletionReceivesHandlerError(t *testing.T) {
	t.Parallel()
	sched, registry, _ := setupTest(t)

	handlerErr := errors.New("subject gone")
	registry.Register("expire", func(string, string, []string) error { return handlerErr })

	got := make(chan error, 1)
	entry := testEntry("expire", "1", "42", time.Now().Add(20*time.Millisecond))
	require.NoError(t, sched.Schedule(entry, func(_ model.ScheduledEntry, err error) {
		got <- err
	}))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, handlerErr)
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never invoked")
	}
}

func TestRejectsRunBeforeCreation(t *testing.T) {
	t.Parallel()
	sched, registry, _ := setupTest(t)
	registry.Register("expire", func(string, string, []string) error { return nil })

	entry := testEntry("expire", "1", "42", time.Now().Add(time.Hour))
	entry.CreatedAt = entry.RunAt.Add(time.Minute)
	assert.Error(t, sched.Schedule(entry, nil))
}
