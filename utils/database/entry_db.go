package database

import (
	"database/sql"
	"errors"
	"fmt"
	"warden/model"

	"github.com/jmoiron/sqlx"
)

// EntryStore persists scheduled entries. An entry exists in the store
// exactly while it has not yet fired; the scheduler removes it after
// execution or cancellation.
type EntryStore struct {
	db *sqlx.DB
}

// InitEntryStore ensures the scheduled_entries table exists.
func InitEntryStore(db *sqlx.DB) (*EntryStore, error) {
	schema := `
    CREATE TABLE IF NOT EXISTS scheduled_entries (
        id TEXT PRIMARY KEY,
        task_name TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        subject_id TEXT NOT NULL,
        args TEXT NOT NULL DEFAULT '[]',
        created_at DATETIME NOT NULL,
        run_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_scheduled_entries_key
        ON scheduled_entries (guild_id, subject_id, task_name);`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create scheduled_entries table: %w", err)
	}
	return &EntryStore{db: db}, nil
}

// Put durably persists an entry. The caller must not arm a timer until Put
// has returned nil.
func (s *EntryStore) Put(entry model.ScheduledEntry) error {
	query := `INSERT INTO scheduled_entries (id, task_name, guild_id, subject_id, args, created_at, run_at)
              VALUES (:id, :task_name, :guild_id, :subject_id, :args, :created_at, :run_at)`

	if _, err := s.db.NamedExec(query, entry); err != nil {
		return fmt.Errorf("failed to insert scheduled entry: %w", err)
	}
	return nil
}

// Remove deletes an entry by ID. Removing an entry that is already gone is
// not an error; a fired entry may be removed again after a crash replay.
func (s *EntryStore) Remove(id string) error {
	if _, err := s.db.Exec("DELETE FROM scheduled_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete scheduled entry %s: %w", id, err)
	}
	return nil
}

// ListAll returns every persisted entry ordered by run time. Used once at
// startup to rebuild in-memory timers.
func (s *EntryStore) ListAll() ([]model.ScheduledEntry, error) {
	var entries []model.ScheduledEntry
	err := s.db.Select(&entries, "SELECT * FROM scheduled_entries ORDER BY run_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled entries: %w", err)
	}
	return entries, nil
}

// FindByKey returns the pending entry for a (guild, subject, task) triple,
// or nil when none exists.
func (s *EntryStore) FindByKey(guildID, subjectID, taskName string) (*model.ScheduledEntry, error) {
	var entry model.ScheduledEntry
	query := "SELECT * FROM scheduled_entries WHERE guild_id = ? AND subject_id = ? AND task_name = ?"
	err := s.db.Get(&entry, query, guildID, subjectID, taskName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find scheduled entry for %s/%s/%s: %w", guildID, subjectID, taskName, err)
	}
	return &entry, nil
}
