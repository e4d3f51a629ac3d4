package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"warden/model"

	"github.com/jmoiron/sqlx"
)

// InfractionStore persists moderation records. Status transitions go
// through Resolve/ResolveActive so updated_at stays consistent.
type InfractionStore struct {
	db *sqlx.DB
}

// InitInfractionStore ensures the infractions table exists.
func InitInfractionStore(db *sqlx.DB) (*InfractionStore, error) {
	schema := `
    CREATE TABLE IF NOT EXISTS infractions (
        infraction_id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        subject_id TEXT NOT NULL,
        moderator_id TEXT NOT NULL,
        action_type TEXT NOT NULL,
        reason TEXT NOT NULL DEFAULT '',
        role_id TEXT NOT NULL DEFAULT '',
        duration_seconds INTEGER NOT NULL DEFAULT 0,
        status TEXT NOT NULL DEFAULT 'active',
        created_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_infractions_subject
        ON infractions (guild_id, subject_id);`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create infractions table: %w", err)
	}
	return &InfractionStore{db: db}, nil
}

// Add inserts a new infraction record and returns its ID.
func (s *InfractionStore) Add(rec model.Infraction) (int64, error) {
	query := `INSERT INTO infractions (guild_id, subject_id, moderator_id, action_type, reason, role_id, duration_seconds, status, created_at, updated_at)
              VALUES (:guild_id, :subject_id, :moderator_id, :action_type, :reason, :role_id, :duration_seconds, :status, :created_at, :updated_at)`

	result, err := s.db.NamedExec(query, rec)
	if err != nil {
		return 0, fmt.Errorf("failed to insert infraction record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetByID retrieves a single infraction by its primary key.
func (s *InfractionStore) GetByID(id int64) (*model.Infraction, error) {
	var rec model.Infraction
	err := s.db.Get(&rec, "SELECT * FROM infractions WHERE infraction_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get infraction by id %d: %w", id, err)
	}
	return &rec, nil
}

// ListBySubject retrieves infractions for a user in a guild, newest first.
func (s *InfractionStore) ListBySubject(guildID, subjectID string) ([]model.Infraction, error) {
	var records []model.Infraction
	query := "SELECT * FROM infractions WHERE guild_id = ? AND subject_id = ? ORDER BY created_at DESC"
	if err := s.db.Select(&records, query, guildID, subjectID); err != nil {
		return nil, fmt.Errorf("failed to list infractions for user %s in guild %s: %w", subjectID, guildID, err)
	}
	return records, nil
}

// Resolve transitions a single infraction from active to resolved. Returns
// false when the record was already resolved (or does not exist), so a
// racing manual reversal and timer fire cannot both claim the transition.
func (s *InfractionStore) Resolve(id int64, now time.Time) (bool, error) {
	query := "UPDATE infractions SET status = ?, updated_at = ? WHERE infraction_id = ? AND status = ?"
	result, err := s.db.Exec(query, model.InfractionResolved, now.Unix(), id, model.InfractionActive)
	if err != nil {
		return false, fmt.Errorf("failed to resolve infraction %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for infraction %d: %w", id, err)
	}
	return rows > 0, nil
}

// ResolveActive resolves every active infraction of the given types for a
// subject and returns how many records transitioned.
func (s *InfractionStore) ResolveActive(guildID, subjectID string, types []model.InfractionType, now time.Time) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	query := fmt.Sprintf(
		"UPDATE infractions SET status = ?, updated_at = ? WHERE guild_id = ? AND subject_id = ? AND status = ? AND action_type IN (%s)",
		placeholders)

	args := []interface{}{model.InfractionResolved, now.Unix(), guildID, subjectID, model.InfractionActive}
	for _, t := range types {
		args = append(args, t)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve active infractions for user %s in guild %s: %w", subjectID, guildID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows, nil
}

// CountBySubject returns the number of infractions on record for a user.
func (s *InfractionStore) CountBySubject(guildID, subjectID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM infractions WHERE guild_id = ? AND subject_id = ?"
	if err := s.db.Get(&count, query, guildID, subjectID); err != nil {
		return 0, fmt.Errorf("failed to count infractions for user %s: %w", subjectID, err)
	}
	return count, nil
}
