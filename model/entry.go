package model

import (
	"encoding/json"
	"time"
)

// Task names known to the action registry. Registration happens once at
// startup; an entry carrying any other name is dropped at fire time.
const (
	TaskUnban       = "unban"
	TaskUnmute      = "unmute"
	TaskRemoveRole  = "remove_role"
	TaskRestoreRole = "restore_role"
)

// ScheduledEntry represents one future action to execute exactly once.
// Entries are immutable: rescheduling creates a new entry and removes the
// old one. The database table is named 'scheduled_entries'.
type ScheduledEntry struct {
	ID        string    `db:"id"` // UUID assigned at creation
	TaskName  string    `db:"task_name"`
	GuildID   string    `db:"guild_id"`
	SubjectID string    `db:"subject_id"`
	Args      string    `db:"args"` // JSON array of opaque handler parameters
	CreatedAt time.Time `db:"created_at"`
	RunAt     time.Time `db:"run_at"`
}

// Key returns the supersession key; at most one entry per key may be
// pending at any time.
func (e *ScheduledEntry) Key() string {
	return EntryKey(e.GuildID, e.SubjectID, e.TaskName)
}

// ArgList decodes the stored handler parameters.
func (e *ScheduledEntry) ArgList() ([]string, error) {
	if e.Args == "" {
		return nil, nil
	}
	var args []string
	if err := json.Unmarshal([]byte(e.Args), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// EncodeArgs serializes handler parameters for storage.
func EncodeArgs(args []string) string {
	if len(args) == 0 {
		return "[]"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// EntryKey builds the supersession key for a (guild, subject, task) triple.
func EntryKey(guildID, subjectID, taskName string) string {
	return guildID + ":" + subjectID + ":" + taskName
}
