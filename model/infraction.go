package model

// InfractionType identifies the moderation action a record describes.
type InfractionType string

const (
	InfractionBan        InfractionType = "ban"
	InfractionMute       InfractionType = "mute"
	InfractionKick       InfractionType = "kick"
	InfractionWarn       InfractionType = "warn"
	InfractionRoleAdd    InfractionType = "role_add"
	InfractionRoleRemove InfractionType = "role_remove"
	InfractionMassBan    InfractionType = "mass_ban"
	InfractionMassKick   InfractionType = "mass_kick"
	InfractionUnban      InfractionType = "unban"
	InfractionUnmute     InfractionType = "unmute"
)

// InfractionStatus is the resolution state of an infraction.
type InfractionStatus string

const (
	InfractionActive   InfractionStatus = "active"
	InfractionResolved InfractionStatus = "resolved"
)

// Infraction represents a single moderation record in the database.
// The database table is named 'infractions'.
type Infraction struct {
	ID              int64            `db:"infraction_id"` // Primary Key, Auto-increment
	GuildID         string           `db:"guild_id"`
	SubjectID       string           `db:"subject_id"`
	ModeratorID     string           `db:"moderator_id"`
	ActionType      InfractionType   `db:"action_type"`
	Reason          string           `db:"reason"`
	RoleID          string           `db:"role_id"`          // role_add / role_remove only
	DurationSeconds int64            `db:"duration_seconds"` // 0 means permanent
	Status          InfractionStatus `db:"status"`
	CreatedAt       int64            `db:"created_at"` // unix seconds
	UpdatedAt       int64            `db:"updated_at"`
}

// Temporary reports whether the infraction carries an automatic reversal.
func (i *Infraction) Temporary() bool {
	return i.DurationSeconds > 0
}

// ReversalTask maps a reversible action type to the registry task that
// undoes it. The second return is false for one-shot types.
func (t InfractionType) ReversalTask() (string, bool) {
	switch t {
	case InfractionBan, InfractionMassBan:
		return TaskUnban, true
	case InfractionMute:
		return TaskUnmute, true
	case InfractionRoleAdd:
		return TaskRemoveRole, true
	case InfractionRoleRemove:
		return TaskRestoreRole, true
	default:
		return "", false
	}
}

// Valid reports whether the type is one of the known action types.
func (t InfractionType) Valid() bool {
	switch t {
	case InfractionBan, InfractionMute, InfractionKick, InfractionWarn,
		InfractionRoleAdd, InfractionRoleRemove, InfractionMassBan,
		InfractionMassKick, InfractionUnban, InfractionUnmute:
		return true
	}
	return false
}
