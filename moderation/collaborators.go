package moderation

import (
	"time"
	"warden/model"
)

// Actuator performs real platform-level effects. Failures such as missing
// permissions or the subject having left the guild are expected,
// non-fatal outcomes.
type Actuator interface {
	Ban(guildID, userID, reason string) error
	Unban(guildID, userID string) error
	Mute(guildID, userID string, until time.Time) error
	Unmute(guildID, userID string) error
	Kick(guildID, userID, reason string) error
	GrantRole(guildID, userID, roleID string) error
	RevokeRole(guildID, userID, roleID string) error

	// State probes, consulted before every reversal so handlers stay
	// idempotent when the platform state changed out-of-band.
	IsBanned(guildID, userID string) (bool, error)
	IsMuted(guildID, userID string) (bool, error)
	HasRole(guildID, userID, roleID string) (bool, error)
}

// Authorizer decides whether a moderator may perform an action. Called
// once, before any actuation.
type Authorizer interface {
	Authorize(guildID, moderatorID string, action model.InfractionType) error
}

// AuditRecord is the structured record emitted for every moderation
// action and every reversal outcome.
type AuditRecord struct {
	GuildID     string
	SubjectID   string
	ModeratorID string
	Action      model.InfractionType
	Reason      string
	Duration    time.Duration
	Outcome     string
	At          time.Time
}

// Auditor receives audit records. Fire-and-forget from the engine's
// perspective.
type Auditor interface {
	Record(rec AuditRecord)
}
