package moderation

import (
	"fmt"
	"warden/model"
	"warden/scheduler"

	"go.uber.org/zap"
)

// RegisterReversals wires the engine's reversal handlers into the action
// registry. Called once at startup, before the scheduler reconciles, so
// every persisted entry finds its handler.
func (e *Engine) RegisterReversals(reg *scheduler.Registry) {
	reg.Register(model.TaskUnban, e.handleUnban)
	reg.Register(model.TaskUnmute, e.handleUnmute)
	reg.Register(model.TaskRemoveRole, e.handleRemoveRole)
	reg.Register(model.TaskRestoreRole, e.handleRestoreRole)
}

// Handlers resolve their records even when the platform reversal fails:
// retrying forever would only mask an unrecoverable permission loss, and a
// temp ban must not stay active because its unban cannot go through.

func (e *Engine) handleUnban(guildID, subjectID string, _ []string) error {
	err := e.reverse(guildID, subjectID, model.InfractionBan, "")
	e.resolveRecords(guildID, subjectID, model.InfractionBan, model.InfractionMassBan)
	e.auditExpiry(guildID, subjectID, model.InfractionUnban, err)
	return err
}

func (e *Engine) handleUnmute(guildID, subjectID string, _ []string) error {
	err := e.reverse(guildID, subjectID, model.InfractionMute, "")
	e.resolveRecords(guildID, subjectID, model.InfractionMute)
	e.auditExpiry(guildID, subjectID, model.InfractionUnmute, err)
	return err
}

func (e *Engine) handleRemoveRole(guildID, subjectID string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing role argument")
	}
	roleID := args[0]
	err := e.reverse(guildID, subjectID, model.InfractionRoleAdd, roleID)
	e.resolveRecords(guildID, subjectID, model.InfractionRoleAdd)
	e.auditExpiry(guildID, subjectID, model.InfractionRoleRemove, err)
	return err
}

func (e *Engine) handleRestoreRole(guildID, subjectID string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing role argument")
	}
	roleID := args[0]
	err := e.reverse(guildID, subjectID, model.InfractionRoleRemove, roleID)
	e.resolveRecords(guildID, subjectID, model.InfractionRoleRemove)
	e.auditExpiry(guildID, subjectID, model.InfractionRoleAdd, err)
	return err
}

func (e *Engine) auditExpiry(guildID, subjectID string, action model.InfractionType, revErr error) {
	outcome := "expired, reversal applied"
	if revErr != nil {
		outcome = fmt.Sprintf("expired, reversal failed: %v", revErr)
		e.logger.Warn("automatic reversal failed, record resolved anyway",
			zap.String("guild_id", guildID),
			zap.String("subject_id", subjectID),
			zap.String("action", string(action)),
			zap.Error(revErr))
	}
	e.auditor.Record(AuditRecord{
		GuildID:   guildID,
		SubjectID: subjectID,
		Action:    action,
		Outcome:   outcome,
		At:        e.clock.Now(),
	})
}
