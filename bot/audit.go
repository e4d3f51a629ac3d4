package bot

import (
	"time"
	"warden/model"
	"warden/moderation"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Auditor posts moderation records to the guild's log channel and mirrors
// them to the process log. Channel delivery is best effort.
type Auditor struct {
	session *discordgo.Session
	config  func() *model.Config
	logger  *zap.Logger
}

func NewAuditor(s *discordgo.Session, config func() *model.Config, logger *zap.Logger) *Auditor {
	return &Auditor{session: s, config: config, logger: logger}
}

func (a *Auditor) Record(rec moderation.AuditRecord) {
	a.logger.Info("moderation action",
		zap.String("guild_id", rec.GuildID),
		zap.String("subject_id", rec.SubjectID),
		zap.String("moderator_id", rec.ModeratorID),
		zap.String("action", string(rec.Action)),
		zap.String("outcome", rec.Outcome),
		zap.Duration("duration", rec.Duration))

	channelID := a.logChannel(rec.GuildID)
	if channelID == "" {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Action", Value: string(rec.Action), Inline: true},
		{Name: "Subject", Value: "<@" + rec.SubjectID + ">", Inline: true},
	}
	if rec.ModeratorID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Moderator", Value: "<@" + rec.ModeratorID + ">", Inline: true,
		})
	}
	if rec.Reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Reason", Value: rec.Reason})
	}
	if rec.Duration > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Duration", Value: utils.FormatDuration(rec.Duration), Inline: true,
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Outcome", Value: rec.Outcome})

	embed := &discordgo.MessageEmbed{
		Title:     "Moderation Log",
		Color:     colorFor(rec.Action),
		Fields:    fields,
		Timestamp: rec.At.Format(time.RFC3339),
	}

	if _, err := a.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		a.logger.Warn("failed to send audit embed",
			zap.String("channel_id", channelID), zap.Error(err))
	}
}

// logChannel prefers the guild's own log channel over the global one.
func (a *Auditor) logChannel(guildID string) string {
	cfg := a.config()
	if serverCfg, ok := cfg.ServerConfigFor(guildID); ok && serverCfg.LogChannelID != "" {
		return serverCfg.LogChannelID
	}
	return cfg.LogChannelID
}

func colorFor(action model.InfractionType) int {
	switch action {
	case model.InfractionBan, model.InfractionMassBan:
		return 15158332 // Red
	case model.InfractionMute, model.InfractionKick, model.InfractionMassKick:
		return 15105570 // Orange
	case model.InfractionWarn:
		return 16776960 // Yellow
	case model.InfractionUnban, model.InfractionUnmute:
		return 3066993 // Green
	default:
		return 3447003 // Blue
	}
}
