package handlers

import (
	"errors"
	"fmt"
	"strings"
	"warden/bot"
	"warden/model"
	"warden/moderation"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var commandActionTypes = map[string]model.InfractionType{
	"ban":        model.InfractionBan,
	"unban":      model.InfractionUnban,
	"mute":       model.InfractionMute,
	"unmute":     model.InfractionUnmute,
	"kick":       model.InfractionKick,
	"warn":       model.InfractionWarn,
	"temprole":   model.InfractionRoleAdd,
	"removerole": model.InfractionRoleRemove,
}

// HandleModerationCommand services every single-subject moderation
// command. The heavy lifting lives in the engine; this layer only parses
// options and renders the outcome.
func HandleModerationCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		b.Logger().Error("failed to defer interaction", zap.Error(err))
		return
	}

	name := i.ApplicationCommandData().Name
	actionType, ok := commandActionTypes[name]
	if !ok {
		_ = utils.SendFollowUpError(s, i.Interaction, "Unknown command.")
		return
	}

	req, err := parseActionRequest(i, actionType)
	if err != nil {
		_ = utils.SendFollowUpError(s, i.Interaction, err.Error())
		return
	}

	rec, err := b.Engine.Create(req)
	if err != nil {
		_ = utils.SendFollowUpError(s, i.Interaction, describeFailure(err))
		return
	}

	msg := fmt.Sprintf("✅ %s applied to <@%s> (infraction #%d).", name, req.SubjectID, rec.ID)
	if req.Duration > 0 {
		msg = fmt.Sprintf("✅ %s applied to <@%s> for %s (infraction #%d).",
			name, req.SubjectID, utils.FormatDuration(req.Duration), rec.ID)
	}
	_ = utils.SendFollowUp(s, i.Interaction, msg)
}

// HandleMassBanCommand bans every listed ID in one batch.
func HandleMassBanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		b.Logger().Error("failed to defer interaction", zap.Error(err))
		return
	}

	opts := optionMap(i)
	subjects := strings.Fields(stringOption(opts, "users"))
	req := moderation.ActionRequest{
		GuildID:     i.GuildID,
		ModeratorID: i.Member.User.ID,
		Type:        model.InfractionMassBan,
		Reason:      stringOption(opts, "reason"),
	}

	records, err := b.Engine.CreateMass(req, subjects)
	if err != nil && len(records) == 0 {
		_ = utils.SendFollowUpError(s, i.Interaction, describeFailure(err))
		return
	}

	msg := fmt.Sprintf("✅ Banned %d of %d members.", len(records), len(subjects))
	if err != nil {
		msg += " Some actions failed; see the moderation log."
	}
	_ = utils.SendFollowUp(s, i.Interaction, msg)
}

func parseActionRequest(i *discordgo.InteractionCreate, actionType model.InfractionType) (moderation.ActionRequest, error) {
	opts := optionMap(i)

	req := moderation.ActionRequest{
		GuildID:     i.GuildID,
		ModeratorID: i.Member.User.ID,
		Type:        actionType,
		Reason:      stringOption(opts, "reason"),
	}

	if opt, ok := opts["user"]; ok {
		req.SubjectID = opt.Value.(string)
	}
	if opt, ok := opts["role"]; ok {
		req.RoleID = opt.Value.(string)
	}
	if durStr := stringOption(opts, "duration"); durStr != "" {
		dur, err := utils.ParseDuration(durStr)
		if err != nil {
			return req, fmt.Errorf("could not parse duration %q: %v", durStr, err)
		}
		if dur <= 0 {
			return req, fmt.Errorf("duration must be positive")
		}
		req.Duration = dur
	}
	return req, nil
}

// describeFailure translates the engine's error taxonomy into something a
// moderator can act on.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, moderation.ErrNotPermitted):
		return "You do not have permission to perform this action."
	case errors.Is(err, moderation.ErrValidation):
		return fmt.Sprintf("Invalid request: %v", err)
	case errors.Is(err, moderation.ErrActuation):
		return fmt.Sprintf("Discord refused the action: %v", err)
	case errors.Is(err, moderation.ErrScheduleFailed):
		return "The action was applied, but the automatic reversal could NOT be scheduled. Reverse it manually when due."
	case errors.Is(err, moderation.ErrReversalFailed):
		return fmt.Sprintf("The record was resolved, but the platform reversal failed: %v", err)
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := m[name]; ok {
		if s, ok := opt.Value.(string); ok {
			return s
		}
	}
	return ""
}
