package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"warden/bot"
	"warden/model"
	"warden/moderation"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// HandleInfractionsCommand shows a member's infraction history.
func HandleInfractionsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		b.Logger().Error("failed to defer interaction", zap.Error(err))
		return
	}

	opts := optionMap(i)
	subjectID := ""
	if opt, ok := opts["user"]; ok {
		subjectID = opt.Value.(string)
	}

	records, err := b.Engine.History(i.GuildID, subjectID)
	if err != nil {
		b.Logger().Error("failed to load infraction history", zap.Error(err))
		_ = utils.SendFollowUpError(s, i.Interaction, "Failed to load the infraction history.")
		return
	}
	if len(records) == 0 {
		_ = utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("No infractions on record for <@%s>.", subjectID))
		return
	}

	embed := buildHistoryEmbed(subjectID, records)
	_ = utils.SendFollowUpEmbed(s, i.Interaction, embed)
}

// HandleResolveCommand manually resolves an infraction by ID, reversing
// its standing effect if any.
func HandleResolveCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		b.Logger().Error("failed to defer interaction", zap.Error(err))
		return
	}

	opts := optionMap(i)
	opt, ok := opts["id"]
	if !ok {
		_ = utils.SendFollowUpError(s, i.Interaction, "Missing infraction ID.")
		return
	}
	id := int64(opt.Value.(float64))

	rec, err := b.Engine.Get(id)
	if err != nil {
		b.Logger().Error("failed to load infraction", zap.Int64("id", id), zap.Error(err))
		_ = utils.SendFollowUpError(s, i.Interaction, "Failed to load the infraction.")
		return
	}
	if rec == nil {
		_ = utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("No infraction with ID %d.", id))
		return
	}
	if rec.GuildID != i.GuildID {
		_ = utils.SendFollowUpError(s, i.Interaction, "That infraction belongs to another guild.")
		return
	}

	if err := b.Engine.ManualResolve(rec); err != nil {
		if errors.Is(err, moderation.ErrReversalFailed) {
			_ = utils.SendFollowUp(s, i.Interaction, fmt.Sprintf(
				"⚠️ Infraction #%d is resolved, but the platform reversal failed: %v", id, err))
			return
		}
		_ = utils.SendFollowUpError(s, i.Interaction, describeFailure(err))
		return
	}
	_ = utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Infraction #%d resolved.", id))
}

func buildHistoryEmbed(subjectID string, records []model.Infraction) *discordgo.MessageEmbed {
	shown := records
	if len(shown) > 10 {
		shown = shown[:10]
	}

	var sb strings.Builder
	for _, rec := range shown {
		line := fmt.Sprintf("`#%d` **%s** — %s", rec.ID, rec.ActionType, rec.Status)
		if rec.Temporary() {
			line += fmt.Sprintf(" (%s)", utils.FormatDuration(time.Duration(rec.DurationSeconds)*time.Second))
		}
		if rec.Reason != "" {
			line += ": " + rec.Reason
		}
		sb.WriteString(line)
		sb.WriteString(fmt.Sprintf(" · <t:%d:R>\n", rec.CreatedAt))
	}

	footer := ""
	if len(records) > len(shown) {
		footer = fmt.Sprintf("Showing %d of %d records", len(shown), len(records))
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Infractions for member %s", subjectID),
		Description: sb.String(),
		Color:       3447003,
	}
	if footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
	return embed
}
