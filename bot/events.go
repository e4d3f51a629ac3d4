package bot

import (
	"warden/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// registerEventHandlers wires the gateway events that reconcile
// out-of-band moderation changes with the bot's records.
func (b *Bot) registerEventHandlers() {
	b.Session.AddHandler(b.onGuildBanAdd)
	b.Session.AddHandler(b.onGuildBanRemove)
}

// onGuildBanAdd records bans issued outside the bot, attributed to the
// moderator found in the guild audit log.
func (b *Bot) onGuildBanAdd(s *discordgo.Session, ev *discordgo.GuildBanAdd) {
	go func() {
		actorID, err := b.resolveBanActor(ev.GuildID, ev.User.ID)
		if err != nil {
			b.logger.Warn("could not resolve ban actor",
				zap.String("guild_id", ev.GuildID),
				zap.String("user_id", ev.User.ID),
				zap.Error(err))
			return
		}
		if s.State.User != nil && actorID == s.State.User.ID {
			return // our own actuation, already recorded by the engine
		}
		if _, err := b.Engine.RecordExternal(ev.GuildID, ev.User.ID, actorID,
			model.InfractionBan, "banned outside the bot"); err != nil {
			b.logger.Error("failed to record external ban",
				zap.String("guild_id", ev.GuildID),
				zap.String("user_id", ev.User.ID),
				zap.Error(err))
		}
	}()
}

// onGuildBanRemove closes records and cancels the pending unban entry when
// someone lifts a ban through the Discord UI. ResolveExternal is
// idempotent, so the event caused by the bot's own unban is harmless.
func (b *Bot) onGuildBanRemove(_ *discordgo.Session, ev *discordgo.GuildBanRemove) {
	go b.Engine.ResolveExternal(ev.GuildID, ev.User.ID, model.InfractionBan)
}
