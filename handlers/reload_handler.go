package handlers

import (
	"warden/bot"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// HandleReloadCommand re-reads the configuration and refreshes guild
// commands. Developer-only.
func HandleReloadCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	level := utils.CheckPermission(i.Member.Roles, i.Member.User.ID,
		nil, nil, b.GetConfig().DeveloperUserIDs, nil)
	if level != utils.DeveloperPermission {
		if err := utils.SendErrorResponse(s, i, "You do not have permission to use this command."); err != nil {
			b.Logger().Warn("failed to send permission error", zap.Error(err))
		}
		return
	}

	if err := b.ReloadConfig(); err != nil {
		if err := utils.SendErrorResponse(s, i, "Configuration reload failed: "+err.Error()); err != nil {
			b.Logger().Warn("failed to send reload error", zap.Error(err))
		}
		return
	}

	if err := utils.SendSimpleResponse(s, i, "✅ Configuration reloaded."); err != nil {
		b.Logger().Warn("failed to send reload confirmation", zap.Error(err))
	}
}
