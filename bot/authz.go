package bot

import (
	"fmt"
	"warden/model"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
)

// Authorizer enforces the per-guild role requirements for moderation
// actions. Bans and mass actions need admin; everything else moderator.
type Authorizer struct {
	session *discordgo.Session
	config  func() *model.Config
}

func NewAuthorizer(s *discordgo.Session, config func() *model.Config) *Authorizer {
	return &Authorizer{session: s, config: config}
}

func (a *Authorizer) Authorize(guildID, moderatorID string, action model.InfractionType) error {
	cfg := a.config()
	serverCfg, ok := cfg.ServerConfigFor(guildID)
	if !ok || !serverCfg.Enable {
		return fmt.Errorf("guild %s is not configured for moderation", guildID)
	}

	member, err := a.session.GuildMember(guildID, moderatorID)
	if err != nil {
		return fmt.Errorf("could not resolve moderator %s: %w", moderatorID, err)
	}

	level := utils.CheckPermission(member.Roles, moderatorID,
		serverCfg.AdminRoleIDs, serverCfg.ModeratorRoleIDs,
		cfg.DeveloperUserIDs, serverCfg.SuperAdminRoleIDs)

	if !utils.PermissionAtLeast(level, requiredLevel(action)) {
		return fmt.Errorf("%s permission required for %s", requiredLevel(action), action)
	}
	return nil
}

func requiredLevel(action model.InfractionType) string {
	switch action {
	case model.InfractionBan, model.InfractionUnban,
		model.InfractionMassBan, model.InfractionMassKick:
		return utils.AdminPermission
	default:
		return utils.ModeratorPermission
	}
}
