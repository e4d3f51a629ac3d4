package commands

import (
	"warden/model"

	"github.com/bwmarrin/discordgo"
)

func userOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "The target member.",
		Required:    required,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Why the action is taken.",
		Required:    false,
	}
}

func durationOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: desc,
		Required:    false,
	}
}

func roleOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "The role to apply.",
		Required:    true,
	}
}

// GenerateCommands builds the slash commands offered in a guild. Mass
// actions are only offered where admin roles are configured, since nobody
// could pass the authorization check otherwise.
func GenerateCommands(serverCfg *model.ServerConfig) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "ban",
			Description: "Ban a member, optionally for a limited time.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				durationOption("Ban length, e.g. 30m, 12h, 7d. Omit for permanent."),
				reasonOption(),
			},
		},
		{
			Name:        "unban",
			Description: "Lift a ban ahead of its expiry.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				reasonOption(),
			},
		},
		{
			Name:        "mute",
			Description: "Time out a member, optionally for a limited time.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				durationOption("Mute length, e.g. 10m, 2h, 1d."),
				reasonOption(),
			},
		},
		{
			Name:        "unmute",
			Description: "Remove a member's timeout ahead of its expiry.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				reasonOption(),
			},
		},
		{
			Name:        "kick",
			Description: "Kick a member from the guild.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				reasonOption(),
			},
		},
		{
			Name:        "warn",
			Description: "Record a warning for a member.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				reasonOption(),
			},
		},
		{
			Name:        "temprole",
			Description: "Grant a role that is automatically removed later.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				roleOption(),
				durationOption("How long the member keeps the role, e.g. 7d."),
				reasonOption(),
			},
		},
		{
			Name:        "removerole",
			Description: "Revoke a role, optionally restoring it later.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
				roleOption(),
				durationOption("How long the role stays revoked, e.g. 24h."),
				reasonOption(),
			},
		},
		{
			Name:        "infractions",
			Description: "Show a member's infraction history.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true),
			},
		},
		{
			Name:        "resolve",
			Description: "Manually resolve an infraction by its ID.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "The infraction ID.",
					Required:    true,
				},
			},
		},
		{
			Name:        "botinfo",
			Description: "Show bot and host status.",
		},
		{
			Name:        "reload",
			Description: "Reload the bot configuration.",
		},
	}

	if len(serverCfg.AdminRoleIDs) > 0 || len(serverCfg.SuperAdminRoleIDs) > 0 {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "massban",
			Description: "Ban several members by ID at once.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "users",
					Description: "Space-separated user IDs.",
					Required:    true,
				},
				reasonOption(),
			},
		})
	}
	return cmds
}
