package handlers

import (
	"warden/bot"

	"github.com/bwmarrin/discordgo"
)

// Register wires the interaction dispatch onto the session.
func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"ban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"unban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"mute": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"unmute": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"kick": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"warn": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"temprole": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"removerole": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModerationCommand(s, i, b)
		},
		"massban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleMassBanCommand(s, i, b)
		},
		"infractions": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleInfractionsCommand(s, i, b)
		},
		"resolve": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleResolveCommand(s, i, b)
		},
		"botinfo": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
		"reload": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleReloadCommand(s, i, b)
		},
	}
}
