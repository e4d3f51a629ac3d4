package handlers

import (
	"fmt"
	"runtime"
	"warden/bot"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// SystemInfoHandler reports bot and host status.
func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	cpuUsage := 0.0
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}
	platform := "unknown"
	if hostInfo != nil {
		platform = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
	}
	memUsage := "unknown"
	if vm != nil {
		memUsage = fmt.Sprintf("%.1f%% of %d MB", vm.UsedPercent, vm.Total/1024/1024)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Bot Status",
		Color: 3447003,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: utils.FormatDuration(b.Uptime()), Inline: true},
			{Name: "Guilds", Value: fmt.Sprintf("%d", len(s.State.Guilds)), Inline: true},
			{Name: "Pending reversals", Value: fmt.Sprintf("%d", b.Scheduler.PendingCount()), Inline: true},
			{Name: "Commands", Value: fmt.Sprintf("%d", b.RegisteredCommandCount()), Inline: true},
			{Name: "CPU", Value: fmt.Sprintf("%.1f%% across %d cores", cpuUsage, cpuCount), Inline: true},
			{Name: "Memory", Value: memUsage, Inline: true},
			{Name: "Host", Value: platform, Inline: true},
			{Name: "Go", Value: runtime.Version(), Inline: true},
		},
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger().Warn("failed to send system info", zap.Error(err))
	}
}
