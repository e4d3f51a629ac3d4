package bot

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func (b *Bot) Run() {
	if err := b.Session.Open(); err != nil {
		b.logger.Fatal("error opening connection", zap.Error(err))
	}

	// Drop stale commands from every guild the bot is in, including guilds
	// that were disabled since the last run, before re-registering.
	b.logger.Info("unregistering commands from all guilds")
	guilds, err := b.Session.UserGuilds(100, "", "", false)
	if err != nil {
		b.logger.Warn("could not fetch guilds", zap.Error(err))
	} else {
		for _, guild := range guilds {
			b.UnregisterCommands(guild.ID)
		}
	}

	b.logger.Info("registering commands for enabled guilds")
	b.resetRegisteredCommands()
	for _, serverCfg := range b.GetConfig().ServerConfigs {
		if serverCfg.Enable {
			b.RefreshCommands(serverCfg.GuildID)
		}
	}

	// Reconcile persisted entries only after the gateway is up: a reversal
	// that was due while the process was down fires immediately and needs
	// a working session.
	if err := b.Scheduler.Start(); err != nil {
		b.logger.Fatal("scheduler reconciliation failed", zap.Error(err))
	}

	b.logger.Info("bot is now running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
