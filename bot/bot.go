package bot

import (
	"sync"
	"sync/atomic"
	"time"
	"warden/commands"
	"warden/config"
	"warden/model"
	"warden/moderation"
	"warden/scheduler"
	"warden/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Bot struct {
	Session         *discordgo.Session
	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	cmdMu              sync.Mutex
	registeredCommands []*discordgo.ApplicationCommand

	DB          *sqlx.DB
	Entries     *database.EntryStore
	Infractions *database.InfractionStore
	Registry    *scheduler.Registry
	Scheduler   *scheduler.Scheduler
	Engine      *moderation.Engine

	config  atomic.Value // *model.Config
	logger  *zap.Logger
	started time.Time
}

// New wires every component to its collaborators. The scheduler is not
// started here; Run starts it after the gateway connection is up so
// replayed reversals can reach the Discord API.
func New(cfg *model.Config, db *sqlx.DB, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentGuildModeration

	entries, err := database.InitEntryStore(db)
	if err != nil {
		return nil, err
	}
	infractions, err := database.InitInfractionStore(db)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		Session:     dg,
		DB:          db,
		Entries:     entries,
		Infractions: infractions,
		logger:      logger,
		started:     time.Now(),
	}
	b.config.Store(cfg)

	clock := scheduler.SystemClock{}
	b.Registry = scheduler.NewRegistry()
	b.Scheduler = scheduler.New(entries, b.Registry, clock, logger.Named("scheduler"))

	actuator := NewActuator(dg)
	authz := NewAuthorizer(dg, b.GetConfig)
	auditor := NewAuditor(dg, b.GetConfig, logger.Named("audit"))
	b.Engine = moderation.NewEngine(infractions, b.Scheduler, actuator, authz, auditor, clock, logger.Named("engine"))
	b.Engine.RegisterReversals(b.Registry)

	b.registerEventHandlers()
	return b, nil
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) Uptime() time.Duration {
	return time.Since(b.started)
}

func (b *Bot) Logger() *zap.Logger {
	return b.logger
}

func (b *Bot) Close() {
	b.logger.Info("shutting down")
	b.Scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		b.logger.Warn("error closing session", zap.Error(err))
	}
}

// RefreshCommands re-registers the slash commands for one guild. Safe to
// call concurrently; the registered-command list is guarded.
func (b *Bot) RefreshCommands(guildID string) {
	serverCfg, ok := b.GetConfig().ServerConfigFor(guildID)
	if !ok {
		b.logger.Warn("no server config for guild", zap.String("guild_id", guildID))
		return
	}

	cmds := commands.GenerateCommands(&serverCfg)
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.GetConfig().AppID, serverCfg.GuildID, cmds)
	if err != nil {
		b.logger.Error("cannot update commands for guild",
			zap.String("guild_id", serverCfg.GuildID), zap.Error(err))
		return
	}
	b.cmdMu.Lock()
	b.registeredCommands = append(b.registeredCommands, registered...)
	b.cmdMu.Unlock()
	b.logger.Info("commands registered",
		zap.String("guild_id", serverCfg.GuildID), zap.Int("count", len(registered)))
}

// resetRegisteredCommands clears the registered-command list before a full
// re-registration pass.
func (b *Bot) resetRegisteredCommands() {
	b.cmdMu.Lock()
	b.registeredCommands = nil
	b.cmdMu.Unlock()
}

// RegisteredCommandCount reports how many slash commands are currently
// registered across all guilds.
func (b *Bot) RegisteredCommandCount() int {
	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()
	return len(b.registeredCommands)
}

// UnregisterCommands removes every slash command from a guild.
func (b *Bot) UnregisterCommands(guildID string) {
	cmds, err := b.Session.ApplicationCommands(b.GetConfig().AppID, guildID)
	if err != nil {
		b.logger.Warn("could not list commands for guild",
			zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	for _, cmd := range cmds {
		if err := b.Session.ApplicationCommandDelete(b.GetConfig().AppID, guildID, cmd.ID); err != nil {
			b.logger.Warn("could not delete command",
				zap.String("guild_id", guildID), zap.String("command", cmd.Name), zap.Error(err))
		}
	}
}

// ReloadConfig re-reads the configuration and refreshes guild commands.
// Refreshes run sequentially on the calling goroutine.
func (b *Bot) ReloadConfig() error {
	b.logger.Info("reloading configuration")
	newCfg, err := config.Load()
	if err != nil {
		b.logger.Error("error reloading config", zap.Error(err))
		return err
	}

	b.config.Store(newCfg)

	b.resetRegisteredCommands()
	for _, serverCfg := range newCfg.ServerConfigs {
		if serverCfg.Enable {
			b.RefreshCommands(serverCfg.GuildID)
		}
	}
	return nil
}
