package model

// ServerConfig holds per-guild moderation settings.
type ServerConfig struct {
	GuildID           string   `mapstructure:"guild_id"`
	Enable            bool     `mapstructure:"enable"`
	AdminRoleIDs      []string `mapstructure:"admin_role_ids"`
	ModeratorRoleIDs  []string `mapstructure:"moderator_role_ids"`
	SuperAdminRoleIDs []string `mapstructure:"super_admin_role_ids"`
	WhitelistRoleIDs  []string `mapstructure:"whitelist_role_ids"`
	LogChannelID      string   `mapstructure:"log_channel_id"`
}

// Config is the top-level bot configuration.
type Config struct {
	BotToken         string
	AppID            string
	LogChannelID     string
	DatabasePath     string
	DeveloperUserIDs []string
	ServerConfigs    map[string]ServerConfig
}

// ServerConfigFor returns the configuration for a guild, if present.
func (c *Config) ServerConfigFor(guildID string) (ServerConfig, bool) {
	cfg, ok := c.ServerConfigs[guildID]
	return cfg, ok
}
