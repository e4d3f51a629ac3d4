package config

import (
	"fmt"
	"os"
	"strings"
	"warden/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultGuildConfigPath = "data/guild_config.yaml"

// Load reads configuration from environment variables and the guild
// config file.
func Load() (*model.Config, error) {
	// A missing .env file is fine; the real environment takes over.
	_ = godotenv.Load()

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("APP_ID environment variable not set")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/warden.db"
	}

	cfg := &model.Config{
		BotToken:         token,
		AppID:            appID,
		LogChannelID:     os.Getenv("LOG_CHANNEL_ID"),
		DatabasePath:     dbPath,
		DeveloperUserIDs: splitIDs(os.Getenv("DEVELOPER_USER_IDS")),
		ServerConfigs:    make(map[string]model.ServerConfig),
	}

	path := os.Getenv("GUILD_CONFIG_PATH")
	if path == "" {
		path = defaultGuildConfigPath
	}
	servers, err := loadServerConfigs(path)
	if err != nil {
		return nil, err
	}
	cfg.ServerConfigs = servers

	return cfg, nil
}

// loadServerConfigs reads per-guild settings from the YAML config file.
// A missing file is not an error; the bot starts with no guilds enabled.
func loadServerConfigs(path string) (map[string]model.ServerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return make(map[string]model.ServerConfig), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return make(map[string]model.ServerConfig), nil
		}
		return nil, fmt.Errorf("failed to read guild config %s: %w", path, err)
	}

	servers := make(map[string]model.ServerConfig)
	if err := v.UnmarshalKey("servers", &servers); err != nil {
		return nil, fmt.Errorf("failed to parse guild config %s: %w", path, err)
	}

	for guildID, serverCfg := range servers {
		if serverCfg.GuildID == "" {
			serverCfg.GuildID = guildID
			servers[guildID] = serverCfg
		}
	}

	return servers, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
