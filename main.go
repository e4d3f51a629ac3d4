package main

import (
	"os"
	"path/filepath"
	"warden/bot"
	"warden/config"
	"warden/handlers"
	"warden/utils/database"

	"go.uber.org/zap"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	b, err := bot.New(cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}

	handlers.Register(b)

	b.Run()
	b.Close()
}

func newLogger() *zap.Logger {
	if os.Getenv("ENVIRONMENT") == "development" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
