package main

import (
	"popclips/pkg/config"
	"popclips/pkg/db"
	"popclips/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.AppEnv)
	defer func() { _ = log.Sync() }()

	path := cfg.MigrationsPath
	if path == "" {
		path = "file://migrations"
	}

	if err := db.Migrate(path, cfg); err != nil {
		log.Fatalw("migrations failed", "path", path, "err", err)
	}
	log.Infow("migrations applied", "path", path)
}
