package main

import (
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/nimbuscrm/crm-backend/internal/shared/config"
	"github.com/nimbuscrm/crm-backend/internal/shared/utils"
)

func main() {
	var module string
	var command string

	flag.StringVar(&module, "module", "crm", "Module to migrate")
	flag.StringVar(&command, "cmd", "up", "Migration command (up, down, version, force)")
	flag.Parse()

	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)

	migrationPath := fmt.Sprintf("file://migrations/%s", module)
	log.Info().Str("module", module).Str("path", migrationPath).Msg("running migrations")

	m, err := migrate.New(migrationPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrate instance")
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatal().Err(err).Msg("migration up failed")
		}
		log.Info().Msg("migrations up completed")

	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatal().Err(err).Msg("migration down failed")
		}
		log.Info().Msg("migrations down completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			log.Fatal().Err(err).Msg("failed to get version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current version")

	case "force":
		if len(flag.Args()) < 1 {
			log.Fatal().Msg("version number required for force command")
		}
		var forceVersion int
		fmt.Sscanf(flag.Arg(0), "%d", &forceVersion)
		if err := m.Force(forceVersion); err != nil {
			log.Fatal().Err(err).Msg("force failed")
		}
		log.Info().Int("version", forceVersion).Msg("forced version")

	default:
		log.Fatal().Str("command", command).Msg("unknown command (use: up, down, version, force)")
	}
}
