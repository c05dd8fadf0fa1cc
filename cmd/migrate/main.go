package main

import (
	"flag"
	"os"

	"github.com/jhoicas/farmacia-pos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-pos-api/pkg/config"
	"github.com/jhoicas/farmacia-pos-api/pkg/logger"
)

// Uso: migrate [-down N] [-version]
func main() {
	down := flag.Int("down", 0, "revertir N migraciones")
	version := flag.Bool("version", false, "mostrar la versión aplicada y salir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	mg, err := postgres.NewMigrator(cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("abrir migraciones")
	}
	defer mg.Close()

	switch {
	case *version:
	case *down > 0:
		if err := mg.Down(*down); err != nil {
			log.Error().Err(err).Int("steps", *down).Msg("revertir migraciones")
			os.Exit(1)
		}
	default:
		if err := mg.Up(); err != nil {
			log.Error().Err(err).Msg("aplicar migraciones")
			os.Exit(1)
		}
	}

	v, dirty, err := mg.Version()
	if err != nil {
		log.Error().Err(err).Msg("leer versión")
		os.Exit(1)
	}
	log.Info().Uint("version", v).Bool("dirty", dirty).Msg("estado de migraciones")
}
