package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/roahoki/rucakiller/internal/config"
	"github.com/roahoki/rucakiller/internal/db"
	"github.com/roahoki/rucakiller/internal/server"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	// Without DATABASE_URL the server runs on the in-memory store alone;
	// games are lost on restart.
	var conn *gorm.DB
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		opened, err := db.Open(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.ConfigurePool(opened, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
			cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
			log.Fatal().Err(err).Msg("database pool setup failed")
		}
		if err := db.Migrate(opened); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		conn = opened
	} else {
		log.Warn().Msg("DATABASE_URL not set, running without persistence")
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	log.Info().Str("addr", addr).Msg("rucakiller server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
