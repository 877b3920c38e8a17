package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DaeVac/GridNinja/internal/config"
	"github.com/DaeVac/GridNinja/internal/database"
	"github.com/DaeVac/GridNinja/internal/feed"
	"github.com/DaeVac/GridNinja/internal/repository"
	"github.com/DaeVac/GridNinja/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Connect(config.DBDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	repos := repository.New(db)
	if err := repos.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	f := feed.Activate(feed.Config{
		SocketURL:    config.SocketURL(),
		StreamURL:    config.StreamURL(),
		PollURL:      config.PollURL(),
		BufferSize:   config.BufferSize(),
		PollInterval: config.PollInterval(),
		Logger:       log.With().Str("component", "feed").Logger(),
		OnPoint: func(p telemetry.Point) {
			if err := repos.InsertPoint(p); err != nil {
				log.Error().Err(err).Str("ts", p.TS).Msg("archive failed")
			}
		},
	})
	defer f.Close()

	log.Info().Msg("recorder running; Ctrl+C to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("recorder stopping")
}
