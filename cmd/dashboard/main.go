package main

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DaeVac/GridNinja/internal/api"
	"github.com/DaeVac/GridNinja/internal/config"
	"github.com/DaeVac/GridNinja/internal/feed"
	"github.com/DaeVac/GridNinja/internal/metrics"
	"github.com/DaeVac/GridNinja/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	feedMetrics := metrics.NewFeed(prometheus.DefaultRegisterer)

	f := feed.Activate(feed.Config{
		SocketURL:    config.SocketURL(),
		StreamURL:    config.StreamURL(),
		PollURL:      config.PollURL(),
		BufferSize:   config.BufferSize(),
		PollInterval: config.PollInterval(),
		Metrics:      feedMetrics,
		Logger:       log.With().Str("component", "feed").Logger(),
	})
	defer f.Close()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", config.MetricsAddr()).Msg("metrics listening")
		if err := http.ListenAndServe(config.MetricsAddr(), nil); err != nil {
			log.Error().Err(err).Msg("metrics server exit")
		}
	}()

	app := fiber.New()
	server.Register(app, f, api.New(config.APIURL()))

	log.Info().Str("addr", config.DashboardAddr()).Msg("dashboard listening")
	log.Fatal().Err(app.Listen(config.DashboardAddr())).Msg("server exit")
}
