package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DaeVac/GridNinja/internal/config"
	"github.com/DaeVac/GridNinja/internal/sim"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	twin := sim.NewTwin(0)
	srv := sim.New(twin, config.SimTick(), log.With().Str("component", "sim").Logger())

	if broker := config.MQTTBroker(); broker != "" {
		opts := mqtt.NewClientOptions().AddBroker(broker)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Msg("mqtt connect")
		}
		defer client.Disconnect(250)

		topic := config.MQTTTopic()
		srv.Publish = func(payload []byte) {
			client.Publish(topic, 0, false, payload)
		}
		log.Info().Str("broker", broker).Str("topic", topic).Msg("mqtt fan-out enabled")
	}

	go srv.Run()
	defer srv.Stop()

	httpSrv := &http.Server{Addr: config.SimAddr(), Handler: srv}
	go func() {
		log.Info().Str("addr", config.SimAddr()).Msg("simulator listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("simulator stopping")
	httpSrv.Close()
}
