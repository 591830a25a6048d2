package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/adp"
	"github.com/ErinHernandez/TopDog-sub003/internal/config"
	"github.com/ErinHernandez/TopDog-sub003/internal/postgres"
)

func main() {
	once := flag.Bool("once", false, "run a single aggregation pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	aggregator := adp.NewAggregator(adp.NewStore(pool), cfg.ADP.Window)

	if *once {
		if err := aggregator.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("aggregation pass failed")
		}
		return
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	runner := adp.NewRunner(aggregator, cfg.ADP.Interval)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("ADP runner exited")
	}
	log.Info().Msg("ADP runner shutdown complete")
}
