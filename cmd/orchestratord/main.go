package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/adp"
	"github.com/ErinHernandez/TopDog-sub003/internal/config"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/orchestrator"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/outbox"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/pick"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/room"
	"github.com/ErinHernandez/TopDog-sub003/internal/player"
	"github.com/ErinHernandez/TopDog-sub003/internal/postgres"
)

func main() {
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

	outboxDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open outbox database")
	}
	defer outboxDB.Close()

	roomApp := room.NewApp(room.NewRepository(pool), outbox.NewRepository(outboxDB))
	pickApp := pick.NewApp(pick.NewRepository(pool))
	strategy := orchestrator.NewQueueADPStrategy(
		roomApp,
		pickApp,
		adp.NewStore(pool),
		player.NewRepository(pool),
	)

	orch := orchestrator.New(roomApp, pickApp, strategy, orchestrator.Config{
		BatchSize: cfg.Orchestrator.BatchSize,
		Workers:   cfg.Orchestrator.Workers,
		IdlePoll:  cfg.Orchestrator.IdlePoll,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("supervisor exited")
	}
	log.Info().Msg("autopick supervisor shutdown complete")
}
