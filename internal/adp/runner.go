package adp

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Runner drives the aggregator on a fixed interval. A failed pass is logged
// and retried on the next tick.
type Runner struct {
	aggregator *Aggregator
	interval   time.Duration
	clock      clockwork.Clock
}

func NewRunner(aggregator *Aggregator, interval time.Duration) *Runner {
	return NewRunnerWithClock(aggregator, interval, clockwork.NewRealClock())
}

func NewRunnerWithClock(aggregator *Aggregator, interval time.Duration, clock clockwork.Clock) *Runner {
	return &Runner{aggregator: aggregator, interval: interval, clock: clock}
}

// Run performs an immediate pass, then one per interval until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.aggregator.Run(ctx); err != nil {
		log.Error().Err(err).Msg("ADP refresh failed")
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := r.aggregator.Run(ctx); err != nil {
				log.Error().Err(err).Msg("ADP refresh failed")
			}
		}
	}
}
