package adp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// GenerationStore is the slice of Store the aggregator needs.
type GenerationStore interface {
	ProjectionsSince(ctx context.Context, speedClass models.SpeedClass, since time.Time) ([]models.PickProjection, error)
	ReplaceGeneration(ctx context.Context, speedClass models.SpeedClass, entries []models.ADPEntry) error
}

// Aggregator recomputes average draft position per speed class from the pick
// projection window and publishes each result as a fresh generation.
type Aggregator struct {
	store  GenerationStore
	window time.Duration
	clock  clockwork.Clock
}

func NewAggregator(store GenerationStore, window time.Duration) *Aggregator {
	return NewAggregatorWithClock(store, window, clockwork.NewRealClock())
}

func NewAggregatorWithClock(store GenerationStore, window time.Duration, clock clockwork.Clock) *Aggregator {
	return &Aggregator{store: store, window: window, clock: clock}
}

// Run recomputes and replaces one generation per speed class. A speed class
// with no projections in the window still gets a (empty) generation so stale
// rankings never outlive the window.
func (a *Aggregator) Run(ctx context.Context) error {
	now := a.clock.Now()
	since := now.Add(-a.window)

	for _, sc := range []models.SpeedClass{models.SpeedClassFast, models.SpeedClassSlow} {
		projections, err := a.store.ProjectionsSince(ctx, sc, since)
		if err != nil {
			return fmt.Errorf("failed to load projections for %s: %w", sc, err)
		}

		entries := Aggregate(projections, sc, now)
		if err := a.store.ReplaceGeneration(ctx, sc, entries); err != nil {
			return fmt.Errorf("failed to replace generation for %s: %w", sc, err)
		}

		log.Info().
			Str("speed_class", string(sc)).
			Int("samples", len(projections)).
			Int("players", len(entries)).
			Msg("refreshed ADP generation")
	}
	return nil
}

// Aggregate groups projections by player and computes mean pick number and
// sample count. The result is sorted by average pick, ties broken by player id
// so output order is stable.
func Aggregate(projections []models.PickProjection, speedClass models.SpeedClass, refreshedAt time.Time) []models.ADPEntry {
	type acc struct {
		sum   int64
		count int64
	}
	byPlayer := make(map[uuid.UUID]*acc)
	for _, p := range projections {
		a, ok := byPlayer[p.PlayerID]
		if !ok {
			a = &acc{}
			byPlayer[p.PlayerID] = a
		}
		a.sum += int64(p.PickNumber)
		a.count++
	}

	entries := make([]models.ADPEntry, 0, len(byPlayer))
	for playerID, a := range byPlayer {
		entries = append(entries, models.ADPEntry{
			PlayerID:    playerID,
			SpeedClass:  speedClass,
			SampleCount: int(a.count),
			AvgPick:     float64(a.sum) / float64(a.count),
			RefreshedAt: refreshedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AvgPick != entries[j].AvgPick {
			return entries[i].AvgPick < entries[j].AvgPick
		}
		return entries[i].PlayerID.String() < entries[j].PlayerID.String()
	})
	return entries
}
