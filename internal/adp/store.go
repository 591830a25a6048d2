package adp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
	"github.com/ErinHernandez/TopDog-sub003/internal/postgres"
)

// ErrNoCandidates indicates the current generation has no ranked player left
// after the exclusion set is applied.
var ErrNoCandidates = errors.New("no ranked candidates available")

// Store reads and replaces ADP generations. Readers always see exactly one
// generation per speed class; the pointer in adp_generations flips inside the
// same transaction that writes the replacement rows.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ProjectionsSince returns the pick projections for a speed class picked at or
// after the window start, the raw material for one aggregation pass.
func (s *Store) ProjectionsSince(ctx context.Context, speedClass models.SpeedClass, since time.Time) ([]models.PickProjection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT player_id, speed_class, tournament_id, pick_number, picked_at
		FROM pick_projections
		WHERE speed_class = $1 AND picked_at >= $2`,
		string(speedClass), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query projections: %w", err)
	}
	defer rows.Close()

	var projections []models.PickProjection
	for rows.Next() {
		var p models.PickProjection
		if err := rows.Scan(&p.PlayerID, &p.SpeedClass, &p.TournamentID, &p.PickNumber, &p.PickedAt); err != nil {
			return nil, fmt.Errorf("failed to scan projection: %w", err)
		}
		projections = append(projections, p)
	}
	return projections, rows.Err()
}

// ReplaceGeneration writes a full replacement snapshot for the speed class and
// flips the generation pointer, all in one transaction. Rows from superseded
// generations are pruned in the same transaction.
func (s *Store) ReplaceGeneration(ctx context.Context, speedClass models.SpeedClass, entries []models.ADPEntry) error {
	return postgres.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx, `
			SELECT generation FROM adp_generations WHERE speed_class = $1 FOR UPDATE`,
			string(speedClass)).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			current = 0
		} else if err != nil {
			return fmt.Errorf("failed to read generation pointer: %w", err)
		}
		next := current + 1

		for _, e := range entries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO adp_entries (generation, player_id, speed_class, sample_count, avg_pick, refreshed_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				next, e.PlayerID, string(e.SpeedClass), e.SampleCount, e.AvgPick, e.RefreshedAt); err != nil {
				return fmt.Errorf("failed to insert adp entry: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO adp_generations (speed_class, generation, refreshed_at)
			VALUES ($1, $2, now())
			ON CONFLICT (speed_class) DO UPDATE SET generation = $2, refreshed_at = now()`,
			string(speedClass), next); err != nil {
			return fmt.Errorf("failed to flip generation pointer: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM adp_entries WHERE speed_class = $1 AND generation < $2`,
			string(speedClass), next); err != nil {
			return fmt.Errorf("failed to prune stale generations: %w", err)
		}
		return nil
	})
}

// Rankings returns the current generation ordered by average pick, best first.
// A zero limit returns the full board.
func (s *Store) Rankings(ctx context.Context, speedClass models.SpeedClass, limit int) ([]models.ADPEntry, error) {
	query := `
		SELECT e.player_id, e.speed_class, e.sample_count, e.avg_pick, e.refreshed_at
		FROM adp_entries e
		JOIN adp_generations g ON g.speed_class = e.speed_class AND g.generation = e.generation
		WHERE e.speed_class = $1
		ORDER BY e.avg_pick ASC`
	args := []any{string(speedClass)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var entries []models.ADPEntry
	for rows.Next() {
		var e models.ADPEntry
		if err := rows.Scan(&e.PlayerID, &e.SpeedClass, &e.SampleCount, &e.AvgPick, &e.RefreshedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adp entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BestAvailable returns the highest-ranked player in the current generation
// that is not in the exclusion set.
func (s *Store) BestAvailable(ctx context.Context, speedClass models.SpeedClass, excluded []uuid.UUID) (uuid.UUID, error) {
	if excluded == nil {
		// nil encodes as SQL NULL, which would match nothing in ANY().
		excluded = []uuid.UUID{}
	}
	var playerID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT e.player_id
		FROM adp_entries e
		JOIN adp_generations g ON g.speed_class = e.speed_class AND g.generation = e.generation
		WHERE e.speed_class = $1 AND NOT (e.player_id = ANY($2))
		ORDER BY e.avg_pick ASC
		LIMIT 1`,
		string(speedClass), excluded).Scan(&playerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNoCandidates
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to query best available: %w", err)
	}
	return playerID, nil
}
