// Package player is the read-only player catalog. The draft engine treats
// player ids as opaque keys; everything beyond existence checks is display
// metadata.
package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// ErrNotFound is returned when a player id is not in the catalog.
var ErrNotFound = errors.New("player not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPlayer retrieves catalog metadata for one player.
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, full_name, position, nfl_team, bye_week, created_at
		 FROM players WHERE id = $1`, id)

	var p models.Player
	if err := row.Scan(&p.ID, &p.FullName, &p.Position, &p.NFLTeam, &p.ByeWeek, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

// Exists reports whether a player id is in the catalog.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}
	return exists, nil
}

// LowestIDExcluding returns the lowest player id not in excluded. It is the
// autopick path of last resort, so a pick slot can never be left stuck even
// when the ADP store is thinner than the draftable pool.
func (r *Repository) LowestIDExcluding(ctx context.Context, excluded []uuid.UUID) (uuid.UUID, error) {
	if excluded == nil {
		// nil encodes as SQL NULL, which would match nothing in ANY().
		excluded = []uuid.UUID{}
	}
	row := r.pool.QueryRow(ctx,
		`SELECT id FROM players WHERE NOT (id = ANY($1)) ORDER BY id LIMIT 1`, excluded)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find lowest available player: %w", err)
	}
	return id, nil
}
