package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

// RotateTournament deactivates the active tournament and opens the next one
// in one transaction. Joins lock the tournament row FOR SHARE, so a rotation
// waits for in-flight joins and later joins see the new tournament.
func (r *Repository) RotateTournament(ctx context.Context) (*domain.Tournament, error) {
	var t domain.Tournament
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE tournaments SET active = FALSE WHERE active`); err != nil {
			return fmt.Errorf("deactivating tournament: %w", err)
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO tournaments (active) VALUES (TRUE)
			RETURNING id, active, created_at
		`).Scan(&t.ID, &t.Active, &t.CreatedAt)
		if hasCode(err, pgerrcode.UniqueViolation) {
			return fmt.Errorf("concurrent rotation activated another tournament: %w", err)
		}
		if err != nil {
			return fmt.Errorf("creating tournament: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetActiveTournament returns the active tournament
func (r *Repository) GetActiveTournament(ctx context.Context) (*domain.Tournament, error) {
	var t domain.Tournament
	err := r.pool.QueryRow(ctx, `
		SELECT id, active, created_at FROM tournaments WHERE active
	`).Scan(&t.ID, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveTournament
	}
	if err != nil {
		return nil, fmt.Errorf("getting active tournament: %w", err)
	}
	return &t, nil
}

// GetTournament retrieves a tournament by ID
func (r *Repository) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	var t domain.Tournament
	err := r.pool.QueryRow(ctx, `
		SELECT id, active, created_at FROM tournaments WHERE id = $1
	`, tournamentID).Scan(&t.ID, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return &t, nil
}
