package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
	"github.com/jackc/pgx/v5"
)

const groupColumns = `id, tournament_id, bracket, participant_count, created_at`

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.TournamentID, &g.Bracket, &g.ParticipantCount, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func latestGroup(ctx context.Context, q querier, tournamentID int64, bracket int) (*domain.Group, error) {
	g, err := scanGroup(q.QueryRow(ctx, `
		SELECT `+groupColumns+`
		FROM tournament_groups
		WHERE tournament_id = $1 AND bracket = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, tournamentID, bracket))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest group: %w", err)
	}
	return g, nil
}

// GetLatestGroup returns the most recently opened group of a bracket
func (r *Repository) GetLatestGroup(ctx context.Context, tournamentID int64, bracket int) (*domain.Group, error) {
	return latestGroup(ctx, r.pool, tournamentID, bracket)
}

// OpenGroup returns the latest group of the bracket while it has room and
// opens a new one otherwise. An advisory lock per (tournament, bracket) keeps
// concurrent callers from opening more than one group.
func (r *Repository) OpenGroup(ctx context.Context, tournamentID int64, bracket int, capacity int) (*domain.Group, error) {
	var g *domain.Group
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		lockKey := fmt.Sprintf("tournament_group:%d:%d", tournamentID, bracket)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return fmt.Errorf("locking bracket: %w", err)
		}

		latest, err := latestGroup(ctx, tx, tournamentID, bracket)
		if err != nil && !errors.Is(err, domain.ErrGroupNotFound) {
			return err
		}
		if latest != nil && latest.ParticipantCount < capacity {
			g = latest
			return nil
		}

		g, err = scanGroup(tx.QueryRow(ctx, `
			INSERT INTO tournament_groups (tournament_id, bracket)
			VALUES ($1, $2)
			RETURNING `+groupColumns,
			tournamentID, bracket,
		))
		if err != nil {
			return fmt.Errorf("creating group: %w", err)
		}

		r.logger.Debug("opened tournament group",
			"tournament_id", tournamentID,
			"group_id", g.ID,
			"bracket", bracket,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup retrieves a group by ID
func (r *Repository) GetGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx, `
		SELECT `+groupColumns+` FROM tournament_groups WHERE id = $1
	`, groupID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting group: %w", err)
	}
	return g, nil
}
