package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, level, coins, last_tournament_id, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Level, &u.Coins, &u.LastTournamentID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers a new user
func (r *Repository) CreateUser(ctx context.Context, level int, coins int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (level, coins) VALUES ($1, $2)
		RETURNING `+userColumns,
		level, coins,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Debit removes coins only when the balance covers the amount
func (r *Repository) Debit(ctx context.Context, userID int64, amount int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET coins = coins - $2, updated_at = NOW()
		WHERE id = $1 AND coins >= $2
		RETURNING `+userColumns,
		userID, amount,
	))
	if hasCode(err, pgerrcode.CheckViolation) {
		return nil, domain.ErrNotEnoughCoins
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotEnoughCoins
	}
	if err != nil {
		return nil, fmt.Errorf("debiting user: %w", err)
	}
	return u, nil
}

// Credit adds coins
func (r *Repository) Credit(ctx context.Context, userID int64, amount int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET coins = coins + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, amount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crediting user: %w", err)
	}
	return u, nil
}

// SetLastTournament records the tournament the user entered last
func (r *Repository) SetLastTournament(ctx context.Context, userID, tournamentID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET last_tournament_id = $2, updated_at = NOW() WHERE id = $1
	`, userID, tournamentID)
	if err != nil {
		return fmt.Errorf("setting last tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// LevelUp raises the level by one and grants coins in one statement
func (r *Repository) LevelUp(ctx context.Context, userID int64, coins int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET level = level + 1, coins = coins + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, coins,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("levelling up user: %w", err)
	}
	return u, nil
}
