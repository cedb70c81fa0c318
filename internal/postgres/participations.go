package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

const participationColumns = `id, tournament_id, group_id, user_id, score, reward_claimed, joined_at`

func scanParticipation(row pgx.Row) (*domain.Participation, error) {
	var p domain.Participation
	err := row.Scan(&p.ID, &p.TournamentID, &p.GroupID, &p.UserID, &p.Score, &p.RewardClaimed, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasJoined reports whether the user entered the tournament
func (r *Repository) HasJoined(ctx context.Context, tournamentID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tournament_participations WHERE tournament_id = $1 AND user_id = $2)
	`, tournamentID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking participation: %w", err)
	}
	return exists, nil
}

// CreateParticipation reserves a slot with a conditional increment of the
// group counter and inserts the participation in the same transaction. A
// failed insert rolls the reservation back.
func (r *Repository) CreateParticipation(ctx context.Context, tournamentID, groupID, userID int64, capacity int) (*domain.Participation, error) {
	var p *domain.Participation
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx, `
			SELECT active FROM tournaments WHERE id = $1 FOR SHARE
		`, tournamentID).Scan(&active)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
			return domain.ErrNoActiveTournament
		}
		if err != nil {
			return fmt.Errorf("locking tournament: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE tournament_groups
			SET participant_count = participant_count + 1
			WHERE id = $1 AND tournament_id = $2 AND participant_count < $3
		`, groupID, tournamentID, capacity)
		if err != nil {
			return fmt.Errorf("reserving group slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrGroupFull
		}

		p, err = scanParticipation(tx.QueryRow(ctx, `
			INSERT INTO tournament_participations (tournament_id, group_id, user_id)
			VALUES ($1, $2, $3)
			RETURNING `+participationColumns,
			tournamentID, groupID, userID,
		))
		if hasCode(err, pgerrcode.UniqueViolation) {
			return domain.ErrAlreadyJoined
		}
		if err != nil {
			return fmt.Errorf("inserting participation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetParticipation retrieves the user's entry into a tournament
func (r *Repository) GetParticipation(ctx context.Context, tournamentID, userID int64) (*domain.Participation, error) {
	p, err := scanParticipation(r.pool.QueryRow(ctx, `
		SELECT `+participationColumns+`
		FROM tournament_participations
		WHERE tournament_id = $1 AND user_id = $2
	`, tournamentID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrParticipationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting participation: %w", err)
	}
	return p, nil
}

// IncrementScore adds one point in a single statement. The tournament row is
// locked FOR SHARE so the increment cannot land after a rotation closed it.
func (r *Repository) IncrementScore(ctx context.Context, tournamentID, userID int64) (int64, error) {
	var score int64
	err := r.pool.QueryRow(ctx, `
		WITH live AS (
			SELECT id FROM tournaments WHERE id = $1 AND active FOR SHARE
		)
		UPDATE tournament_participations p
		SET score = p.score + 1
		FROM live
		WHERE p.tournament_id = live.id AND p.user_id = $2
		RETURNING p.score
	`, tournamentID, userID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrParticipationNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return score, nil
}

// CountInGroup returns the number of participations in a group
func (r *Repository) CountInGroup(ctx context.Context, tournamentID, groupID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tournament_participations WHERE tournament_id = $1 AND group_id = $2
	`, tournamentID, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting group participants: %w", err)
	}
	return count, nil
}

// MarkClaimed flips the claim flag with a conditional update so only one
// caller ever succeeds
func (r *Repository) MarkClaimed(ctx context.Context, tournamentID, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournament_participations
		SET reward_claimed = TRUE, claimed_at = NOW()
		WHERE tournament_id = $1 AND user_id = $2 AND NOT reward_claimed
	`, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("marking reward claimed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.GetParticipation(ctx, tournamentID, userID); err != nil {
		return err
	}
	return domain.ErrRewardAlreadyClaimed
}

// ListGroupOrderedByScore returns a group's participations by score, earliest
// join first on ties
func (r *Repository) ListGroupOrderedByScore(ctx context.Context, groupID int64) ([]domain.Participation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+participationColumns+`
		FROM tournament_participations
		WHERE group_id = $1
		ORDER BY score DESC, joined_at ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group participations: %w", err)
	}
	defer rows.Close()

	participations := make([]domain.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning participation: %w", err)
		}
		participations = append(participations, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participations: %w", err)
	}

	return participations, nil
}
