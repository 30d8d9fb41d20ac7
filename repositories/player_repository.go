package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gamelle/league-system/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	ListByIDs(ctx context.Context, leagueID uuid.UUID, ids []uuid.UUID) ([]*models.Player, error)
	ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) ListByIDs(ctx context.Context, leagueID uuid.UUID, ids []uuid.UUID) ([]*models.Player, error) {
	if len(ids) == 0 {
		return []*models.Player{}, nil
	}

	query := `
		SELECT id, league_id, user_id, nickname, created_at
		FROM players
		WHERE league_id = $1 AND id = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, leagueID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query players for league %s: %w", leagueID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0, len(ids))
	for rows.Next() {
		var player models.Player
		if scanErr := rows.Scan(
			&player.ID,
			&player.LeagueID,
			&player.UserID,
			&player.Nickname,
			&player.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &player)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM players WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", scanErr)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player id rows iteration: %w", err)
	}
	return ids, nil
}
