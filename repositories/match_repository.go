package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamelle/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchPlayerInvalid = errors.New("match player conflict or invalid")
)

// MatchRepository is the write side of the permanent match store. The live
// match engine only ever creates records here; reading finalized matches
// belongs to the reporting side of the system.
type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	AddPlayer(ctx context.Context, exec SQLExecutor, player *models.MatchPlayer) error
	AddEvent(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(league_id, season_id, mode, team_a_score, team_b_score, played_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.LeagueID,
		match.SeasonID,
		match.Mode,
		match.TeamAScore,
		match.TeamBScore,
		match.PlayedAt,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) AddPlayer(ctx context.Context, exec SQLExecutor, player *models.MatchPlayer) error {
	query := `
		INSERT INTO match_players (match_id, player_id, team, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		player.MatchID,
		player.PlayerID,
		player.Team,
		player.Position,
	).Scan(&player.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrMatchPlayerInvalid
		}
		return fmt.Errorf("failed to create match player: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) AddEvent(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error {
	query := `
		INSERT INTO match_events (match_id, event_type, by_player_id, against_player_id, count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		event.MatchID,
		event.Type,
		event.ByPlayerID,
		event.AgainstPlayerID,
		event.Count,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create match event: %w", err)
	}
	return nil
}
