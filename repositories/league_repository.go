package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gamelle/league-system/models"
	"github.com/google/uuid"
)

var (
	ErrLeagueNotFound = errors.New("league not found")
	ErrMemberNotFound = errors.New("league member not found")
	ErrSeasonNotFound = errors.New("season not found")
)

type LeagueRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.League, error)
	GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
	GetSeason(ctx context.Context, leagueID, seasonID uuid.UUID) (*models.Season, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) GetBySlug(ctx context.Context, slug string) (*models.League, error) {
	query := `SELECT id, slug, name, created_at FROM leagues WHERE slug = $1`

	league := &models.League{}
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&league.ID,
		&league.Slug,
		&league.Name,
		&league.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to scan league by slug %q: %w", slug, err)
	}
	return league, nil
}

func (r *postgresLeagueRepository) GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	query := `
		SELECT id, league_id, user_id, role, status, created_at
		FROM league_members
		WHERE league_id = $1 AND user_id = $2 AND status = $3`

	member := &models.LeagueMember{}
	err := r.db.QueryRowContext(ctx, query, leagueID, userID, models.MemberStatusActive).Scan(
		&member.ID,
		&member.LeagueID,
		&member.UserID,
		&member.Role,
		&member.Status,
		&member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to scan league member: %w", err)
	}
	return member, nil
}

func (r *postgresLeagueRepository) GetSeason(ctx context.Context, leagueID, seasonID uuid.UUID) (*models.Season, error) {
	query := `SELECT id, league_id, name, created_at FROM seasons WHERE id = $1 AND league_id = $2`

	season := &models.Season{}
	err := r.db.QueryRowContext(ctx, query, seasonID, leagueID).Scan(
		&season.ID,
		&season.LeagueID,
		&season.Name,
		&season.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to scan season %s: %w", seasonID, err)
	}
	return season, nil
}
