package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gamelle/league-system/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrLiveSessionNotFound      = errors.New("live session not found")
	ErrLiveSessionStatusStale   = errors.New("live session status changed concurrently")
	ErrLiveSessionFinalizedSet  = errors.New("live session already has a finalized match")
	ErrLiveSessionStartedSet    = errors.New("live session start time already set")
	ErrLiveEventNotFound        = errors.New("live session event not found")
	ErrLiveEventAlreadyUndone   = errors.New("live session event already undone")
	ErrLiveSessionPlayerInvalid = errors.New("live session player conflict or invalid")
)

type LiveSessionRepository interface {
	// Create inserts the session together with its fixed roster. The roster
	// is immutable afterwards: no method on this interface touches it.
	Create(ctx context.Context, exec SQLExecutor, session *models.LiveSession) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error)
	GetByShareToken(ctx context.Context, shareToken string) (*models.LiveSession, error)
	GetByFinalizedMatch(ctx context.Context, matchID uuid.UUID) (*models.LiveSession, error)
	ListActiveByLeague(ctx context.Context, leagueID uuid.UUID) ([]*models.LiveSession, error)
	ListStaleIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// UpdateStatus moves the session from one status to another. The guard on
	// the previous status makes concurrent transition attempts fail instead
	// of silently clobbering each other.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.LiveSessionStatus, at time.Time) error
	MarkStarted(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error
	MarkEnded(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error
	SetFinalizedMatch(ctx context.Context, exec SQLExecutor, id uuid.UUID, matchID uuid.UUID) error
	UpdateScores(ctx context.Context, exec SQLExecutor, id uuid.UUID, teamA, teamB int, at time.Time) error

	AppendEvent(ctx context.Context, exec SQLExecutor, event *models.LiveSessionEvent) error
	ListEvents(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.LiveSessionEvent, error)
	// MarkEventUndone is a compare-and-set on undone_at: it fails with
	// ErrLiveEventAlreadyUndone when the flag is already set, so a duplicate
	// undo is always reported instead of silently absorbed.
	MarkEventUndone(ctx context.Context, exec SQLExecutor, sessionID, eventID uuid.UUID, at time.Time) error
}

type postgresLiveSessionRepository struct {
	db *sql.DB
}

func NewPostgresLiveSessionRepository(db *sql.DB) LiveSessionRepository {
	return &postgresLiveSessionRepository{db: db}
}

func (r *postgresLiveSessionRepository) Create(ctx context.Context, exec SQLExecutor, session *models.LiveSession) error {
	query := `
		INSERT INTO live_sessions
			(league_id, season_id, share_token, scorer_secret, mode, status,
			 team_a_score, team_b_score, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		session.LeagueID,
		session.SeasonID,
		session.ShareToken,
		session.ScorerSecret,
		session.Mode,
		session.Status,
		session.TeamAScore,
		session.TeamBScore,
		session.CreatedByUserID,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create live session: %w", err)
	}

	playerQuery := `
		INSERT INTO live_session_players (session_id, player_id, team, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range session.Players {
		p := &session.Players[i]
		p.SessionID = session.ID
		if err := exec.QueryRowContext(ctx, playerQuery,
			p.SessionID, p.PlayerID, p.Team, p.Position,
		).Scan(&p.ID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrLiveSessionPlayerInvalid
			}
			return fmt.Errorf("failed to create live session player: %w", err)
		}
	}
	return nil
}

const liveSessionColumns = `
	id, league_id, season_id, share_token, scorer_secret, mode, status,
	team_a_score, team_b_score, created_by_user_id, started_at, ended_at,
	finalized_match_id, created_at, updated_at`

func (r *postgresLiveSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	query := `SELECT` + liveSessionColumns + ` FROM live_sessions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *postgresLiveSessionRepository) GetByShareToken(ctx context.Context, shareToken string) (*models.LiveSession, error) {
	query := `SELECT` + liveSessionColumns + ` FROM live_sessions WHERE share_token = $1`
	return r.getOne(ctx, query, shareToken)
}

func (r *postgresLiveSessionRepository) GetByFinalizedMatch(ctx context.Context, matchID uuid.UUID) (*models.LiveSession, error) {
	query := `SELECT` + liveSessionColumns + ` FROM live_sessions WHERE finalized_match_id = $1`
	return r.getOne(ctx, query, matchID)
}

func (r *postgresLiveSessionRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.LiveSession, error) {
	session := &models.LiveSession{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&session.ID,
		&session.LeagueID,
		&session.SeasonID,
		&session.ShareToken,
		&session.ScorerSecret,
		&session.Mode,
		&session.Status,
		&session.TeamAScore,
		&session.TeamBScore,
		&session.CreatedByUserID,
		&session.StartedAt,
		&session.EndedAt,
		&session.FinalizedMatchID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLiveSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan live session: %w", err)
	}

	if session.Players, err = r.listPlayers(ctx, session.ID); err != nil {
		return nil, err
	}
	if session.Events, err = r.ListEvents(ctx, r.db, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *postgresLiveSessionRepository) ListActiveByLeague(ctx context.Context, leagueID uuid.UUID) ([]*models.LiveSession, error) {
	query := `SELECT` + liveSessionColumns + `
		FROM live_sessions
		WHERE league_id = $1 AND status IN ($2, $3, $4)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, leagueID,
		models.LiveStatusWaiting, models.LiveStatusActive, models.LiveStatusPaused)
	if err != nil {
		return nil, fmt.Errorf("failed to query live sessions for league %s: %w", leagueID, err)
	}
	defer rows.Close()

	sessions := make([]*models.LiveSession, 0)
	for rows.Next() {
		var session models.LiveSession
		if scanErr := rows.Scan(
			&session.ID,
			&session.LeagueID,
			&session.SeasonID,
			&session.ShareToken,
			&session.ScorerSecret,
			&session.Mode,
			&session.Status,
			&session.TeamAScore,
			&session.TeamBScore,
			&session.CreatedByUserID,
			&session.StartedAt,
			&session.EndedAt,
			&session.FinalizedMatchID,
			&session.CreatedAt,
			&session.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan live session row: %w", scanErr)
		}
		sessions = append(sessions, &session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during live session rows iteration: %w", err)
	}

	for _, session := range sessions {
		if session.Players, err = r.listPlayers(ctx, session.ID); err != nil {
			return nil, err
		}
		if session.Events, err = r.ListEvents(ctx, r.db, session.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (r *postgresLiveSessionRepository) ListStaleIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM live_sessions
		WHERE status IN ($1, $2, $3) AND updated_at < $4`

	rows, err := r.db.QueryContext(ctx, query,
		models.LiveStatusWaiting, models.LiveStatusActive, models.LiveStatusPaused, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale live sessions: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan stale session id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stale session rows iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresLiveSessionRepository) listPlayers(ctx context.Context, sessionID uuid.UUID) ([]models.LiveSessionPlayer, error) {
	query := `
		SELECT id, session_id, player_id, team, position
		FROM live_session_players
		WHERE session_id = $1
		ORDER BY team ASC, position ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	players := make([]models.LiveSessionPlayer, 0, 4)
	for rows.Next() {
		var p models.LiveSessionPlayer
		if scanErr := rows.Scan(&p.ID, &p.SessionID, &p.PlayerID, &p.Team, &p.Position); scanErr != nil {
			return nil, fmt.Errorf("failed to scan session player row: %w", scanErr)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during session player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresLiveSessionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.LiveSessionStatus, at time.Time) error {
	query := `UPDATE live_sessions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := exec.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("failed to update status for session %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrLiveSessionStatusStale)
}

func (r *postgresLiveSessionRepository) MarkStarted(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error {
	// started_at is set exactly once; the guard makes a repeated start a
	// visible error rather than a silent overwrite.
	query := `UPDATE live_sessions SET started_at = $1, updated_at = $1 WHERE id = $2 AND started_at IS NULL`
	result, err := exec.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark session %s started: %w", id, err)
	}
	return checkAffectedRows(result, ErrLiveSessionStartedSet)
}

func (r *postgresLiveSessionRepository) MarkEnded(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error {
	query := `UPDATE live_sessions SET ended_at = $1, updated_at = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark session %s ended: %w", id, err)
	}
	return checkAffectedRows(result, ErrLiveSessionNotFound)
}

func (r *postgresLiveSessionRepository) SetFinalizedMatch(ctx context.Context, exec SQLExecutor, id uuid.UUID, matchID uuid.UUID) error {
	query := `UPDATE live_sessions SET finalized_match_id = $1 WHERE id = $2 AND finalized_match_id IS NULL`
	result, err := exec.ExecContext(ctx, query, matchID, id)
	if err != nil {
		return fmt.Errorf("failed to set finalized match for session %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrLiveSessionFinalizedSet)
}

func (r *postgresLiveSessionRepository) UpdateScores(ctx context.Context, exec SQLExecutor, id uuid.UUID, teamA, teamB int, at time.Time) error {
	query := `UPDATE live_sessions SET team_a_score = $1, team_b_score = $2, updated_at = $3 WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, teamA, teamB, at, id)
	if err != nil {
		return fmt.Errorf("failed to update scores for session %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrLiveSessionNotFound)
}

func (r *postgresLiveSessionRepository) AppendEvent(ctx context.Context, exec SQLExecutor, event *models.LiveSessionEvent) error {
	query := `
		INSERT INTO live_session_events
			(session_id, event_type, team, elapsed_seconds, by_player_id,
			 against_player_id, custom_type, recorded_at, recorded_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		event.SessionID,
		event.Type,
		event.Team,
		event.ElapsedSeconds,
		event.ByPlayerID,
		event.AgainstPlayerID,
		event.CustomType,
		event.RecordedAt,
		event.RecordedByUserID,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to append event to session %s: %w", event.SessionID, err)
	}
	return nil
}

func (r *postgresLiveSessionRepository) ListEvents(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.LiveSessionEvent, error) {
	// Ордер по времени приёма сервером; порядок никогда не зависит от
	// elapsed_seconds, присланного клиентом.
	query := `
		SELECT id, session_id, event_type, team, elapsed_seconds, by_player_id,
		       against_player_id, custom_type, recorded_at, recorded_by_user_id, undone_at
		FROM live_session_events
		WHERE session_id = $1
		ORDER BY recorded_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	events := make([]models.LiveSessionEvent, 0)
	for rows.Next() {
		var e models.LiveSessionEvent
		if scanErr := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.Type,
			&e.Team,
			&e.ElapsedSeconds,
			&e.ByPlayerID,
			&e.AgainstPlayerID,
			&e.CustomType,
			&e.RecordedAt,
			&e.RecordedByUserID,
			&e.UndoneAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", scanErr)
		}
		e.Undone = e.UndoneAt != nil
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event rows iteration: %w", err)
	}
	return events, nil
}

func (r *postgresLiveSessionRepository) MarkEventUndone(ctx context.Context, exec SQLExecutor, sessionID, eventID uuid.UUID, at time.Time) error {
	query := `
		UPDATE live_session_events SET undone_at = $1
		WHERE id = $2 AND session_id = $3 AND undone_at IS NULL`

	result, err := exec.ExecContext(ctx, query, at, eventID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to undo event %s: %w", eventID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish an unknown event from a lost compare-and-set.
	var exists bool
	err = exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM live_session_events WHERE id = $1 AND session_id = $2)`,
		eventID, sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check event %s existence: %w", eventID, err)
	}
	if !exists {
		return ErrLiveEventNotFound
	}
	return ErrLiveEventAlreadyUndone
}
