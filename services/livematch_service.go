package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type LiveMatchPlayerInput struct {
	PlayerID uuid.UUID       `json:"player_id"`
	Team     models.Team     `json:"team"`
	Position models.Position `json:"position"`
}

type CreateLiveMatchInput struct {
	SeasonID             uuid.UUID              `json:"season_id"`
	Mode                 models.MatchMode       `json:"mode"`
	Players              []LiveMatchPlayerInput `json:"players"`
	GenerateScorerSecret bool                   `json:"generate_scorer_secret"`
}

type LiveMatchEventInput struct {
	Type            models.LiveEventType `json:"event_type"`
	Team            *models.Team         `json:"team,omitempty"`
	ByPlayerID      *uuid.UUID           `json:"by_player_id,omitempty"`
	AgainstPlayerID *uuid.UUID           `json:"against_player_id,omitempty"`
	CustomType      *string              `json:"custom_type,omitempty"`
	ElapsedSeconds  *int                 `json:"elapsed_seconds,omitempty"`
}

type LiveMatchService interface {
	CreateSession(ctx context.Context, leagueSlug string, identity Identity, input CreateLiveMatchInput) (*models.LiveSession, error)
	ListActiveSessions(ctx context.Context, leagueSlug string, identity Identity) ([]*models.LiveSession, error)
	GetSessionByID(ctx context.Context, leagueSlug string, sessionID uuid.UUID, identity Identity) (*models.LiveSession, error)

	// GetSessionByShareToken is the public read path. The returned level
	// tells the caller how much of the session it may show.
	GetSessionByShareToken(ctx context.Context, shareToken string, identity *Identity) (*models.LiveSession, AccessLevel, error)
	GetSessionByFinalizedMatch(ctx context.Context, matchID uuid.UUID) (*models.LiveSession, error)

	AppendEvent(ctx context.Context, shareToken string, identity *Identity, scorerSecret string, input LiveMatchEventInput) (*models.LiveSessionEvent, *models.LiveSession, error)
	UndoEvent(ctx context.Context, shareToken string, eventID uuid.UUID, identity *Identity, scorerSecret string) (*models.LiveSession, error)
	SetStatus(ctx context.Context, shareToken string, identity *Identity, scorerSecret string, newStatus models.LiveSessionStatus) (*models.LiveSession, error)
	Finalize(ctx context.Context, shareToken string, identity *Identity, scorerSecret string) (uuid.UUID, error)
	Abandon(ctx context.Context, shareToken string, identity *Identity, scorerSecret string) error

	// AbandonStale reaps sessions nobody has touched for longer than ttl.
	AbandonStale(ctx context.Context, ttl time.Duration) (int, error)
}

type liveMatchService struct {
	txm         repositories.TxManager
	sessionRepo repositories.LiveSessionRepository
	leagueRepo  repositories.LeagueRepository
	playerRepo  repositories.PlayerRepository
	gate        AccessGate
	finalizer   *Finalizer
	logger      *slog.Logger
}

func NewLiveMatchService(
	txm repositories.TxManager,
	sessionRepo repositories.LiveSessionRepository,
	leagueRepo repositories.LeagueRepository,
	playerRepo repositories.PlayerRepository,
	gate AccessGate,
	finalizer *Finalizer,
	logger *slog.Logger,
) LiveMatchService {
	return &liveMatchService{
		txm:         txm,
		sessionRepo: sessionRepo,
		leagueRepo:  leagueRepo,
		playerRepo:  playerRepo,
		gate:        gate,
		finalizer:   finalizer,
		logger:      logger,
	}
}

const (
	shareTokenLength   = 22
	scorerSecretLength = 32
)

// generateToken выдаёт URL-safe случайный токен заданной длины.
func generateToken(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length]
}

func (s *liveMatchService) CreateSession(ctx context.Context, leagueSlug string, identity Identity, input CreateLiveMatchInput) (*models.LiveSession, error) {
	league, _, err := s.requireMembership(ctx, leagueSlug, identity)
	if err != nil {
		return nil, err
	}

	if _, err := s.leagueRepo.GetSeason(ctx, league.ID, input.SeasonID); err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to load season: %w", err)
	}

	if err := validateRoster(input.Mode, input.Players); err != nil {
		return nil, err
	}

	playerIDs := make([]uuid.UUID, 0, len(input.Players))
	for _, p := range input.Players {
		playerIDs = append(playerIDs, p.PlayerID)
	}
	known, err := s.playerRepo.ListByIDs(ctx, league.ID, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster players: %w", err)
	}
	if len(known) != len(playerIDs) {
		return nil, fmt.Errorf("%w: one or more players not found in league", ErrInvalidRoster)
	}

	session := &models.LiveSession{
		LeagueID:        league.ID,
		SeasonID:        input.SeasonID,
		ShareToken:      generateToken(shareTokenLength),
		Mode:            input.Mode,
		Status:          models.LiveStatusWaiting,
		CreatedByUserID: identity.UserID,
	}
	if input.GenerateScorerSecret {
		secret := generateToken(scorerSecretLength)
		session.ScorerSecret = &secret
	}
	for _, p := range input.Players {
		session.Players = append(session.Players, models.LiveSessionPlayer{
			PlayerID: p.PlayerID,
			Team:     p.Team,
			Position: p.Position,
		})
	}

	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.sessionRepo.Create(ctx, exec, session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create live session: %w", err)
	}

	s.logger.Info("live session created",
		slog.String("session_id", session.ID.String()),
		slog.String("league", leagueSlug),
		slog.String("mode", string(session.Mode)))
	session.Events = []models.LiveSessionEvent{}
	return session, nil
}

func (s *liveMatchService) ListActiveSessions(ctx context.Context, leagueSlug string, identity Identity) ([]*models.LiveSession, error) {
	league, _, err := s.requireMembership(ctx, leagueSlug, identity)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.ListActiveByLeague(ctx, league.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live sessions for league %s: %w", league.ID, err)
	}
	for _, session := range sessions {
		if err := s.redactBelowMember(ctx, session, identity, true); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (s *liveMatchService) GetSessionByID(ctx context.Context, leagueSlug string, sessionID uuid.UUID, identity Identity) (*models.LiveSession, error) {
	league, _, err := s.requireMembership(ctx, leagueSlug, identity)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrLiveSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load live session %s: %w", sessionID, err)
	}
	if session.LeagueID != league.ID {
		// Сессия чужой лиги неотличима от несуществующей.
		return nil, ErrSessionNotFound
	}
	if err := s.redactBelowMember(ctx, session, identity, false); err != nil {
		return nil, err
	}
	return session, nil
}

// redactBelowMember стирает секрет счётчика из сессии, если уровень
// вызывающего ниже Member. В списочных ответах прячется и share-токен.
func (s *liveMatchService) redactBelowMember(ctx context.Context, session *models.LiveSession, identity Identity, hideToken bool) error {
	level, err := s.gate.Resolve(ctx, session, &identity, "")
	if err != nil {
		return err
	}
	if level.CanScore() {
		return nil
	}
	session.ScorerSecret = nil
	if hideToken {
		session.ShareToken = ""
	}
	return nil
}

func (s *liveMatchService) GetSessionByShareToken(ctx context.Context, shareToken string, identity *Identity) (*models.LiveSession, AccessLevel, error) {
	session, err := s.loadByShareToken(ctx, shareToken)
	if err != nil {
		return nil, LevelViewer, err
	}

	level, err := s.gate.Resolve(ctx, session, identity, "")
	if err != nil {
		return nil, LevelViewer, err
	}
	return session, level, nil
}

func (s *liveMatchService) GetSessionByFinalizedMatch(ctx context.Context, matchID uuid.UUID) (*models.LiveSession, error) {
	session, err := s.sessionRepo.GetByFinalizedMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrLiveSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session for match %s: %w", matchID, err)
	}
	return session, nil
}

func (s *liveMatchService) AppendEvent(ctx context.Context, shareToken string, identity *Identity, scorerSecret string, input LiveMatchEventInput) (*models.LiveSessionEvent, *models.LiveSession, error) {
	session, err := s.requireScorer(ctx, shareToken, identity, scorerSecret)
	if err != nil {
		return nil, nil, err
	}

	if session.Status.Terminal() {
		return nil, nil, ErrSessionFinalized
	}
	if session.Status != models.LiveStatusActive && session.Status != models.LiveStatusPaused {
		return nil, nil, ErrSessionNotStarted
	}

	if err := validateEventInput(input); err != nil {
		return nil, nil, err
	}

	now := clockNow()
	event := &models.LiveSessionEvent{
		SessionID:       session.ID,
		Type:            input.Type,
		Team:            input.Team,
		ElapsedSeconds:  input.ElapsedSeconds,
		ByPlayerID:      input.ByPlayerID,
		AgainstPlayerID: input.AgainstPlayerID,
		CustomType:      input.CustomType,
		RecordedAt:      now,
	}
	if identity != nil {
		event.RecordedByUserID = &identity.UserID
	}

	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.sessionRepo.AppendEvent(ctx, exec, event); err != nil {
			return err
		}
		return s.recomputeScores(ctx, exec, session, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return event, session, nil
}

func (s *liveMatchService) UndoEvent(ctx context.Context, shareToken string, eventID uuid.UUID, identity *Identity, scorerSecret string) (*models.LiveSession, error) {
	session, err := s.requireScorer(ctx, shareToken, identity, scorerSecret)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, ErrSessionFinalized
	}

	now := clockNow()
	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.sessionRepo.MarkEventUndone(ctx, exec, session.ID, eventID, now); err != nil {
			switch {
			case errors.Is(err, repositories.ErrLiveEventNotFound):
				return ErrEventNotFound
			case errors.Is(err, repositories.ErrLiveEventAlreadyUndone):
				return ErrEventAlreadyUndone
			}
			return err
		}
		return s.recomputeScores(ctx, exec, session, now)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// recomputeScores перечитывает лог и переписывает кешированный счёт внутри
// той же транзакции, что и мутация. Кеш никогда не инкрементируется.
func (s *liveMatchService) recomputeScores(ctx context.Context, exec repositories.SQLExecutor, session *models.LiveSession, at time.Time) error {
	events, err := s.sessionRepo.ListEvents(ctx, exec, session.ID)
	if err != nil {
		return err
	}
	teamA, teamB := models.ProjectScore(events)
	if err := s.sessionRepo.UpdateScores(ctx, exec, session.ID, teamA, teamB, at); err != nil {
		return err
	}
	session.Events = events
	session.TeamAScore = teamA
	session.TeamBScore = teamB
	session.UpdatedAt = at
	return nil
}

func (s *liveMatchService) SetStatus(ctx context.Context, shareToken string, identity *Identity, scorerSecret string, newStatus models.LiveSessionStatus) (*models.LiveSession, error) {
	session, err := s.requireScorer(ctx, shareToken, identity, scorerSecret)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case models.LiveStatusAbandoned:
		if err := s.abandonSession(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	case models.LiveStatusActive, models.LiveStatusPaused:
		if err := s.transition(ctx, session, newStatus); err != nil {
			return nil, err
		}
		return session, nil
	default:
		// waiting нельзя вернуть, completed достижим только через Finalize.
		if session.Status.Terminal() {
			return nil, ErrSessionFinalized
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, session.Status, newStatus)
	}
}

// transition выполняет переходы start/pause/resume. Таблица переходов
// закрытая; всё, чего в ней нет, отклоняется без изменения статуса.
func (s *liveMatchService) transition(ctx context.Context, session *models.LiveSession, newStatus models.LiveSessionStatus) error {
	if session.Status.Terminal() {
		return ErrSessionFinalized
	}

	now := clockNow()
	var starting bool
	switch {
	case session.Status == models.LiveStatusWaiting && newStatus == models.LiveStatusActive:
		starting = session.StartedAt == nil
	case session.Status == models.LiveStatusPaused && newStatus == models.LiveStatusActive:
		// resume: started_at не трогаем
	case session.Status == models.LiveStatusActive && newStatus == models.LiveStatusPaused:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, session.Status, newStatus)
	}

	err := s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.sessionRepo.UpdateStatus(ctx, exec, session.ID, session.Status, newStatus, now); err != nil {
			if errors.Is(err, repositories.ErrLiveSessionStatusStale) {
				return fmt.Errorf("%w: session status changed concurrently", ErrInvalidStatusTransition)
			}
			return err
		}
		if starting {
			if err := s.sessionRepo.MarkStarted(ctx, exec, session.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	session.Status = newStatus
	session.UpdatedAt = now
	if starting {
		session.StartedAt = &now
	}
	return nil
}

func (s *liveMatchService) Finalize(ctx context.Context, shareToken string, identity *Identity, scorerSecret string) (uuid.UUID, error) {
	session, err := s.requireScorer(ctx, shareToken, identity, scorerSecret)
	if err != nil {
		return uuid.Nil, err
	}

	// Повторный finalize отвечает сохранённым id и не трогает хранилище
	// матчей: ретрай после потерянного ответа безопасен.
	if session.FinalizedMatchID != nil {
		return *session.FinalizedMatchID, nil
	}
	if session.Status == models.LiveStatusAbandoned {
		return uuid.Nil, ErrSessionFinalized
	}
	if session.Status != models.LiveStatusActive && session.Status != models.LiveStatusPaused {
		return uuid.Nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, session.Status, models.LiveStatusCompleted)
	}

	now := clockNow()
	var matchID uuid.UUID
	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.finalizer.Store(ctx, exec, session)
		if err != nil {
			return err
		}
		if err := s.sessionRepo.SetFinalizedMatch(ctx, exec, session.ID, match.ID); err != nil {
			if errors.Is(err, repositories.ErrLiveSessionFinalizedSet) {
				// Проигранная гонка двух finalize: транзакция откатится,
				// второй вызов ответит сохранённым id.
				return ErrSessionFinalized
			}
			return err
		}
		if err := s.sessionRepo.UpdateStatus(ctx, exec, session.ID, session.Status, models.LiveStatusCompleted, now); err != nil {
			return err
		}
		if err := s.sessionRepo.MarkEnded(ctx, exec, session.ID, now); err != nil {
			return err
		}
		matchID = match.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionFinalized) {
			if fresh, loadErr := s.sessionRepo.GetByShareToken(ctx, shareToken); loadErr == nil && fresh.FinalizedMatchID != nil {
				return *fresh.FinalizedMatchID, nil
			}
		}
		return uuid.Nil, err
	}

	session.Status = models.LiveStatusCompleted
	session.FinalizedMatchID = &matchID
	session.EndedAt = &now
	session.UpdatedAt = now

	s.logger.Info("live session finalized",
		slog.String("session_id", session.ID.String()),
		slog.String("match_id", matchID.String()))
	return matchID, nil
}

func (s *liveMatchService) Abandon(ctx context.Context, shareToken string, identity *Identity, scorerSecret string) error {
	session, err := s.requireScorer(ctx, shareToken, identity, scorerSecret)
	if err != nil {
		return err
	}
	return s.abandonSession(ctx, session)
}

func (s *liveMatchService) abandonSession(ctx context.Context, session *models.LiveSession) error {
	// Abandon выражает "убрать это" независимо от точного состояния:
	// повтор завершается успехом без эффекта, в отличие от undo.
	if session.Status == models.LiveStatusAbandoned {
		return nil
	}
	if session.Status == models.LiveStatusCompleted {
		return ErrSessionFinalized
	}

	now := clockNow()
	err := s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.sessionRepo.UpdateStatus(ctx, exec, session.ID, session.Status, models.LiveStatusAbandoned, now); err != nil {
			if errors.Is(err, repositories.ErrLiveSessionStatusStale) {
				return fmt.Errorf("%w: session status changed concurrently", ErrInvalidStatusTransition)
			}
			return err
		}
		return s.sessionRepo.MarkEnded(ctx, exec, session.ID, now)
	})
	if err != nil {
		return err
	}

	session.Status = models.LiveStatusAbandoned
	session.EndedAt = &now
	session.UpdatedAt = now
	return nil
}

func (s *liveMatchService) AbandonStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := clockNow().Add(-ttl)
	ids, err := s.sessionRepo.ListStaleIDs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			session, err := s.sessionRepo.GetByID(gCtx, id)
			if err != nil {
				if errors.Is(err, repositories.ErrLiveSessionNotFound) {
					return nil
				}
				return err
			}
			if err := s.abandonSession(gCtx, session); err != nil {
				// Гонка со штатным завершением не считается ошибкой свипера.
				if errors.Is(err, ErrSessionFinalized) || errors.Is(err, ErrInvalidStatusTransition) {
					return nil
				}
				return err
			}
			s.logger.Info("stale live session abandoned", slog.String("session_id", id.String()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to abandon stale sessions: %w", err)
	}
	return len(ids), nil
}

func (s *liveMatchService) requireMembership(ctx context.Context, leagueSlug string, identity Identity) (*models.League, *models.LeagueMember, error) {
	league, err := s.leagueRepo.GetBySlug(ctx, leagueSlug)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, nil, ErrLeagueNotFound
		}
		return nil, nil, fmt.Errorf("failed to load league %q: %w", leagueSlug, err)
	}

	member, err := s.leagueRepo.GetMember(ctx, league.ID, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, nil, ErrNotLeagueMember
		}
		return nil, nil, fmt.Errorf("failed to load league membership: %w", err)
	}
	return league, member, nil
}

// requireScorer loads a session by share token and rejects callers below
// Member. An invalid share token is a lookup failure, never a permission
// failure.
func (s *liveMatchService) requireScorer(ctx context.Context, shareToken string, identity *Identity, scorerSecret string) (*models.LiveSession, error) {
	session, err := s.loadByShareToken(ctx, shareToken)
	if err != nil {
		return nil, err
	}

	level, err := s.gate.Resolve(ctx, session, identity, scorerSecret)
	if err != nil {
		return nil, err
	}
	if !level.CanScore() {
		return nil, ErrScorePermissionDenied
	}
	return session, nil
}

func (s *liveMatchService) loadByShareToken(ctx context.Context, shareToken string) (*models.LiveSession, error) {
	session, err := s.sessionRepo.GetByShareToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, repositories.ErrLiveSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load live session by share token: %w", err)
	}
	return session, nil
}

func validateRoster(mode models.MatchMode, players []LiveMatchPlayerInput) error {
	if mode != models.ModeOneVOne && mode != models.ModeTwoVTwo {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if len(players) != mode.PlayerCount() {
		return fmt.Errorf("%w: %s requires exactly %d players", ErrInvalidRoster, mode, mode.PlayerCount())
	}

	seen := make(map[uuid.UUID]struct{}, len(players))
	perTeam := make(map[models.Team][]LiveMatchPlayerInput, 2)
	for _, p := range players {
		if p.Team != models.TeamA && p.Team != models.TeamB {
			return fmt.Errorf("%w: unknown team %q", ErrInvalidRoster, p.Team)
		}
		if p.Position != models.PositionAttack && p.Position != models.PositionDefense {
			return fmt.Errorf("%w: unknown position %q", ErrInvalidRoster, p.Position)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return fmt.Errorf("%w: each player can only be in the match once", ErrInvalidRoster)
		}
		seen[p.PlayerID] = struct{}{}
		perTeam[p.Team] = append(perTeam[p.Team], p)
	}

	perSide := mode.PlayerCount() / 2
	if len(perTeam[models.TeamA]) != perSide || len(perTeam[models.TeamB]) != perSide {
		return fmt.Errorf("%w: each team must have exactly %d player(s)", ErrInvalidRoster, perSide)
	}

	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		positions := make(map[models.Position]int, 2)
		for _, p := range perTeam[team] {
			positions[p.Position]++
		}
		switch mode {
		case models.ModeOneVOne:
			if positions[models.PositionAttack] != 1 {
				return fmt.Errorf("%w: 1v1 players take the attack position", ErrInvalidRoster)
			}
		case models.ModeTwoVTwo:
			if positions[models.PositionAttack] != 1 || positions[models.PositionDefense] != 1 {
				return fmt.Errorf("%w: team %s must have one attacker and one defender", ErrInvalidRoster, team)
			}
		}
	}
	return nil
}

func validateEventInput(input LiveMatchEventInput) error {
	switch input.Type {
	case models.EventGoal, models.EventGamellized, models.EventLobbed, models.EventTimeout, models.EventCustom:
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, input.Type)
	}

	if input.Type.RequiresTeam() {
		if input.Team == nil {
			return fmt.Errorf("%w: %s requires a team", ErrInvalidEvent, input.Type)
		}
		if *input.Team != models.TeamA && *input.Team != models.TeamB {
			return fmt.Errorf("%w: unknown team %q", ErrInvalidEvent, *input.Team)
		}
	} else if input.Team != nil {
		return fmt.Errorf("%w: %s must not carry a team", ErrInvalidEvent, input.Type)
	}

	if input.ElapsedSeconds != nil && *input.ElapsedSeconds < 0 {
		return fmt.Errorf("%w: elapsed_seconds must not be negative", ErrInvalidEvent)
	}
	return nil
}
