package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/repositories"
	"github.com/google/uuid"
)

// fakeTxManager runs the callback directly; the fakes below ignore the
// executor, so nil is enough.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.LiveSession
	events   map[uuid.UUID][]*models.LiveSessionEvent
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[uuid.UUID]*models.LiveSession),
		events:   make(map[uuid.UUID][]*models.LiveSessionEvent),
	}
}

func (r *fakeSessionRepo) Create(_ context.Context, _ repositories.SQLExecutor, session *models.LiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.ID = uuid.New()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	for i := range session.Players {
		session.Players[i].ID = uuid.New()
		session.Players[i].SessionID = session.ID
	}
	stored := *session
	stored.Players = append([]models.LiveSessionPlayer(nil), session.Players...)
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) snapshot(stored *models.LiveSession) *models.LiveSession {
	out := *stored
	out.Players = append([]models.LiveSessionPlayer(nil), stored.Players...)
	out.Events = r.listEventsLocked(stored.ID)
	return &out
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrLiveSessionNotFound
	}
	return r.snapshot(stored), nil
}

func (r *fakeSessionRepo) GetByShareToken(_ context.Context, shareToken string) (*models.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.sessions {
		if stored.ShareToken == shareToken {
			return r.snapshot(stored), nil
		}
	}
	return nil, repositories.ErrLiveSessionNotFound
}

func (r *fakeSessionRepo) GetByFinalizedMatch(_ context.Context, matchID uuid.UUID) (*models.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.sessions {
		if stored.FinalizedMatchID != nil && *stored.FinalizedMatchID == matchID {
			return r.snapshot(stored), nil
		}
	}
	return nil, repositories.ErrLiveSessionNotFound
}

func (r *fakeSessionRepo) ListActiveByLeague(_ context.Context, leagueID uuid.UUID) ([]*models.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.LiveSession, 0)
	for _, stored := range r.sessions {
		if stored.LeagueID == leagueID && !stored.Status.Terminal() {
			out = append(out, r.snapshot(stored))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) ListStaleIDs(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for _, stored := range r.sessions {
		if !stored.Status.Terminal() && stored.UpdatedAt.Before(cutoff) {
			ids = append(ids, stored.ID)
		}
	}
	return ids, nil
}

func (r *fakeSessionRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, from, to models.LiveSessionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok || stored.Status != from {
		return repositories.ErrLiveSessionStatusStale
	}
	stored.Status = to
	stored.UpdatedAt = at
	return nil
}

func (r *fakeSessionRepo) MarkStarted(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok || stored.StartedAt != nil {
		return repositories.ErrLiveSessionStartedSet
	}
	t := at
	stored.StartedAt = &t
	stored.UpdatedAt = at
	return nil
}

func (r *fakeSessionRepo) MarkEnded(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return repositories.ErrLiveSessionNotFound
	}
	t := at
	stored.EndedAt = &t
	stored.UpdatedAt = at
	return nil
}

func (r *fakeSessionRepo) SetFinalizedMatch(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, matchID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return repositories.ErrLiveSessionNotFound
	}
	if stored.FinalizedMatchID != nil {
		return repositories.ErrLiveSessionFinalizedSet
	}
	m := matchID
	stored.FinalizedMatchID = &m
	return nil
}

func (r *fakeSessionRepo) UpdateScores(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, teamA, teamB int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return repositories.ErrLiveSessionNotFound
	}
	stored.TeamAScore = teamA
	stored.TeamBScore = teamB
	stored.UpdatedAt = at
	return nil
}

func (r *fakeSessionRepo) AppendEvent(_ context.Context, _ repositories.SQLExecutor, event *models.LiveSessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.New()
	stored := *event
	r.events[event.SessionID] = append(r.events[event.SessionID], &stored)
	return nil
}

func (r *fakeSessionRepo) ListEvents(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) ([]models.LiveSessionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listEventsLocked(sessionID), nil
}

func (r *fakeSessionRepo) listEventsLocked(sessionID uuid.UUID) []models.LiveSessionEvent {
	out := make([]models.LiveSessionEvent, 0, len(r.events[sessionID]))
	for _, e := range r.events[sessionID] {
		copied := *e
		copied.Undone = copied.UndoneAt != nil
		out = append(out, copied)
	}
	return out
}

func (r *fakeSessionRepo) MarkEventUndone(_ context.Context, _ repositories.SQLExecutor, sessionID, eventID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events[sessionID] {
		if e.ID != eventID {
			continue
		}
		if e.UndoneAt != nil {
			return repositories.ErrLiveEventAlreadyUndone
		}
		t := at
		e.UndoneAt = &t
		return nil
	}
	return repositories.ErrLiveEventNotFound
}

type fakeLeagueRepo struct {
	leagues map[string]*models.League
	members map[uuid.UUID]*models.LeagueMember
	seasons map[uuid.UUID]*models.Season
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{
		leagues: make(map[string]*models.League),
		members: make(map[uuid.UUID]*models.LeagueMember),
		seasons: make(map[uuid.UUID]*models.Season),
	}
}

func (r *fakeLeagueRepo) GetBySlug(_ context.Context, slug string) (*models.League, error) {
	league, ok := r.leagues[slug]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	return league, nil
}

func (r *fakeLeagueRepo) GetMember(_ context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	member, ok := r.members[userID]
	if !ok || member.LeagueID != leagueID || member.Status != models.MemberStatusActive {
		return nil, repositories.ErrMemberNotFound
	}
	return member, nil
}

func (r *fakeLeagueRepo) GetSeason(_ context.Context, leagueID, seasonID uuid.UUID) (*models.Season, error) {
	season, ok := r.seasons[seasonID]
	if !ok || season.LeagueID != leagueID {
		return nil, repositories.ErrSeasonNotFound
	}
	return season, nil
}

type fakePlayerRepo struct {
	players map[uuid.UUID]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[uuid.UUID]*models.Player)}
}

func (r *fakePlayerRepo) ListByIDs(_ context.Context, leagueID uuid.UUID, ids []uuid.UUID) ([]*models.Player, error) {
	out := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok && p.LeagueID == leagueID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ListIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for _, p := range r.players {
		if p.UserID != nil && *p.UserID == userID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches []*models.Match
	players []*models.MatchPlayer
	events  []*models.MatchEvent
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match.ID = uuid.New()
	match.CreatedAt = time.Now().UTC()
	stored := *match
	r.matches = append(r.matches, &stored)
	return nil
}

func (r *fakeMatchRepo) AddPlayer(_ context.Context, _ repositories.SQLExecutor, player *models.MatchPlayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player.ID = uuid.New()
	stored := *player
	r.players = append(r.players, &stored)
	return nil
}

func (r *fakeMatchRepo) AddEvent(_ context.Context, _ repositories.SQLExecutor, event *models.MatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.New()
	stored := *event
	r.events = append(r.events, &stored)
	return nil
}

// testEnv связывает сервис с in-memory фейками и посевом данных, общих
// для большинства сценариев.
type testEnv struct {
	service     LiveMatchService
	sessionRepo *fakeSessionRepo
	leagueRepo  *fakeLeagueRepo
	playerRepo  *fakePlayerRepo
	matchRepo   *fakeMatchRepo

	league     *models.League
	season     *models.Season
	ownerID    uuid.UUID
	adminID    uuid.UUID
	strangerID uuid.UUID
	playerA    *models.Player
	playerB    *models.Player
}

func newTestEnv() *testEnv {
	env := &testEnv{
		sessionRepo: newFakeSessionRepo(),
		leagueRepo:  newFakeLeagueRepo(),
		playerRepo:  newFakePlayerRepo(),
		matchRepo:   &fakeMatchRepo{},
	}

	env.league = &models.League{ID: uuid.New(), Slug: "garage", Name: "Garage League"}
	env.leagueRepo.leagues[env.league.Slug] = env.league

	env.season = &models.Season{ID: uuid.New(), LeagueID: env.league.ID, Name: "2026"}
	env.leagueRepo.seasons[env.season.ID] = env.season

	env.ownerID = uuid.New()
	env.adminID = uuid.New()
	env.strangerID = uuid.New()
	env.leagueRepo.members[env.ownerID] = &models.LeagueMember{
		ID: uuid.New(), LeagueID: env.league.ID, UserID: env.ownerID,
		Role: models.RoleMember, Status: models.MemberStatusActive,
	}
	env.leagueRepo.members[env.adminID] = &models.LeagueMember{
		ID: uuid.New(), LeagueID: env.league.ID, UserID: env.adminID,
		Role: models.RoleAdmin, Status: models.MemberStatusActive,
	}

	ownerID := env.ownerID
	env.playerA = &models.Player{ID: uuid.New(), LeagueID: env.league.ID, UserID: &ownerID, Nickname: "alice"}
	env.playerB = &models.Player{ID: uuid.New(), LeagueID: env.league.ID, Nickname: "bob"}
	env.playerRepo.players[env.playerA.ID] = env.playerA
	env.playerRepo.players[env.playerB.ID] = env.playerB

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewAccessGate(env.leagueRepo, env.playerRepo)
	finalizer := NewFinalizer(env.matchRepo)
	env.service = NewLiveMatchService(
		fakeTxManager{}, env.sessionRepo, env.leagueRepo, env.playerRepo, gate, finalizer, logger)
	return env
}

func (env *testEnv) rosterOneVOne() []LiveMatchPlayerInput {
	return []LiveMatchPlayerInput{
		{PlayerID: env.playerA.ID, Team: models.TeamA, Position: models.PositionAttack},
		{PlayerID: env.playerB.ID, Team: models.TeamB, Position: models.PositionAttack},
	}
}

// createSession seeds a waiting 1v1 session created by the owner.
func (env *testEnv) createSession(withSecret bool) *models.LiveSession {
	session, err := env.service.CreateSession(context.Background(), env.league.Slug,
		Identity{UserID: env.ownerID}, CreateLiveMatchInput{
			SeasonID:             env.season.ID,
			Mode:                 models.ModeOneVOne,
			Players:              env.rosterOneVOne(),
			GenerateScorerSecret: withSecret,
		})
	if err != nil {
		panic(err)
	}
	return session
}

// activeSession seeds a session already moved to active.
func (env *testEnv) activeSession() *models.LiveSession {
	session := env.createSession(false)
	owner := &Identity{UserID: env.ownerID}
	updated, err := env.service.SetStatus(context.Background(), session.ShareToken, owner, "", models.LiveStatusActive)
	if err != nil {
		panic(err)
	}
	return updated
}
