package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/repositories"
	"github.com/google/uuid"
)

// AccessLevel задаёт уровень доступа к живой сессии. Уровни упорядочены:
// Viewer < Member < Scorer. Member и Scorer имеют одинаковые права на
// мутации; отдельных owner-only операций в этой подсистеме нет.
type AccessLevel int

const (
	// LevelViewer is the floor: anyone who located the session through a
	// valid share token can read the snapshot. There is no level below it;
	// a bad share token is a lookup failure, not a permission failure.
	LevelViewer AccessLevel = iota
	LevelMember
	LevelScorer
)

func (l AccessLevel) String() string {
	switch l {
	case LevelScorer:
		return "scorer"
	case LevelMember:
		return "member"
	default:
		return "viewer"
	}
}

// CanScore reports whether the level grants mutation rights.
func (l AccessLevel) CanScore() bool {
	return l >= LevelMember
}

// Identity представляет уже разрешённую личность вызывающего. nil означает
// анонимный запрос. Выпуском токенов занимается внешний сервис; движок
// только потребляет результат.
type Identity struct {
	UserID uuid.UUID
}

type AccessGate interface {
	// Resolve classifies a caller against one session. Precedence: a
	// verbatim scorer secret wins, then roster/creator/admin membership,
	// then read-only viewer.
	Resolve(ctx context.Context, session *models.LiveSession, identity *Identity, scorerSecret string) (AccessLevel, error)
}

type accessGate struct {
	leagueRepo repositories.LeagueRepository
	playerRepo repositories.PlayerRepository
}

func NewAccessGate(leagueRepo repositories.LeagueRepository, playerRepo repositories.PlayerRepository) AccessGate {
	return &accessGate{
		leagueRepo: leagueRepo,
		playerRepo: playerRepo,
	}
}

func (g *accessGate) Resolve(ctx context.Context, session *models.LiveSession, identity *Identity, scorerSecret string) (AccessLevel, error) {
	if scorerSecret != "" && session.ScorerSecret != nil && scorerSecret == *session.ScorerSecret {
		return LevelScorer, nil
	}

	if identity == nil {
		return LevelViewer, nil
	}

	if identity.UserID == session.CreatedByUserID {
		return LevelMember, nil
	}

	inRoster, err := g.userInRoster(ctx, session, identity.UserID)
	if err != nil {
		return LevelViewer, err
	}
	if inRoster {
		return LevelMember, nil
	}

	member, err := g.leagueRepo.GetMember(ctx, session.LeagueID, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return LevelViewer, nil
		}
		return LevelViewer, fmt.Errorf("failed to resolve league membership: %w", err)
	}
	if member.Role.Administrative() {
		return LevelMember, nil
	}

	return LevelViewer, nil
}

func (g *accessGate) userInRoster(ctx context.Context, session *models.LiveSession, userID uuid.UUID) (bool, error) {
	playerIDs, err := g.playerRepo.ListIDsByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list players for user %s: %w", userID, err)
	}
	if len(playerIDs) == 0 {
		return false, nil
	}

	rosterIDs := make(map[uuid.UUID]struct{}, len(session.Players))
	for _, p := range session.Players {
		rosterIDs[p.PlayerID] = struct{}{}
	}
	for _, id := range playerIDs {
		if _, ok := rosterIDs[id]; ok {
			return true, nil
		}
	}
	return false, nil
}
