package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/repositories"
)

// Finalizer converts a live session into a permanent match record in the
// match store. It is the only writer of matches in this subsystem and runs
// inside the caller's transaction, so a session is converted exactly once.
type Finalizer struct {
	matchRepo repositories.MatchRepository
}

func NewFinalizer(matchRepo repositories.MatchRepository) *Finalizer {
	return &Finalizer{matchRepo: matchRepo}
}

func (f *Finalizer) Store(ctx context.Context, exec repositories.SQLExecutor, session *models.LiveSession) (*models.Match, error) {
	// The score comes from the projection of the log, not the cached
	// columns, so the stored match can never disagree with the audit trail.
	teamA, teamB := models.ProjectScore(session.Events)

	playedAt := session.CreatedAt
	if session.StartedAt != nil {
		playedAt = *session.StartedAt
	}

	match := &models.Match{
		LeagueID:   session.LeagueID,
		SeasonID:   session.SeasonID,
		Mode:       session.Mode,
		TeamAScore: teamA,
		TeamBScore: teamB,
		PlayedAt:   playedAt,
		Status:     models.MatchStatusValid,
	}
	if err := f.matchRepo.Create(ctx, exec, match); err != nil {
		return nil, fmt.Errorf("failed to store match for session %s: %w", session.ID, err)
	}

	for _, lp := range session.Players {
		mp := &models.MatchPlayer{
			MatchID:  match.ID,
			PlayerID: lp.PlayerID,
			Team:     lp.Team,
			Position: lp.Position,
		}
		if err := f.matchRepo.AddPlayer(ctx, exec, mp); err != nil {
			return nil, fmt.Errorf("failed to store match player for session %s: %w", session.ID, err)
		}
	}

	// Gamelles with a known victim survive into the permanent record; they
	// feed per-player stats downstream. Undone events stay behind in the
	// session log.
	for _, le := range session.Events {
		if le.UndoneAt != nil || le.Type != models.EventGamellized || le.AgainstPlayerID == nil {
			continue
		}
		me := &models.MatchEvent{
			MatchID:         match.ID,
			Type:            models.MatchEventGamelle,
			ByPlayerID:      le.ByPlayerID,
			AgainstPlayerID: *le.AgainstPlayerID,
			Count:           1,
		}
		if err := f.matchRepo.AddEvent(ctx, exec, me); err != nil {
			return nil, fmt.Errorf("failed to store match event for session %s: %w", session.ID, err)
		}
	}

	return match, nil
}

// clockNow is swapped in tests.
var clockNow = func() time.Time { return time.Now().UTC() }
