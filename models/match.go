package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusValid    MatchStatus = "valid"
	MatchStatusDisputed MatchStatus = "disputed"
	MatchStatusVoided   MatchStatus = "voided"
)

type MatchEventType string

const (
	MatchEventGamelle MatchEventType = "gamelle"
)

// Match представляет постоянную запись завершённого матча. Создаётся финализацией
// живой сессии и после этого не изменяется этой подсистемой.
type Match struct {
	ID         uuid.UUID   `json:"id"`
	LeagueID   uuid.UUID   `json:"league_id"`
	SeasonID   uuid.UUID   `json:"season_id"`
	Mode       MatchMode   `json:"mode"`
	TeamAScore int         `json:"team_a_score"`
	TeamBScore int         `json:"team_b_score"`
	PlayedAt   time.Time   `json:"played_at"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

type MatchPlayer struct {
	ID       uuid.UUID `json:"id"`
	MatchID  uuid.UUID `json:"match_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Team     Team      `json:"team"`
	Position Position  `json:"position"`
}

type MatchEvent struct {
	ID              uuid.UUID      `json:"id"`
	MatchID         uuid.UUID      `json:"match_id"`
	Type            MatchEventType `json:"event_type"`
	ByPlayerID      *uuid.UUID     `json:"by_player_id,omitempty"`
	AgainstPlayerID uuid.UUID      `json:"against_player_id"`
	Count           int            `json:"count"`
}
