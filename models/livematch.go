package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveSessionStatus задаёт статус живой сессии. Переходы между статусами
// проверяются на сервисном уровне; здесь только значения.
type LiveSessionStatus string

const (
	LiveStatusWaiting   LiveSessionStatus = "waiting"
	LiveStatusActive    LiveSessionStatus = "active"
	LiveStatusPaused    LiveSessionStatus = "paused"
	LiveStatusCompleted LiveSessionStatus = "completed"
	LiveStatusAbandoned LiveSessionStatus = "abandoned"
)

// Terminal reports whether the session can never change again.
func (s LiveSessionStatus) Terminal() bool {
	return s == LiveStatusCompleted || s == LiveStatusAbandoned
}

type MatchMode string

const (
	ModeOneVOne MatchMode = "1v1"
	ModeTwoVTwo MatchMode = "2v2"
)

// PlayerCount возвращает размер состава для режима.
func (m MatchMode) PlayerCount() int {
	if m == ModeTwoVTwo {
		return 4
	}
	return 2
}

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

type Position string

const (
	PositionAttack  Position = "attack"
	PositionDefense Position = "defense"
)

// LiveEventType задаёт тип события в журнале сессии. Журнал является
// источником истины для счёта: событие несёт дельту, а счёт всегда
// пересчитывается свёрткой журнала, никогда не инкрементируется.
type LiveEventType string

const (
	EventGoal       LiveEventType = "goal"
	EventGamellized LiveEventType = "gamellized"
	EventLobbed     LiveEventType = "lobbed"
	EventTimeout    LiveEventType = "timeout"
	EventCustom     LiveEventType = "custom"
)

// ScoreDelta returns the score contribution of one non-undone event of
// this type for its team.
func (t LiveEventType) ScoreDelta() int {
	switch t {
	case EventGoal:
		return 1
	case EventGamellized:
		return -1
	case EventLobbed:
		return -3
	default:
		return 0
	}
}

// RequiresTeam reports whether an event of this type must name a team.
// Custom events are annotations and may be team-less.
func (t LiveEventType) RequiresTeam() bool {
	return t != EventCustom
}

type LiveSession struct {
	ID         uuid.UUID `json:"id"`
	LeagueID   uuid.UUID `json:"league_id"`
	SeasonID   uuid.UUID `json:"season_id"`
	ShareToken string    `json:"share_token"`
	// ScorerSecret выдаётся один раз при создании и никогда не попадает
	// в публичный вид.
	ScorerSecret     *string             `json:"scorer_secret,omitempty"`
	Mode             MatchMode           `json:"mode"`
	Status           LiveSessionStatus   `json:"status"`
	TeamAScore       int                 `json:"team_a_score"`
	TeamBScore       int                 `json:"team_b_score"`
	CreatedByUserID  uuid.UUID           `json:"created_by_user_id"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	EndedAt          *time.Time          `json:"ended_at,omitempty"`
	FinalizedMatchID *uuid.UUID          `json:"finalized_match_id,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Players          []LiveSessionPlayer `json:"players,omitempty"`
	Events           []LiveSessionEvent  `json:"events,omitempty"`
}

type LiveSessionPlayer struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	Team      Team      `json:"team"`
	Position  Position  `json:"position"`
}

type LiveSessionEvent struct {
	ID        uuid.UUID     `json:"id"`
	SessionID uuid.UUID     `json:"session_id"`
	Type      LiveEventType `json:"event_type"`
	Team      *Team         `json:"team,omitempty"`
	// ElapsedSeconds хранит игровое время, присланное клиентом. Только
	// для отображения; порядок журнала определяется recorded_at.
	ElapsedSeconds   *int       `json:"elapsed_seconds,omitempty"`
	ByPlayerID       *uuid.UUID `json:"by_player_id,omitempty"`
	AgainstPlayerID  *uuid.UUID `json:"against_player_id,omitempty"`
	CustomType       *string    `json:"custom_type,omitempty"`
	RecordedAt       time.Time  `json:"recorded_at"`
	RecordedByUserID *uuid.UUID `json:"recorded_by_user_id,omitempty"`
	UndoneAt         *time.Time `json:"-"`
	Undone           bool       `json:"undone"`
}

// ProjectScore сворачивает журнал в пару счетов. Отменённые события не
// участвуют; счёт может быть отрицательным.
func ProjectScore(events []LiveSessionEvent) (teamA, teamB int) {
	for _, e := range events {
		if e.UndoneAt != nil || e.Team == nil {
			continue
		}
		delta := e.Type.ScoreDelta()
		if delta == 0 {
			continue
		}
		switch *e.Team {
		case TeamA:
			teamA += delta
		case TeamB:
			teamB += delta
		}
	}
	return teamA, teamB
}
