package models

import (
	"time"

	"github.com/google/uuid"
)

// Player описывает участника лиги. Может быть привязан к пользователю, но гостевые
// игроки существуют без учётной записи.
type Player struct {
	ID        uuid.UUID  `json:"id"`
	LeagueID  uuid.UUID  `json:"league_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Nickname  string     `json:"nickname"`
	CreatedAt time.Time  `json:"created_at"`
}
