package models

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole соответствует ENUM member_role в БД.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Administrative reports whether the role may manage live sessions it does
// not own.
func (r MemberRole) Administrative() bool {
	return r == RoleOwner || r == RoleAdmin
}

type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

type League struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type LeagueMember struct {
	ID        uuid.UUID    `json:"id"`
	LeagueID  uuid.UUID    `json:"league_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Role      MemberRole   `json:"role"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type Season struct {
	ID        uuid.UUID `json:"id"`
	LeagueID  uuid.UUID `json:"league_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
