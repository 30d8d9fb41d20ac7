package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound        = errors.New("requested resource not found")
	ErrLeagueNotFound  = errors.New("league not found")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrSessionNotFound = errors.New("live match session not found")
	ErrEventNotFound   = errors.New("live match event not found")
	ErrMatchNotFound   = errors.New("match not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidMode      = errors.New("invalid match mode")
	ErrInvalidRoster    = errors.New("invalid roster for the requested mode")
	ErrInvalidEvent     = errors.New("invalid event type and team combination")

	// Жизненный цикл живой сессии. Недопустимый переход всегда явная
	// ошибка, не тихий no-op.
	ErrInvalidStatusTransition = errors.New("invalid live session status transition")
	ErrSessionFinalized        = errors.New("live session is completed or abandoned")
	ErrSessionNotStarted       = errors.New("live session is not in progress")
	ErrEventAlreadyUndone      = errors.New("event has already been undone")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrScorePermissionDenied  = errors.New("caller is not allowed to score this match")
	ErrNotLeagueMember        = errors.New("user is not an active member of the league")
)
