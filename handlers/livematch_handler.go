package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gamelle/league-system/middleware"
	"github.com/gamelle/league-system/models"
	"github.com/gamelle/league-system/services"
	"github.com/go-chi/chi/v5"
)

type LiveMatchHandler struct {
	liveMatchService services.LiveMatchService
}

func NewLiveMatchHandler(liveMatchService services.LiveMatchService) *LiveMatchHandler {
	return &LiveMatchHandler{
		liveMatchService: liveMatchService,
	}
}

// publicSession представляет вид сессии для зрителей: без id, без секрета,
// без отменённых событий.
type publicSession struct {
	ShareToken string                     `json:"share_token"`
	Mode       models.MatchMode           `json:"mode"`
	Status     models.LiveSessionStatus   `json:"status"`
	TeamAScore int                        `json:"team_a_score"`
	TeamBScore int                        `json:"team_b_score"`
	Players    []models.LiveSessionPlayer `json:"players"`
	Events     []models.LiveSessionEvent  `json:"events"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
}

func publicView(session *models.LiveSession) publicSession {
	events := make([]models.LiveSessionEvent, 0, len(session.Events))
	for _, e := range session.Events {
		if e.UndoneAt == nil {
			events = append(events, e)
		}
	}
	return publicSession{
		ShareToken: session.ShareToken,
		Mode:       session.Mode,
		Status:     session.Status,
		TeamAScore: session.TeamAScore,
		TeamBScore: session.TeamBScore,
		Players:    session.Players,
		Events:     events,
		StartedAt:  session.StartedAt,
	}
}

// memberView returns the full session, withholding the scorer secret from
// anyone below member level.
func memberView(session *models.LiveSession, includeSecret bool) *models.LiveSession {
	if includeSecret {
		return session
	}
	redacted := *session
	redacted.ScorerSecret = nil
	return &redacted
}

func (h *LiveMatchHandler) CreateLiveMatchHandler(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateLiveMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.liveMatchService.CreateSession(r.Context(), chi.URLParam(r, "leagueSlug"), *identity, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) ListLiveMatchesHandler(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	sessions, err := h.liveMatchService.ListActiveSessions(r.Context(), chi.URLParam(r, "leagueSlug"), *identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) GetLiveMatchHandler(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.liveMatchService.GetSessionByID(r.Context(), chi.URLParam(r, "leagueSlug"), sessionID, *identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetLiveMatchPublicHandler отдаёт снапшот по share token. Один ответ несёт
// согласованные счёт, статус и лог, и клиент заменяет свой кеш целиком.
func (h *LiveMatchHandler) GetLiveMatchPublicHandler(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	session, level, err := h.liveMatchService.GetSessionByShareToken(r.Context(), chi.URLParam(r, "shareToken"), identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"session":   publicView(session),
		"can_score": level.CanScore(),
	}
	if level >= services.LevelMember {
		response["session"] = memberView(session, true)
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) RecordEventHandler(w http.ResponseWriter, r *http.Request) {
	var input services.LiveMatchEventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, session, err := h.liveMatchService.AppendEvent(
		r.Context(),
		chi.URLParam(r, "shareToken"),
		middleware.IdentityFromContext(r.Context()),
		r.Header.Get(middleware.ScorerSecretHeader),
		input,
	)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	middleware.LiveEventsRecorded.WithLabelValues(string(event.Type)).Inc()

	response := jsonResponse{
		"event":        event,
		"team_a_score": session.TeamAScore,
		"team_b_score": session.TeamBScore,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) UndoEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.liveMatchService.UndoEvent(
		r.Context(),
		chi.URLParam(r, "shareToken"),
		eventID,
		middleware.IdentityFromContext(r.Context()),
		r.Header.Get(middleware.ScorerSecretHeader),
	)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"event_id":     eventID,
		"team_a_score": session.TeamAScore,
		"team_b_score": session.TeamBScore,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status models.LiveSessionStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.liveMatchService.SetStatus(
		r.Context(),
		chi.URLParam(r, "shareToken"),
		middleware.IdentityFromContext(r.Context()),
		r.Header.Get(middleware.ScorerSecretHeader),
		input.Status,
	)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": session.Status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Confirm bool `json:"confirm"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !input.Confirm {
		badRequestResponse(w, r, errors.New("finalization must be confirmed"))
		return
	}

	matchID, err := h.liveMatchService.Finalize(
		r.Context(),
		chi.URLParam(r, "shareToken"),
		middleware.IdentityFromContext(r.Context()),
		r.Header.Get(middleware.ScorerSecretHeader),
	)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	middleware.LiveSessionsFinalized.Inc()

	response := jsonResponse{
		"match_id": matchID,
		"status":   models.LiveStatusCompleted,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveMatchHandler) AbandonHandler(w http.ResponseWriter, r *http.Request) {
	err := h.liveMatchService.Abandon(
		r.Context(),
		chi.URLParam(r, "shareToken"),
		middleware.IdentityFromContext(r.Context()),
		r.Header.Get(middleware.ScorerSecretHeader),
	)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.LiveStatusAbandoned}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MatchEventsHandler отдаёт лог живой сессии, стоящей за финализированным
// матчем: питание для графиков хода игры.
func (h *LiveMatchHandler) MatchEventsHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.liveMatchService.GetSessionByFinalizedMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			// Матч без живой сессии - не ошибка: старые матчи вводились вручную.
			response := jsonResponse{"events": []models.LiveSessionEvent{}, "has_live_data": false}
			if writeErr := writeJSON(w, http.StatusOK, response, nil); writeErr != nil {
				serverErrorResponse(w, r, writeErr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	events := make([]models.LiveSessionEvent, 0, len(session.Events))
	for _, e := range session.Events {
		if e.UndoneAt == nil {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		var ei, ej int
		if events[i].ElapsedSeconds != nil {
			ei = *events[i].ElapsedSeconds
		}
		if events[j].ElapsedSeconds != nil {
			ej = *events[j].ElapsedSeconds
		}
		return ei < ej
	})

	response := jsonResponse{
		"events":        events,
		"has_live_data": true,
		"started_at":    session.StartedAt,
		"ended_at":      session.EndedAt,
	}
	if session.StartedAt != nil && session.EndedAt != nil {
		response["duration_seconds"] = int(session.EndedAt.Sub(*session.StartedAt).Seconds())
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
