// Package liveclient реализует потребительскую сторону живого матча:
// опрос снапшота с фиксированным интервалом, производный индикатор
// связности и локальные часы прошедшего времени.
package liveclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gamelle/league-system/models"
)

// ConnState представляет производный сигнал связности. Ошибки опроса никогда
// не фатальны: следующий тик пробует снова с тем же интервалом, без backoff.
type ConnState string

const (
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

const (
	DefaultInterval = 3 * time.Second
	// DefaultWindow bounds how stale the last successful poll may be while
	// the client still reports itself connected.
	DefaultWindow = 10 * time.Second
)

// Snapshot зеркалит публичный вид сессии. Кеш заменяется целиком при каждом
// успешном опросе; инкрементального диффа нет.
type Snapshot struct {
	ShareToken string                     `json:"share_token"`
	Mode       models.MatchMode           `json:"mode"`
	Status     models.LiveSessionStatus   `json:"status"`
	TeamAScore int                        `json:"team_a_score"`
	TeamBScore int                        `json:"team_b_score"`
	Players    []models.LiveSessionPlayer `json:"players"`
	Events     []models.LiveSessionEvent  `json:"events"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
}

type Config struct {
	BaseURL    string
	ShareToken string
	Interval   time.Duration
	Window     time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	shareToken string
	interval   time.Duration
	window     time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.RWMutex
	snapshot    *Snapshot
	canScore    bool
	lastSuccess time.Time
	// frozenElapsed holds the clock value captured when the match left the
	// active status. The clock stops advancing, it never resets.
	frozenElapsed int
}

// timeNow is swapped in tests.
var timeNow = time.Now

func NewClient(cfg Config) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		shareToken: cfg.ShareToken,
		interval:   cfg.Interval,
		window:     cfg.Window,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// Run опрашивает сервер до отмены контекста. Отмена контекста является
// единственным способом остановки; на сервере нечего чистить.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("live poll failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("live poll failed", slog.Any("error", err))
			}
		}
	}
}

// Refresh выполняет один опрос и заменяет локальный кеш целиком.
func (c *Client) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/live/%s", c.baseURL, c.shareToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build poll request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll returned unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Session  Snapshot `json:"session"`
		CanScore bool     `json:"can_score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode poll response: %w", err)
	}

	now := timeNow()
	c.mu.Lock()
	prev := c.snapshot
	c.snapshot = &payload.Session
	c.canScore = payload.CanScore
	c.lastSuccess = now
	// Захватываем замороженное значение только на переходе из active;
	// повторные опросы в том же неактивном статусе его не сдвигают.
	if payload.Session.Status != models.LiveStatusActive &&
		(prev == nil || prev.Status == models.LiveStatusActive) {
		c.frozenElapsed = elapsedAt(&payload.Session, now)
	}
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the last successfully fetched state.
func (c *Client) Snapshot() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}

func (c *Client) CanScore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canScore
}

// Connected reports whether the last successful poll is recent enough to
// trust the cached snapshot.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// State classifies connectivity from the recency of the last successful
// poll. A client that has never polled successfully is reconnecting.
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastSuccess.IsZero() || timeNow().Sub(c.lastSuccess) > c.window {
		return StateReconnecting
	}
	return StateConnected
}

// ElapsedSeconds derives the visible clock locally from started_at, so the
// display does not depend on sub-second server round trips. While the match
// is active the value is non-decreasing; in any other status it freezes at
// the last computed value.
//
// started_at is never adjusted across a pause, so after a resume the clock
// jumps forward over the paused interval. That mirrors the server's
// behavior and is accepted: the log keeps authoritative timing anyway.
func (c *Client) ElapsedSeconds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return 0
	}
	if c.snapshot.Status == models.LiveStatusActive {
		return elapsedAt(c.snapshot, timeNow())
	}
	return c.frozenElapsed
}

func elapsedAt(s *Snapshot, now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	elapsed := int(now.Sub(*s.StartedAt).Seconds())
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
