package liveclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamelle/league-system/models"
)

type pollPayload struct {
	Session  Snapshot `json:"session"`
	CanScore bool     `json:"can_score"`
}

func serveSnapshot(t *testing.T, payload *pollPayload, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/live/"+payload.Session.ShareToken {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode snapshot: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func withClock(t *testing.T, now time.Time) *time.Time {
	t.Helper()
	current := now
	orig := timeNow
	timeNow = func() time.Time { return current }
	t.Cleanup(func() { timeNow = orig })
	return &current
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	payload := &pollPayload{
		Session: Snapshot{
			ShareToken: "tok",
			Mode:       models.ModeOneVOne,
			Status:     models.LiveStatusActive,
			TeamAScore: 3,
			TeamBScore: 1,
		},
		CanScore: true,
	}
	server := serveSnapshot(t, payload, nil)
	client := NewClient(Config{BaseURL: server.URL, ShareToken: "tok"})

	if _, ok := client.Snapshot(); ok {
		t.Fatal("snapshot before first poll must be absent")
	}

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap, ok := client.Snapshot()
	if !ok {
		t.Fatal("snapshot missing after successful poll")
	}
	if snap.TeamAScore != 3 || snap.TeamBScore != 1 {
		t.Errorf("scores = (%d, %d), want (3, 1)", snap.TeamAScore, snap.TeamBScore)
	}
	if !client.CanScore() {
		t.Error("can_score lost")
	}

	// Следующий опрос заменяет кеш целиком, включая понижение прав.
	payload.Session.TeamAScore = 4
	payload.CanScore = false
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	snap, _ = client.Snapshot()
	if snap.TeamAScore != 4 {
		t.Errorf("stale score after refresh: %d", snap.TeamAScore)
	}
	if client.CanScore() {
		t.Error("can_score not replaced")
	}
}

func TestRefreshKeepsSnapshotOnError(t *testing.T) {
	payload := &pollPayload{Session: Snapshot{ShareToken: "tok", Status: models.LiveStatusActive}}
	server := serveSnapshot(t, payload, nil)
	client := NewClient(Config{BaseURL: server.URL, ShareToken: "tok"})

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	bad := NewClient(Config{BaseURL: server.URL, ShareToken: "missing"})
	if err := bad.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for unknown share token")
	}

	if _, ok := client.Snapshot(); !ok {
		t.Error("good client lost its snapshot")
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	payload := &pollPayload{Session: Snapshot{ShareToken: "tok", Status: models.LiveStatusWaiting}}
	server := serveSnapshot(t, payload, &hits)
	client := NewClient(Config{
		BaseURL:    server.URL,
		ShareToken: "tok",
		Interval:   5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for hits.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d polls before deadline", hits.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestStateFollowsPollRecency(t *testing.T) {
	payload := &pollPayload{Session: Snapshot{ShareToken: "tok", Status: models.LiveStatusActive}}
	server := serveSnapshot(t, payload, nil)
	client := NewClient(Config{BaseURL: server.URL, ShareToken: "tok", Window: 10 * time.Second})

	clock := withClock(t, time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))

	if client.State() != StateReconnecting || client.Connected() {
		t.Error("client without a successful poll must report reconnecting")
	}
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if client.State() != StateConnected {
		t.Error("fresh poll must report connected")
	}

	*clock = clock.Add(11 * time.Second)
	if client.State() != StateReconnecting {
		t.Error("stale poll must report reconnecting")
	}

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if client.State() != StateConnected {
		t.Error("recovery poll must report connected")
	}
}

func TestElapsedSecondsFreezes(t *testing.T) {
	base := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	clock := withClock(t, base)
	startedAt := base.Add(-90 * time.Second)

	payload := &pollPayload{
		Session: Snapshot{
			ShareToken: "tok",
			Status:     models.LiveStatusActive,
			StartedAt:  &startedAt,
		},
	}
	server := serveSnapshot(t, payload, nil)
	client := NewClient(Config{BaseURL: server.URL, ShareToken: "tok"})

	if got := client.ElapsedSeconds(); got != 0 {
		t.Errorf("elapsed before first poll = %d, want 0", got)
	}

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := client.ElapsedSeconds(); got != 90 {
		t.Errorf("elapsed = %d, want 90", got)
	}

	// Пока матч активен, часы идут локально без новых опросов.
	*clock = clock.Add(30 * time.Second)
	if got := client.ElapsedSeconds(); got != 120 {
		t.Errorf("elapsed = %d, want 120", got)
	}

	// Пауза замораживает значение, не сбрасывая его.
	payload.Session.Status = models.LiveStatusPaused
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	frozen := client.ElapsedSeconds()
	if frozen != 120 {
		t.Errorf("frozen elapsed = %d, want 120", frozen)
	}
	*clock = clock.Add(time.Minute)
	if got := client.ElapsedSeconds(); got != frozen {
		t.Errorf("elapsed moved while paused: %d -> %d", frozen, got)
	}
}

func TestElapsedSecondsStableAcrossPausedPolls(t *testing.T) {
	base := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	clock := withClock(t, base)
	startedAt := base.Add(-90 * time.Second)

	payload := &pollPayload{
		Session: Snapshot{
			ShareToken: "tok",
			Status:     models.LiveStatusActive,
			StartedAt:  &startedAt,
		},
	}
	server := serveSnapshot(t, payload, nil)
	client := NewClient(Config{BaseURL: server.URL, ShareToken: "tok"})

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	payload.Session.Status = models.LiveStatusPaused
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("pause Refresh: %v", err)
	}
	if got := client.ElapsedSeconds(); got != 90 {
		t.Fatalf("frozen elapsed = %d, want 90", got)
	}

	// Опросы продолжаются и во время паузы; каждый новый ответ с тем же
	// статусом не должен сдвигать замороженные часы.
	for i := 0; i < 3; i++ {
		*clock = clock.Add(time.Minute)
		if err := client.Refresh(context.Background()); err != nil {
			t.Fatalf("paused re-poll %d: %v", i, err)
		}
		if got := client.ElapsedSeconds(); got != 90 {
			t.Fatalf("elapsed after paused re-poll %d = %d, want 90", i, got)
		}
	}

	// Возобновление снова включает живые часы.
	payload.Session.Status = models.LiveStatusActive
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("resume Refresh: %v", err)
	}
	if got := client.ElapsedSeconds(); got != 90+3*60 {
		t.Errorf("elapsed after resume = %d, want %d", got, 90+3*60)
	}

	// Повторная пауза фиксирует уже новое значение.
	payload.Session.Status = models.LiveStatusCompleted
	*clock = clock.Add(10 * time.Second)
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("complete Refresh: %v", err)
	}
	if got := client.ElapsedSeconds(); got != 90+3*60+10 {
		t.Errorf("elapsed after completion = %d, want %d", got, 90+3*60+10)
	}
}
