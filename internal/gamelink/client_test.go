package gamelink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateway_Health(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		gotAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(HealthInfo{Status: "ok", Version: "1.2.3"})
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"Authorization": "Bearer tok", "Empty": ""}
	}))

	info, err := g.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if info.Status != "ok" || info.Version != "1.2.3" {
		t.Fatalf("info: %#v", info)
	}
	if gotAuth.Load() != "Bearer tok" {
		t.Fatalf("auth header: %v", gotAuth.Load())
	}
}

func TestGateway_CreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rooms" {
			http.NotFound(w, r)
			return
		}
		var req CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(RoomInfo{RoomID: "r1", TimeControl: req.TimeControl, Open: true})
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL)
	room, err := g.CreateRoom(context.Background(), CreateRoomRequest{TimeControl: "5+3"})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.RoomID != "r1" || room.TimeControl != "5+3" || !room.Open {
		t.Fatalf("room: %#v", room)
	}
}

func TestGateway_CreateRoom_EmptyIDRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RoomInfo{})
	}))
	t.Cleanup(srv.Close)

	if _, err := NewGateway(srv.URL).CreateRoom(context.Background(), CreateRoomRequest{}); err == nil {
		t.Fatalf("expected error for empty room id")
	}
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(HealthInfo{Status: "ok"})
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL, WithRetry(3))
	info, err := g.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if info.Status != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("status=%q calls=%d", info.Status, calls)
	}
}

func TestGateway_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL, WithRetry(3))
	_, err := g.Health(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err=%v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("403 was retried: calls=%d", calls)
	}
}

func TestBackoffDuration(t *testing.T) {
	base := 100 * time.Millisecond
	if d := backoffDuration(base, 1); d != base {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := backoffDuration(base, 3); d != 4*base {
		t.Fatalf("attempt 3: %v", d)
	}
	// Capped so a long outage never produces unbounded waits.
	if d := backoffDuration(base, 50); d != 32*base {
		t.Fatalf("attempt 50: %v", d)
	}
	if d := backoffDuration(0, 1); d <= 0 {
		t.Fatalf("zero base: %v", d)
	}
}

func TestShouldRetryStatus(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504} {
		if !shouldRetryStatus(code) {
			t.Fatalf("%d should retry", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 409} {
		if shouldRetryStatus(code) {
			t.Fatalf("%d should not retry", code)
		}
	}
}
