package gamelink

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// refusedAddr returns an address nothing is listening on.
func refusedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}

func TestConnect_DialFailureDefersFailedState(t *testing.T) {
	ws := NewWebSocket("ws://"+refusedAddr(t), 2, time.Millisecond)
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	var mu sync.Mutex
	var states []ConnState
	ws.OnStateChange(func(st ConnState) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	if err := ws.Connect(context.Background()); err == nil {
		t.Fatal("Connect() = nil, want dial error")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		last := ConnState("")
		if len(states) > 0 {
			last = states[len(states)-1]
		}
		mu.Unlock()
		if last == StateFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never reached %s, states: %v", StateFailed, states)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	sawReconnecting := false
	for _, st := range states {
		if st == StateReconnecting {
			sawReconnecting = true
		}
		if st == StateFailed && !sawReconnecting {
			t.Fatalf("entered %s before any reconnect attempt, states: %v", StateFailed, states)
		}
	}
}

func TestDisconnect_ReaderAndPingExitWithConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
		_ = c.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws := NewWebSocket(wsURL, 0, time.Millisecond)
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reader or ping goroutine outlived its connection")
	}
}
