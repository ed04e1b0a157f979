package gamelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Gateway is the REST side of the match server: room bootstrap and health.
// Gameplay itself happens over the WebSocket channel; the gateway only hands
// out room ids before the channel is joined.
type Gateway struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) GatewayOption {
	return func(g *Gateway) { g.headers = h }
}

func WithRetry(max int) GatewayOption {
	return func(g *Gateway) { g.retryMax = max }
}

func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := g.doJSON(ctx, fasthttp.MethodGet, "/health", nil, &info, true); err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *Gateway) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomInfo, error) {
	var room RoomInfo
	if err := g.doJSON(ctx, fasthttp.MethodPost, "/rooms", req, &room, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(room.RoomID) == "" {
		return nil, errors.New("server returned empty room id")
	}
	return &room, nil
}

func (g *Gateway) ListOpenRooms(ctx context.Context) ([]RoomInfo, error) {
	var rooms []RoomInfo
	if err := g.doJSON(ctx, fasthttp.MethodGet, "/rooms?open=true", nil, &rooms, true); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (g *Gateway) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := g.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if g.headers != nil {
		for k, v := range g.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = g.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := g.computeDeadline(ctx)
		err := g.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(100*time.Millisecond, attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("gateway error: status=%d body=%s", status, truncate(body, 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(100*time.Millisecond, attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (g *Gateway) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(g.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(g.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles the base delay per attempt, capped at 32x.
func backoffDuration(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
