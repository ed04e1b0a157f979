package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/gamelink"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// linkcheck probes the match server: REST health first, then a short
// websocket observation window. Useful when wiring up a new deployment.
func main() {
	baseURL := os.Getenv("SERVER_BASE_URL")
	wsURL := os.Getenv("SERVER_WS_URL")
	token := os.Getenv("AUTH_TOKEN")

	if baseURL == "" {
		log.Fatal("SERVER_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	gateway := gamelink.NewGateway(baseURL,
		gamelink.WithHeaderProvider(headers),
		gamelink.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := gateway.Health(ctx)
	if err != nil {
		log.Printf("/health error: %v", err)
	} else {
		log.Printf("/health ok: status=%s version=%s", info.Status, info.Version)
	}

	if wsURL == "" {
		log.Println("SERVER_WS_URL not set; skipping WS check")
		return
	}

	ws := gamelink.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gamelink.ConnState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnEvent(func(env *wire.Envelope) {
		fmt.Printf("WS event=%s payload=%d bytes\n", env.Event, len(env.Data))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
