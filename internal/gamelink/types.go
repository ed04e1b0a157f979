package gamelink

import (
	"context"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// ConnState is the lifecycle of the persistent channel connection.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateFailed       ConnState = "failed"
)

type EventCallback func(env *wire.Envelope)

type StateCallback func(state ConnState)

// HeaderProvider injects per-request headers (auth, identity) into the REST
// client and the websocket handshake.
type HeaderProvider func() map[string]string

// Channel is the transport contract the session core depends on. Implemented
// by *WebSocket; tests substitute a fake.
type Channel interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, event string, payload any) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}

// Gateway DTOs.

type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type CreateRoomRequest struct {
	TimeControl string `json:"timeControl,omitempty"`
	Rated       bool   `json:"rated,omitempty"`
}

type RoomInfo struct {
	RoomID      string `json:"roomId"`
	TimeControl string `json:"timeControl,omitempty"`
	CreatedByID string `json:"createdById,omitempty"`
	Open        bool   `json:"open"`
}
