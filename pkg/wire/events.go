package wire

import "encoding/json"

// Event names exchanged with the match server. Outbound events are intents;
// inbound events are authoritative and must be applied in arrival order.
const (
	// outbound
	EventJoinRoom    = "join_room"
	EventSubmitMove  = "submit_move"
	EventOfferDraw   = "offer_draw"
	EventRespondDraw = "respond_draw"
	EventResign      = "resign"
	EventSendChat    = "send_chat"

	// inbound
	EventRoomSnapshot     = "room_snapshot"
	EventMatchStarted     = "match_started"
	EventMoveConfirmed    = "move_confirmed"
	EventClockTick        = "clock_tick"
	EventMatchCompleted   = "match_completed"
	EventDrawOffered      = "draw_offered"
	EventDrawDeclined     = "draw_declined"
	EventPeerDisconnected = "peer_disconnected"
	EventPeerReconnected  = "peer_reconnected"
	EventChatReceived     = "chat_received"
)

// Envelope is the frame format on the websocket: a named event plus its
// payload, decoded lazily by the handler that knows the event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope. A nil payload produces an
// envelope with no data, which is valid for events like resign.
func NewEnvelope(event string, payload any) (*Envelope, error) {
	env := &Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.Data = raw
	return env, nil
}

// Outbound payloads.

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type SubmitMove struct {
	RoomID string `json:"roomId"`
	Move   Move   `json:"move"`
}

type OfferDraw struct {
	RoomID string `json:"roomId"`
}

type RespondDraw struct {
	RoomID string `json:"roomId"`
	Accept bool   `json:"accept"`
}

type Resign struct {
	RoomID string `json:"roomId"`
}

type SendChat struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Inbound payloads.

type MoveConfirmed struct {
	Move              Move   `json:"move"`
	SAN               string `json:"san,omitempty"`
	ResultingPosition string `json:"resultingPosition"`
	SequenceNumber    int    `json:"sequenceNumber"`
	NextTurn          string `json:"nextTurn"`
}

// ClockTick carries remaining time in milliseconds from the receiver's
// perspective, plus the server timestamp the values were sampled at.
type ClockTick struct {
	OwnRemainingMS      int64 `json:"ownRemaining"`
	OpponentRemainingMS int64 `json:"opponentRemaining"`
	ServerTimestampMS   int64 `json:"serverTimestamp"`
}

type MatchCompleted struct {
	Winner string `json:"winner"` // own | opponent | draw
	Reason string `json:"reason"`
}

type DrawOffered struct {
	ByPlayer string `json:"byPlayer"`
}

type ChatReceived struct {
	ID          string `json:"id"`
	ByPlayer    string `json:"byPlayer"`
	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp"`
}
