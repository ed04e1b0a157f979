package session

import (
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/gamelink"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/rules"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// State is the session state machine's position in the match lifecycle.
type State string

const (
	StateIdle               State = "idle"
	StateConnecting         State = "connecting"
	StateWaitingForOpponent State = "waiting_for_opponent"
	StateInProgress         State = "in_progress"
	StateNegotiating        State = "negotiating"
	StateDisconnected       State = "disconnected"
	StateCompleted          State = "completed"
)

// Side distinguishes the local player from the opponent.
type Side string

const (
	SideNone     Side = ""
	SideOwn      Side = "own"
	SideOpponent Side = "opponent"
)

// Negotiation tracks the draw sub-protocol: at most one outstanding offer.
type Negotiation struct {
	OfferPending bool
	OfferedBy    Side
}

// UpdateKind names what changed for subscribers.
type UpdateKind string

const (
	// UpdateSnapshot: the canonical snapshot changed (join, reconnect
	// re-anchor, optimistic local move).
	UpdateSnapshot UpdateKind = "snapshot"
	// UpdateMoveConfirmed: an authoritative move was applied.
	UpdateMoveConfirmed UpdateKind = "move_confirmed"
	// UpdateDesyncCorrected: the authority's echo disagreed with the local
	// optimistic result and overwrote it. Observability only, never fatal.
	UpdateDesyncCorrected UpdateKind = "desync_corrected"
	// UpdateTerminalCue: the local rules engine sees a terminal position.
	// Presentation may show an optimistic cue; only the authority completes
	// the match.
	UpdateTerminalCue UpdateKind = "terminal_cue"
	// UpdateCompleted: the authority reported the final result.
	UpdateCompleted UpdateKind = "completed"
	// UpdateNegotiation: draw offer state changed.
	UpdateNegotiation UpdateKind = "negotiation"
	// UpdateClock: an authoritative clock tick re-synced the countdown.
	UpdateClock UpdateKind = "clock"
	// UpdateConnection: the channel connection state changed.
	UpdateConnection UpdateKind = "connection"
	// UpdatePeer: the opponent dropped or came back.
	UpdatePeer UpdateKind = "peer"
	// UpdateChat: a chat line arrived.
	UpdateChat UpdateKind = "chat"
	// UpdateFatal: reconnection exhausted; the session cannot recover and the
	// user must re-enter the room.
	UpdateFatal UpdateKind = "fatal"
)

// Update is delivered to subscribers after each applied event. Snapshot and
// State are always populated; the other fields depend on Kind.
type Update struct {
	Kind     UpdateKind
	State    State
	Snapshot wire.MatchSnapshot

	Move        *wire.MoveRecord
	Terminal    rules.TerminalType
	Result      *wire.MatchResult
	Negotiation Negotiation
	Conn        gamelink.ConnState
	PeerOnline  bool
	Chat        *wire.ChatReceived
}

// UpdateCallback receives session updates. Callbacks run on the channel's
// reader goroutine after the event has been fully applied; they must not
// block.
type UpdateCallback func(u Update)
