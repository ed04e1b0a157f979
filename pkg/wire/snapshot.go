package wire

// MatchStatus is the authoritative lifecycle of a match as reported by the
// server inside snapshots.
type MatchStatus string

const (
	StatusWaiting     MatchStatus = "waiting"
	StatusInProgress  MatchStatus = "in_progress"
	StatusNegotiating MatchStatus = "negotiating"
	StatusCompleted   MatchStatus = "completed"
	StatusAbandoned   MatchStatus = "abandoned"
)

// PlayerInfo identifies one participant. Guests carry a client-generated id
// and Registered=false; identity never changes mid-session.
type PlayerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Registered bool   `json:"registered"`
	Rating     int    `json:"rating,omitempty"`
}

// MoveRecord is one confirmed (or provisional, client-side only) move.
// SequenceNumber is assigned by the server and is the ordering truth.
type MoveRecord struct {
	Move              Move   `json:"move"`
	SAN               string `json:"san,omitempty"`
	ResultingPosition string `json:"resultingPosition"`
	SequenceNumber    int    `json:"sequenceNumber"`
}

// MatchResult is present once a match has completed.
type MatchResult struct {
	Winner string `json:"winner"` // own | opponent | draw
	Reason string `json:"reason"`
}

// ClockPayload mirrors ClockTick inside snapshots.
type ClockPayload struct {
	OwnRemainingMS      int64 `json:"ownRemaining"`
	OpponentRemainingMS int64 `json:"opponentRemaining"`
	ServerTimestampMS   int64 `json:"serverTimestamp"`
}

// MatchSnapshot is the server's full view of a match. It is sent on join and
// after every reconnection, and is adopted by the client as a pure overwrite.
type MatchSnapshot struct {
	MatchID  string        `json:"matchId"`
	Position string        `json:"position"` // FEN
	Turn     string        `json:"turn"`     // white | black
	Status   MatchStatus   `json:"status"`
	Own      PlayerInfo    `json:"own"`
	Opponent PlayerInfo    `json:"opponent"`
	Moves    []MoveRecord  `json:"moveLog"`
	Result   *MatchResult  `json:"result,omitempty"`
	Clock    *ClockPayload `json:"clock,omitempty"`

	// DrawOfferBy carries the player id of an unresolved draw offer, so a
	// reconnecting client can restore negotiation state.
	DrawOfferBy string `json:"drawOfferBy,omitempty"`
}
