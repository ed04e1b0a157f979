package session

import (
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/rules"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// pendingMove is the optimistic-update command for a move intent: apply
// speculatively now, then either confirm against the authoritative echo,
// correct from it, or roll back if the intent never left the client. At most
// one exists per session at a time.
type pendingMove struct {
	intent wire.Move

	prevPosition string
	prevTurn     string

	provisional wire.MoveRecord
}

// speculativeApply advances the snapshot with the locally computed result and
// records enough to undo it. The provisional record's sequence number is a
// guess; the authoritative echo replaces it.
func speculativeApply(snap *wire.MatchSnapshot, intent wire.Move, out *rules.Outcome) *pendingMove {
	p := &pendingMove{
		intent:       intent,
		prevPosition: snap.Position,
		prevTurn:     snap.Turn,
		provisional: wire.MoveRecord{
			Move:              intent,
			SAN:               out.SAN,
			ResultingPosition: out.FEN,
			SequenceNumber:    lastSequence(snap) + 1,
		},
	}
	snap.Position = out.FEN
	snap.Turn = otherColor(snap.Turn)
	snap.Moves = append(snap.Moves, p.provisional)
	return p
}

// matches reports whether an authoritative echo confirms this intent.
func (p *pendingMove) matches(mc *wire.MoveConfirmed) bool {
	return mc.Move.From == p.intent.From &&
		mc.Move.To == p.intent.To &&
		mc.Move.Promotion == p.intent.Promotion
}

// agrees reports whether the authority computed the same resulting position
// the optimistic apply did.
func (p *pendingMove) agrees(mc *wire.MoveConfirmed) bool {
	return mc.ResultingPosition == p.provisional.ResultingPosition
}

// confirm swaps the provisional record for the authoritative one. Used both
// when the echo agrees (plain confirmation) and when it does not (correction:
// the authoritative position overwrites the speculative one unconditionally).
func (p *pendingMove) confirm(snap *wire.MatchSnapshot, mc *wire.MoveConfirmed) wire.MoveRecord {
	rec := wire.MoveRecord{
		Move:              mc.Move,
		SAN:               mc.SAN,
		ResultingPosition: mc.ResultingPosition,
		SequenceNumber:    mc.SequenceNumber,
	}
	if n := len(snap.Moves); n > 0 {
		snap.Moves[n-1] = rec
	} else {
		snap.Moves = append(snap.Moves, rec)
	}
	snap.Position = mc.ResultingPosition
	snap.Turn = mc.NextTurn
	return rec
}

// rollback undoes the speculative apply, used when the send itself failed and
// no echo will ever arrive.
func (p *pendingMove) rollback(snap *wire.MatchSnapshot) {
	snap.Position = p.prevPosition
	snap.Turn = p.prevTurn
	if n := len(snap.Moves); n > 0 && snap.Moves[n-1].SequenceNumber == p.provisional.SequenceNumber {
		snap.Moves = snap.Moves[:n-1]
	}
}

func lastSequence(snap *wire.MatchSnapshot) int {
	if n := len(snap.Moves); n > 0 {
		return snap.Moves[n-1].SequenceNumber
	}
	return 0
}

func otherColor(c string) string {
	if c == "white" {
		return "black"
	}
	return "white"
}
