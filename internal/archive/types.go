// Package archive persists completed-match records. Persistence is optional:
// both the Redis store and the Postgres repository are nil-safe and wired only
// when their URLs are configured.
package archive

import (
	"time"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// MatchRecord is the final, immutable record of one completed match.
type MatchRecord struct {
	MatchID   string    `json:"match_id"`
	WhiteID   string    `json:"white_id"`
	WhiteName string    `json:"white_name"`
	BlackID   string    `json:"black_id"`
	BlackName string    `json:"black_name"`
	Winner    string    `json:"winner"` // white | black | draw
	Reason    string    `json:"reason"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	FinalFEN  string    `json:"final_fen"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// RecordFromSnapshot folds a completed session snapshot into a MatchRecord.
// Returns nil if the snapshot carries no result yet.
func RecordFromSnapshot(snap wire.MatchSnapshot, startedAt, endedAt time.Time) *MatchRecord {
	if snap.Result == nil {
		return nil
	}
	rec := &MatchRecord{
		MatchID:   snap.MatchID,
		Reason:    snap.Result.Reason,
		FinalFEN:  snap.Position,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
	own, opp := snap.Own, snap.Opponent
	if own.Color == "white" {
		rec.WhiteID, rec.WhiteName = own.ID, own.Name
		rec.BlackID, rec.BlackName = opp.ID, opp.Name
	} else {
		rec.WhiteID, rec.WhiteName = opp.ID, opp.Name
		rec.BlackID, rec.BlackName = own.ID, own.Name
	}
	switch snap.Result.Winner {
	case "own":
		rec.Winner = own.Color
	case "opponent":
		rec.Winner = opp.Color
	default:
		rec.Winner = "draw"
	}
	for _, mv := range snap.Moves {
		uci := mv.Move.From + mv.Move.To + mv.Move.Promotion
		rec.MovesUCI = append(rec.MovesUCI, uci)
		rec.MovesSAN = append(rec.MovesSAN, mv.SAN)
	}
	return rec
}
