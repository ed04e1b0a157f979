package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

func TestResultToPGN(t *testing.T) {
	cases := map[string]string{
		"white":   "1-0",
		"black":   "0-1",
		"draw":    "1/2-1/2",
		" White ": "1-0",
		"":        "*",
	}
	for in, want := range cases {
		if got := resultToPGN(in); got != want {
			t.Fatalf("resultToPGN(%q)=%q want %q", in, got, want)
		}
	}
}

func TestBuildPGN(t *testing.T) {
	rec := sampleRecord("m1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	rec.MovesSAN = []string{"e4", "e5", "Qh5"}
	pgn := buildPGN(rec, "1-0")

	for _, want := range []string{
		"[White \"Alice\"]",
		"[Black \"Bob\"]",
		"[Date \"2026.08.01\"]",
		"[Termination \"checkmate\"]",
		"[Result \"1-0\"]",
		"1. e4 e5",
		"2. Qh5",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
	if !strings.HasSuffix(pgn, "1-0") {
		t.Fatalf("pgn does not end with the result:\n%s", pgn)
	}
}

func TestBuildPGN_SanitizesNames(t *testing.T) {
	rec := sampleRecord("m1", time.Now())
	rec.WhiteName = `Evil "Quote" \Name`
	pgn := buildPGN(rec, "*")
	if strings.Contains(pgn, `"Evil "Quote"`) {
		t.Fatalf("quotes not sanitized:\n%s", pgn)
	}
	if !strings.Contains(pgn, "Evil 'Quote'") {
		t.Fatalf("sanitized name missing:\n%s", pgn)
	}
}

func TestRecordFromSnapshot(t *testing.T) {
	ended := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)
	snap := wire.MatchSnapshot{
		MatchID:  "m9",
		Position: "final-fen",
		Own:      wire.PlayerInfo{ID: "p1", Name: "Alice", Color: "black"},
		Opponent: wire.PlayerInfo{ID: "p2", Name: "Bob", Color: "white"},
		Result:   &wire.MatchResult{Winner: "own", Reason: "resignation"},
		Moves: []wire.MoveRecord{
			{Move: wire.Move{From: "e2", To: "e4"}, SAN: "e4", SequenceNumber: 1},
			{Move: wire.Move{From: "e7", To: "e5"}, SAN: "e5", SequenceNumber: 2},
			{Move: wire.Move{From: "a7", To: "a8", Promotion: "q"}, SAN: "a8=Q", SequenceNumber: 3},
		},
	}

	rec := RecordFromSnapshot(snap, ended.Add(-time.Hour), ended)
	if rec == nil {
		t.Fatalf("nil record for a completed snapshot")
	}
	if rec.WhiteID != "p2" || rec.BlackID != "p1" {
		t.Fatalf("colors mapped wrong: white=%s black=%s", rec.WhiteID, rec.BlackID)
	}
	if rec.Winner != "black" {
		t.Fatalf("winner=%q want black", rec.Winner)
	}
	if len(rec.MovesUCI) != 3 || rec.MovesUCI[2] != "a7a8q" {
		t.Fatalf("uci log: %#v", rec.MovesUCI)
	}
	if rec.FinalFEN != "final-fen" || rec.Reason != "resignation" {
		t.Fatalf("record: %#v", rec)
	}

	// No result yet means nothing to archive.
	snap.Result = nil
	if RecordFromSnapshot(snap, ended, ended) != nil {
		t.Fatalf("record produced without a result")
	}
}
