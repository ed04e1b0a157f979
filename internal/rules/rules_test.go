package rules

import (
	"errors"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestTryMove_LegalOpening(t *testing.T) {
	out, err := TryMove(startFEN, "e2", "e4", "")
	if err != nil {
		t.Fatalf("TryMove: %v", err)
	}
	if !out.Legal {
		t.Fatalf("e2e4 from the start position must be legal")
	}
	if out.UCI != "e2e4" || out.SAN != "e4" {
		t.Fatalf("unexpected notation: uci=%q san=%q", out.UCI, out.SAN)
	}
	if out.FEN == startFEN || out.FEN == "" {
		t.Fatalf("resulting position not advanced: %q", out.FEN)
	}
	if out.IsCheck || out.Terminal != TerminalNone {
		t.Fatalf("quiet opening move flagged: check=%v terminal=%s", out.IsCheck, out.Terminal)
	}
}

func TestTryMove_NormalizesInput(t *testing.T) {
	out, err := TryMove(startFEN, " E2 ", "E4", "")
	if err != nil {
		t.Fatalf("TryMove: %v", err)
	}
	if !out.Legal || out.UCI != "e2e4" {
		t.Fatalf("input not normalized: legal=%v uci=%q", out.Legal, out.UCI)
	}
}

func TestTryMove_IllegalIsNotAnError(t *testing.T) {
	out, err := TryMove(startFEN, "e2", "e5", "")
	if err != nil {
		t.Fatalf("illegal move returned error: %v", err)
	}
	if out.Legal {
		t.Fatalf("e2e5 reported legal")
	}
	// Moving the opponent's piece is likewise just illegal.
	out, err = TryMove(startFEN, "e7", "e5", "")
	if err != nil {
		t.Fatalf("TryMove: %v", err)
	}
	if out.Legal {
		t.Fatalf("black move on white's turn reported legal")
	}
}

func TestTryMove_MalformedInput(t *testing.T) {
	cases := []struct {
		name               string
		from, to, promo    string
		wantField          string
	}{
		{"bad from square", "z9", "e4", "", "from square"},
		{"bad to square", "e2", "e9", "", "to square"},
		{"bad promotion piece", "a7", "a8", "k", "promotion"},
		{"multi letter promotion", "a7", "a8", "rb", "promotion"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TryMove(startFEN, tc.from, tc.to, tc.promo)
			var inv *InvalidInputError
			if !errors.As(err, &inv) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			if inv.Field != tc.wantField {
				t.Fatalf("field=%q want %q", inv.Field, tc.wantField)
			}
		})
	}
}

func TestTryMove_BadFEN(t *testing.T) {
	_, err := TryMove("not a position", "e2", "e4", "")
	var inv *InvalidInputError
	if !errors.As(err, &inv) || inv.Field != "fen" {
		t.Fatalf("expected fen InvalidInputError, got %v", err)
	}
}

func TestTryMove_CheckmateDetected(t *testing.T) {
	// After 1.f3 e5 2.g4, the queen mates on h4.
	fen := "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2"
	out, err := TryMove(fen, "d8", "h4", "")
	if err != nil {
		t.Fatalf("TryMove: %v", err)
	}
	if !out.Legal {
		t.Fatalf("Qh4 must be legal")
	}
	if out.SAN != "Qh4#" {
		t.Fatalf("san=%q want Qh4#", out.SAN)
	}
	if !out.IsCheck {
		t.Fatalf("mate not flagged as check")
	}
	if out.Terminal != TerminalCheckmate || out.Winner != "black" {
		t.Fatalf("terminal=%s winner=%q", out.Terminal, out.Winner)
	}
}

func TestTryMove_PromotionWithCheck(t *testing.T) {
	fen := "8/P7/8/8/8/8/k6K/8 w - - 0 1"
	out, err := TryMove(fen, "a7", "a8", "q")
	if err != nil {
		t.Fatalf("TryMove: %v", err)
	}
	if !out.Legal || out.UCI != "a7a8q" {
		t.Fatalf("promotion rejected: legal=%v uci=%q", out.Legal, out.UCI)
	}
	if out.SAN != "a8=Q+" {
		t.Fatalf("san=%q want a8=Q+", out.SAN)
	}
	if !out.IsCheck || out.Terminal != TerminalNone {
		t.Fatalf("check=%v terminal=%s", out.IsCheck, out.Terminal)
	}
}

func TestClassify_Stalemate(t *testing.T) {
	term, winner, err := Classify("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if term != TerminalStalemate || winner != "" {
		t.Fatalf("terminal=%s winner=%q", term, winner)
	}
}

func TestClassify_Checkmate(t *testing.T) {
	term, winner, err := Classify("R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if term != TerminalCheckmate || winner != "white" {
		t.Fatalf("terminal=%s winner=%q", term, winner)
	}
}

func TestClassify_InsufficientMaterial(t *testing.T) {
	term, _, err := Classify("8/8/8/8/8/8/k6K/8 w - - 0 1")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if term != TerminalDrawInsufficient {
		t.Fatalf("terminal=%s want %s", term, TerminalDrawInsufficient)
	}
}

func TestClassify_LivePosition(t *testing.T) {
	term, winner, err := Classify(startFEN)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if term != TerminalNone || winner != "" {
		t.Fatalf("start position classified terminal: %s %q", term, winner)
	}
}
