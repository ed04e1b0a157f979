// Package rules adapts the chess library into the narrow contract the session
// core needs: try a candidate move against a position and report legality, the
// resulting position, and terminal classification. Stateless and
// deterministic; it never sees session or network state.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// TerminalType classifies a position with no continuation.
type TerminalType string

const (
	TerminalNone                TerminalType = "none"
	TerminalCheckmate           TerminalType = "checkmate"
	TerminalStalemate           TerminalType = "stalemate"
	TerminalDrawRepetition      TerminalType = "draw_repetition"
	TerminalDrawInsufficient    TerminalType = "draw_insufficient_material"
	TerminalDrawSeventyFiveMove TerminalType = "draw_seventy_five_move"
)

// Outcome is the result of a TryMove call. When Legal is false only Legal is
// meaningful; an illegal move is a normal negative result, not an error.
type Outcome struct {
	Legal    bool
	FEN      string
	UCI      string
	SAN      string
	IsCheck  bool
	Terminal TerminalType
	Winner   string // "white" | "black" when Terminal is checkmate
}

// InvalidInputError reports malformed input (square identifiers, promotion
// piece, FEN), as opposed to a well-formed but illegal move.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// TryMove evaluates the move from→to (with optional promotion piece letter)
// against the position in fen.
func TryMove(fen, from, to, promotion string) (*Outcome, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))

	if !validSquare(from) {
		return nil, &InvalidInputError{Field: "from square", Value: from}
	}
	if !validSquare(to) {
		return nil, &InvalidInputError{Field: "to square", Value: to}
	}
	if promotion != "" && (len(promotion) != 1 || !strings.Contains("qrbn", promotion)) {
		return nil, &InvalidInputError{Field: "promotion", Value: promotion}
	}

	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}

	pos := game.Position()
	uci := from + to + promotion
	mv, derr := nchess.UCINotation{}.Decode(pos, uci)
	if derr != nil {
		return &Outcome{Legal: false, Terminal: TerminalNone}, nil
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if merr := game.Move(mv, nil); merr != nil {
		return &Outcome{Legal: false, Terminal: TerminalNone}, nil
	}

	out := &Outcome{
		Legal:   true,
		FEN:     game.FEN(),
		UCI:     uci,
		SAN:     san,
		IsCheck: strings.ContainsAny(san, "+#"),
	}
	out.Terminal, out.Winner = classify(game)
	return out, nil
}

// Classify inspects a bare position for terminal state, used when an
// authoritative position arrives without a local move to apply.
func Classify(fen string) (TerminalType, string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return TerminalNone, "", err
	}
	t, w := classify(game)
	return t, w, nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, &InvalidInputError{Field: "fen", Value: fen}
	}
	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return nil, &InvalidInputError{Field: "fen", Value: fen}
	}
	return nchess.NewGame(fenOpt), nil
}

func classify(game *nchess.Game) (TerminalType, string) {
	outcome := game.Outcome()
	if outcome == nchess.NoOutcome {
		return TerminalNone, ""
	}
	switch game.Method() {
	case nchess.Checkmate:
		if outcome == nchess.WhiteWon {
			return TerminalCheckmate, "white"
		}
		return TerminalCheckmate, "black"
	case nchess.Stalemate:
		return TerminalStalemate, ""
	case nchess.InsufficientMaterial:
		return TerminalDrawInsufficient, ""
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return TerminalDrawRepetition, ""
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return TerminalDrawSeventyFiveMove, ""
	default:
		if outcome == nchess.Draw {
			return TerminalDrawRepetition, ""
		}
		return TerminalNone, ""
	}
}

func validSquare(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
