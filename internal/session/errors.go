package session

// Local rejections are normal negative results: the intent never reaches the
// wire. Presentation resets its input and moves on.
var (
	ErrMoveInFlight   = errf("a move is already awaiting confirmation")
	ErrNotYourTurn    = errf("not your turn")
	ErrMatchNotActive = errf("match is not in progress")
	ErrIllegalMove    = errf("illegal move")
	ErrNoOfferToAnswer = errf("no opponent draw offer to respond to")
	ErrAlreadyResigned = errf("resignation already sent")
	ErrSessionClosed   = errf("session is closed")
	ErrAlreadyJoined   = errf("session already entered a room")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

func errf(s string) error { return staticErr(s) }
