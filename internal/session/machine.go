// Package session implements the match synchronization core: a state machine
// that owns the canonical match snapshot, validates intents locally for
// instant feedback, and reconciles every authoritative event from the server
// channel. The authority always wins over local speculative state.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/gamelink"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/rules"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/pkg/wire"
)

// Session mediates one match between the presentation layer and the remote
// authority. It is the only writer of its MatchSnapshot. Inbound events are
// applied strictly in arrival order: the channel invokes callbacks from a
// single reader goroutine and every handler runs to completion under the
// session mutex before the next event is processed.
type Session struct {
	mu  sync.Mutex
	log *zap.Logger
	ch  gamelink.Channel
	clk *ClockReconciler

	roomID string
	state  State
	snap   wire.MatchSnapshot

	pending  *pendingMove
	neg      Negotiation
	resigned bool

	// localTerminal remembers what the rules engine saw after the latest
	// confirmed move, so an authority override can be logged.
	localTerminal rules.TerminalType

	subs      map[int]UpdateCallback
	nextSubID int

	evCbID int
	stCbID int

	closed bool
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock substitutes the wall clock, used by tests to drive the clock
// reconciler deterministically.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clk = NewClockReconciler(c, s.clk.staleAfter) }
}

func WithClockStaleAfter(d time.Duration) Option {
	return func(s *Session) { s.clk = NewClockReconciler(s.clk.clock, d) }
}

func New(ch gamelink.Channel, opts ...Option) *Session {
	s := &Session{
		log:   zap.NewNop(),
		ch:    ch,
		clk:   NewClockReconciler(clockwork.NewRealClock(), 10*time.Second),
		state: StateIdle,
		subs:  make(map[int]UpdateCallback),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnUpdate subscribes to session updates and returns a handle for removal.
func (s *Session) OnUpdate(cb UpdateCallback) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.subs[s.nextSubID] = cb
	return s.nextSubID
}

func (s *Session) RemoveUpdateCallback(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// Join enters a room: it subscribes to the channel, connects, and sends the
// join intent once the connection is up. The authoritative room_snapshot that
// follows anchors the session state. A connect error leaves the channel's own
// reconnection running; the session will join when it succeeds.
func (s *Session) Join(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("room id required")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.roomID = roomID
	s.state = StateConnecting
	s.evCbID = s.ch.OnEvent(s.handleEvent)
	s.stCbID = s.ch.OnStateChange(s.handleConnState)
	s.mu.Unlock()

	if err := s.ch.Connect(ctx); err != nil {
		return fmt.Errorf("channel connect: %w", err)
	}
	return nil
}

// SubmitMove validates a move intent against the canonical position, applies
// it optimistically, and sends it to the authority. Only one move may be in
// flight at a time; gating failures are local rejections that never reach the
// wire.
func (s *Session) SubmitMove(ctx context.Context, from, to, promotion string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateInProgress {
		s.mu.Unlock()
		return ErrMatchNotActive
	}
	if s.pending != nil {
		s.mu.Unlock()
		return ErrMoveInFlight
	}
	if s.snap.Turn != s.snap.Own.Color {
		s.mu.Unlock()
		return ErrNotYourTurn
	}

	out, err := rules.TryMove(s.snap.Position, from, to, promotion)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !out.Legal {
		s.mu.Unlock()
		return ErrIllegalMove
	}

	intent := wire.Move{From: strings.ToLower(from), To: strings.ToLower(to), Promotion: strings.ToLower(promotion)}
	s.pending = speculativeApply(&s.snap, intent, out)
	s.clk.SetRunning(s.sideForColor(s.snap.Turn))
	roomID := s.roomID
	update := s.updateLocked(UpdateSnapshot)
	s.mu.Unlock()

	if err := s.ch.Send(ctx, wire.EventSubmitMove, wire.SubmitMove{RoomID: roomID, Move: intent}); err != nil {
		s.mu.Lock()
		if s.pending != nil {
			s.pending.rollback(&s.snap)
			s.pending = nil
			s.clk.SetRunning(s.sideForColor(s.snap.Turn))
		}
		s.mu.Unlock()
		return fmt.Errorf("send move: %w", err)
	}

	s.log.Info("session_move_submit",
		zap.String("match_id", update.Snapshot.MatchID),
		zap.String("from", intent.From),
		zap.String("to", intent.To),
		zap.String("san", out.SAN),
	)
	s.emit(update)
	return nil
}

// OfferDraw sends a draw offer. A second offer while one is unresolved is a
// silent no-op with no network send.
func (s *Session) OfferDraw(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateInProgress {
		s.mu.Unlock()
		return ErrMatchNotActive
	}
	if s.neg.OfferPending {
		s.mu.Unlock()
		return nil
	}
	s.neg = Negotiation{OfferPending: true, OfferedBy: SideOwn}
	s.state = StateNegotiating
	s.snap.Status = wire.StatusNegotiating
	roomID := s.roomID
	update := s.updateLocked(UpdateNegotiation)
	s.mu.Unlock()

	if err := s.ch.Send(ctx, wire.EventOfferDraw, wire.OfferDraw{RoomID: roomID}); err != nil {
		s.mu.Lock()
		s.neg = Negotiation{}
		s.state = StateInProgress
		s.snap.Status = wire.StatusInProgress
		s.mu.Unlock()
		return fmt.Errorf("send draw offer: %w", err)
	}
	s.log.Info("session_draw_offer", zap.String("match_id", update.Snapshot.MatchID))
	s.emit(update)
	return nil
}

// RespondDraw answers the opponent's pending offer. Accepting leaves the
// final word to the authority, which completes the match; declining clears
// the offer immediately.
func (s *Session) RespondDraw(ctx context.Context, accept bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.neg.OfferPending || s.neg.OfferedBy != SideOpponent {
		s.mu.Unlock()
		return ErrNoOfferToAnswer
	}
	roomID := s.roomID
	var update Update
	if !accept {
		s.neg = Negotiation{}
		s.state = StateInProgress
		s.snap.Status = wire.StatusInProgress
		update = s.updateLocked(UpdateNegotiation)
	}
	s.mu.Unlock()

	if err := s.ch.Send(ctx, wire.EventRespondDraw, wire.RespondDraw{RoomID: roomID, Accept: accept}); err != nil {
		if !accept {
			// The decline never reached the authority, so the offer is
			// still open on its side. Restore it so the answer can be
			// retried.
			s.mu.Lock()
			s.neg = Negotiation{OfferPending: true, OfferedBy: SideOpponent}
			s.state = StateNegotiating
			s.snap.Status = wire.StatusNegotiating
			s.mu.Unlock()
		}
		return fmt.Errorf("send draw response: %w", err)
	}
	s.log.Info("session_draw_respond", zap.Bool("accept", accept))
	if !accept {
		s.emit(update)
	}
	return nil
}

// Resign is a one-shot unilateral intent; the authority always answers with a
// terminal match_completed.
func (s *Session) Resign(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateInProgress && s.state != StateNegotiating {
		s.mu.Unlock()
		return ErrMatchNotActive
	}
	if s.resigned {
		s.mu.Unlock()
		return ErrAlreadyResigned
	}
	s.resigned = true
	roomID := s.roomID
	s.mu.Unlock()

	if err := s.ch.Send(ctx, wire.EventResign, wire.Resign{RoomID: roomID}); err != nil {
		s.mu.Lock()
		s.resigned = false
		s.mu.Unlock()
		return fmt.Errorf("send resign: %w", err)
	}
	s.log.Info("session_resign")
	return nil
}

// SendChat relays a chat line. Chat has no local state; the echo comes back
// as chat_received.
func (s *Session) SendChat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	roomID := s.roomID
	s.mu.Unlock()
	if err := s.ch.Send(ctx, wire.EventSendChat, wire.SendChat{RoomID: roomID, Text: text}); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the canonical snapshot.
func (s *Session) Snapshot() wire.MatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.snap)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) NegotiationState() Negotiation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neg
}

// Clocks returns the interpolated countdown values.
func (s *Session) Clocks() (own, opponent time.Duration) {
	return s.clk.CurrentDisplay()
}

// ClockStale reports whether the display is running without recent
// authoritative ticks.
func (s *Session) ClockStale() bool { return s.clk.Stale() }

// Close deregisters the channel subscriptions and stops accepting intents.
// The channel itself belongs to the caller. A late echo arriving after
// teardown is discarded with the subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	evID, stID := s.evCbID, s.stCbID
	s.subs = make(map[int]UpdateCallback)
	s.clk.SetRunning(SideNone)
	s.mu.Unlock()

	if evID != 0 {
		s.ch.RemoveEventCallback(evID)
	}
	if stID != 0 {
		s.ch.RemoveStateCallback(stID)
	}
	s.log.Info("session_closed")
}

// --- inbound event dispatch ---

// handleEvent is the single ordered dispatch point for authoritative events.
func (s *Session) handleEvent(env *wire.Envelope) {
	if env == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var updates []Update
	switch env.Event {
	case wire.EventRoomSnapshot, wire.EventMatchStarted:
		updates = s.applySnapshotEvent(env)
	case wire.EventMoveConfirmed:
		updates = s.applyMoveConfirmed(env)
	case wire.EventClockTick:
		updates = s.applyClockTick(env)
	case wire.EventMatchCompleted:
		updates = s.applyMatchCompleted(env)
	case wire.EventDrawOffered:
		updates = s.applyDrawOffered(env)
	case wire.EventDrawDeclined:
		updates = s.applyDrawDeclined(env)
	case wire.EventPeerDisconnected:
		u := s.updateLocked(UpdatePeer)
		u.PeerOnline = false
		updates = append(updates, u)
	case wire.EventPeerReconnected:
		u := s.updateLocked(UpdatePeer)
		u.PeerOnline = true
		updates = append(updates, u)
	case wire.EventChatReceived:
		updates = s.applyChat(env)
	default:
		s.log.Debug("session_event_unknown", zap.String("event", env.Event))
	}
	s.mu.Unlock()

	for _, u := range updates {
		s.emit(u)
	}
}

func (s *Session) applySnapshotEvent(env *wire.Envelope) []Update {
	var snap wire.MatchSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil || snap.MatchID == "" || snap.Position == "" {
		s.protocolViolation(env.Event, "malformed snapshot", err)
		return nil
	}

	// Pure overwrite: any speculative state that diverged during an outage is
	// discarded, not merged.
	s.snap = snap
	s.pending = nil
	s.localTerminal = rules.TerminalNone

	switch snap.Status {
	case wire.StatusWaiting:
		s.state = StateWaitingForOpponent
	case wire.StatusInProgress:
		s.state = StateInProgress
	case wire.StatusNegotiating:
		s.state = StateNegotiating
	case wire.StatusCompleted, wire.StatusAbandoned:
		s.state = StateCompleted
	default:
		s.protocolViolation(env.Event, "unknown status "+string(snap.Status), nil)
		return nil
	}

	s.neg = Negotiation{}
	if snap.DrawOfferBy != "" {
		s.neg = Negotiation{OfferPending: true, OfferedBy: s.sideForPlayer(snap.DrawOfferBy)}
	}

	if snap.Clock != nil {
		s.clk.OnAuthoritativeTick(snap.Clock.OwnRemainingMS, snap.Clock.OpponentRemainingMS, snap.Clock.ServerTimestampMS)
	}
	if s.state == StateInProgress || s.state == StateNegotiating {
		s.clk.SetRunning(s.sideForColor(snap.Turn))
	} else {
		s.clk.SetRunning(SideNone)
	}

	s.log.Info("session_snapshot_adopted",
		zap.String("event", env.Event),
		zap.String("match_id", snap.MatchID),
		zap.String("status", string(snap.Status)),
		zap.Int("moves", len(snap.Moves)),
	)
	return []Update{s.updateLocked(UpdateSnapshot)}
}

func (s *Session) applyMoveConfirmed(env *wire.Envelope) []Update {
	if s.state != StateInProgress {
		s.protocolViolation(env.Event, "move while "+string(s.state), nil)
		return nil
	}
	var mc wire.MoveConfirmed
	if err := json.Unmarshal(env.Data, &mc); err != nil || mc.ResultingPosition == "" || mc.SequenceNumber <= 0 {
		s.protocolViolation(env.Event, "malformed move_confirmed", err)
		return nil
	}
	if mc.SequenceNumber <= confirmedSequence(&s.snap, s.pending) {
		s.log.Debug("session_move_duplicate", zap.Int("sequence", mc.SequenceNumber))
		return nil
	}

	var updates []Update
	var rec wire.MoveRecord

	if s.pending != nil && s.pending.matches(&mc) {
		p := s.pending
		s.pending = nil
		if p.agrees(&mc) {
			rec = p.confirm(&s.snap, &mc)
		} else {
			// The authority computed a different position than the optimistic
			// apply. Authoritative state wins unconditionally; observable but
			// never fatal.
			rec = p.confirm(&s.snap, &mc)
			s.log.Warn("session_desync_corrected",
				zap.String("match_id", s.snap.MatchID),
				zap.Int("sequence", mc.SequenceNumber),
				zap.String("local", p.provisional.ResultingPosition),
				zap.String("authoritative", mc.ResultingPosition),
			)
			u := s.updateLocked(UpdateDesyncCorrected)
			u.Move = &rec
			updates = append(updates, u)
		}
	} else {
		// Opponent's move (or an echo that no longer matches a pending
		// intent): apply the authoritative result directly.
		if s.pending != nil {
			s.pending.rollback(&s.snap)
			s.pending = nil
		}
		rec = wire.MoveRecord{
			Move:              mc.Move,
			SAN:               mc.SAN,
			ResultingPosition: mc.ResultingPosition,
			SequenceNumber:    mc.SequenceNumber,
		}
		s.snap.Moves = append(s.snap.Moves, rec)
		s.snap.Position = mc.ResultingPosition
		s.snap.Turn = mc.NextTurn
	}

	s.clk.SetRunning(s.sideForColor(s.snap.Turn))

	u := s.updateLocked(UpdateMoveConfirmed)
	u.Move = &rec
	updates = append(updates, u)

	// Local terminal detection is a presentation cue only: the state machine
	// stays in progress until the authority's match_completed arrives.
	if t, winner, err := rules.Classify(mc.ResultingPosition); err == nil && t != rules.TerminalNone {
		s.localTerminal = t
		cue := s.updateLocked(UpdateTerminalCue)
		cue.Terminal = t
		if winner != "" {
			cue.Result = &wire.MatchResult{Winner: s.winnerSide(winner), Reason: string(t)}
		}
		updates = append(updates, cue)
	} else {
		s.localTerminal = rules.TerminalNone
	}
	return updates
}

func (s *Session) applyClockTick(env *wire.Envelope) []Update {
	var tick wire.ClockTick
	if err := json.Unmarshal(env.Data, &tick); err != nil || tick.ServerTimestampMS == 0 {
		s.protocolViolation(env.Event, "malformed clock_tick", err)
		return nil
	}
	s.clk.OnAuthoritativeTick(tick.OwnRemainingMS, tick.OpponentRemainingMS, tick.ServerTimestampMS)
	return []Update{s.updateLocked(UpdateClock)}
}

func (s *Session) applyMatchCompleted(env *wire.Envelope) []Update {
	if s.state == StateCompleted {
		s.protocolViolation(env.Event, "match already completed", nil)
		return nil
	}
	var mc wire.MatchCompleted
	if err := json.Unmarshal(env.Data, &mc); err != nil || mc.Winner == "" {
		s.protocolViolation(env.Event, "malformed match_completed", err)
		return nil
	}

	if s.localTerminal != rules.TerminalNone && string(s.localTerminal) != mc.Reason {
		// The authority's ruling takes precedence over whatever the local
		// engine saw (e.g. a clock-based result on a mating move).
		s.log.Warn("session_terminal_override",
			zap.String("local", string(s.localTerminal)),
			zap.String("winner", mc.Winner),
			zap.String("reason", mc.Reason),
		)
	}

	s.state = StateCompleted
	s.snap.Status = wire.StatusCompleted
	s.snap.Result = &wire.MatchResult{Winner: mc.Winner, Reason: mc.Reason}
	s.pending = nil
	s.neg = Negotiation{}
	s.clk.SetRunning(SideNone)

	s.log.Info("session_completed",
		zap.String("match_id", s.snap.MatchID),
		zap.String("winner", mc.Winner),
		zap.String("reason", mc.Reason),
	)
	u := s.updateLocked(UpdateCompleted)
	u.Result = s.snap.Result
	return []Update{u}
}

func (s *Session) applyDrawOffered(env *wire.Envelope) []Update {
	if s.state != StateInProgress && s.state != StateNegotiating {
		s.protocolViolation(env.Event, "draw offer while "+string(s.state), nil)
		return nil
	}
	if s.neg.OfferPending {
		// One offer at a time; directionality is never overwritten.
		s.log.Debug("session_draw_offer_ignored")
		return nil
	}
	var offer wire.DrawOffered
	if err := json.Unmarshal(env.Data, &offer); err != nil {
		s.protocolViolation(env.Event, "malformed draw_offered", err)
		return nil
	}
	s.neg = Negotiation{OfferPending: true, OfferedBy: s.sideForPlayer(offer.ByPlayer)}
	s.state = StateNegotiating
	s.snap.Status = wire.StatusNegotiating
	return []Update{s.updateLocked(UpdateNegotiation)}
}

func (s *Session) applyDrawDeclined(env *wire.Envelope) []Update {
	if !s.neg.OfferPending {
		s.protocolViolation(env.Event, "no pending offer", nil)
		return nil
	}
	s.neg = Negotiation{}
	s.state = StateInProgress
	s.snap.Status = wire.StatusInProgress
	return []Update{s.updateLocked(UpdateNegotiation)}
}

func (s *Session) applyChat(env *wire.Envelope) []Update {
	var chat wire.ChatReceived
	if err := json.Unmarshal(env.Data, &chat); err != nil || chat.Text == "" {
		s.protocolViolation(env.Event, "malformed chat_received", err)
		return nil
	}
	u := s.updateLocked(UpdateChat)
	u.Chat = &chat
	return []Update{u}
}

// handleConnState reacts to transport lifecycle notifications. Reconnection
// itself is the channel's job; the session only re-anchors by re-sending the
// join intent and adopting the room_snapshot that follows.
func (s *Session) handleConnState(st gamelink.ConnState) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var rejoin bool
	var updates []Update

	switch st {
	case gamelink.StateConnected:
		rejoin = s.roomID != "" && (s.state == StateConnecting || s.state == StateDisconnected)
	case gamelink.StateDisconnected, gamelink.StateReconnecting:
		if s.state != StateIdle && s.state != StateCompleted && s.state != StateDisconnected {
			s.log.Warn("session_disconnected", zap.String("prior_state", string(s.state)))
			s.state = StateDisconnected
		}
	case gamelink.StateFailed:
		// Bounded reconnection exhausted: fatal for this session, the user
		// must re-enter the room.
		if s.state != StateCompleted {
			s.state = StateDisconnected
			u := s.updateLocked(UpdateFatal)
			u.Conn = st
			updates = append(updates, u)
			s.log.Error("session_reconnect_failed")
		}
	}

	u := s.updateLocked(UpdateConnection)
	u.Conn = st
	updates = append(updates, u)
	roomID := s.roomID
	s.mu.Unlock()

	if rejoin {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.ch.Send(ctx, wire.EventJoinRoom, wire.JoinRoom{RoomID: roomID}); err != nil {
			s.log.Warn("session_join_send_error", zap.Error(err))
		}
	}
	for _, u := range updates {
		s.emit(u)
	}
}

// --- helpers ---

func (s *Session) protocolViolation(event, detail string, err error) {
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("detail", detail),
		zap.String("state", string(s.state)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Warn("session_protocol_violation", fields...)
}

// updateLocked builds an Update with the current snapshot and state. Caller
// holds the mutex.
func (s *Session) updateLocked(kind UpdateKind) Update {
	return Update{
		Kind:        kind,
		State:       s.state,
		Snapshot:    copySnapshot(s.snap),
		Negotiation: s.neg,
	}
}

func (s *Session) emit(u Update) {
	s.mu.Lock()
	cbs := make([]UpdateCallback, 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		if cb != nil {
			cb(u)
		}
	}
}

func (s *Session) sideForColor(color string) Side {
	if color == "" {
		return SideNone
	}
	if color == s.snap.Own.Color {
		return SideOwn
	}
	return SideOpponent
}

func (s *Session) sideForPlayer(playerID string) Side {
	if playerID == s.snap.Own.ID {
		return SideOwn
	}
	return SideOpponent
}

// winnerSide translates a color into the own/opponent/draw vocabulary the
// result field uses.
func (s *Session) winnerSide(color string) string {
	switch s.sideForColor(color) {
	case SideOwn:
		return "own"
	case SideOpponent:
		return "opponent"
	default:
		return "draw"
	}
}

// confirmedSequence is the highest sequence number the authority has
// confirmed; a provisional record does not count.
func confirmedSequence(snap *wire.MatchSnapshot, pending *pendingMove) int {
	n := len(snap.Moves)
	if pending != nil {
		n--
	}
	if n <= 0 {
		return 0
	}
	return snap.Moves[n-1].SequenceNumber
}

func copySnapshot(in wire.MatchSnapshot) wire.MatchSnapshot {
	out := in
	out.Moves = append([]wire.MoveRecord(nil), in.Moves...)
	if in.Result != nil {
		r := *in.Result
		out.Result = &r
	}
	if in.Clock != nil {
		c := *in.Clock
		out.Clock = &c
	}
	return out
}
