package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/archive"
	appcfg "github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/config"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/gamelink"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/msgcat"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/obslog"
	"github.com/Krishan-Kant123/chess-bot-multiplayer--sub001/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	playerID := cfg.PlayerID
	if playerID == "" {
		// ephemeral guest identity, resolved once and never reassigned
		playerID = "guest-" + uuid.NewString()
	}

	headers := func() map[string]string {
		h := map[string]string{
			"X-Player-Id":   playerID,
			"X-Player-Name": cfg.PlayerName,
		}
		if cfg.AuthToken != "" {
			h["Authorization"] = "Bearer " + cfg.AuthToken
		}
		return h
	}

	gateway := gamelink.NewGateway(cfg.ServerBaseURL,
		gamelink.WithHeaderProvider(headers),
		gamelink.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := gateway.Health(ctx); err != nil {
		logger.Warn("gateway_health_error", zap.Error(err))
	}
	cancel()

	roomID := cfg.RoomID
	if roomID == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		room, err := gateway.CreateRoom(ctx, gamelink.CreateRoomRequest{})
		cancel()
		if err != nil {
			log.Fatalf("create room error: %v", err)
		}
		roomID = room.RoomID
		fmt.Printf("Created room %s. Share this id with your opponent.\n", roomID)
	}

	ws := gamelink.NewWebSocket(cfg.ServerWSURL, cfg.ReconnectMaxAttempts, cfg.ReconnectDelay)
	ws.SetHeaderProvider(headers)

	var store *archive.Store
	if cfg.RedisURL != "" {
		store, err = archive.NewStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("archive store error: %v", err)
		}
	}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive repository error: %v", err)
		}
	}

	sess := session.New(ws,
		session.WithLogger(logger),
		session.WithClockStaleAfter(cfg.ClockStaleAfter),
	)

	printer := &printer{cat: cat, startedAt: time.Now()}
	sess.OnUpdate(func(u session.Update) {
		printer.print(u)
		if u.Kind == session.UpdateCompleted {
			rec := archive.RecordFromSnapshot(u.Snapshot, printer.startedAt, time.Now())
			if rec == nil {
				return
			}
			pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pcancel()
			if err := store.SaveRecord(pctx, rec); err != nil {
				logger.Error("archive_store_error", zap.String("match_id", rec.MatchID), zap.Error(err))
			}
			if err := repo.SaveResult(pctx, rec); err != nil {
				logger.Error("archive_repo_error", zap.String("match_id", rec.MatchID), zap.Error(err))
			}
		}
	})

	jctx, jcancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sess.Join(jctx, roomID); err != nil {
		logger.Warn("session_join_error", zap.Error(err))
	}
	jcancel()

	go commandLoop(sess, cat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sess.Close()
	_ = ws.Close(context.Background())
	_ = store.Close()
	_ = repo.Close()
	_ = logger.Sync()
}

func commandLoop(sess *session.Session, cat *msgcat.Catalog) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		var err error
		switch cmd {
		case "move", "m":
			if len(fields) < 2 {
				fmt.Println("usage: move e2e4 (or move e7e8q to promote)")
				cancel()
				continue
			}
			from, to, promo, perr := splitMove(fields[1])
			if perr != nil {
				fmt.Println(perr)
				cancel()
				continue
			}
			err = sess.SubmitMove(ctx, from, to, promo)
		case "draw":
			err = sess.OfferDraw(ctx)
		case "accept":
			err = sess.RespondDraw(ctx, true)
		case "decline":
			err = sess.RespondDraw(ctx, false)
		case "resign":
			err = sess.Resign(ctx)
		case "say":
			err = sess.SendChat(ctx, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "board":
			snap := sess.Snapshot()
			fmt.Printf("FEN: %s\nturn: %s\n", snap.Position, snap.Turn)
			for _, mv := range snap.Moves {
				fmt.Printf("  %d. %s\n", mv.SequenceNumber, mv.SAN)
			}
		case "clock":
			own, opp := sess.Clocks()
			if text, rerr := cat.Render("clock.display", map[string]any{
				"Own":      formatClock(own),
				"Opponent": formatClock(opp),
			}); rerr == nil {
				fmt.Println(text)
			}
			if sess.ClockStale() {
				printCat(cat, "clock.stale", nil)
			}
		case "quit", "exit":
			p, _ := os.FindProcess(os.Getpid())
			_ = p.Signal(syscall.SIGTERM)
			cancel()
			return
		default:
			fmt.Println("commands: move <uci>, draw, accept, decline, resign, say <text>, board, clock, quit")
		}
		cancel()
		if err != nil {
			fmt.Println(rejectionText(cat, err))
		}
	}
}

func splitMove(uci string) (from, to, promo string, err error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) != 4 && len(uci) != 5 {
		return "", "", "", fmt.Errorf("moves look like e2e4 or e7e8q")
	}
	from, to = uci[:2], uci[2:4]
	if len(uci) == 5 {
		promo = uci[4:]
	}
	return from, to, promo, nil
}

// rejectionText maps local rejections onto catalog strings; anything else is
// shown as-is.
func rejectionText(cat *msgcat.Catalog, err error) string {
	var key string
	switch err {
	case session.ErrIllegalMove:
		key = "move.illegal"
	case session.ErrMoveInFlight:
		key = "move.in_flight"
	case session.ErrNotYourTurn:
		key = "move.not_your_turn"
	case session.ErrMatchNotActive:
		key = "move.not_active"
	case session.ErrNoOfferToAnswer:
		key = "draw.no_offer"
	default:
		return err.Error()
	}
	if text, rerr := cat.Render(key, nil); rerr == nil {
		return text
	}
	return err.Error()
}

// printer turns session updates into terminal lines.
type printer struct {
	cat       *msgcat.Catalog
	startedAt time.Time
}

func (p *printer) print(u session.Update) {
	switch u.Kind {
	case session.UpdateSnapshot:
		switch u.State {
		case session.StateWaitingForOpponent:
			printCat(p.cat, "session.waiting", map[string]any{"Room": u.Snapshot.MatchID})
		case session.StateInProgress:
			p.startedAt = time.Now()
			printCat(p.cat, "session.started", map[string]any{
				"Color":    u.Snapshot.Own.Color,
				"Opponent": u.Snapshot.Opponent.Name,
			})
		}
	case session.UpdateMoveConfirmed:
		if u.Move != nil {
			printCat(p.cat, "session.move_confirmed", map[string]any{
				"SAN":      u.Move.SAN,
				"Sequence": u.Move.SequenceNumber,
			})
		}
		if u.Snapshot.Turn == u.Snapshot.Own.Color {
			printCat(p.cat, "session.your_turn", nil)
		} else {
			printCat(p.cat, "session.opponent_turn", map[string]any{"Opponent": u.Snapshot.Opponent.Name})
		}
	case session.UpdateDesyncCorrected:
		printCat(p.cat, "session.desync", nil)
	case session.UpdateNegotiation:
		switch {
		case u.Negotiation.OfferPending && u.Negotiation.OfferedBy == session.SideOwn:
			printCat(p.cat, "draw.offered_by_you", map[string]any{"Opponent": u.Snapshot.Opponent.Name})
		case u.Negotiation.OfferPending:
			printCat(p.cat, "draw.offered_by_opponent", map[string]any{"Opponent": u.Snapshot.Opponent.Name})
		default:
			printCat(p.cat, "draw.declined", nil)
		}
	case session.UpdateCompleted:
		if u.Result == nil {
			return
		}
		data := map[string]any{"Reason": u.Result.Reason}
		switch u.Result.Winner {
		case "own":
			printCat(p.cat, "result.won", data)
		case "opponent":
			printCat(p.cat, "result.lost", data)
		default:
			printCat(p.cat, "result.draw", data)
		}
	case session.UpdateConnection:
		switch u.Conn {
		case gamelink.StateReconnecting:
			printCat(p.cat, "session.disconnected", nil)
		case gamelink.StateConnected:
			if u.State == session.StateDisconnected {
				printCat(p.cat, "session.reconnected", nil)
			}
		}
	case session.UpdateFatal:
		printCat(p.cat, "session.reconnect_failed", nil)
	case session.UpdatePeer:
		if u.PeerOnline {
			printCat(p.cat, "session.peer_online", nil)
		} else {
			printCat(p.cat, "session.peer_offline", nil)
		}
	case session.UpdateChat:
		if u.Chat != nil {
			printCat(p.cat, "chat.received", map[string]any{"From": u.Chat.ByPlayer, "Text": u.Chat.Text})
		}
	}
}

func printCat(cat *msgcat.Catalog, key string, data map[string]any) {
	text, err := cat.Render(key, data)
	if err != nil {
		return
	}
	fmt.Println(text)
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
