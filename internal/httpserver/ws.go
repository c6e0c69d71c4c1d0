// internal/httpserver/ws.go
//
// WebSocket stream of display events: GET /ws.
// On connect the client receives {"type":"snapshot"} with the current round
// (if any), then every display notification as it happens. Clients may also
// send actions over the socket:
//   {"action":"start","level":12,"daily":false} | {"action":"flip","index":3} |
//   {"action":"replay"} | {"action":"abandon"}
// Their effects arrive as ordinary display events.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/deck"
	"github.com/robalobadob/concentration/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsMessage is an action sent by the client.
type wsMessage struct {
	Action string `json:"action"`
	Level  int    `json:"level,omitempty"`
	Daily  bool   `json:"daily,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// wsSnapshot is the first frame written on a new connection.
type wsSnapshot struct {
	Type  string         `json:"type"`
	Round *game.Snapshot `json:"round,omitempty"`
}

// wsError reports an action the server could not apply.
type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == s.cfg.ClientOrigin || o == "http://"+r.Host
		},
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	player := playerFrom(r.Context())
	sess := s.session(r.Context(), player)
	defer s.hold(sess)()

	// Upgrade writes its own response, so carry over a freshly minted player cookie.
	var hdr http.Header
	if c := w.Header().Values("Set-Cookie"); len(c) > 0 {
		hdr = http.Header{"Set-Cookie": c}
	}
	conn, err := s.upgrader().Upgrade(w, r, hdr)
	if err != nil {
		log.Warn().Err(err).Str("player", player).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	events, unsubscribe := sess.feed.Subscribe()
	defer unsubscribe()

	// Only the write loop below touches conn for writing; the reader reports
	// action failures through errs.
	errs := make(chan wsError, 4)
	done := make(chan struct{})
	go s.readActions(conn, sess, errs, done)

	first := wsSnapshot{Type: "snapshot"}
	if round := sess.engine.Current(); round != nil {
		snap := sess.engine.Snapshot(round)
		first.Round = &snap
	}
	if err := writeFrame(conn, first); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := writeFrame(conn, ev); err != nil {
				return
			}
		case e := <-errs:
			if err := writeFrame(conn, e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

// readActions applies client actions until the connection fails, then closes done.
func (s *Server) readActions(conn *websocket.Conn, sess *session, errs chan<- wsError, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", sess.player).Msg("websocket read")
			}
			return
		}
		if code := s.applyAction(sess, msg); code != "" {
			select {
			case errs <- wsError{Type: "error", Error: code}:
			default:
			}
		}
	}
}

// applyAction runs one client action and returns an error code, or "".
func (s *Server) applyAction(sess *session, msg wsMessage) string {
	ctx := context.Background()
	switch msg.Action {
	case "start":
		level, err := deck.ParseLevel(msg.Level)
		if err != nil {
			return "unsupported_level"
		}
		if _, err := s.startRound(ctx, sess, level, msg.Daily); err != nil {
			return "unsupported_level"
		}
	case "flip":
		if msg.Index == nil {
			return "invalid_request"
		}
		round := sess.engine.Current()
		if round == nil {
			return "no_round"
		}
		sess.engine.Flip(ctx, round, *msg.Index)
	case "replay":
		if _, err := sess.engine.Replay(ctx); err != nil {
			return "no_round"
		}
	case "abandon":
		round := sess.engine.Current()
		if round == nil {
			return "no_round"
		}
		sess.engine.Abandon(round)
	default:
		return "unknown_action"
	}
	return ""
}
