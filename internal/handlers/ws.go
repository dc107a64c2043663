// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// originPatterns lists the hosts allowed to open a socket. Outside production
// any origin is accepted. websocket matches patterns against the origin host,
// so the scheme of each configured origin is dropped.
func originPatterns(cfg config.Config) []string {
	if !cfg.Production() {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if _, host, ok := strings.Cut(origin, "://"); ok {
			origin = host
		}
		origin = strings.TrimSuffix(origin, "/")
		if origin != "" {
			patterns = append(patterns, origin)
		}
	}
	return patterns
}

// WSHandler upgrades a request into a game session. Every connection gets a
// fresh session id; the client claims a nick with a Login frame afterwards.
func (gs *GameServer) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(gs.Config),
		})
		if err != nil {
			gs.Logger.Warnf("websocket accept error: %v", err)
			return
		}

		sid := uuid.New()
		started := time.Now()
		remote := r.RemoteAddr

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := lobby.NewConnection(sid, gs.Config.OutboundBuffer, cancel, gs.Logger)
		gs.Hub.Registry.Add(conn)
		middleware.LogWebSocketConnect(gs.Logger, remote, sid)

		hb := newHeartbeat(gs.Config.HeartbeatInterval, gs.Config.HeartbeatTimeout)
		rt := NewEventRouter(gs, conn)

		go writePump(ctx, c, conn, gs.Logger)
		go hb.run(ctx, conn, gs.Logger)

		readErr := readPump(ctx, c, rt, hb, gs.Logger)

		gs.Hub.Disconnect(sid)

		switch {
		case hb.expired.Load():
			c.Close(HeartbeatTimeoutError, "heartbeat timeout")
		case r.Context().Err() != nil:
			c.Close(ServerShutdownError, "server shutting down")
		default:
			c.Close(websocket.StatusNormalClosure, "")
		}
		middleware.LogWebSocketDisconnect(gs.Logger, remote, sid, time.Since(started), readErr)
	}
}

// readPump feeds text frames to the router until the socket or ctx closes.
// A normal close reports a nil error.
func readPump(ctx context.Context, c *websocket.Conn, rt *EventRouter, hb *heartbeat, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("Session %s: ignoring non-text message type %d", rt.sid, typ)
			continue
		}
		if rt.handleHeartbeat(hb, string(msg)) {
			continue
		}
		hb.touch()
		rt.Handle(msg)
	}
}

// writePump drains the connection's outbound queue onto the socket.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case msg := <-conn.OutChan:
			var data []byte
			if msg.Frame != nil {
				var err error
				if data, err = json.Marshal(msg.Frame); err != nil {
					logger.Warnf("Session %s: failed to marshal %s frame: %v", conn.SessionID, msg.Frame.Event, err)
					continue
				}
			} else {
				data = []byte(msg.Raw)
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Session %s: failed to write to websocket: %v", conn.SessionID, err)
				conn.Close()
				return
			}
		}
	}
}
