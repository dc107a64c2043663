// internal/handlers/heartbeat.go
package handlers

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/sirupsen/logrus"
)

// heartbeat tracks liveness of one connection. The server pushes "0.<ms>"
// each interval and expects a bare "1" back; a client may probe the server
// the same way and gets "1" in reply.
type heartbeat struct {
	interval time.Duration
	timeout  time.Duration
	last     atomic.Int64
	expired  atomic.Bool
}

func newHeartbeat(interval, timeout time.Duration) *heartbeat {
	hb := &heartbeat{interval: interval, timeout: timeout}
	hb.touch()
	return hb
}

func (hb *heartbeat) touch() {
	hb.last.Store(time.Now().UnixNano())
}

func (hb *heartbeat) idle() time.Duration {
	return time.Since(time.Unix(0, hb.last.Load()))
}

// run pushes probes until ctx ends, or closes conn once the peer has been
// silent for longer than the timeout.
func (hb *heartbeat) run(ctx context.Context, conn *lobby.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case <-ticker.C:
			if hb.idle() > hb.timeout {
				logger.Infof("Session %s: heartbeat timed out after %s", conn.SessionID, hb.idle().Round(time.Millisecond))
				hb.expired.Store(true)
				conn.Close()
				return
			}
			conn.WriteRaw("0." + strconv.FormatInt(time.Now().UnixMilli(), 10))
		}
	}
}

// handleHeartbeat consumes heartbeat traffic, reporting false for anything
// that should go to the event router instead.
func (rt *EventRouter) handleHeartbeat(hb *heartbeat, msg string) bool {
	switch {
	case msg == "1":
		hb.touch()
		return true
	case strings.HasPrefix(msg, "0."):
		hb.touch()
		rt.conn.WriteRaw("1")
		if sent, err := strconv.ParseInt(msg[2:], 10, 64); err == nil {
			ping := time.Now().UnixMilli() - sent
			if ping < 0 {
				ping = 0
			}
			rt.gs.Hub.Mu.Lock()
			rt.gs.Hub.Players.Set(rt.sid, lobby.PlayerPatch{Ping: &ping})
			rt.gs.Hub.Mu.Unlock()
		}
		return true
	}
	return false
}
