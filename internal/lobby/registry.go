// internal/lobby/registry.go
package lobby

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// Outbound is one queued message for a connection: either a JSON frame or a raw
// heartbeat string.
type Outbound struct {
	Frame *models.Frame
	Raw   string
}

// Connection is a single client's outbound side.
type Connection struct {
	SessionID uuid.UUID
	OutChan   chan Outbound
	Cancel    func()

	logger    *logrus.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a connection with an outbound buffer of size buf.
// cancel stops the goroutines serving it and may be nil.
func NewConnection(sid uuid.UUID, buf int, cancel func(), logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connection{
		SessionID: sid,
		OutChan:   make(chan Outbound, buf),
		Cancel:    cancel,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Write queues a frame without blocking. Frames for a closed or saturated
// connection are dropped and logged.
func (c *Connection) Write(event models.Event, data interface{}) {
	c.enqueue(Outbound{Frame: &models.Frame{Event: event, Data: data}})
}

// WriteRaw queues a raw text message, used by the heartbeat.
func (c *Connection) WriteRaw(s string) {
	c.enqueue(Outbound{Raw: s})
}

func (c *Connection) enqueue(msg Outbound) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.OutChan <- msg:
	default:
		name := "raw"
		if msg.Frame != nil {
			name = msg.Frame.Event.String()
		}
		c.logger.Warnf("Connection %s: outbound buffer full, dropped %s message", c.SessionID, name)
	}
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close stops the connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Cancel != nil {
			c.Cancel()
		}
	})
}

// Registry maps session ids to live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Connection)}
}

func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.SessionID] = c
}

func (r *Registry) Get(sid uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[sid]
	return c, ok
}

// Remove drops the entry and returns it so the caller can close it.
func (r *Registry) Remove(sid uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[sid]
	delete(r.conns, sid)
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send pushes a frame to sid if it is still connected.
func (r *Registry) Send(sid uuid.UUID, event models.Event, data interface{}) {
	if c, ok := r.Get(sid); ok {
		c.Write(event, data)
	}
}
