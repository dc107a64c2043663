// internal/handlers/ws_codes.go
package handlers

// Application close codes, in the 3000-3999 range reserved for them.
const (
	HeartbeatTimeoutError = 3000 // No heartbeat reply arrived within the timeout.
	ServerShutdownError   = 3001 // The server is draining connections.
)
