// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/uno/internal/auth"
)

// RoomsHandler serves GET /rooms?page=&pageSize= for clients holding a session
// token, passed as a Bearer header or an auth_token cookie.
func (gs *GameServer) RoomsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := requestToken(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		gs.Hub.Mu.Lock()
		list := gs.Hub.Rooms.ListRooms(queryInt(r, "page", 0), queryInt(r, "pageSize", 0))
		gs.Hub.Mu.Unlock()

		gs.Logger.Debugf("Session %s listed rooms page %d", claims.SessionID, list.Page)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			gs.Logger.Warnf("failed to encode room list: %v", err)
		}
	}
}
