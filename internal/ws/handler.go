package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"nexasphere/internal/presence"
	"nexasphere/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken finds the handshake credential: a token query parameter
// (the out-of-band credential the frontend passes when opening the channel)
// or a standard Bearer header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type typingEvent struct {
	ReceiverID string `json:"receiverId"`
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// On connect the user is registered with the presence registry and the new
// online-set is broadcast; on teardown (close, drop, error) the registration
// is released exactly once and the online-set is re-broadcast. Inbound
// events:
//   - typing {receiverId} -> relayed as typing {senderId} to the receiver's
//     connections only, no persistence, no delivery guarantee.
func MakeHandler(
	hub *Hub,
	registry presence.Registry,
	tokens *security.TokenService,
	log *slog.Logger,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing credential", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.Subject(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		wc := newWSConn(conn)
		registry.Connect(userID, wc)
		log.Info("ws: connected", "user_id", userID)

		// Teardown must run exactly once for every path out of the read
		// loop, including abrupt network drops, or the user stays online
		// forever.
		defer func() {
			registry.Disconnect(userID, wc)
			wc.Close()
			hub.EmitAll("onlineUsersChanged", registry.Snapshot())
			log.Info("ws: disconnected", "user_id", userID)
		}()

		hub.EmitAll("onlineUsersChanged", registry.Snapshot())

		for {
			var ev inboundEvent
			if err := conn.ReadJSON(&ev); err != nil {
				break
			}
			switch ev.Type {

			case "typing":
				var t typingEvent
				if err := json.Unmarshal(ev.Data, &t); err != nil || t.ReceiverID == "" {
					sendError(wc, "typing requires receiverId")
					continue
				}
				// point-to-point: only the named receiver may see the
				// indicator, and the sender id is the authenticated user,
				// never client-supplied
				hub.EmitTo(t.ReceiverID, "typing", map[string]any{
					"senderId": userID,
				})

			default:
				log.Debug("ws: unknown event type", "type", ev.Type, "user_id", userID)
			}
		}
	}
}

func sendError(c presence.Conn, msg string) {
	_ = c.WriteJSON(Event{Type: "error", Data: map[string]any{"message": msg}})
}
