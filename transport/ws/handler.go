package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/services"
	"chat-relay/sink"
)

// Handler upgrades authenticated HTTP requests into relay connections.
type Handler struct {
	log        *slog.Logger
	chat       services.IChatService
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewHandler(log *slog.Logger, chatService services.IChatService, bufferSize int) *Handler {
	return &Handler{
		log:        log,
		chat:       chatService,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 4 << 10,
			// The browser frontend runs on its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the handshake, admits the connection into the
// registry and runs the two pumps until disconnect. Authentication
// happens once, before admission; an invalid token never reaches the
// registry.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	claims, err := auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	user := domain.User{ID: claims.UserID, Username: claims.Username}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	connSink := sink.NewChannelSink(h.bufferSize)
	if err := h.chat.Connect(connID, user, connSink); err != nil {
		h.log.Error("Registry admission failed", "conn_id", connID, "error", err)
		_ = conn.Close()
		return
	}
	h.log.Info("Connection admitted", "conn_id", connID, "user_id", user.ID)

	client := NewClient(h.log, conn, connID, user, h.chat, connSink)
	go client.WritePump(r.Context())
	client.ReadPump(r.Context())
	h.log.Info("Connection closed", "conn_id", connID, "user_id", user.ID)
}

// bearerToken reads the session token from the Authorization header or,
// for browser WebSocket clients that cannot set headers, the "token"
// query parameter.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return r.URL.Query().Get("token")
}
