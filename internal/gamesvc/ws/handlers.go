package ws

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/comm"
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *Ws
}

func NewHandler(s *Ws) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws: s,
	}
	return h
}

// HandleWebSocket upgrades the request and runs the registry admission
// checks before the socket joins the read loop. Guests connect with
// userID 0; a `token` query parameter upgrades the socket to an
// authenticated user.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		http.Error(w, "Failed to upgrade to WebSocket", http.StatusInternalServerError)
		return
	}

	socketId := uuid.New().String()

	res := h.ws.Register(socketId, userID, conn)
	if !res.Allowed {
		log.Warnf("connection rejected for user %d: %s", userID, res.Reason)
		h.sendErrorToClient(conn, res.Reason)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, res.Reason)
		if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			log.Debugf("close message failed: %v", err)
		}
		conn.Close()
		return
	}

	log.Infof("New WebSocket connection established: %s (user %d)", socketId, userID)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			break
		}

		// any inbound frame counts as activity for the inactivity sweep
		h.ws.Registry.UpdateLastSeen(socketId)

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			// once registered, all writes go through the relay so the
			// broker stays the only writer on this connection
			h.ws.sendError(socketId, "Invalid message format")
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)

		h.ws.SocketMessage(socketId, message)
	}
}

// sendErrorToClient writes directly to the connection. Only valid before
// the socket is registered, while this goroutine is the sole writer.
func (h *Handler) sendErrorToClient(conn *websocket.Conn, errorMsg string) {
	errorResponse := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if data, err := json.Marshal(errorResponse); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Errorf("Failed to send error message to client: %v", err)
		}
	}
}
