package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chepyr/study-planner/internal/planner"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

// WSHub keeps the open websocket connections of each user and pushes task
// events to them.
type WSHub struct {
	connections    map[uuid.UUID]map[*websocket.Conn]bool
	mutex          sync.Mutex
	allowedOrigins []string
	log            *logrus.Logger
}

func NewWSHub(allowedOrigins []string, log *logrus.Logger) *WSHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHub{
		connections:    make(map[uuid.UUID]map[*websocket.Conn]bool),
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}

func (hub *WSHub) register(userID uuid.UUID, conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if hub.connections[userID] == nil {
		hub.connections[userID] = make(map[*websocket.Conn]bool)
	}
	hub.connections[userID][conn] = true
}

func (hub *WSHub) unregister(userID uuid.UUID, conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	conns := hub.connections[userID]
	if !conns[conn] {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(hub.connections, userID)
	}
	conn.Close()
}

// Notify sends the event to every connection of the user. Connections that
// fail to accept the write are dropped.
func (hub *WSHub) Notify(userID uuid.UUID, event planner.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.log.WithError(err).WithField("event", event.Type).Error("marshal ws event")
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	conns, exists := hub.connections[userID]
	if !exists {
		return
	}
	for conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			hub.log.WithError(err).WithField("user_id", userID).Warn("ws write failed")
			delete(conns, conn)
			conn.Close()
		}
	}
	if len(conns) == 0 {
		delete(hub.connections, userID)
	}
}

func (hub *WSHub) connectionCount(userID uuid.UUID) int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.connections[userID])
}

// checkOrigin accepts requests without an Origin header and those whose
// origin is in the allow-list. An empty allow-list only admits same-host
// origins.
func (hub *WSHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(hub.allowedOrigins) > 0 {
		return originAllowed(hub.allowedOrigins, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// GET /ws, behind AuthMiddleware
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := h.op("handlers.HandleWebSocket")
	id, ok := identityFrom(r)
	if !ok {
		sendError(w, "No token, authorization denied", http.StatusUnauthorized)
		return
	}
	if !h.allow(w, r, log) {
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.WSHub.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	h.WSHub.register(id.UserID, conn)
	log.WithField("user_id", id.UserID).Info("websocket connected")

	// clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.unregister(id.UserID, conn)
			return
		}
	}
}
