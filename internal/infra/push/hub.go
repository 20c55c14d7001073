package push

import (
	"encoding/json"
	"sync"
	"time"

	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/infra/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client wraps one WebSocket connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla allows one writer at a time
}

func (c *Client) write(messageType int, data []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(messageType, data)
}

// envelope is the push wire format.
type envelope struct {
	Type   string      `json:"type"`
	UserID string      `json:"userId"`
	Data   interface{} `json:"data"`
}

// inboxUpdate is the payload of an "inbox_update" envelope.
type inboxUpdate struct {
	NotificationID string    `json:"notificationId"`
	Mailbox        string    `json:"mailbox"`
	MessageID      string    `json:"messageId"`
	From           string    `json:"from"`
	Subject        string    `json:"subject"`
	Intro          string    `json:"intro"`
	ObservedAt     time.Time `json:"observedAt"`
}

// Hub is the registry of live push connections, keyed by user identity.
// Insertion happens on connect, removal on disconnect; the relay reaches
// it only through the dispatch sink, never through ambient globals.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{} // userID -> set of clients
	maxPerUser int
	log        *zerolog.Logger
}

func NewHub(maxPerUser int, logger *zerolog.Logger) *Hub {
	if maxPerUser <= 0 {
		maxPerUser = 4
	}
	hubLog := logger.With().Str("component", "PushHub").Logger()
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxPerUser: maxPerUser,
		log:        &hubLog,
	}
}

// Register adds a connection for the user. Past the per-user cap the new
// connection is closed and nil is returned.
func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[userID]
	if !ok {
		userClients = make(map[*Client]struct{})
		h.clients[userID] = userClients
	}

	if len(userClients) >= h.maxPerUser {
		h.log.Warn().Str("user_id", userID).Int("max", h.maxPerUser).Msg("connection cap reached; rejecting socket")
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections for this user"),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	userClients[client] = struct{}{}
	metrics.IncSocketConnections()
	return client
}

// Unregister removes a client for the user and closes the connection.
func (h *Hub) Unregister(userID string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[userID]
	if !ok {
		_ = client.conn.Close()
		return
	}
	if _, present := userClients[client]; !present {
		_ = client.conn.Close()
		return
	}

	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, userID)
	}
	metrics.DecSocketConnections()
	_ = client.conn.Close()
}

// ActiveConnections returns the number of live sockets for a user.
func (h *Hub) ActiveConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Push broadcasts an inbox_update to every live socket of the user and
// reports whether at least one write succeeded. A failed socket is
// unregistered best-effort.
func (h *Hub) Push(n model.Notification, deadline time.Time) bool {
	payload, err := json.Marshal(envelope{
		Type:   "inbox_update",
		UserID: n.UserID,
		Data: inboxUpdate{
			NotificationID: n.ID,
			Mailbox:        n.MailboxAddress,
			MessageID:      n.Message.ID,
			From:           n.Message.From,
			Subject:        n.Message.Subject,
			Intro:          n.Message.Intro,
			ObservedAt:     n.ObservedAt,
		},
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal push envelope")
		return false
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[n.UserID]))
	for c := range h.clients[n.UserID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := false
	for _, client := range clients {
		if err := client.write(websocket.TextMessage, payload, deadline); err != nil {
			h.log.Warn().Err(err).Str("user_id", n.UserID).Msg("socket write failed; dropping connection")
			go h.Unregister(n.UserID, client)
			continue
		}
		delivered = true
	}
	return delivered
}
