package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"telegram-tempmail-relay/internal/infra/push"
)

// SocketHub is the connection registry the /ws endpoint feeds.
type SocketHub interface {
	Register(userID string, conn *websocket.Conn) *push.Client
	Unregister(userID string, client *push.Client)
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth replaces origin checks; the upgrade is useless without
	// a valid socket token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsHandler validates the socket token, upgrades the connection and
// parks it in the hub until the peer goes away.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := s.auth.ParseFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	client := s.hub.Register(userID, conn)
	if client == nil {
		// Hub rejected the socket (per-user cap) and already closed it.
		return
	}
	s.log.Debug().Str("user_id", userID).Msg("socket registered")

	go s.readLoop(userID, client, conn)
}

// readLoop drains inbound frames so pongs and close frames are
// processed. The push direction never reads, so this goroutine exists
// only to notice the disconnect.
func (s *Server) readLoop(userID string, client *push.Client, conn *websocket.Conn) {
	defer s.hub.Unregister(userID, client)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug().Err(err).Str("user_id", userID).Msg("socket closed")
			return
		}
	}
}
