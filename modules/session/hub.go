package session

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	messageTypeState        = "state"
	messageTypeRequestState = "request_state"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client - one WebSocket connection of a session
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type stateMessage struct {
	Type  string   `json:"type"`
	State Snapshot `json:"state"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// ServeWS upgrades the request and streams the session's snapshots to it.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, s *Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Session] WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 32),
	}

	s.addClient(client)
	m.countConnection()
	log.Printf("👤 [Session] Client %s joined session %s (clients: %d)", client.id, s.ID(), s.clientCount())

	// current state first, then every change
	s.sendSnapshot(client)

	go client.writePump()
	go client.readPump(s)
}

func (s *Session) addClient(c *Client) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	s.touch()
}

func (s *Session) removeClient(clientID string) {
	s.clientsMu.Lock()
	if c, ok := s.clients[clientID]; ok {
		close(c.send)
		delete(s.clients, clientID)
		log.Printf("👋 [Session] Client %s left session %s (remaining: %d)", clientID, s.id, len(s.clients))
	}
	s.clientsMu.Unlock()
	s.touch()
}

// closeClients disconnects everyone; used when a session is evicted.
func (s *Session) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for clientID, c := range s.clients {
		close(c.send)
		delete(s.clients, clientID)
	}
}

func (s *Session) sendSnapshot(c *Client) {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	message, err := json.Marshal(stateMessage{Type: messageTypeState, State: s.Snapshot()})
	if err != nil {
		log.Printf("❌ [Session] Error marshaling snapshot: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if _, ok := s.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- message:
	default:
		log.Printf("⚠️  [Session] Send buffer full for client %s", c.id)
	}
}

func (c *Client) readPump(s *Session) {
	defer func() {
		s.removeClient(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message clientMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ [Session] WebSocket error: %v", err)
			}
			return
		}

		switch message.Type {
		case messageTypeRequestState:
			s.sendSnapshot(c)
		default:
			log.Printf("⚠️  [Session] Ignoring message type %q from client %s", message.Type, c.id)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ [Session] WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
