package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"doc-editor/pkg/element"
	"doc-editor/pkg/room"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer
	},
}

// clientMessage is anything a websocket client may send
type clientMessage struct {
	Type     string `json:"type"` // "init", "element", "script", "save", "render", "ping"
	Kind     string `json:"kind,omitempty"`
	Value    string `json:"value,omitempty"`
	Script   string `json:"script,omitempty"`
	Username string `json:"username,omitempty"`
}

// HandleWebSocket connects a client to a room for live rendering
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomInstance, err := h.roomManager.Get(mux.Vars(r)["roomId"])
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		username = "Anonymous"
	}

	client := &room.Client{
		ID:       uuid.New().String(),
		Username: username,
		Conn:     conn,
		Room:     roomInstance,
		Send:     make(chan []byte, 256),
	}

	if !roomInstance.Join(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump handles reading messages from the WebSocket
func (h *Handlers) readPump(c *room.Client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in readPump for %s: %v\n%s", c.ID, r, debug.Stack())
		}
		c.Room.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket unexpected close for %s: %v", c.ID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error parsing message from %s: %v", c.ID, err)
			h.reply(c, "error", map[string]interface{}{"error": "invalid JSON"})
			continue
		}

		h.handleMessage(c, &msg)
	}
}

func (h *Handlers) handleMessage(c *room.Client, msg *clientMessage) {
	switch msg.Type {
	case "init":
		if msg.Username != "" {
			c.Room.Rename(c, msg.Username)
		}
		h.reply(c, "init_ok", map[string]interface{}{"id": c.ID, "username": c.Room.Username(c)})

	case "element":
		el, err := element.New(msg.Kind, msg.Value)
		if err != nil {
			h.reply(c, "error", map[string]interface{}{"error": err.Error()})
			return
		}
		// the resulting render reaches every client, the sender included
		c.Room.Append(el)

	case "script":
		if _, err := c.Room.ApplyScript(msg.Script); err != nil {
			h.reply(c, "error", map[string]interface{}{"error": err.Error()})
		}

	case "render":
		h.reply(c, "render", map[string]interface{}{"room_id": c.Room.ID, "content": c.Room.Render()})

	case "save":
		if err := c.Room.Save(); err != nil {
			log.Printf("Error saving room %s: %v", c.Room.ID, err)
			h.reply(c, "error", map[string]interface{}{"error": err.Error()})
			return
		}
		h.reply(c, "saved", map[string]interface{}{"room_id": c.Room.ID})

	case "ping":
		h.reply(c, "pong", nil)

	default:
		log.Printf("Unknown message type from %s: %q", c.ID, msg.Type)
		h.reply(c, "error", map[string]interface{}{"error": "unknown message type"})
	}
}

// reply sends a message to a single client through its room
func (h *Handlers) reply(c *room.Client, msgType string, fields map[string]interface{}) {
	message := map[string]interface{}{"type": msgType}
	for k, v := range fields {
		message[k] = v
	}
	data, _ := json.Marshal(message)
	c.Room.SendTo(c, data)
}

// writePump handles writing messages to the WebSocket
func (h *Handlers) writePump(c *room.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// channel closed: send close and return
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping error for %s: %v", c.ID, err)
				return
			}
		}
	}
}
