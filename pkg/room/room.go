package room

import (
	"encoding/json"
	"errors"
	"log"
	"runtime/debug"
	"sort"
	"sync"

	"doc-editor/pkg/editor"
	"doc-editor/pkg/element"
	"doc-editor/pkg/script"
	"doc-editor/pkg/storage"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrRoomNotFound is returned for an unknown room ID
var ErrRoomNotFound = errors.New("room not found")

// SinkFactory builds the persistence sink for a new room
type SinkFactory func(roomID string) (storage.Sink, error)

// RenderUpdate is broadcast to every client after the document changes
type RenderUpdate struct {
	Type     string `json:"type"` // "render"
	RoomID   string `json:"room_id"`
	Content  string `json:"content"`
	Elements int    `json:"elements"`
}

// Snapshot is sent to a client when it joins
type Snapshot struct {
	Type     string `json:"type"` // "snapshot"
	RoomID   string `json:"room_id"`
	Content  string `json:"content"`
	Elements int    `json:"elements"`
	Users    []User `json:"users"`
}

// Client represents a connected client in a room
type Client struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Conn     *websocket.Conn `json:"-"`
	Room     *Room           `json:"-"`
	Send     chan []byte     `json:"-"`
}

type directMessage struct {
	client *Client
	data   []byte
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Room is a live editing session around one Editor. Editor access is
// serialized by editMu and saves by saveMu; the client set is owned by run.
type Room struct {
	ID         string             `json:"id"`
	Clients    map[string]*Client `json:"-"`
	Broadcast  chan []byte        `json:"-"`
	Register   chan *Client       `json:"-"`
	Unregister chan *Client       `json:"-"`

	editor *editor.Editor
	editMu sync.Mutex
	saveMu sync.Mutex

	direct chan directMessage

	mutex     sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
}

// Manager manages all rooms
type Manager struct {
	rooms   map[string]*Room
	mutex   sync.RWMutex
	newSink SinkFactory
}

// NewManager creates a new room manager
func NewManager(newSink SinkFactory) *Manager {
	if newSink == nil {
		newSink = func(string) (storage.Sink, error) { return storage.NewNullSink(), nil }
	}
	return &Manager{
		rooms:   make(map[string]*Room),
		newSink: newSink,
	}
}

// Create starts a new room with an empty document
func (m *Manager) Create() (*Room, error) {
	id := uuid.New().String()
	sink, err := m.newSink(id)
	if err != nil {
		return nil, err
	}

	room := newRoom(id, editor.New(nil, sink))

	m.mutex.Lock()
	m.rooms[id] = room
	m.mutex.Unlock()

	go room.run()

	log.Printf("Room %s created (sink: %s)", id, storage.Describe(sink))
	return room, nil
}

func newRoom(id string, ed *editor.Editor) *Room {
	return &Room{
		ID:         id,
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 256),
		editor:     ed,
		direct:     make(chan directMessage, 16),
		done:       make(chan struct{}),
	}
}

// Get returns an existing room
func (m *Manager) Get(id string) (*Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Delete stops a room and disconnects its clients
func (m *Manager) Delete(id string) error {
	m.mutex.Lock()
	room, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if !ok {
		return ErrRoomNotFound
	}
	room.Close()
	return nil
}

// List returns the IDs of all rooms in sorted order
func (m *Manager) List() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every room
func (m *Manager) Close() {
	m.mutex.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mutex.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}

// run handles client membership and fan-out until the room is closed
func (r *Room) run() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in room.run: %v\n%s", rec, debug.Stack())
		}
	}()

	for {
		select {
		case client := <-r.Register:
			r.mutex.Lock()
			r.Clients[client.ID] = client
			r.mutex.Unlock()
			r.sendSnapshot(client)
			log.Printf("Client %s joined room %s", client.ID, r.ID)

		case client := <-r.Unregister:
			r.mutex.Lock()
			if _, ok := r.Clients[client.ID]; ok {
				delete(r.Clients, client.ID)
				close(client.Send)
			}
			r.mutex.Unlock()
			log.Printf("Client %s left room %s", client.ID, r.ID)

		case message := <-r.Broadcast:
			r.mutex.Lock()
			for id, client := range r.Clients {
				select {
				case client.Send <- message:
				default:
					// drop slow client
					close(client.Send)
					delete(r.Clients, id)
				}
			}
			r.mutex.Unlock()

		case m := <-r.direct:
			r.mutex.RLock()
			if client, ok := r.Clients[m.client.ID]; ok {
				select {
				case client.Send <- m.data:
				default:
				}
			}
			r.mutex.RUnlock()

		case <-r.done:
			r.mutex.Lock()
			for id, client := range r.Clients {
				close(client.Send)
				delete(r.Clients, id)
			}
			r.mutex.Unlock()
			return
		}
	}
}

// Close stops the room's run loop. It is safe to call more than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Join registers a client unless the room is closed
func (r *Room) Join(c *Client) bool {
	select {
	case r.Register <- c:
		return true
	case <-r.done:
		return false
	}
}

// Leave unregisters a client; a no-op once the room is closed
func (r *Room) Leave(c *Client) {
	select {
	case r.Unregister <- c:
	case <-r.done:
	}
}

// SendTo delivers data to one client if it is still registered
func (r *Room) SendTo(c *Client, data []byte) {
	select {
	case r.direct <- directMessage{client: c, data: data}:
	case <-r.done:
	}
}

// Append adds an element to the document, broadcasts the new render and returns it
func (r *Room) Append(elems ...element.Element) string {
	r.editMu.Lock()
	for _, e := range elems {
		r.editor.Add(e)
	}
	content := r.editor.RenderDocument()
	count := r.editor.Len()
	r.editMu.Unlock()

	r.broadcastRender(content, count)
	return content
}

// ApplyScript parses src and appends its elements. Nothing is appended when parsing fails.
func (r *Room) ApplyScript(src string) (string, error) {
	s, err := script.ParseString(src)
	if err != nil {
		return "", err
	}
	return r.Append(s.Elements()...), nil
}

// Render returns the current document render
func (r *Room) Render() string {
	r.editMu.Lock()
	defer r.editMu.Unlock()
	return r.editor.RenderDocument()
}

// Script returns the document as an element script
func (r *Room) Script() string {
	r.editMu.Lock()
	defer r.editMu.Unlock()
	return script.Format(r.editor.Elements())
}

// Save persists the document through the room's sink. The render is taken
// under editMu; the sink write happens outside it, one save at a time.
func (r *Room) Save() error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.editMu.Lock()
	content := r.editor.RenderFresh()
	r.editMu.Unlock()

	return r.editor.Sink().Save(content)
}

// Sink returns the room's persistence target
func (r *Room) Sink() storage.Sink {
	return r.editor.Sink()
}

// Len returns the number of elements in the document
func (r *Room) Len() int {
	r.editMu.Lock()
	defer r.editMu.Unlock()
	return r.editor.Len()
}

func (r *Room) broadcastRender(content string, count int) {
	data, _ := json.Marshal(RenderUpdate{
		Type:     "render",
		RoomID:   r.ID,
		Content:  content,
		Elements: count,
	})

	select {
	case r.Broadcast <- data:
	case <-r.done:
	}
}

func (r *Room) sendSnapshot(c *Client) {
	r.editMu.Lock()
	content := r.editor.RenderDocument()
	count := r.editor.Len()
	r.editMu.Unlock()

	msg, _ := json.Marshal(Snapshot{
		Type:     "snapshot",
		RoomID:   r.ID,
		Content:  content,
		Elements: count,
		Users:    r.GetUsers(),
	})

	select {
	case c.Send <- msg:
	default:
		log.Printf("dropping snapshot for slow client %s", c.ID)
	}
}

// Rename changes the display name of a client
func (r *Room) Rename(c *Client, username string) {
	r.mutex.Lock()
	c.Username = username
	r.mutex.Unlock()
}

// Username returns the display name of a client
func (r *Room) Username(c *Client) string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return c.Username
}

// GetUsers returns a list of users currently in the room
func (r *Room) GetUsers() []User {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]User, 0, len(r.Clients))
	for _, client := range r.Clients {
		users = append(users, User{
			ID:       client.ID,
			Username: client.Username,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users
}
