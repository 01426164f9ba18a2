package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"doc-editor/pkg/element"
	"doc-editor/pkg/room"
	"doc-editor/pkg/storage"

	"github.com/gorilla/mux"
)

// maxScriptBytes bounds request bodies carrying element scripts
const maxScriptBytes = 1 << 20

// Handlers contains all HTTP and WebSocket handlers
type Handlers struct {
	roomManager *room.Manager
}

// NewHandlers creates a new handlers instance
func NewHandlers(roomManager *room.Manager) *Handlers {
	return &Handlers{
		roomManager: roomManager,
	}
}

// elementRequest is the body of POST /api/rooms/{roomId}/elements
type elementRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CreateRoom starts a new editing session
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.roomManager.Create()
	if err != nil {
		log.Printf("Failed to create room: %v", err)
		http.Error(w, "Failed to create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":   rm.ID,
		"sink": storage.Describe(rm.Sink()),
	})
}

// ListRooms returns the IDs of all rooms
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.roomManager.List())
}

// DeleteRoom stops a room and disconnects its clients
func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.roomManager.Delete(mux.Vars(r)["roomId"]); err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddElement appends one element to the room's document
func (h *Handlers) AddElement(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}

	var req elementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	el, err := element.New(req.Kind, req.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content := rm.Append(el)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":  content,
		"elements": rm.Len(),
	})
}

// ApplyScript appends every element of an element script in the request body
func (h *Handlers) ApplyScript(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}

	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScriptBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Script too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	content, err := rm.ApplyScript(string(src))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":  content,
		"elements": rm.Len(),
	})
}

// GetScript returns the document as an element script
func (h *Handlers) GetScript(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}
	writeText(w, rm.Script())
}

// RenderDocument returns the rendered document as plain text
func (h *Handlers) RenderDocument(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}
	writeText(w, rm.Render())
}

// SaveDocument persists the room's document through its sink
func (h *Handlers) SaveDocument(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}

	if err := rm.Save(); err != nil {
		log.Printf("Error saving room %s: %v", rm.ID, err)
		http.Error(w, "Failed to save document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRevisions returns saved revisions when the room's sink keeps history
func (h *Handlers) ListRevisions(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}

	store, ok := rm.Sink().(storage.RevisionStore)
	if !ok {
		http.Error(w, "Sink does not keep revisions", http.StatusNotImplemented)
		return
	}

	revisions, err := store.ListRevisions()
	if err != nil {
		http.Error(w, "Failed to list revisions", http.StatusInternalServerError)
		return
	}
	if revisions == nil {
		revisions = []*storage.Revision{}
	}
	writeJSON(w, http.StatusOK, revisions)
}

// GetRoomUsers returns the list of users in a room
func (h *Handlers) GetRoomUsers(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.room(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_id": rm.ID,
		"users":   rm.GetUsers(),
	})
}

// room resolves {roomId}, writing a 404 when it does not exist
func (h *Handlers) room(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	rm, err := h.roomManager.Get(mux.Vars(r)["roomId"])
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to get room", http.StatusInternalServerError)
		}
		return nil, false
	}
	return rm, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s)
}
