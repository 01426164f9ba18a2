package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doc-editor/pkg/config"
	"doc-editor/pkg/storage"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, newSinkDir string) (*httptest.Server, *Server) {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{Port: "0"}}
	opts := storage.Options{Filename: filepath.Join(newSinkDir, "document.txt")}
	srv := NewServer(cfg, RoomSinks(storage.KindFile, opts, nil))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, srv
}

func createRoom(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d", resp.StatusCode)
	}
	var body struct {
		ID   string `json:"id"`
		Sink string `json:"sink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.ID == "" {
		t.Fatal("empty room id")
	}
	return body.ID
}

func postElement(t *testing.T, ts *httptest.Server, roomID, kind, value string) int {
	t.Helper()
	payload := `{"kind":"` + kind + `","value":"` + value + `"}`
	resp, err := http.Post(ts.URL+"/api/rooms/"+roomID+"/elements", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post element failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func getText(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRESTRenderAndSave(t *testing.T) {
	dir := t.TempDir()
	ts, _ := newTestServer(t, dir)
	id := createRoom(t, ts)

	for _, el := range [][2]string{
		{"text", "Hello, world!"},
		{"newline", ""},
		{"tab", ""},
		{"image", "picture.jpg"},
	} {
		if status := postElement(t, ts, id, el[0], el[1]); status != http.StatusOK {
			t.Fatalf("add %s status = %d", el[0], status)
		}
	}

	want := "Hello, world!\n\t[Image: picture.jpg]"
	status, body := getText(t, ts.URL+"/api/rooms/"+id+"/render")
	if status != http.StatusOK || body != want {
		t.Fatalf("render = %d %q, want %q", status, body, want)
	}

	resp, err := http.Post(ts.URL+"/api/rooms/"+id+"/save", "", nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	saved, err := os.ReadFile(filepath.Join(dir, "document-"+id+".txt"))
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if string(saved) != want {
		t.Fatalf("saved = %q, want %q", saved, want)
	}
}

func TestRESTScript(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())
	id := createRoom(t, ts)

	resp, err := http.Post(ts.URL+"/api/rooms/"+id+"/script", "text/plain", strings.NewReader("text \"a\"\nnewline\nimage \"b.png\"\n"))
	if err != nil {
		t.Fatalf("post script failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("script status = %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/rooms/"+id+"/script", "text/plain", strings.NewReader("nonsense\n"))
	if err != nil {
		t.Fatalf("post script failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad script status = %d", resp.StatusCode)
	}

	_, body := getText(t, ts.URL+"/api/rooms/"+id+"/render")
	if body != "a\n[Image: b.png]" {
		t.Fatalf("render = %q", body)
	}
	_, body = getText(t, ts.URL+"/api/rooms/"+id+"/script")
	if body != "text \"a\"\nnewline\nimage \"b.png\"\n" {
		t.Fatalf("script = %q", body)
	}
}

func TestRESTScriptTooLarge(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())
	id := createRoom(t, ts)

	// one statement past the 1 MiB body limit, ending on a line boundary
	src := strings.Repeat("tab\n", (1<<20)/4+10)
	resp, err := http.Post(ts.URL+"/api/rooms/"+id+"/script", "text/plain", strings.NewReader(src))
	if err != nil {
		t.Fatalf("post script failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized script status = %d, want 413", resp.StatusCode)
	}

	if _, body := getText(t, ts.URL+"/api/rooms/"+id+"/render"); body != "" {
		t.Fatalf("oversized script appended %d bytes", len(body))
	}
}

func TestRESTErrors(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())
	id := createRoom(t, ts)

	if status := postElement(t, ts, id, "table", ""); status != http.StatusBadRequest {
		t.Fatalf("unknown kind status = %d", status)
	}
	if status := postElement(t, ts, "missing", "text", "x"); status != http.StatusNotFound {
		t.Fatalf("missing room status = %d", status)
	}
	if status, _ := getText(t, ts.URL+"/api/rooms/"+id+"/revisions"); status != http.StatusNotImplemented {
		t.Fatalf("revisions on file sink status = %d", status)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/rooms/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if status, _ := getText(t, ts.URL+"/api/rooms/"+id+"/render"); status != http.StatusNotFound {
		t.Fatalf("render after delete status = %d", status)
	}
}

func TestSaveFailureReported(t *testing.T) {
	ts, _ := newTestServer(t, filepath.Join(t.TempDir(), "does-not-exist"))
	id := createRoom(t, ts)
	postElement(t, ts, id, "text", "x")

	resp, err := http.Post(ts.URL+"/api/rooms/"+id+"/save", "", nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("save status = %d, want 500", resp.StatusCode)
	}

	if _, body := getText(t, ts.URL+"/api/rooms/"+id+"/render"); body != "x" {
		t.Fatalf("render after failed save = %q", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/rooms", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "X-Custom" {
		t.Fatalf("Allow-Headers = %q", got)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func TestWebSocketLiveRender(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())
	id := createRoom(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + id + "?username=ada"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	snap := readWS(t, conn)
	if snap["type"] != "snapshot" || snap["content"] != "" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	if err := conn.WriteJSON(map[string]string{"type": "element", "kind": "text", "value": "hi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	update := readWS(t, conn)
	if update["type"] != "render" || update["content"] != "hi" {
		t.Fatalf("unexpected update: %v", update)
	}

	// REST appends reach websocket clients too
	postElement(t, ts, id, "tab", "")
	update = readWS(t, conn)
	if update["content"] != "hi\t" {
		t.Fatalf("unexpected update after REST append: %v", update)
	}

	if err := conn.WriteJSON(map[string]string{"type": "save"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readWS(t, conn); msg["type"] != "saved" {
		t.Fatalf("expected saved, got %v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "element", "kind": "bogus"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readWS(t, conn); msg["type"] != "error" {
		t.Fatalf("expected error, got %v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readWS(t, conn); msg["type"] != "pong" {
		t.Fatalf("expected pong, got %v", msg)
	}
}

func TestWebSocketInitEchoesEffectiveName(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())
	id := createRoom(t, ts)

	for _, tt := range []struct {
		query, init, want string
	}{
		{"", "", "Anonymous"},
		{"?username=ada", "", "ada"},
		{"?username=ada", "bob", "bob"},
	} {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + id + tt.query
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		readWS(t, conn) // snapshot

		if err := conn.WriteJSON(map[string]string{"type": "init", "username": tt.init}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		msg := readWS(t, conn)
		if msg["type"] != "init_ok" || msg["username"] != tt.want {
			t.Errorf("query %q init %q: got %v, want username %q", tt.query, tt.init, msg, tt.want)
		}
		conn.Close()
	}
}

func TestWebSocketUnknownRoom(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
}

func TestRoomFilename(t *testing.T) {
	tests := []struct {
		name, id, want string
	}{
		{"document.txt", "abc", "document-abc.txt"},
		{"out/doc.pdf", "x", "out/doc-x.pdf"},
		{"plain", "y", "plain-y"},
		{"", "z", "document-z.txt"},
	}
	for _, tt := range tests {
		if got := roomFilename(tt.name, tt.id); got != tt.want {
			t.Errorf("roomFilename(%q, %q) = %q, want %q", tt.name, tt.id, got, tt.want)
		}
	}
}

func TestRoomSinksSharesNullSink(t *testing.T) {
	null := storage.NewNullSink()
	factory := RoomSinks(storage.KindNull, storage.Options{}, null)
	sink, err := factory("r1")
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if sink != storage.Sink(null) {
		t.Fatal("expected the shared null sink")
	}
}
