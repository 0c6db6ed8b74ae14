package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServer_Healthz(t *testing.T) {
	srv := New(NewHub(), nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_ServesShell(t *testing.T) {
	srv := New(NewHub(), nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Study Buddy") {
		t.Fatalf("shell page not served")
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	return conn
}

func TestHub_StatusSentOnJoinAndBroadcast(t *testing.T) {
	hub := NewHub()
	srv := New(hub, nil, nil)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	// Late joiner immediately receives the remembered status.
	var m serverMessage
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read join status: %v", err)
	}
	if m.Type != "status" || m.Text != "READY" {
		t.Fatalf("unexpected join message %+v", m)
	}

	hub.Status("THINKING...")
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if m.Type != "status" || m.Text != "THINKING..." {
		t.Fatalf("unexpected broadcast %+v", m)
	}

	hub.Log("You: hello")
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read log: %v", err)
	}
	if m.Type != "log" || m.Text != "You: hello" {
		t.Fatalf("unexpected log %+v", m)
	}
}

func TestHub_RoutesTypedTextAndPCM(t *testing.T) {
	hub := NewHub()
	texts := make(chan string, 1)
	pcms := make(chan int, 1)
	srv := New(hub, func(s string) { texts <- s }, func(b []byte) { pcms <- len(b) })
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(clientMessage{Type: "text", Text: "what do you see"}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	select {
	case got := <-texts:
		if got != "what do you see" {
			t.Fatalf("typed text mangled: %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("typed text not routed")
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 640)); err != nil {
		t.Fatalf("write pcm: %v", err)
	}
	select {
	case n := <-pcms:
		if n != 640 {
			t.Fatalf("pcm frame truncated: %d", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("pcm frame not routed")
	}
}

func TestHub_DeadClientDropped(t *testing.T) {
	hub := NewHub()
	srv := New(hub, nil, nil)
	ts := httptest.NewServer(srv.Echo)
	defer ts.Close()

	conn := dialWS(t, ts)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && hub.ClientCount() == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	conn.Close()

	// Broadcasts after close eventually evict the connection.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hub.ClientCount() != 0 {
		hub.Status("READY")
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("closed client still registered")
	}
}
