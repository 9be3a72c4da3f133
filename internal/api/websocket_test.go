package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/BodhiCanon/internal/etl"
)

func TestHubBroadcastReachesClient(t *testing.T) {
	s := newJobServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration goes through the hub loop; give it a moment before
	// broadcasting so the message has a subscriber.
	time.Sleep(50 * time.Millisecond)
	s.hub.BroadcastEvent("job-1", etl.Event{DocID: "T0251", Index: 1, Total: 3})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "progress" || msg.JobID != "job-1" || msg.DocID != "T0251" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Timestamp == "" {
		t.Error("missing timestamp")
	}
}

func TestHubErrorEventType(t *testing.T) {
	s := newJobServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	s.hub.BroadcastEvent("job-2", etl.Event{DocID: "X0001", Err: "parse failed"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Message != "parse failed" {
		t.Errorf("message = %+v", msg)
	}
}
