// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"polysynth/internal/control"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*WebSocketServer, *control.Queue, *websocket.Conn) {
	t.Helper()
	q := control.NewQueue(16)
	s := NewWebSocketServer("127.0.0.1:0", q)
	if err := s.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return s, q, conn
}

func receive(t *testing.T, q *control.Queue) control.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := q.TryReceive(); ok {
			return m
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no control message received")
	return control.Message{}
}

func TestWebSocketControl(t *testing.T) {
	s, q, conn := startTestServer(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus","value":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(control.NoteTrigger(440)); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"all_notes_off"}`)); err != nil {
		t.Fatal(err)
	}

	if m := receive(t, q); m != control.NoteTrigger(440) {
		t.Errorf("first message = %v, want note trigger 440", m)
	}
	if m := receive(t, q); m != control.AllNotesOff() {
		t.Errorf("second message = %v, want all notes off", m)
	}
	if got := s.Rejected(); got != 2 {
		t.Errorf("Rejected() = %d, want 2", got)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s, q, conn := startTestServer(t)

	// A delivered control message proves the client is registered.
	if err := conn.WriteJSON(control.SetAmplitude(0.5)); err != nil {
		t.Fatal(err)
	}
	receive(t, q)

	if err := s.Send(map[string]any{"type": "status", "active_voices": 3}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if got["type"] != "status" || got["active_voices"] != 3.0 {
		t.Errorf("broadcast = %v", got)
	}
}

func TestWebSocketClose(t *testing.T) {
	s, q, conn := startTestServer(t)
	if err := conn.WriteJSON(control.AllNotesOff()); err != nil {
		t.Fatal(err)
	}
	receive(t, q)

	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
	if err := s.Send("after close"); err != nil {
		t.Errorf("Send after close error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after server close")
	}
}

func TestWebSocketStartBindError(t *testing.T) {
	s := NewWebSocketServer("256.0.0.1:99999", control.NewQueue(4))
	if err := s.Start(); err == nil {
		s.Close()
		t.Fatal("expected listen error")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(map[string]any{"type": "status"}); err != nil {
		t.Errorf("Send error: %v", err)
	}
	if err := lt.Send(func() {}); err != nil {
		t.Errorf("Send of unmarshalable value error: %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}
