package console

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestFeedHistoryIsBounded(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.console")
	defer teardown()
	//
	f := NewFeed(3)
	e := For("ma", f)
	for i := 0; i < 5; i++ {
		e.Print("line %d", i)
	}
	e.Error("boom")
	h := f.History("ma")
	if len(h) != 3 {
		t.Fatalf("Expected history of 3 messages, is %d", len(h))
	}
	if h[0].Text != "line 3" || h[2].Kind != Error {
		t.Errorf("Expected history to keep the most recent messages, is %v", h)
	}
	if f.Count("ma", Error) != 1 {
		t.Errorf("Expected 1 error message, is %d", f.Count("ma", Error))
	}
	if len(f.History("other")) != 0 {
		t.Errorf("Expected empty history for unknown key")
	}
	f.Clear("ma")
	if len(f.History("ma")) != 0 {
		t.Errorf("Expected history to be cleared")
	}
}

func TestFeedSubscribe(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.console")
	defer teardown()
	//
	f := NewFeed(0)
	var got []Message
	unsubscribe := f.Subscribe(func(m Message) { got = append(got, m) })
	For("a", f).Signal("long")
	For("b", f).Warn("careful %s", "now")
	unsubscribe()
	For("a", f).Print("unseen")
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages to be delivered, are %d", len(got))
	}
	if got[1].Text != "careful now" || got[1].Kind != Warning {
		t.Errorf("Expected formatted warning, is %v", got[1])
	}
	if got[0].Time.IsZero() {
		t.Errorf("Expected message time to be set")
	}
}

func TestEmitterWithoutSink(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.console")
	defer teardown()
	//
	For("x", nil).Print("no panic with 100%")
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("cannot read from websocket: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("cannot decode message %q: %v", data, err)
	}
	return m
}

func TestHubStreamsFilteredMessages(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.console")
	defer teardown()
	//
	feed := NewFeed(0)
	hub := NewHub(feed)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()
	For("a", feed).System("registered")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?key=a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("Expected 1 connected client, is %d", hub.Clients())
	}
	if m := readMessage(t, conn); m.Text != "registered" || m.Kind != System {
		t.Errorf("Expected history to be replayed, got %v", m)
	}
	For("b", feed).Print("for b")
	For("a", feed).Print("for a")
	if m := readMessage(t, conn); m.Key != "a" || m.Text != "for a" {
		t.Errorf("Expected only messages for key a, got %v", m)
	}
}
