package redis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/store"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// Tests need a server; set CHARTSCRIPT_TEST_REDIS to its address.
func open(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("CHARTSCRIPT_TEST_REDIS")
	if addr == "" {
		t.Skip("CHARTSCRIPT_TEST_REDIS not set")
	}
	s, err := New(Config{Addr: addr, Prefix: "chartscript-test-" + time.Now().Format("150405.000")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.Keys(ctx)
		for _, k := range keys {
			s.Delete(ctx, k)
		}
		s.Close()
	})
	return s
}

func TestScripts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.store")
	defer teardown()
	//
	s := open(t)
	ctx := context.Background()
	if err := s.Save(ctx, store.Record{Key: "ma", Source: "src", Visible: true,
		Inputs: map[string]interface{}{"period": 50}}); err != nil {
		t.Fatal(err)
	}
	s.Save(ctx, store.Record{Key: "aa", Source: "src"})
	r, err := s.Load(ctx, "ma")
	if err != nil {
		t.Fatal(err)
	}
	if r.Source != "src" || !r.Visible || r.Inputs["period"] != 50.0 {
		t.Errorf("unexpected record %+v", r)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 2 || keys[0] != "aa" {
		t.Errorf("Expected keys [aa ma], are %v", keys)
	}
	s.Delete(ctx, "ma")
	if _, err := s.Load(ctx, "ma"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPublisher(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.store")
	defer teardown()
	//
	s := open(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := s.Client().Subscribe(ctx, s.Channel("ma"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}
	s.Publisher().Emit(console.Message{Key: "ma", Kind: console.Print, Text: "hello"})
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var m console.Message
	if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.Text != "hello" {
		t.Errorf("Expected published message 'hello', is %q (%v)", msg.Payload, err)
	}
}
