package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// drain ticks the loop until guard is released.
func drain(t *testing.T, l *loop.Loop, guard *loop.Guard) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for guard.Busy() {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("fetch batch did not settle: %v", err)
		}
		l.Tick()
	}
	l.Tick()
}

func calls() []*script.HTTPCall {
	return []*script.HTTPCall{
		{Key: "quote", Method: "get", Args: `"/quote"`},
		{Key: "news", Method: "get", Args: `"/news"`},
	}
}

func TestPartialFailure(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.fetch")
	defer teardown()
	//
	l := loop.New()
	redraws := 0
	var order []string
	c := NewCoordinator(Options{
		Loop: l,
		Fetcher: FetcherFunc(func(ctx context.Context, call Call) (dsl.Value, error) {
			order = append(order, call.Key)
			if call.Key == "news" {
				return dsl.Null, errors.New("rejected")
			}
			return dsl.Str(call.Args[0].AsStr()), nil
		}),
		Redraw: func() {
			l.RequestFrame("redraw", func() { redraws++ })
		},
	})
	cs := calls()
	values := map[string]dsl.Value{"news": dsl.Str("stale")}
	guard := &loop.Guard{}
	var failed []string
	settled := 0
	b := &Batch{
		Key:     "t",
		Calls:   cs,
		Eval:    func(raw string) ([]dsl.Value, error) { return []dsl.Value{dsl.Str(raw)}, nil },
		Values:  values,
		Guard:   guard,
		Settled: func() { settled++ },
		Failed:  func(call *script.HTTPCall, err error) { failed = append(failed, call.Key) },
	}
	if !c.Run(context.Background(), b) {
		t.Fatalf("Expected batch to start")
	}
	if c.Run(context.Background(), b) {
		t.Errorf("Expected second batch to be skipped while in flight")
	}
	drain(t, l, guard)
	if len(order) != 2 || order[0] != "quote" {
		t.Errorf("Expected calls in declaration order, are %v", order)
	}
	if values["quote"].AsStr() != `"/quote"` || cs[0].Value.AsStr() != `"/quote"` {
		t.Errorf("Expected successful result in map and call, are %v and %v", values["quote"], cs[0].Value)
	}
	if !values["news"].IsNull() || !cs[1].Value.IsNull() {
		t.Errorf("Expected failed call to clear its value, is %v", values["news"])
	}
	if len(failed) != 1 || failed[0] != "news" {
		t.Errorf("Expected one failure for 'news', are %v", failed)
	}
	if redraws != 1 || settled != 1 {
		t.Errorf("Expected exactly one redraw and one settle, are %d and %d", redraws, settled)
	}
	if guard.Busy() {
		t.Errorf("Expected guard to be released")
	}
}

func TestPanicAndEvalErrorAreContained(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.fetch")
	defer teardown()
	//
	l := loop.New()
	c := NewCoordinator(Options{
		Loop: l,
		Fetcher: FetcherFunc(func(ctx context.Context, call Call) (dsl.Value, error) {
			panic("network exploded")
		}),
	})
	values := map[string]dsl.Value{}
	guard := &loop.Guard{}
	b := &Batch{
		Calls:  calls(),
		Values: values,
		Guard:  guard,
		Eval: func(raw string) ([]dsl.Value, error) {
			if raw == `"/news"` {
				return nil, errors.New("bad args")
			}
			return nil, nil
		},
	}
	c.Run(context.Background(), b)
	drain(t, l, guard)
	if _, ok := values["quote"]; !ok || !values["quote"].IsNull() {
		t.Errorf("Expected panicking call to leave null, is %v", values["quote"])
	}
	if !values["news"].IsNull() {
		t.Errorf("Expected call with bad args to leave null")
	}
}

func TestStaleEpochIsDiscarded(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.fetch")
	defer teardown()
	//
	l := loop.New()
	c := NewCoordinator(Options{
		Loop: l,
		Fetcher: FetcherFunc(func(ctx context.Context, call Call) (dsl.Value, error) {
			return dsl.Num(1), nil
		}),
	})
	epoch := uint64(1)
	values := map[string]dsl.Value{}
	guard := &loop.Guard{}
	c.Run(context.Background(), &Batch{
		Calls:   calls()[:1],
		Values:  values,
		Guard:   guard,
		Epoch:   epoch,
		Current: func() uint64 { return epoch },
	})
	epoch = 2
	drain(t, l, guard)
	if _, ok := values["quote"]; ok {
		t.Errorf("Expected stale result to be discarded, is %v", values["quote"])
	}
}

func TestPending(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.fetch")
	defer teardown()
	//
	cs := calls()
	p := Pending(cs, map[string]dsl.Value{"quote": dsl.Num(1), "news": dsl.Null})
	if len(p) != 1 || p[0].Key != "news" {
		t.Errorf("Expected only 'news' to be pending, are %v", p)
	}
}

type history []chart.Candle

func (h history) ReadCandles(ctx context.Context, symbol, period string, limit int) ([]chart.Candle, error) {
	if symbol != "BTC" {
		return nil, errors.New("unknown symbol")
	}
	if limit < len(h) {
		return h[len(h)-limit:], nil
	}
	return h, nil
}

func TestHTTPFetcher(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.fetch")
	defer teardown()
	//
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"symbol": r.URL.Query().Get("symbol"),
				"price":  42.5,
			})
		case "/echo":
			var body interface{}
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(body)
		default:
			http.Error(w, "no", http.StatusNotFound)
		}
	}))
	defer srv.Close()
	f := &HTTPFetcher{
		BaseURL: srv.URL,
		History: history{{Time: 1, Close: 1}, {Time: 2, Close: 2}, {Time: 3, Close: 3}},
	}
	ctx := context.Background()
	query := dsl.NewObject().Set("symbol", dsl.Str("BTC"))
	v, err := f.Fetch(ctx, Call{Method: "get", Args: []dsl.Value{dsl.Str("/quote"), dsl.Obj(query)}})
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := v.AsObject().Get("price"); p.AsNum() != 42.5 {
		t.Errorf("Expected price 42.5, is %v", v)
	}
	if s, _ := v.AsObject().Get("symbol"); s.AsStr() != "BTC" {
		t.Errorf("Expected query parameter to be sent, response is %v", v)
	}
	body := dsl.List(dsl.Num(1), dsl.Str("a"))
	v, err = f.Fetch(ctx, Call{Method: "post", Args: []dsl.Value{dsl.Str("echo"), body}})
	if err != nil || !dsl.Equal(v, body) {
		t.Errorf("Expected echo of %v, is %v (%v)", body, v, err)
	}
	if _, err = f.Fetch(ctx, Call{Method: "get", Args: []dsl.Value{dsl.Str("/missing")}}); err == nil {
		t.Errorf("Expected error for status 404")
	}
	if _, err = f.Fetch(ctx, Call{Method: "put"}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Expected unknown method error, got %v", err)
	}
	v, err = f.Fetch(ctx, Call{Method: "loadHistory", Args: []dsl.Value{dsl.Str("BTC"), dsl.Str("1h"), dsl.Num(2)}})
	if err != nil {
		t.Fatal(err)
	}
	closes, _ := v.AsObject().Get("close")
	if closes.AsArray().Len() != 2 || closes.AsArray().At(1).AsNum() != 3 {
		t.Errorf("Expected last two closes, are %v", closes)
	}
}
