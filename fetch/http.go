package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/dsl"
)

// ErrUnknownMethod is returned for call methods a fetcher does not serve.
var ErrUnknownMethod = errors.New("unknown call method")

// HistoryReader reads stored candles, most recent last.
type HistoryReader interface {
	ReadCandles(ctx context.Context, symbol, period string, limit int) ([]chart.Candle, error)
}

// HTTPFetcher serves the standard call methods: get and post over HTTP with
// JSON responses, and loadHistory from a history reader.
//
//	http.get(url, query)       query is an optional object of parameters
//	http.post(url, body)       body is sent as JSON
//	http.loadHistory(symbol, period, limit)
type HTTPFetcher struct {
	Client  *http.Client  // nil selects http.DefaultClient
	BaseURL string        // prefix for relative URLs
	History HistoryReader // may be nil, disabling loadHistory
	MaxBody int64         // response size limit; 0 means 4 MB
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Fetch performs call.
func (f *HTTPFetcher) Fetch(ctx context.Context, call Call) (dsl.Value, error) {
	switch call.Method {
	case "get":
		return f.get(ctx, call.Args)
	case "post":
		return f.post(ctx, call.Args)
	case "loadHistory":
		return f.loadHistory(ctx, call.Args)
	}
	return dsl.Null, fmt.Errorf("%w: %q", ErrUnknownMethod, call.Method)
}

func (f *HTTPFetcher) url(v dsl.Value) (string, error) {
	if v.Tag != dsl.VTStr || v.AsStr() == "" {
		return "", fmt.Errorf("expected URL as first argument: %w", dsl.ErrArgument)
	}
	u := v.AsStr()
	if f.BaseURL != "" && !strings.Contains(u, "://") {
		u = strings.TrimSuffix(f.BaseURL, "/") + "/" + strings.TrimPrefix(u, "/")
	}
	return u, nil
}

func (f *HTTPFetcher) get(ctx context.Context, args []dsl.Value) (dsl.Value, error) {
	u, err := f.url(dsl.Arg(args, 0))
	if err != nil {
		return dsl.Null, err
	}
	if q := dsl.Arg(args, 1).AsObject(); q != nil {
		params := url.Values{}
		for _, k := range q.Keys() {
			v, _ := q.Get(k)
			params.Set(k, v.String())
		}
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return dsl.Null, err
	}
	return f.do(req)
}

func (f *HTTPFetcher) post(ctx context.Context, args []dsl.Value) (dsl.Value, error) {
	u, err := f.url(dsl.Arg(args, 0))
	if err != nil {
		return dsl.Null, err
	}
	body, err := json.Marshal(dsl.Arg(args, 1).Interface())
	if err != nil {
		return dsl.Null, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return dsl.Null, err
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func (f *HTTPFetcher) do(req *http.Request) (dsl.Value, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return dsl.Null, err
	}
	defer resp.Body.Close()
	limit := f.MaxBody
	if limit <= 0 {
		limit = 4 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return dsl.Null, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dsl.Null, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return dsl.Null, nil
	}
	var x interface{}
	if err := json.Unmarshal(data, &x); err != nil {
		return dsl.Str(string(data)), nil
	}
	return dsl.FromGo(x), nil
}

func (f *HTTPFetcher) loadHistory(ctx context.Context, args []dsl.Value) (dsl.Value, error) {
	if f.History == nil {
		return dsl.Null, errors.New("loadHistory: no history available")
	}
	symbol, period := dsl.Arg(args, 0), dsl.Arg(args, 1)
	if symbol.Tag != dsl.VTStr || period.Tag != dsl.VTStr {
		return dsl.Null, fmt.Errorf("loadHistory(symbol, period, limit): %w", dsl.ErrArgument)
	}
	limit, ok := dsl.Arg(args, 2).Int()
	if !ok || limit <= 0 {
		limit = 500
	}
	candles, err := f.History.ReadCandles(ctx, symbol.AsStr(), period.AsStr(), limit)
	if err != nil {
		return dsl.Null, err
	}
	return CandleObject(candles), nil
}

// CandleObject converts candles into an object of forward series: time,
// open, high, low, close and volume.
func CandleObject(candles []chart.Candle) dsl.Value {
	cols := chart.Columns(candles)
	o := dsl.NewObject()
	for _, name := range chart.ColumnNames {
		o.Set(name, dsl.FromGo(cols[name]))
	}
	return dsl.Obj(o)
}
