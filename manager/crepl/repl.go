package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/engine"
	"github.com/npillmayer/chartscript/fetch"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/manager"
	"github.com/npillmayer/chartscript/metrics"
	"github.com/npillmayer/chartscript/store"
	"github.com/npillmayer/chartscript/store/redis"
	"github.com/npillmayer/chartscript/store/sqlite"
)

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/

// Settings are read from flags, with defaults taken from the environment.
type Settings struct {
	Trace   string
	Init    string
	SQLite  string
	Redis   string
	HTTP    string
	BaseURL string
	Symbol  string
	Period  string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func settings() Settings {
	var s Settings
	flag.StringVar(&s.Trace, "trace", getEnv("CHARTSCRIPT_TRACE", "Info"), "Trace level [Debug|Info|Error]")
	flag.StringVar(&s.Init, "init", getEnv("CHARTSCRIPT_INIT", ""), "Initial load of commands")
	flag.StringVar(&s.SQLite, "sqlite", getEnv("CHARTSCRIPT_SQLITE", ""), "SQLite database for scripts and candles")
	flag.StringVar(&s.Redis, "redis", getEnv("CHARTSCRIPT_REDIS", ""), "Redis address for scripts and console output")
	flag.StringVar(&s.HTTP, "http", getEnv("CHARTSCRIPT_HTTP", ""), "Address to serve /metrics and /console on")
	flag.StringVar(&s.BaseURL, "baseurl", getEnv("CHARTSCRIPT_BASEURL", ""), "Base URL for relative http.get/http.post calls")
	flag.StringVar(&s.Symbol, "symbol", getEnv("CHARTSCRIPT_SYMBOL", "BTCUSD"), "Initial chart symbol")
	flag.StringVar(&s.Period, "period", getEnv("CHARTSCRIPT_PERIOD", "1h"), "Initial chart period")
	flag.Parse()
	return s
}

// main() starts an interactive CLI ("C.REPL"), where users may load chart
// scripts, configure them and watch what they draw. Commands are listed by
// 'help'.
func main() {
	// set up logging
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()
	s := settings()
	tracer().SetTraceLevel(tracing.LevelInfo) // will set the correct level later
	pterm.Info.Println("Welcome to CREPL")    // colored welcome message
	tracer().Infof("Trace level is %s", s.Trace)
	tracer().SetTraceLevel(traceLevel(s.Trace))
	//
	intp, err := setup(s)
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(2)
	}
	defer intp.close()
	//
	// set up REPL
	repl, err := readline.New("crepl> ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp.repl = repl
	tracer().Infof("Quit with <ctrl>D")
	intp.loadInitFile(s.Init)
	intp.REPL()
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object. All chart and manager state is owned by
// the loop goroutine; commands are handed over with do().
type Intp struct {
	settings Settings
	repl     *readline.Instance
	loop     *loop.Loop
	chart    *chart.Chart
	manager  *manager.Manager
	feed     *console.Feed
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	scripts  store.Scripts
	db       *sqlite.Store
	rdb      *redis.Store
	server   *server
	cancel   context.CancelFunc
	done     chan struct{}
}

func setup(s Settings) (*Intp, error) {
	intp := &Intp{
		settings: s,
		loop:     loop.New(),
		feed:     console.NewFeed(console.DefaultHistory),
		registry: prometheus.NewRegistry(),
		scripts:  store.NewMemory(),
		done:     make(chan struct{}),
	}
	intp.metrics = metrics.New(intp.registry)
	fetcher := &fetch.HTTPFetcher{BaseURL: s.BaseURL}
	if s.SQLite != "" {
		db, err := sqlite.New(sqlite.Config{DBPath: s.SQLite})
		if err != nil {
			return nil, err
		}
		intp.db, intp.scripts = db, db
		fetcher.History = db
	}
	if s.Redis != "" {
		rdb, err := redis.New(redis.Config{Addr: s.Redis})
		if err != nil {
			return nil, err
		}
		intp.rdb = rdb
		if intp.db == nil {
			intp.scripts = rdb
		}
		intp.feed.Subscribe(rdb.Publisher().Emit)
	}
	intp.feed.Subscribe(printMessage)
	intp.chart = chart.New(intp.loop, s.Symbol, s.Period, draw.Size{W: 1200, H: 600})
	intp.chart.SetBroker(&chart.StaticBroker{Acct: chart.Account{Balance: 10000, Equity: 10000, Currency: "USD"}})
	intp.manager = manager.New(manager.Options{
		Registry:     engine.Standard(),
		Host:         intp.chart,
		Loop:         intp.loop,
		Fetcher:      fetcher,
		Console:      intp.feed,
		Metrics:      intp.metrics,
		FetchTimeout: 10 * time.Second,
	})
	intp.chart.OnRender(intp.manager.DrawPane)
	if s.HTTP != "" {
		intp.server = newServer(s.HTTP, intp.registry, console.NewHub(intp.feed))
		intp.server.start()
	}
	var ctx context.Context
	ctx, intp.cancel = context.WithCancel(context.Background())
	go func() {
		defer close(intp.done)
		intp.loop.Run(ctx, 16*time.Millisecond)
	}()
	err := intp.do(func() error {
		intp.chart.SetDataList(randomWalk(200, 100, s.Period))
		n, err := store.Restore(context.Background(), intp.scripts, intp.manager)
		if n > 0 {
			tracer().Infof("restored %d scripts", n)
		}
		return err
	})
	if err != nil {
		tracer().Errorf("restore: %v", err)
	}
	return intp, nil
}

func (intp *Intp) close() {
	intp.do(func() error {
		if err := store.SaveAll(context.Background(), intp.scripts, intp.manager); err != nil {
			tracer().Errorf("cannot save scripts: %v", err)
		}
		intp.manager.Close()
		return nil
	})
	intp.cancel()
	<-intp.done
	if intp.server != nil {
		intp.server.stop()
	}
	if intp.db != nil {
		intp.db.Close()
	}
	if intp.rdb != nil {
		intp.rdb.Close()
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (intp *Intp) do(fn func() error) error {
	result := make(chan error, 1)
	intp.loop.Post(func() {
		result <- fn()
	})
	return <-result
}

func printMessage(m console.Message) {
	switch m.Kind {
	case console.Error:
		pterm.Error.Println(m.Key + ": " + m.Text)
	case console.Warning:
		pterm.Warning.Println(m.Key + ": " + m.Text)
	case console.Print, console.Signal:
		pterm.Info.Println(m.Key + ": " + m.Text)
	default:
		tracer().Infof("%s", m)
	}
}

func (intp *Intp) loadInitFile(filename string) {
	if filename == "" {
		return
	}
	f, err := os.Open(filename)
	if err != nil {
		tracer().Errorf("Unable to open init file: %s", filename)
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lineno := 1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			lineno++
			continue
		}
		if _, err := intp.Eval(line); err != nil {
			tracer().Errorf("Error line %d: %v", lineno, err)
		}
		lineno++
	}
	if err := scanner.Err(); err != nil {
		tracer().Errorf("Error while reading init file: %v", err)
	}
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		quit, err := intp.Eval(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		if quit {
			break
		}
	}
	println("Good bye!")
}

func traceLevel(l string) tracing.TraceLevel {
	return tracing.TraceLevelFromString(l)
}

// randomWalk creates n candles of a random walk starting at price p.
func randomWalk(n int, p float64, period string) []chart.Candle {
	step := periodSeconds(period)
	start := time.Now().Unix()/step*step - int64(n)*step
	candles := make([]chart.Candle, n)
	seed := uint64(start)
	for i := range candles {
		seed = seed*6364136223846793005 + 1442695040888963407
		d := (float64(seed>>33)/float64(1<<31) - 0.5) * p / 50
		open := p
		p += d
		candles[i] = chart.Candle{
			Time:   start + int64(i)*step,
			Open:   open,
			High:   max(open, p) + p/200,
			Low:    min(open, p) - p/200,
			Close:  p,
			Volume: 100 + float64(seed>>40%100),
		}
	}
	return candles
}

func periodSeconds(period string) int64 {
	if len(period) < 2 {
		return 3600
	}
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n < 1 {
		return 3600
	}
	switch period[len(period)-1] {
	case 'm':
		return int64(n) * 60
	case 'h':
		return int64(n) * 3600
	case 'd':
		return int64(n) * 86400
	}
	return 3600
}
