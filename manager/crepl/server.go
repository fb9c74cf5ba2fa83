package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/npillmayer/chartscript/console"
)

// server serves Prometheus metrics and the websocket console feed.
type server struct {
	http *http.Server
	hub  *console.Hub
}

func newServer(addr string, reg *prometheus.Registry, hub *console.Hub) *server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/console", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &server{
		http: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		hub:  hub,
	}
}

func (s *server) start() {
	go func() {
		tracer().Infof("serving /metrics and /console on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			tracer().Errorf("http server: %v", err)
		}
	}()
}

func (s *server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	s.http.Shutdown(ctx)
}
