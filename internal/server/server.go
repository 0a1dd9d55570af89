// Package server wires the HTTP surface: playlist and category generation,
// XMLTV guide, the two proxy variants, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/xtream2m3u/xtream2m3u/internal/metrics"
	"github.com/xtream2m3u/xtream2m3u/internal/proxy"
)

// Server holds the per-process settings for the HTTP front end.
type Server struct {
	Addr            string
	DefaultProxyURL string // base URL for rewritten media/icon URLs; "" = derive from request
	ShutdownTimeout time.Duration

	started atomic.Int64 // unix seconds; set when Run starts listening
}

func (s *Server) routes() http.Handler {
	prox := &proxy.Handler{}

	mux := http.NewServeMux()
	mux.Handle("/m3u", http.HandlerFunc(s.serveM3U))
	mux.Handle("/categories", http.HandlerFunc(s.serveCategories))
	mux.Handle("/xmltv", http.HandlerFunc(s.serveXMLTV))
	mux.Handle("/image-proxy/", prox.Image())
	mux.Handle("/stream-proxy/", prox.Stream())
	mux.Handle("/healthz", http.HandlerFunc(s.serveHealth))
	mux.Handle("/metrics", metrics.Handler())
	return logRequests(mux)
}

// Handler returns the fully wired handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Run serves until ctx is cancelled, then drains with a shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":5000"
	}
	srv := &http.Server{Addr: addr, Handler: s.routes()}
	s.started.Store(time.Now().Unix())

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("http: listening on %s", addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Print("http: shutting down ...")
		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http: shutdown: %v", err)
		}
		<-serverErr
		return nil
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body, _ := json.Marshal(map[string]interface{}{
		"status":  "ok",
		"started": time.Unix(s.started.Load(), 0).Format(time.RFC3339),
	})
	_, _ = w.Write(body)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestsTotal.WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(status)).Inc()
		log.Printf(
			"http: %s %s status=%d bytes=%d dur=%s ua=%q remote=%s",
			r.Method, r.URL.Path, status, lw.bytes, time.Since(start).Round(time.Millisecond), r.UserAgent(), r.RemoteAddr,
		)
	})
}

// routeLabel collapses proxy paths so the request counter stays low-cardinality.
func routeLabel(path string) string {
	switch {
	case len(path) > len("/image-proxy/") && path[:len("/image-proxy/")] == "/image-proxy/":
		return "/image-proxy/"
	case len(path) > len("/stream-proxy/") && path[:len("/stream-proxy/")] == "/stream-proxy/":
		return "/stream-proxy/"
	default:
		return path
	}
}
