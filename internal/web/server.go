// Package web serves the horn controller's status over HTTP: an HTML page,
// the full status document, the controller view with recent events, and the
// tone table as the controller would program it.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/horn-controller/internal/logic"
	"github.com/sweeney/horn-controller/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	tones      []byte // rendered once; the table is fixed for the process lifetime
}

// New creates a Server that reads state from the given tracker. tb and timing
// are the values the controller runs with and are used for /patterns.json.
func New(addr string, tracker *status.Tracker, tb logic.ToneTimebase, timing logic.Timing) *Server {
	s := &Server{
		tracker: tracker,
		tones:   formatPatterns(tb, timing),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", readOnly(s.handleJSON))
	mux.HandleFunc("/state.json", readOnly(s.handleState))
	mux.HandleFunc("/patterns.json", readOnly(s.handlePatterns))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// readOnly rejects anything but GET and HEAD; nothing on the device is
// controllable over HTTP.
func readOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	readOnly(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		renderHTML(w, s.tracker.Snapshot())
	})(w, r)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, status.FormatState(s.tracker.Snapshot()))
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tones)
}
