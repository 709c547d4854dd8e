// Package web provides an HTTP status server for the tank-controller daemon.
package web

import (
	"context"
	"crypto/subtle"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sweeney/tank-controller/internal/logic"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/status"
)

const maxCommandBytes = 1024

// Server serves the status page over HTTP and accepts commands.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *Hub
	commands   chan<- logic.Edge
	token      string
}

// New creates a Server that reads state from the given tracker.
// Accepted commands are sent on commands without blocking; a nil channel
// rejects every command. When token is non-empty, POST /command must carry
// it as "Authorization: Bearer <token>".
func New(addr string, tracker *status.Tracker, commands chan<- logic.Edge, token string) *Server {
	s := &Server{
		tracker:  tracker,
		hub:      NewHub(tracker),
		commands: commands,
		token:    token,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/status.txt", s.handleText)
	mux.HandleFunc("/command", s.handleCommand)
	mux.Handle("/ws", s.hub)

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

// Notify pushes the current status to websocket clients.
func (s *Server) Notify() {
	s.hub.Notify()
}

// Shutdown disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, snap.State.String())
}

// handleCommand accepts a form field or a body in any format mqtt.ParseCommand understands.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		log.Printf("web: unauthorized command from %s", r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", `Bearer realm="tank-controller"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			http.Error(w, "parse form: "+err.Error(), http.StatusBadRequest)
			return
		}
		body = []byte(form.Get("command"))
	}

	edge, err := mqtt.ParseCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.commands <- edge:
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, string(edge)+"\n")
	default:
		http.Error(w, "controller busy", http.StatusServiceUnavailable)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}
