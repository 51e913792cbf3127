// Package web serves the chat page.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/salesdesk/internal/config"
	"github.com/comigor/salesdesk/internal/conversation"
	"github.com/comigor/salesdesk/internal/logger"
	"github.com/comigor/salesdesk/internal/session"
)

//go:embed templates/index.html
var templates embed.FS

// Processor runs one chat turn on a session.
type Processor interface {
	Process(ctx context.Context, st *session.State, input string) (conversation.Message, error)
}

// Server renders the chat page and relays submissions to the Processor.
type Server struct {
	sessions  *session.Manager
	processor Processor
	assistant config.AssistantConfig
	tmpl      *template.Template
}

type page struct {
	Name         string
	Description  string
	Conversation []entry
}

type entry struct {
	Role   conversation.Role
	Text   string
	Failed bool
}

// New creates a Server.
func New(sessions *session.Manager, processor Processor, assistant config.AssistantConfig) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("web: session manager must not be nil")
	}
	if processor == nil {
		return nil, errors.New("web: processor must not be nil")
	}
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		sessions:  sessions,
		processor: processor,
		assistant: assistant,
		tmpl:      tmpl,
	}, nil
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// HEAD is routed on its own so uptime checks and link previews cannot
	// reset a visitor's conversation.
	mux.HandleFunc("HEAD /{$}", s.handleHead)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /chat", s.handleChat)
	return withRequestLog(mux)
}

// handleIndex resets the conversation on every page load.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Start(r.Context(), w, r)
	logger.L.Info("conversation reset", "visitor", st.VisitorID)
	s.render(w, nil)
}

func (s *Server) handleHead(w http.ResponseWriter, _ *http.Request) {
	s.render(w, nil)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.L.Warn("malformed chat form", "error", err)
	}
	input := r.PostFormValue("user_input")

	st, release := s.sessions.Begin(r.Context(), w, r)
	defer release()

	logger.L.Info("chat request", "visitor", st.VisitorID, "length", len(input))
	if _, err := s.processor.Process(r.Context(), st, input); err != nil {
		logger.L.Error("process error", "visitor", st.VisitorID, "error", err)
	}
	s.render(w, st.Transcript)
}

func (s *Server) render(w http.ResponseWriter, transcript conversation.Transcript) {
	p := page{
		Name:        s.assistant.Name,
		Description: s.assistant.Description,
	}
	for _, m := range transcript.Turns() {
		p.Conversation = append(p.Conversation, entry{Role: m.Role, Text: m.Display(), Failed: m.Failed()})
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, p); err != nil {
		logger.L.Error("render error", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		logger.L.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
