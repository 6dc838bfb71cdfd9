// Package server is the review console: a small HTTP UI for inspecting the
// backlog, approving or discarding held posts, and auditing safety verdicts.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/porkreport/porkbot/internal/cooldown"
	"github.com/porkreport/porkbot/internal/database"
	"github.com/porkreport/porkbot/internal/publish"
	"github.com/porkreport/porkbot/internal/ratelimit"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the review console.
type Server struct {
	db          *database.DB
	publisher   publish.Publisher
	limiter     *ratelimit.Limiter
	topics      *cooldown.Tracker
	topicWindow time.Duration
	pages       map[string]*template.Template
	mux         *http.ServeMux
}

// New creates a new Server. Approving a queued post publishes it through
// publisher, debiting the same post quota and honoring the same topic
// cooldown window the daemon uses.
func New(db *database.DB, publisher publish.Publisher, limiter *ratelimit.Limiter, topicWindow time.Duration) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f*100)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "queue.html", "safety.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:          db,
		publisher:   publisher,
		limiter:     limiter,
		topics:      cooldown.NewTopicTracker(db),
		topicWindow: topicWindow,
		pages:       pages,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/queue", s.handleQueue)
	s.mux.HandleFunc("/queue/", s.handleQueueAction)
	s.mux.HandleFunc("/safety", s.handleSafety)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	cycles, _ := s.db.GetRecentCycles(10)
	posted, _ := s.db.GetRecentPosts(database.StatusPosted, 10)

	s.render(w, "index.html", map[string]any{
		"Stats":  stats,
		"Cycles": cycles,
		"Posted": posted,
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	posts, err := s.db.GetQueuedPosts(50)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "queue.html", map[string]any{
		"Posts": posts,
	})
}

func (s *Server) handleQueueAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/queue", http.StatusFound)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/queue/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.Redirect(w, r, "/queue", http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Redirect(w, r, "/queue", http.StatusFound)
		return
	}

	switch parts[1] {
	case "approve":
		if err := s.approve(r, id); err != nil {
			log.Printf("Approving post %d failed: %v", id, err)
		}
	case "discard":
		if err := s.db.SetPostStatus(id, database.StatusRejected); err != nil {
			log.Printf("Discarding post %d failed: %v", id, err)
		}
	}

	http.Redirect(w, r, "/queue", http.StatusFound)
}

// approve publishes a queued post and marks it posted. A previously published
// or discarded post cannot be approved again. Approvals go through the same
// gates as the daemon: the topic must be off cooldown and the post quota must
// have a token available.
func (s *Server) approve(r *http.Request, id int64) error {
	post, err := s.db.GetPost(id)
	if err != nil {
		return err
	}
	if post == nil || post.Status != database.StatusQueued {
		return fmt.Errorf("post %d is not queued", id)
	}

	if post.TrendTopic != nil {
		ok, err := s.topics.CanAct(*post.TrendTopic, s.topicWindow)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("topic %s is cooling down", *post.TrendTopic)
		}
	}
	if !s.limiter.TryAcquire(1) {
		return fmt.Errorf("post quota exhausted")
	}

	if err := s.publisher.Publish(r.Context(), post.Content, nil); err != nil {
		return err
	}
	if err := s.db.SetPostStatus(id, database.StatusPosted); err != nil {
		return err
	}
	if post.TrendTopic != nil {
		if err := s.topics.Record(*post.TrendTopic); err != nil {
			return err
		}
		if err := s.db.MarkTrendUsed(*post.TrendTopic); err != nil {
			return err
		}
	}
	log.Printf("Approved and published post %d", id)
	return nil
}

func (s *Server) handleSafety(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.GetRecentSafetyEntries(50)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cutoff := database.FormatTime(time.Now().UTC().Add(-7 * 24 * time.Hour))
	rate, _ := s.db.RejectionRate(cutoff)

	s.render(w, "safety.html", map[string]any{
		"Entries":       entries,
		"RejectionRate": rate,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, publisher publish.Publisher, limiter *ratelimit.Limiter, topicWindow time.Duration, port int) error {
	srv, err := New(db, publisher, limiter, topicWindow)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Review console listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
