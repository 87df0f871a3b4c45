package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/aegiscare/aegis/pkg/companion"
	"github.com/aegiscare/aegis/pkg/config"
	"github.com/aegiscare/aegis/pkg/memory"
	"github.com/aegiscare/aegis/pkg/store"
)

// Companion is the conversation engine surface the gateway needs.
type Companion interface {
	Chat(ctx context.Context, sessionID, message string) (companion.ChatResult, error)
	ConfirmMemory(ctx context.Context, p memory.Proposal, chatRef, mediaPath string) (memory.Record, error)
	MergeExtracted(ctx context.Context, frag memory.Fragment) (memory.MergeResult, error)
	SessionCount() int
}

// Store is the persistence surface the gateway needs.
type Store interface {
	LoadMemoryDocument(ctx context.Context) (memory.Document, error)
	SaveMemoryDocument(ctx context.Context, doc memory.Document) error
	LoadProfile(ctx context.Context) (memory.Profile, error)
	SaveProfile(ctx context.Context, p memory.Profile) error
	LoadRoutines(ctx context.Context) ([]memory.Routine, error)
	SaveRoutines(ctx context.Context, routines []memory.Routine) error
	LoadFamily(ctx context.Context) ([]memory.FamilyMember, error)
	SaveFamily(ctx context.Context, family []memory.FamilyMember) error
	LoadNotes(ctx context.Context) ([]memory.Note, error)
	AddNote(ctx context.Context, title, content string) (memory.Note, error)
	ReplaceNotes(ctx context.Context, notes []memory.Note) error
	ReplaceChat(ctx context.Context, messages []memory.ChatMessage) error
}

// Server is the HTTP gateway.
type Server struct {
	engine  Companion
	store   Store
	uploads *store.Uploads
	logger  *log.Logger
	webRoot string
	httpSrv *http.Server
}

func NewServer(cfg *config.Config, engine Companion, st Store, uploads *store.Uploads, logger *log.Logger) *Server {
	s := &Server{
		engine:  engine,
		store:   st,
		uploads: uploads,
		logger:  logger,
		webRoot: cfg.Gateway.WebRoot,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table. The frontend is a single-origin browser app
// during development, so CORS stays wide open.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/save-memory-from-chat", s.handleSaveMemoryFromChat)
		r.Post("/merge-extracted", s.handleMergeExtracted)
		r.Post("/save-chat", s.handleSaveChat)
		r.Get("/memories", s.handleGetMemories)
		r.Post("/memories", s.handlePostMemories)
		r.Get("/profile", s.handleGetProfile)
		r.Post("/profile", s.handlePostProfile)
		r.Get("/routines", s.handleGetRoutines)
		r.Post("/routines", s.handlePostRoutines)
		r.Get("/family", s.handleGetFamily)
		r.Post("/family", s.handlePostFamily)
		r.Get("/notes", s.handleGetNotes)
		r.Post("/notes", s.handlePostNotes)
		r.Post("/upload", s.handleUpload)
	})
	r.Get("/uploads/{name}", s.handleServeUpload)
	r.Get("/health", s.handleHealth)

	if s.webRoot != "" {
		r.Get("/", s.handleHome)
		r.Handle("/*", http.FileServer(http.Dir(s.webRoot)))
	}
	return r
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
