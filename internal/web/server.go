package web

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/store"
)

//go:embed static
var staticFiles embed.FS

// CardInfo is the JSON representation of a connection card for /api/cards.
type CardInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Reference string `json:"reference,omitempty"`
	Category  string `json:"category,omitempty"`
	Special   string `json:"special,omitempty"`
}

// AnchorInfo is the JSON representation of an anchor card for /api/cards.
type AnchorInfo struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Reference string   `json:"reference,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// CatalogInfo is the /api/cards response body.
type CatalogInfo struct {
	Connections []CardInfo   `json:"connections"`
	Anchors     []AnchorInfo `json:"anchors"`
}

// Leaderboard is the read side of the score store.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]store.Entry, error)
}

// Server is the anchorlink web UI server.
type Server struct {
	catalog *game.Catalog
	board   Leaderboard
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewServer creates a new web server. board may be nil when no score store
// is configured.
func NewServer(catalog *game.Catalog, board Leaderboard, logger *zap.Logger) *Server {
	if catalog == nil {
		catalog = game.DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog: catalog,
		board:   board,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	// Embedded static files
	staticFS, _ := fs.Sub(staticFiles, "static")

	// Serve index.html at root
	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})

	// Static CSS/JS
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// API endpoints
	s.mux.HandleFunc("GET /api/cards", s.handleCards)
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	// WebSocket proxy
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "yaml" {
		data, err := catalogYAML(s.catalog)
		if err != nil {
			s.logger.Error("render catalog", zap.Error(err))
			http.Error(w, "could not render catalog", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}

	info := CatalogInfo{Connections: []CardInfo{}, Anchors: []AnchorInfo{}}
	for _, c := range s.catalog.Connections {
		info.Connections = append(info.Connections, CardInfo{
			ID:        c.ID,
			Title:     c.Title,
			Reference: c.Reference,
			Category:  c.Category,
			Special:   c.Special.String(),
		})
	}
	for _, a := range s.catalog.Anchors {
		info.Anchors = append(info.Anchors, AnchorInfo{ID: a.ID, Text: a.Text, Reference: a.Reference, Themes: a.Themes})
	}
	writeJSON(w, info)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		http.Error(w, "no score store configured", http.StatusServiceUnavailable)
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.board.Leaderboard(r.Context(), limit)
	if err != nil {
		s.logger.Error("load leaderboard", zap.Error(err))
		http.Error(w, "could not load leaderboard", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
