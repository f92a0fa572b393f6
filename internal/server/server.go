// Package server hosts the viewer's HTTP surface: panorama files, the
// hotspot document endpoint, and the websocket session.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/db"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for the SQLite DB and data files
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server is the tour server.
type Server struct {
	cfg        Config
	db         *db.DB
	catalog    *catalog.Catalog
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server over the given database and catalog. Feature
// routes are registered by their packages via Router.
func New(cfg Config, database *db.DB, cat *catalog.Catalog) *Server {
	s := &Server{
		cfg:     cfg,
		db:      database,
		catalog: cat,
		logger:  slog.Default().With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/folders", s.handleFolders)

	// Panorama files resolve at /{folder}/{filename}, matching the
	// ./folder/file asset paths the viewer uses. Static segments
	// (/healthz, /api, /ws) take precedence in chi's trie.
	r.Get("/{folder}/{filename}", s.handleTourFile)

	// API routes are registered by feature packages via RegisterRoutes.

	return r
}

// handleFolders lists the known tour folders.
func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders := s.catalog.Folders()
	if folders == nil {
		folders = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"folders": folders})
}

// handleTourFile serves one panorama image. The catalog is the
// authority on what exists, so arbitrary paths never reach the disk.
func (s *Server) handleTourFile(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")

	files, err := s.catalog.List(folder)
	if err != nil {
		http.Error(w, "unknown folder", http.StatusNotFound)
		return
	}
	known := false
	for _, f := range files {
		if strings.EqualFold(f, filename) {
			filename = f
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "unknown image", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.catalog.Root(), folder, filename))
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("panotour server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
