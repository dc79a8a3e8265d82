// Package server implements the profile API: the media catalog and the
// per-user preference profiles, over json-server compatible routes.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nuveplayer/nuve/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Server serves the profile API.
type Server struct {
	logger   *slog.Logger
	profiles ports.ProfileStore
	catalog  ports.CatalogStore
	router   *mux.Router
}

// New creates a server over the given stores.
func New(logger *slog.Logger, profiles ports.ProfileStore, catalog ports.CatalogStore) *Server {
	s := &Server{
		logger:   logger.With(slog.String("component", "server")),
		profiles: profiles,
		catalog:  catalog,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests, cors)

	// OPTIONS is accepted on every route so the CORS middleware can answer
	// preflight requests.
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/mediaCatalog", s.handleListTracks).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/userProfiles", s.handleListProfiles).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/userProfiles", s.handleCreateProfile).Methods(http.MethodPost)
	r.HandleFunc("/userProfiles/{id}", s.handleGetProfile).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/userProfiles/{id}", s.handlePatchProfile).Methods(http.MethodPatch)
	r.HandleFunc("/userProfiles/{id}", s.handleDeleteProfile).Methods(http.MethodDelete)
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("profile API listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("profile API stopped")
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}
