package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nuveplayer/nuve/internal/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.catalog.ListTracks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.ListProfiles(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var profile domain.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		s.writeError(w, domain.NewValidationError("body", "", "invalid profile JSON"))
		return
	}

	created, err := s.profiles.CreateProfile(r.Context(), profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("profile created", slog.String("id", created.ID), slog.String("user_id", created.UserID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := s.profiles.PatchProfile(r.Context(), mux.Vars(r)["id"], body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.DeleteProfile(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, domain.NewValidationError("body", "", "failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return nil, domain.NewValidationError("body", len(body), "request body too large")
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var valErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
