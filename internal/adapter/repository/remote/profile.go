// Package remote provides the profile repository backed by the profile API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// ProfileRepository talks to the /userProfiles routes of the profile API.
//
// Thread-safe: it holds no mutable state.
type ProfileRepository struct {
	logger  *slog.Logger
	baseURL string
	client  *http.Client
}

// NewProfileRepository creates a client for the API at baseURL.
// A nil client means http.DefaultClient.
func NewProfileRepository(logger *slog.Logger, baseURL string, client *http.Client) *ProfileRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProfileRepository{
		logger:  logger.With(slog.String("adapter", "profile_remote")),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchProfile returns the first profile listed for the user.
func (r *ProfileRepository) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	endpoint := r.baseURL + "/userProfiles?userId=" + url.QueryEscape(userID)

	var profiles []domain.Profile
	if err := r.do(ctx, "fetch", http.MethodGet, endpoint, nil, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// UpsertProfile patches the user's existing profile, or creates one when
// the user has none yet.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	existing, err := r.FetchProfile(ctx, profile.UserID)
	if err != nil {
		return err
	}

	profile.ID = ""
	body, err := json.Marshal(profile)
	if err != nil {
		return domain.NewRepositoryError("upsert", "profile", "failed to marshal profile", err)
	}

	if existing != nil && existing.ID != "" {
		endpoint := r.baseURL + "/userProfiles/" + url.PathEscape(existing.ID)
		return r.do(ctx, "patch", http.MethodPatch, endpoint, body, nil)
	}
	r.logger.Debug("creating profile", slog.String("user_id", profile.UserID))
	return r.do(ctx, "create", http.MethodPost, r.baseURL+"/userProfiles", body, nil)
}

func (r *ProfileRepository) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.NewRepositoryError(op, "profile", "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.NewRepositoryError(op, "profile", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NewRepositoryError(op, "profile", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewRepositoryError(op, "profile", "invalid response payload", err)
	}
	return nil
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)
