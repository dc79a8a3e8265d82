package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nuveplayer/nuve/internal/adapter/catalog"
	"github.com/nuveplayer/nuve/internal/adapter/repository/remote"
	"github.com/nuveplayer/nuve/internal/adapter/repository/sqlite"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/logger"
	"github.com/nuveplayer/nuve/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalogStore := sqlite.NewCatalogStore(db)
	_, err = catalogStore.Seed(context.Background(), catalog.Demo())
	require.NoError(t, err)

	srv := httptest.NewServer(New(logger.NewTestLogger(), sqlite.NewProfileStore(db), catalogStore).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(payload))
	require.NoError(t, err)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Catalog(t *testing.T) {
	srv := newTestServer(t)

	tracks, err := catalog.NewHTTP(logger.NewTestLogger(), srv.URL, nil).FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "demo-1", tracks[0].ID)
	assert.Equal(t, "demo-3", tracks[2].ID)
}

func TestServer_ProfileLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/userProfiles", `{"userId":"u1","volume":0.5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.Profile
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	resp, body = do(t, http.MethodGet, srv.URL+"/userProfiles?userId=u1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Profile
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	resp, body = do(t, http.MethodPatch, srv.URL+"/userProfiles/"+created.ID, `{"loopMode":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched domain.Profile
	require.NoError(t, json.Unmarshal(body, &patched))
	assert.True(t, *patched.LoopMode)
	assert.Equal(t, 0.5, *patched.Volume)

	resp, _ = do(t, http.MethodGet, srv.URL+"/userProfiles/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/userProfiles/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/userProfiles/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create without user", http.MethodPost, "/userProfiles", `{"volume":1}`, http.StatusBadRequest},
		{"create invalid json", http.MethodPost, "/userProfiles", `{`, http.StatusBadRequest},
		{"patch missing", http.MethodPatch, "/userProfiles/nope", `{}`, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/userProfiles/nope", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/mediaCatalog", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_Preflight(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodOptions, srv.URL+"/userProfiles/abc", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestServer_RemoteRepositoryRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	repo := remote.NewProfileRepository(logger.NewTestLogger(), srv.URL, nil)
	ctx := context.Background()

	state := domain.NewPlayerState()
	state.Favorites = []string{"demo-2"}
	state.CurrentTrackID = "demo-2"
	require.NoError(t, repo.UpsertProfile(ctx, domain.NewProfile("demo-user-1", state)))

	state.Modes.Shuffle = true
	require.NoError(t, repo.UpsertProfile(ctx, domain.NewProfile("demo-user-1", state)))

	resp, body := do(t, http.MethodGet, srv.URL+"/userProfiles?userId=demo-user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Profile
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1, "second upsert patches instead of creating")

	profile, err := repo.FetchProfile(ctx, "demo-user-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, []string{"demo-2"}, profile.Favorites)
	assert.True(t, *profile.ShuffleMode)
}

func TestServer_ListenAndServe(t *testing.T) {
	defer testutil.VerifyNoLeaks(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"))

	db, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer db.Close()
	s := New(logger.NewTestLogger(), sqlite.NewProfileStore(db), sqlite.NewCatalogStore(db))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
