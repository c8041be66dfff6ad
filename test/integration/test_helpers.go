//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-blog-backend/internal/auth"
	"go-blog-backend/internal/config"
	"go-blog-backend/internal/database"
	"go-blog-backend/internal/event"
	"go-blog-backend/internal/handler"
	"go-blog-backend/internal/middleware"
	"go-blog-backend/internal/model"
	"go-blog-backend/internal/repository"
	"go-blog-backend/internal/router"
	"go-blog-backend/internal/service"
	"go-blog-backend/internal/websocket"
)

// newTestDB connects to TEST_DATABASE_URL, applies migrations and empties the tables.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, "TRUNCATE posts, users")
	require.NoError(t, err)

	return db
}

type testServer struct {
	*httptest.Server
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	db := newTestDB(t)

	cfg := &config.Config{
		RequestTimeout:   10 * time.Second,
		MaxBodyBytes:     8 * 1024 * 1024,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     -1,
		AuthRateLimitRPM: 1000,
	}

	issuer, err := auth.NewTokenIssuer("integration-secret", time.Hour)
	require.NoError(t, err)

	users := repository.NewUserRepository(db.Pool)
	posts := repository.NewPostRepository(db.Pool)
	bus := event.NewBus()

	hub := websocket.NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	h := router.New(cfg, middleware.NewAuthMiddleware(service.NewIdentityResolver(users, issuer)), router.Handlers{
		Auth:   handler.NewAuthHandler(service.NewAuthService(users, issuer, bcrypt.MinCost)),
		Post:   handler.NewPostHandler(service.NewPostService(posts, bus, false)),
		Docs:   handler.NewDocsHandler(),
		Health: handler.NewHealthHandler(db),
	}, hub)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testServer{Server: server}
}

func (s *testServer) request(t *testing.T, method string, path string, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) login(t *testing.T, username, email, password string) string {
	t.Helper()

	resp := s.request(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{Username: username, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.request(t, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return decodeBody[model.AccessToken](t, resp).AccessToken
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
