package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-blog-backend/internal/auth"
	"go-blog-backend/internal/config"
	"go-blog-backend/internal/handler"
	"go-blog-backend/internal/middleware"
	"go-blog-backend/internal/model"
	"go-blog-backend/internal/service"
)

type stubPinger struct{ err error }

func (p stubPinger) Health(context.Context) error { return p.err }

type testServer struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	users   *memUsers
}

func newTestServer(t *testing.T, publishedOnly bool) *testServer {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxBodyBytes:       8 * 1024 * 1024,
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       -1,
		AuthRateLimitRPM:   1000,
		PostsPublishedOnly: publishedOnly,
	}

	issuer, err := auth.NewTokenIssuer("router-test-secret", time.Hour)
	require.NoError(t, err)

	users := &memUsers{}
	posts := &memPosts{}

	authService := service.NewAuthService(users, issuer, bcrypt.MinCost)
	resolver := service.NewIdentityResolver(users, issuer)
	postService := service.NewPostService(posts, nil, publishedOnly)

	h := New(cfg, middleware.NewAuthMiddleware(resolver), Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Post:   handler.NewPostHandler(postService),
		Docs:   handler.NewDocsHandler(),
		Health: handler.NewHealthHandler(stubPinger{}),
	}, nil)

	return &testServer{handler: h, issuer: issuer, users: users}
}

func (s *testServer) do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username, email, password string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{Username: username, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token model.AccessToken
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func (s *testServer) createPost(t *testing.T, token string, req model.CreatePostRequest) model.CreatePostResponse {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/create-post", token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.CreatePostResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	return created
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestRegisterLoginCreateGet(t *testing.T) {
	s := newTestServer(t, false)

	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	created := s.createPost(t, token, model.CreatePostRequest{Title: "T", Category: "C", Content: "body"})
	assert.Equal(t, "draft", created.Status)
	require.NotEmpty(t, created.PostID)

	rec := s.do(t, http.MethodGet, "/api/posts/"+created.PostID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	post := decode[model.PostResponse](t, rec)
	assert.Equal(t, "a@x.com", post.Author.Email)
	assert.Equal(t, "a", post.Author.Name)
	assert.NotEmpty(t, post.Author.ID)
	assert.Equal(t, "T", post.Title)

	me := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, post.Author, decode[model.Identity](t, me))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{Username: "b", Email: "A@x.com", Password: "q"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user already exists", decode[model.APIError](t, rec).Error)
}

func TestRegister_MissingFieldsAndBadJSON(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{Username: "a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	s.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "BAD_REQUEST", decode[model.APIError](t, bad).Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: "a@x.com", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode[model.APIError](t, rec).Error)
}

func TestCreatePost_RequiresToken(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/create-post", "", model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/create-post", "not-a-jwt", model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePost_LegacyTokens(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	user, err := s.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Unix()
	for name, sub := range map[string]any{
		"email subject": "a@x.com",
		"id subject":    user.ID,
	} {
		t.Run(name, func(t *testing.T) {
			token, err := s.issuer.Sign(jwt.MapClaims{"sub": sub, "exp": exp})
			require.NoError(t, err)

			created := s.createPost(t, token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
			post := decode[model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts/"+created.PostID, "", nil))
			assert.Equal(t, model.Identity{ID: user.ID, Name: "a", Email: "a@x.com"}, post.Author)
		})
	}

	t.Run("subject of an unknown user", func(t *testing.T) {
		token, err := s.issuer.Sign(jwt.MapClaims{"sub": "ghost@x.com", "exp": exp})
		require.NoError(t, err)

		rec := s.do(t, http.MethodPost, "/api/create-post", token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "user not found", decode[model.APIError](t, rec).Error)
	})

	t.Run("subject of an invalid shape", func(t *testing.T) {
		token, err := s.issuer.Sign(jwt.MapClaims{"sub": 42, "exp": exp})
		require.NoError(t, err)

		rec := s.do(t, http.MethodPost, "/api/create-post", token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestCreatePost_Validation(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	rec := s.do(t, http.MethodPost, "/api/create-post", token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x", Status: "archived"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[model.APIError](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "status", body.Details)

	big := base64.StdEncoding.EncodeToString(make([]byte, 5*1024*1024+1))
	rec = s.do(t, http.MethodPost, "/api/create-post", token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x", CoverImage: &big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreatePost_CoverImage(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	cover := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	created := s.createPost(t, token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x", Status: "published", CoverImage: &cover})

	post := decode[model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts/"+created.PostID, "", nil))
	assert.Equal(t, cover, post.CoverImage)

	rec := s.do(t, http.MethodGet, "/api/posts/"+created.PostID+"/cover", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, buf.Bytes(), rec.Body.Bytes())

	bare := s.createPost(t, token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/posts/"+bare.PostID+"/cover", "", nil).Code)
}

func TestDeletePost_AuthorOnly(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	s.register(t, "b", "b@x.com", "q")
	alice := s.login(t, "a@x.com", "p")
	bob := s.login(t, "b@x.com", "q")

	created := s.createPost(t, alice, model.CreatePostRequest{Title: "T", Category: "C", Content: "x"})
	path := "/api/posts/" + created.PostID

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, path, "", nil).Code)

	rec := s.do(t, http.MethodDelete, path, bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode[model.APIError](t, rec).Code)

	rec = s.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[model.MessageResponse](t, rec).Message)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, alice, nil).Code)
}

func TestListPosts(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	first := s.createPost(t, token, model.CreatePostRequest{Title: "one", Category: "news", Content: "x", Status: "published"})
	second := s.createPost(t, token, model.CreatePostRequest{Title: "two", Category: "tech", Content: "x"})

	rec := s.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]model.PostResponse](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, first.PostID, all[0].ID)
	assert.Equal(t, second.PostID, all[1].ID)

	featured := decode[[]model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts?featured=true", "", nil))
	require.Len(t, featured, 1)
	assert.Equal(t, "one", featured[0].Title)

	byCategory := decode[[]model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts?category=tech", "", nil))
	require.Len(t, byCategory, 1)
	assert.Equal(t, "two", byCategory[0].Title)

	assert.Len(t, decode[[]model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts?limit=1", "", nil)), 1)

	for _, query := range []string{"?status=archived", "?limit=0", "?limit=101", "?featured=maybe", "?featured=true&status=draft"} {
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/posts"+query, "", nil).Code, query)
	}

	empty := newTestServer(t, false)
	rec = empty.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListPosts_PublishedOnly(t *testing.T) {
	s := newTestServer(t, true)
	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	s.createPost(t, token, model.CreatePostRequest{Title: "draft", Category: "C", Content: "x"})
	s.createPost(t, token, model.CreatePostRequest{Title: "live", Category: "C", Content: "x", Status: "published"})

	posts := decode[[]model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts", "", nil))
	require.Len(t, posts, 1)
	assert.Equal(t, "live", posts[0].Title)

	assert.Empty(t, decode[[]model.PostResponse](t, s.do(t, http.MethodGet, "/api/posts?status=draft", "", nil)))
}

func TestGetPost_UnknownID(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/posts/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[model.APIError](t, rec).Code)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "a", "a@x.com", "p")
	token := s.login(t, "a@x.com", "p")

	huge := base64.StdEncoding.EncodeToString(make([]byte, 7*1024*1024))
	rec := s.do(t, http.MethodPost, "/api/create-post", token, model.CreatePostRequest{Title: "T", Category: "C", Content: "x", CoverImage: &huge})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body", decode[model.APIError](t, rec).Details)
}

func TestHealthAndDocs(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)

	rec = s.do(t, http.MethodGet, "/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/create-post")

	rec = s.do(t, http.MethodGet, "/docs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")

	down := handler.NewHealthHandler(stubPinger{err: errors.New("down")})
	rec = httptest.NewRecorder()
	down.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
