package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-blog-backend/internal/auth"
	"go-blog-backend/internal/event"
	"go-blog-backend/internal/model"
	"go-blog-backend/pkg/apierror"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

type mockPostStore struct {
	mock.Mock
}

func (m *mockPostStore) Create(ctx context.Context, p model.Post) (model.Post, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *mockPostStore) FindByID(ctx context.Context, id string) (model.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *mockPostStore) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *mockPostStore) DeleteOwned(ctx context.Context, id string, authorID string) error {
	args := m.Called(ctx, id, authorID)
	return args.Error(0)
}

var errStoreDown = errors.New("connection refused")

const (
	aliceID = "0b8f7e0c-3b8e-4c55-9a51-7c1f2b7d9e10"
	bobID   = "5d2a4c61-9f3e-4b7a-8c0d-1e2f3a4b5c6d"
	postID  = "9a7b6c5d-4e3f-4a1b-8c2d-3e4f5a6b7c8d"
)

func alice() model.User {
	return model.User{ID: aliceID, Username: "alice", Email: "alice@example.com", CreatedAt: time.Now().UTC()}
}

func aliceIdentity() model.Identity {
	return model.Identity{ID: aliceID, Name: "alice", Email: "alice@example.com"}
}

func bobIdentity() model.Identity {
	return model.Identity{ID: bobID, Name: "bob", Email: "bob@example.com"}
}

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()

	issuer, err := auth.NewTokenIssuer("service-test-secret", time.Hour)
	require.NoError(t, err)
	return issuer
}

func requireAPIError(t *testing.T, err error, status int, code string) *apierror.APIError {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.HTTPStatus)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func drain(ch <-chan event.Event) []event.Event {
	out := make([]event.Event, 0)
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
