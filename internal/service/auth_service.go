package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-blog-backend/internal/model"
	"go-blog-backend/pkg/apierror"
)

type userStore interface {
	userLookup
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

type tokenIssuer interface {
	Issue(identity model.Identity) (string, error)
	AccessTTL() time.Duration
}

type AuthService struct {
	users      userStore
	tokens     tokenIssuer
	bcryptCost int
}

func NewAuthService(users userStore, tokens tokenIssuer, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		return model.User{}, apierror.New("BAD_REQUEST", "username, email and password are required", "", http.StatusBadRequest)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.User{}, apierror.Validation("email", "invalid email address")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	if exists {
		return model.User{}, errUserExists()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return model.User{}, apierror.Validation("password", "password must be at most 72 bytes")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.User{}, errUserExists()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AccessToken, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return model.AccessToken{}, apierror.New("BAD_REQUEST", "email and password are required", "", http.StatusBadRequest)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AccessToken{}, errInvalidCredentials()
	}
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.AccessToken{}, errInvalidCredentials()
	}

	token, err := s.tokens.Issue(canonicalIdentity(user))
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("login: %w", err)
	}

	return model.AccessToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func errUserExists() *apierror.APIError {
	return apierror.New("ALREADY_EXISTS", "user already exists", "", http.StatusBadRequest)
}

func errInvalidCredentials() *apierror.APIError {
	return apierror.Unauthorized("invalid credentials")
}
