package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-blog-backend/internal/auth"
	"go-blog-backend/internal/model"
	"go-blog-backend/pkg/apierror"
)

const unknownName = "Unknown"

type userLookup interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
}

type tokenParser interface {
	Parse(tokenString string) (auth.Subject, error)
}

// IdentityResolver turns a bearer token into a canonical identity. It either
// returns an identity with id, name and email all set, or an error.
type IdentityResolver struct {
	users  userLookup
	tokens tokenParser
}

func NewIdentityResolver(users userLookup, tokens tokenParser) *IdentityResolver {
	return &IdentityResolver{users: users, tokens: tokens}
}

func (r *IdentityResolver) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	subject, err := r.tokens.Parse(token)
	if errors.Is(err, model.ErrInvalidIdentity) {
		return model.Identity{}, errInvalidIdentity()
	}
	if err != nil {
		return model.Identity{}, apierror.Unauthorized("invalid or expired token")
	}

	return r.Resolve(ctx, subject)
}

func (r *IdentityResolver) Resolve(ctx context.Context, subject auth.Subject) (model.Identity, error) {
	var user model.User
	var err error

	switch subject.Kind {
	case auth.SubjectIdentity:
		if subject.Identity.Complete() {
			return subject.Identity, nil
		}
		user, err = r.lookup(ctx, subject.Identity.ID, subject.Identity.Email)
	case auth.SubjectUserID:
		user, err = r.lookup(ctx, subject.Value, subject.Value)
	case auth.SubjectEmail:
		user, err = r.lookup(ctx, "", subject.Value)
	default:
		return model.Identity{}, errInvalidIdentity()
	}

	if errors.Is(err, model.ErrUserNotFound) {
		return model.Identity{}, apierror.Unauthorized("user not found")
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}

	identity := canonicalIdentity(user)
	if !identity.Complete() {
		return model.Identity{}, apierror.Unauthorized("user not found")
	}
	return identity, nil
}

// lookup tries the id first when it is id-shaped, then the email.
func (r *IdentityResolver) lookup(ctx context.Context, id string, email string) (model.User, error) {
	if id = strings.TrimSpace(id); id != "" && auth.IsUserID(id) {
		user, err := r.users.FindByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, err
		}
	}

	if email = strings.TrimSpace(email); email != "" {
		return r.users.FindByEmail(ctx, email)
	}

	return model.User{}, model.ErrUserNotFound
}

func canonicalIdentity(user model.User) model.Identity {
	name := strings.TrimSpace(user.Username)
	if name == "" {
		name = unknownName
	}
	return model.Identity{ID: user.ID, Name: name, Email: user.Email}
}

func errInvalidIdentity() *apierror.APIError {
	return apierror.New("UNAUTHORIZED", "invalid identity", "", http.StatusUnprocessableEntity)
}
