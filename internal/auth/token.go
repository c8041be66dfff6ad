package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-blog-backend/internal/model"
)

const (
	tokenTypeAccess = "access"
	identityClaim   = "identity"
)

type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret string, accessTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}

	return &TokenIssuer{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// Issue signs an access token carrying the structured identity. The standard
// sub claim holds the user id so id-only verifiers keep working.
func (i *TokenIssuer) Issue(identity model.Identity) (string, error) {
	if !identity.Complete() {
		return "", fmt.Errorf("issue token: identity is incomplete")
	}

	now := i.now().UTC()
	return i.Sign(jwt.MapClaims{
		"sub": identity.ID,
		identityClaim: map[string]any{
			"id":    identity.ID,
			"name":  identity.Name,
			"email": identity.Email,
		},
		"typ": tokenTypeAccess,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(i.accessTTL).Unix(),
	})
}

// Sign signs arbitrary claims with the issuer secret.
func (i *TokenIssuer) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its subject. Signature, expiry and type
// failures wrap model.ErrUnauthorized; an unusable subject wraps
// model.ErrInvalidIdentity.
func (i *TokenIssuer) Parse(tokenString string) (Subject, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return Subject{}, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Subject{}, fmt.Errorf("%w: invalid token claims", model.ErrUnauthorized)
	}

	if typ, present := claims["typ"]; present && typ != tokenTypeAccess {
		return Subject{}, fmt.Errorf("%w: invalid token type", model.ErrUnauthorized)
	}

	raw, present := claims[identityClaim]
	if !present {
		raw = claims["sub"]
	}

	subject := SubjectFromClaim(raw)
	if subject.Kind == SubjectInvalid {
		return Subject{}, model.ErrInvalidIdentity
	}

	return subject, nil
}
