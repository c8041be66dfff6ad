// Package auth issues and parses bearer tokens and decodes their subject claim.
//
// Tokens have carried three subject shapes over time: a plain email, a plain
// user id, and a structured {id, name, email} record. Subject models these as
// one tagged value so callers resolve it in a single place.
package auth

import (
	"strings"

	"github.com/google/uuid"

	"go-blog-backend/internal/model"
)

type SubjectKind int

const (
	SubjectInvalid SubjectKind = iota
	SubjectEmail
	SubjectUserID
	SubjectIdentity
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectEmail:
		return "email"
	case SubjectUserID:
		return "user_id"
	case SubjectIdentity:
		return "identity"
	default:
		return "invalid"
	}
}

type Subject struct {
	Kind     SubjectKind
	Value    string
	Identity model.Identity
}

func EmailSubject(email string) Subject {
	return Subject{Kind: SubjectEmail, Value: strings.TrimSpace(email)}
}

func UserIDSubject(id string) Subject {
	return Subject{Kind: SubjectUserID, Value: strings.TrimSpace(id)}
}

func IdentitySubject(identity model.Identity) Subject {
	return Subject{Kind: SubjectIdentity, Identity: identity}
}

// SubjectFromString classifies a raw string subject. UUID-shaped strings are
// user ids, everything else is treated as an email.
func SubjectFromString(raw string) Subject {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Subject{Kind: SubjectInvalid}
	}
	if IsUserID(trimmed) {
		return UserIDSubject(trimmed)
	}
	return EmailSubject(trimmed)
}

// SubjectFromClaim decodes whatever a token carried in its subject position.
func SubjectFromClaim(raw any) Subject {
	switch v := raw.(type) {
	case string:
		return SubjectFromString(v)
	case map[string]any:
		identity := model.Identity{
			ID:    stringField(v, "id"),
			Name:  stringField(v, "name"),
			Email: stringField(v, "email"),
		}
		if identity.ID == "" && identity.Email == "" {
			return Subject{Kind: SubjectInvalid}
		}
		return IdentitySubject(identity)
	default:
		return Subject{Kind: SubjectInvalid}
	}
}

func IsUserID(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
