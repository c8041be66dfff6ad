package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePostCreated Type = "post.created"
	TypePostDeleted Type = "post.deleted"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId,omitempty"`
	// Origin identifies the instance that produced the event. Relays use it to
	// avoid re-delivering their own messages.
	Origin string `json:"origin,omitempty"`
}

func New(t Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
