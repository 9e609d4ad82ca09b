// Package queue defines the audit events emitted by the backend and the
// RabbitMQ plumbing that carries them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Action names the kind of write an EntityChanged event reports.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event types.
const (
	TypeEntityChanged = "entity.changed"
	TypeUserLoggedIn  = "user.logged_in"
)

// Event is published after a unit of work commits. It carries enough
// context for the audit consumer to write a line without querying the
// primary database.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind,omitempty"`
	EntityID   int64     `json:"entity_id,omitempty"`
	Action     Action    `json:"action,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EntityChanged reports a create, update or delete of one entity row.
func EntityChanged(kind string, entityID int64, action Action) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeEntityChanged,
		Kind:       kind,
		EntityID:   entityID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

// UserLoggedIn reports a successful token issuance.
func UserLoggedIn(userID int64, userName string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeUserLoggedIn,
		Kind:       "user",
		EntityID:   userID,
		UserName:   userName,
		OccurredAt: time.Now().UTC(),
	}
}
