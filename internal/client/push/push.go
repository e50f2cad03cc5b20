// Package push carries change notifications between clients. After any
// successful remote mutation the gateway broadcasts one; inbound
// notifications are applied to the local cache as if they were remote-read
// results and never enter the pending-change path.
package push

import (
	"context"
	"encoding/json"

	"github.com/larder-app/larder/internal/client/models"
)

// Notification describes one remote mutation.
type Notification struct {
	// Kind is the mutation type: create, update or delete.
	Kind models.Op `json:"kind"`

	// Entity names the entity family the mutation applies to.
	Entity models.Kind `json:"entityType"`

	// ID identifies the target; always set for deletes.
	ID string `json:"id,omitempty"`

	// Payload is the server-confirmed entity body for creates and updates.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Broadcaster publishes notifications to other clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, n Notification) error
}

// Applier consumes inbound notifications; the gateway implements it.
type Applier interface {
	ApplyNotification(ctx context.Context, n Notification) error
}

// NopBroadcaster discards notifications. Used when no push channel is
// configured.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(context.Context, Notification) error { return nil }
