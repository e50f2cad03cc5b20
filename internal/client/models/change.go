package models

import (
	"encoding/json"
	"time"
)

// Kind identifies which entity family a record belongs to.
type Kind string

const (
	KindItem   Kind = "item"
	KindStatus Kind = "status"
)

// Op is the mutation type captured by a pending change.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change states. A failed change is kept for operator inspection and is not
// retried automatically.
const (
	ChangeStatePending = "pending"
	ChangeStateFailed  = "failed"
)

// PendingChange is one deferred mutation awaiting replay against the remote
// authority. Changes are appended by the gateway on offline writes and
// removed by the sync engine once the remote call succeeds or is confirmed
// moot.
type PendingChange struct {
	// ID is a local autoincrement sequence; together with CreatedAt it
	// gives the deterministic replay order.
	ID int64 `json:"id"`

	Op   Op   `json:"op"`
	Kind Kind `json:"kind"`

	// TargetID is the entity identifier, possibly temporary.
	TargetID string `json:"targetId"`

	// Payload is the JSON-encoded business payload (Item or Status).
	// Empty for deletes.
	Payload json.RawMessage `json:"payload,omitempty"`

	// State is ChangeStatePending or ChangeStateFailed.
	State string `json:"state"`

	// LastError records why the change was marked failed.
	LastError string `json:"lastError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ItemPayload decodes the payload as an Item.
func (c *PendingChange) ItemPayload() (*Item, error) {
	var it Item
	if err := json.Unmarshal(c.Payload, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// StatusPayload decodes the payload as a Status.
func (c *PendingChange) StatusPayload() (*Status, error) {
	var st Status
	if err := json.Unmarshal(c.Payload, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
