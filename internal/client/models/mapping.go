package models

import "time"

// IDMapping links a temporary identifier to the permanent one the remote
// authority eventually assigns. A mapping without a PermanentID is pending;
// the set of pending mappings is exactly what must resolve before the local
// replica is fully consistent.
type IDMapping struct {
	TempID      string     `json:"tempId"`
	Kind        Kind       `json:"kind"`
	PermanentID string     `json:"permanentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	SyncedAt    *time.Time `json:"syncedAt,omitempty"`
}

// Pending reports whether the mapping still awaits a permanent identifier.
func (m *IDMapping) Pending() bool {
	return m.PermanentID == ""
}
