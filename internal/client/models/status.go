package models

import "time"

// Status is the per-item mutable state. At most one Status exists per Item;
// absence means the implicit "unclassified" state, which is never stored.
type Status struct {
	// ItemID references the owning Item. May be temporary while offline.
	ItemID string `json:"itemId"`

	// Classification is the freshness bucket ("fresh", "open", "expired", ...).
	Classification string `json:"classification"`

	// ExpiryDates holds one or more expiration dates for the item.
	ExpiryDates []time.Time `json:"expiryDates"`

	// Flags carries free-form markers ("frozen", "leftover", ...).
	Flags []string `json:"flags"`

	// Version is the optimistic-concurrency token. Every accepted remote
	// update must supply the version it read and receives version+1 back.
	Version int64 `json:"version"`

	// UpdatedAt is the last modification time in UTC.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Unclassified is the classification an item reverts to when its status
// record is deleted.
const Unclassified = "unclassified"

// NewUnclassified returns the implicit status for an item that has never
// been classified. It is a starting point for offline edits, not something
// that is persisted as-is.
func NewUnclassified(itemID string) *Status {
	return &Status{ItemID: itemID, Classification: Unclassified}
}
