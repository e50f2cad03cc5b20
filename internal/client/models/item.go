// Package models defines client-side data models mirrored from the remote
// authority and the bookkeeping records used by the offline sync engine.
package models

import "time"

// Item is a catalog entry for a stored product. The canonical copy lives on
// the remote authority once synchronized; while offline the ID may be a
// locally minted temporary identifier.
type Item struct {
	// ID is either a server-assigned permanent identifier or a temporary
	// one produced by the tempid allocator.
	ID string `json:"id"`

	// Name is the human-readable product name.
	Name string `json:"name"`

	// Category is a free-form category tag ("dairy", "frozen", ...).
	Category string `json:"category"`

	// Location names where the product is stored ("pantry", "freezer", ...).
	Location string `json:"location"`

	// UpdatedAt is the last modification time in UTC.
	UpdatedAt time.Time `json:"updatedAt"`
}
