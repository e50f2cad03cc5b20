// Package tempid mints temporary identifiers for entities created while
// disconnected. A temporary id is self-describing ("tmp:<kind>:<uuid>") so
// the owning entity kind can be recovered without a storage round-trip, and
// the fixed prefix makes temporariness a pure, synchronous check.
package tempid

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/repositories/mappings"
	"github.com/larder-app/larder/internal/logging"
)

const prefix = "tmp:"

// Allocator mints temporary identifiers and records their mappings.
type Allocator struct {
	repo mappings.Repository
	log  logging.Logger
}

// NewAllocator returns an Allocator writing mappings through repo. A nil
// logger falls back to a no-op.
func NewAllocator(repo mappings.Repository, log logging.Logger) *Allocator {
	if log == nil {
		log = logging.Nop{}
	}
	return &Allocator{repo: repo, log: log}
}

// Allocate mints a fresh temporary identifier for the given entity kind and
// records an IDMapping for later reconciliation. The identifier is usable
// immediately; a failure to persist the mapping is logged, not returned.
func (a *Allocator) Allocate(ctx context.Context, kind models.Kind) string {
	id := fmt.Sprintf("%s%s:%s", prefix, kind, uuid.NewString())

	m := &models.IDMapping{TempID: id, Kind: kind}
	if err := a.repo.Create(ctx, m); err != nil {
		a.log.Error(ctx, "failed to record id mapping", "temp_id", id, "error", err)
	}
	return id
}

// IsTemporary reports whether id was minted locally.
func IsTemporary(id string) bool {
	return strings.HasPrefix(id, prefix)
}

// Parse recovers the entity kind embedded in a temporary identifier.
// The second return value is false for permanent or malformed ids.
func Parse(id string) (models.Kind, bool) {
	if !IsTemporary(id) {
		return "", false
	}
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", false
	}
	switch k := models.Kind(parts[1]); k {
	case models.KindItem, models.KindStatus:
		return k, true
	default:
		return "", false
	}
}
