package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	sentinels := []error{
		ErrStorageUnavailable,
		ErrStorageQuota,
		ErrRemoteUnreachable,
		ErrNotFound,
		ErrVersionConflict,
		ErrValidation,
		ErrSyncInFlight,
	}

	for _, s := range sentinels {
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", s))
		if !errors.Is(wrapped, s) {
			t.Fatalf("expected errors.Is to match %v through wrapping", s)
		}
	}
}

func TestSentinels_AreDistinct(t *testing.T) {
	if errors.Is(ErrNotFound, ErrVersionConflict) {
		t.Fatal("ErrNotFound must not match ErrVersionConflict")
	}
	if errors.Is(ErrStorageUnavailable, ErrStorageQuota) {
		t.Fatal("storage sentinels must be distinct")
	}
}
