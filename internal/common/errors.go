// Package common defines shared constants and sentinel errors used across
// the larder client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Local store errors. Fatal to the calling operation; never retried
	// by the core, the caller decides.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrStorageQuota       = errors.New("local storage quota exceeded")

	// Remote authority errors.
	ErrRemoteUnreachable = errors.New("remote authority unreachable")
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrValidation        = errors.New("validation rejected by remote")

	// Sync engine flow control.
	ErrSyncInFlight = errors.New("synchronization already in flight")
)
