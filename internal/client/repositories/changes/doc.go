// Package changes persists the append-only queue of pending mutations
// awaiting replay against the remote authority.
package changes
