// Package statuses persists the cached per-item status records, including
// their optimistic-concurrency version tokens.
package statuses
