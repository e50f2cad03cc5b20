// Package items persists the cached catalog of products in the local
// SQLite database.
package items
