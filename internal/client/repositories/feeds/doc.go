// Package feeds persists feed entries in the local SQLite store.
package feeds
