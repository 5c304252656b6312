// Package babies persists baby profiles in the local SQLite store.
//
// Besides user-created profiles the table holds placeholders: stub rows
// materialized when a pulled feed or stash item references a profile that
// has not arrived yet. UpsertFromRemote always replaces a placeholder, and
// a local edit turns it into a regular profile.
package babies
