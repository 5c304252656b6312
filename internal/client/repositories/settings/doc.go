// Package settings persists the per-installation settings singleton: the
// household and device identity, the sync cursor, and UI preferences.
package settings
