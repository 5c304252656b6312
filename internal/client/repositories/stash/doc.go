// Package stash persists stored breast-milk containers in the local SQLite store.
package stash
