package models

import "time"

// SkipReason explains why a sync pass did nothing.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipNotConfigured SkipReason = "not_configured"
	SkipNoHousehold   SkipReason = "no_household"
	SkipOffline       SkipReason = "offline"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Pushed  int
	Pulled  int
	Failed  int
	Skipped SkipReason
	// Cursor is the lastSyncAt value after the pass.
	Cursor int64
}

type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncError   SyncState = "error"
)

// SyncStatus is the tri-state status shown by the UI plus diagnostics.
type SyncStatus struct {
	State      SyncState
	LastResult SyncResult
	LastError  error
	LastRunAt  time.Time
	Online     bool
}
