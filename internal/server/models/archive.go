package models

import "time"

const (
	ArchivePending   = "pending"
	ArchiveCompleted = "completed"
)

// ArchiveObject tracks one export written to object storage.
type ArchiveObject struct {
	StorageKey   string
	HouseholdID  string
	RecordCount  int
	UploadStatus string
	CreatedAt    time.Time
}
