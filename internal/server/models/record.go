package models

// Record is the server copy of one synced entity. Fields holds the
// kind-specific payload as a JSON object; the server never interprets it.
type Record struct {
	Kind        string
	ExternalID  string
	HouseholdID string
	// UpdatedAt is the device-assigned modification stamp in epoch
	// milliseconds. The copy with the larger stamp wins.
	UpdatedAt int64
	Deleted   bool
	Fields    []byte
}
