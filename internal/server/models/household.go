// Package models defines server-side data models persisted in the database.
package models

import "time"

// Household is a shared dataset that several devices sync against.
type Household struct {
	ID        string
	CreatedAt time.Time
}

// Member is one device registered with a household.
type Member struct {
	ID          string
	HouseholdID string
	DeviceID    string
	CreatedAt   time.Time
}
