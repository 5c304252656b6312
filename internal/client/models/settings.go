package models

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultFeedReminderMinutes is the reminder interval used until the user
// picks another one.
const DefaultFeedReminderMinutes = 180

// Settings is the single per-installation settings row.
type Settings struct {
	ActiveBabyID        string
	Theme               Theme
	HouseholdID         string
	DeviceID            string
	LastSyncAt          int64
	FeedReminderEnabled bool
	FeedReminderMinutes int
}
