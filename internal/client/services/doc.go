// Package services contains the application services of the feedkeeper
// client: local-first record mutations (RecordService), household and device
// identity (HouseholdService), and feeding statistics (StatsService).
//
// Every user-visible mutation goes through RecordService, which stamps rows
// from the injected clock while holding the shared side of its stamp
// barrier. The sync engine takes the exclusive side for the instant it
// captures a pass watermark, so any stamp issued after the watermark is
// strictly greater than it.
package services
