// Package common contains shared constants and sentinel errors used across
// feedkeeper components.
package common

// DeviceIDHeaderName is the gRPC metadata key used to carry the calling
// installation's device identifier on outbound requests.
const DeviceIDHeaderName = "x-device-id"

// Entity kinds as they appear on the wire and in the shared dataset.
const (
	KindBaby  = "baby"
	KindFeed  = "feed"
	KindStash = "stash"
)

// Kinds lists every syncable entity kind in pull order: profiles first so
// that feed and stash rows find their parent locally.
var Kinds = []string{KindBaby, KindFeed, KindStash}

// ValidKind reports whether k names a syncable entity kind.
func ValidKind(k string) bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}
