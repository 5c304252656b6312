// Package idgen produces opaque identifiers for records, households, devices
// and members. Identifiers combine a kind prefix, the creation time in base36
// and a random suffix, so they sort roughly by creation and do not collide
// across installations in practice.
package idgen

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixBaby      = "b_"
	PrefixFeed      = "f_"
	PrefixStash     = "s_"
	PrefixHousehold = "hh_"
	PrefixDevice    = "dev_"
	PrefixMember    = "mem_"
)

const suffixLen = 8

var now = time.Now

// New returns prefix + base36(epoch ms) + 8 random hex characters.
func New(prefix string) string {
	ts := strconv.FormatInt(now().UnixMilli(), 36)
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + ts + rnd[:suffixLen]
}
