package idgen

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_Format(t *testing.T) {
	prev := now
	t.Cleanup(func() { now = prev })
	now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	id := New(PrefixFeed)
	require.True(t, strings.HasPrefix(id, PrefixFeed))

	ts := strconv.FormatInt(1_700_000_000_000, 36)
	rest := strings.TrimPrefix(id, PrefixFeed)
	require.True(t, strings.HasPrefix(rest, ts))
	require.Len(t, strings.TrimPrefix(rest, ts), suffixLen)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New(PrefixBaby)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
