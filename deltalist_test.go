package safedrive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeltaListRoundTrip(t *testing.T) {
	d := newDeltaList[string]()
	d.Insert(50*time.Millisecond, "only")

	delta, ok := d.FrontDelta()
	require.True(t, ok)
	require.Equal(t, 50*time.Millisecond, delta)

	payload, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "only", payload)
	require.True(t, d.Empty())
}

func TestDeltaListPrefixSumInvariant(t *testing.T) {
	d := newDeltaList[string]()
	base := d.baseTime
	require.True(t, base.IsZero())

	// Insert out of order; absolute deadlines (relative to the list's
	// base_time at first insert) are 30ms, 10ms, 50ms, 10ms.
	d.Insert(30*time.Millisecond, "a")
	base = d.baseTime
	d.Insert(10*time.Millisecond, "b")
	d.Insert(50*time.Millisecond, "c")
	d.Insert(10*time.Millisecond, "d")

	deadlines := map[string]time.Duration{
		"a": 30 * time.Millisecond,
		"b": 10 * time.Millisecond,
		"c": 50 * time.Millisecond,
		"d": 10 * time.Millisecond,
	}

	var prefix time.Duration
	for !d.Empty() {
		delta, ok := d.FrontDelta()
		require.True(t, ok)
		prefix += delta
		payload, ok := d.PopHead()
		require.True(t, ok)
		require.Equal(t, deadlines[payload], prefix, "prefix sum must equal original absolute deadline minus base_time for %q", payload)
	}
	_ = base
}

// Grounded on original_source/src/selector.rs's add_timer_inner: inserting
// into a non-empty list must account for time already elapsed since
// base_time, not just the raw requested delay. Without that adjustment, a
// timer requested for 50ms after a 100ms timer that's already 60ms old
// would be spliced in ahead of it with a deadline 10ms in the past.
func TestDeltaListInsertTimerAccountsForElapsed(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	base := time.Unix(0, 0)
	now = func() time.Time { return base }

	d := newDeltaList[string]()
	d.InsertTimer(100*time.Millisecond, "first") // deadline = base+100ms

	now = func() time.Time { return base.Add(60 * time.Millisecond) }
	d.InsertTimer(50*time.Millisecond, "second") // deadline = base+60ms+50ms = base+110ms

	firstDelta, ok := d.FrontDelta()
	require.True(t, ok)
	require.Equal(t, 100*time.Millisecond, firstDelta)

	first, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "first", first)

	secondDelta, ok := d.FrontDelta()
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, secondDelta)

	second, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "second", second)
}

// Grounded on add_timer_inner's clock-skew branch: if base_time is ahead of
// now (e.g. the list was rebased to a later instant than a fresh Insert
// observes), the skew is absorbed into the current head instead of the new
// entry, and base_time is pulled back to now.
func TestDeltaListInsertTimerAbsorbsClockSkewIntoHead(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	base := time.Unix(0, 0)
	now = func() time.Time { return base }
	d := newDeltaList[string]()
	d.InsertTimer(100*time.Millisecond, "first")

	// base_time is now `base`; observe a now() 10ms behind it. "second"'s
	// deadline (now+20ms = base+10ms) lands before "first"'s original
	// deadline (base+100ms), so it becomes the new head.
	now = func() time.Time { return base.Add(-10 * time.Millisecond) }
	d.InsertTimer(20*time.Millisecond, "second")

	require.Equal(t, base.Add(-10*time.Millisecond), d.BaseTime())

	secondDelta, ok := d.FrontDelta()
	require.True(t, ok)
	require.Equal(t, 20*time.Millisecond, secondDelta)

	second, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "second", second)

	// "first"'s deadline is preserved at base+100ms despite the skew: its
	// remaining delay from the new base_time (base-10ms advanced by
	// "second"'s 20ms, i.e. base+10ms) is 90ms.
	firstDelta, ok := d.FrontDelta()
	require.True(t, ok)
	require.Equal(t, 90*time.Millisecond, firstDelta)

	first, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "first", first)
}

func TestDeltaListTieBreakInsertsAfterEqualDeadline(t *testing.T) {
	d := newDeltaList[string]()
	d.Insert(20*time.Millisecond, "first")
	d.Insert(20*time.Millisecond, "second") // same absolute deadline as "first"

	first, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "first", first)

	second, ok := d.PopHead()
	require.True(t, ok)
	require.Equal(t, "second", second)
}
