package safedrive

import "time"

// deltaEntry is one pending timer: delay is relative to the entry before it
// (or to baseTime, for the head).
type deltaEntry[T any] struct {
	delay   time.Duration
	payload T
}

// deltaList is the timer wheel described in spec.md §4.5: an ordered
// sequence of (relative-delay, payload) pairs whose head gives the next
// deadline. Grounded on original_source/src/selector.rs's DeltaList, whose
// operations this type reproduces; it is slice-backed rather than a linked
// list, since Go slices give the same O(1) head-pop and O(n) insert without
// pointer-chasing.
type deltaList[T any] struct {
	entries  []deltaEntry[T]
	baseTime time.Time
}

func newDeltaList[T any]() *deltaList[T] {
	return &deltaList[T]{}
}

// Empty reports whether any timer is pending.
func (d *deltaList[T]) Empty() bool { return len(d.entries) == 0 }

// Insert walks from the head, consuming each entry's delay out of delta
// until it lands short of an entry's delay (or the end of the list), then
// splices in a new entry there. The successor's stored delay is reduced by
// the inserted delta so prefix sums are preserved. Entries with an equal
// resulting deadline are left before the new one (stable, arrival order),
// matching the tie-break rule in spec.md §4.5.
func (d *deltaList[T]) Insert(delta time.Duration, payload T) {
	if d.baseTime.IsZero() {
		d.baseTime = now()
	}
	i := 0
	remaining := delta
	for i < len(d.entries) && remaining >= d.entries[i].delay {
		remaining -= d.entries[i].delay
		i++
	}
	entry := deltaEntry[T]{delay: remaining, payload: payload}
	if i < len(d.entries) {
		d.entries[i].delay -= remaining
	}
	d.entries = append(d.entries, deltaEntry[T]{})
	copy(d.entries[i+1:], d.entries[i:])
	d.entries[i] = entry
}

// InsertTimer inserts a timer firing t after now, following
// original_source/src/selector.rs's add_timer_inner: base_time rebases to
// now whenever the list transitions from empty to non-empty (not just on
// the very first call ever), and the inserted delta accounts for time
// already elapsed since base_time. If the clock appears to have moved
// backward relative to base_time (skew), that skew is absorbed into the
// current head's delay instead of into the new entry, and base_time is
// pulled back to now.
func (d *deltaList[T]) InsertTimer(t time.Duration, payload T) {
	nowTime := now()
	if d.Empty() {
		d.baseTime = nowTime
	}
	var delta time.Duration
	if !nowTime.Before(d.baseTime) {
		delta = nowTime.Sub(d.baseTime) + t
	} else {
		skew := d.baseTime.Sub(nowTime)
		if len(d.entries) > 0 {
			d.entries[0].delay += skew
		}
		d.baseTime = nowTime
		delta = t
	}
	d.Insert(delta, payload)
}

// PopHead removes and returns the head entry's payload. Its absolute
// deadline had equalled baseTime + head.delay; PopHead advances baseTime by
// that same delay so the invariant (prefix sum == deadline - baseTime)
// holds for every remaining entry without rewriting them.
func (d *deltaList[T]) PopHead() (payload T, ok bool) {
	if len(d.entries) == 0 {
		return payload, false
	}
	head := d.entries[0]
	d.entries = d.entries[1:]
	d.baseTime = d.baseTime.Add(head.delay)
	return head.payload, true
}

// FrontDelta peeks at the head's relative delay without mutating the list.
func (d *deltaList[T]) FrontDelta() (time.Duration, bool) {
	if len(d.entries) == 0 {
		return 0, false
	}
	return d.entries[0].delay, true
}

// BaseTime returns the list's current base timestamp.
func (d *deltaList[T]) BaseTime() time.Time { return d.baseTime }

// now is a package-level indirection so tests can stub the clock; its
// default is time.Now.
var now = time.Now
