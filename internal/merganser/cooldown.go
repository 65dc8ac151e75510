package merganser

import (
	"time"
)

// maxCooldown caps the pause between retries of one merge request.
const maxCooldown = 5 * time.Minute

// cooldownTable tracks per merge request how long the project loop leaves
// it alone between retries.
// Every consecutive requeue of a merge request doubles its pause, starting
// at the base duration. A terminal outcome clears the entry.
// The table is not safe for concurrent use, the lock of the project loop
// guards it.
type cooldownTable struct {
	base time.Duration
	max  time.Duration
	m    map[int]*cooldownEntry
}

type cooldownEntry struct {
	requeues int
	until    time.Time
}

func newCooldownTable(base time.Duration) *cooldownTable {
	return &cooldownTable{
		base: base,
		max:  maxCooldown,
		m:    map[int]*cooldownEntry{},
	}
}

// requeued registers another failed attempt for the merge request and
// returns the pause before the next one.
// minimum raises the pause when the platform asked for a longer one.
func (t *cooldownTable) requeued(iid int, minimum time.Duration) time.Duration {
	entry, exist := t.m[iid]
	if !exist {
		entry = &cooldownEntry{}
		t.m[iid] = entry
	}

	pause := t.base
	for i := 0; i < entry.requeues; i++ {
		pause *= 2
		if pause >= t.max {
			pause = t.max
			break
		}
	}

	if minimum > pause {
		pause = minimum
	}

	entry.requeues++
	entry.until = time.Now().Add(pause)

	return pause
}

// coolingDown returns true when the merge request must not be retried yet.
func (t *cooldownTable) coolingDown(iid int, now time.Time) bool {
	entry, exist := t.m[iid]
	if !exist {
		return false
	}

	return entry.until.After(now)
}

// clear removes the entry of the merge request, the next failure starts
// with the base pause again.
func (t *cooldownTable) clear(iid int) {
	delete(t.m, iid)
}

// forget drops the entries of all merge requests that are not listed in
// keep anymore.
func (t *cooldownTable) forget(keep map[int]struct{}) {
	for iid := range t.m {
		if _, exist := keep[iid]; !exist {
			delete(t.m, iid)
		}
	}
}

// coolingCount returns how many of the given merge requests are currently
// paused.
func (t *cooldownTable) coolingCount(iids []int, now time.Time) int {
	var count int

	for _, iid := range iids {
		if t.coolingDown(iid, now) {
			count++
		}
	}

	return count
}
