// Package accnt accumulates per-task CPU accounting, recorded by proc
// around every scheduler transition. No syscall exposes it to user
// space.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"
)

// Accnt_t accumulates per-task accounting information. Both Userns and
// Sysns are nanoseconds; the embedded mutex lets callers take a
// consistent snapshot when exporting usage data.
type Accnt_t struct {
	Userns int64
	Sysns  int64
	sync.Mutex
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int64) {
	atomic.AddInt64(&a.Userns, delta)
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int64) {
	atomic.AddInt64(&a.Sysns, delta)
}

// Now returns the current time in nanoseconds.
func (a *Accnt_t) Now() int64 {
	return time.Now().UnixNano()
}

// Finish finalizes accounting by adding time since inttime to system time.
func (a *Accnt_t) Finish(inttime int64) {
	a.Systadd(a.Now() - inttime)
}

// Add merges another accounting record into this one.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
	a.Unlock()
}

// Snapshot returns a consistent (user, sys) nanosecond pair.
func (a *Accnt_t) Snapshot() (int64, int64) {
	a.Lock()
	defer a.Unlock()
	return a.Userns, a.Sysns
}
