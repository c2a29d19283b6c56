// Package limits tracks system-wide resource budgets without involving
// the scheduler. They are soft: the pid, pipe and mailbox allocators log
// when a budget is exhausted and still hand out the resource, and no
// allocator consults the frame budget.
package limits

import (
	"sync/atomic"
	"unsafe"
)

// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

// Syslimit_t tracks system wide resource limits.
type Syslimit_t struct {
	// Sysprocs bounds the number of live tasks.
	Sysprocs int
	// Frames is the configured physical-frame budget; mem's allocator does
	// not read it.
	Frames int
	// Pipes bounds the number of live pipe buffers.
	Pipes Sysatomic_t
	// Mailboxes bounds the number of live mailbox queues.
	Mailboxes Sysatomic_t
}

// Syslimit describes the configured system wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Sysprocs:  4096,
		Frames:    1 << 17, // ~512MB worth of 4K frames, generous for MEMORY_END
		Pipes:     4096,
		Mailboxes: 4096,
	}
}

func (s *Sysatomic_t) aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(s.aptr(), int64(n))
}

// Taken tries to decrement the limit by the provided amount. It returns
// true on success, leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(n uint) bool {
	g := atomic.AddInt64(s.aptr(), -int64(n))
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s.aptr(), int64(n))
	return false
}

// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool { return s.Taken(1) }

// Give increments the limit by one.
func (s *Sysatomic_t) Give() { s.Given(1) }
