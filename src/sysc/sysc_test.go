package sysc

import "testing"

func TestDispatchUnknownSyscallIDReturnsMinusOne(t *testing.T) {
	got := Dispatch(999999, [5]uint64{})
	if got != -1 {
		t.Fatalf("expected an unrecognized syscall id to return -1, got %d", got)
	}
}

// sysSetPriority rejects p<=1 before ever touching the current task, so
// this boundary is exercisable without a running task installed.
func TestSysSetPriorityRejectsPriorityOfOneOrLess(t *testing.T) {
	if got := sysSetPriority(1); got != -1 {
		t.Fatalf("set_priority(1) should be rejected, got %d", got)
	}
	if got := sysSetPriority(0); got != -1 {
		t.Fatalf("set_priority(0) should be rejected, got %d", got)
	}
	if got := sysSetPriority(-5); got != -1 {
		t.Fatalf("set_priority(-5) should be rejected, got %d", got)
	}
}
