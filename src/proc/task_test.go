package proc

import (
	"sync"
	"testing"

	"defs"
	"fd"
	"mailbox"
	"mem"
	"vm"
)

var testPhysOnce sync.Once

// newTestTask builds a bare TaskControlBlock around a small identity
// address space, bypassing ELF loading entirely: enough to exercise
// Mmap/Munmap/Waitpid/priority bookkeeping, which never touch the trap
// context page. mem.PhysInit and kernelSpace are process-wide state, so
// both are seeded exactly once across the whole test binary: calling
// PhysInit again later would silently invalidate every frame the first
// test's kernelSpace already built its page table out of.
func newTestTask(t *testing.T) *TaskControlBlock {
	t.Helper()
	testPhysOnce.Do(func() {
		mem.PhysInit(0, 4096)
		tramp, ok := mem.Physmem.Alloc()
		if !ok {
			t.Fatal("expected a free frame for the trampoline")
		}
		ks, err := vm.NewKernelSpace(tramp.PPN(), 8*mem.PageSize)
		if err != 0 {
			t.Fatalf("NewKernelSpace: %d", err)
		}
		kernelSpace = ks
		trampolinePPN = tramp.PPN()
	})

	tramp2, ok := mem.Physmem.Alloc()
	if !ok {
		t.Fatal("expected a free frame for the per-task trampoline slot")
	}
	ms, err := vm.NewKernelSpace(tramp2.PPN(), 8*mem.PageSize)
	if err != 0 {
		t.Fatalf("NewKernelSpace (task space): %d", err)
	}
	mailSend, mailRecv := mailbox.New()
	tsk, err := newBareTask(ms, nil, nil, &fd.Table{}, mailSend, mailRecv)
	if err != 0 {
		t.Fatalf("newBareTask: %d", err)
	}
	return tsk
}

func TestMmapRejectsUnalignedStart(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Mmap(1, mem.PageSize, 0b001); got != -1 {
		t.Fatalf("expected -1 for an unaligned start, got %d", got)
	}
}

func TestMmapRejectsZeroPermission(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Mmap(0, mem.PageSize, 0); got != -1 {
		t.Fatalf("expected -1 when no R/W/X bit is set, got %d", got)
	}
}

func TestMmapRejectsHighBits(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Mmap(0, mem.PageSize, 0b1001); got != -1 {
		t.Fatalf("expected -1 when bits above R|W|X are set, got %d", got)
	}
}

func TestMmapZeroLengthIsANoOpSuccess(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Mmap(0, 0, 0b001); got != 0 {
		t.Fatalf("expected a zero-length mmap to report success with 0, got %d", got)
	}
}

func TestMmapThenOverlapFails(t *testing.T) {
	tsk := newTestTask(t)
	base := uintptr(100) * mem.PageSize
	if got := tsk.Mmap(base, 2*mem.PageSize, 0b011); got != int64(2*mem.PageSize) {
		t.Fatalf("expected the first mmap to succeed and report 2 pages, got %d", got)
	}
	if got := tsk.Mmap(base+mem.PageSize, 2*mem.PageSize, 0b011); got != -1 {
		t.Fatalf("expected an overlapping mmap to fail, got %d", got)
	}
}

func TestMunmapZeroLengthIsANoOpSuccess(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Munmap(0, 0); got != 0 {
		t.Fatalf("expected a zero-length munmap to report success with 0, got %d", got)
	}
}

func TestMunmapOfUnmappedAreaFails(t *testing.T) {
	tsk := newTestTask(t)
	if got := tsk.Munmap(999*mem.PageSize, mem.PageSize); got != -1 {
		t.Fatalf("expected munmap of an area never mapped to fail, got %d", got)
	}
}

func TestMmapThenMunmapRoundTrip(t *testing.T) {
	tsk := newTestTask(t)
	base := uintptr(200) * mem.PageSize
	tsk.Mmap(base, mem.PageSize, 0b011)
	if got := tsk.Munmap(base, mem.PageSize); got != int64(mem.PageSize) {
		t.Fatalf("expected munmap to report the rounded unmapped length %d, got %d", mem.PageSize, got)
	}
}

func TestMunmapRejectsAWrongLengthAgainstTheMappedArea(t *testing.T) {
	tsk := newTestTask(t)
	base := uintptr(210) * mem.PageSize
	tsk.Mmap(base, 2*mem.PageSize, 0b011)
	// asking to unmap only the first of the two mapped pages must fail,
	// not partially succeed or tear down the whole area.
	if got := tsk.Munmap(base, mem.PageSize); got != -1 {
		t.Fatalf("expected a length mismatch to be rejected, got %d", got)
	}
	if got := tsk.Munmap(base, 2*mem.PageSize); got != int64(2*mem.PageSize) {
		t.Fatalf("expected the exact-length munmap to succeed afterwards, got %d", got)
	}
}

func TestPriorityDefaultsAndSetPriority(t *testing.T) {
	tsk := newTestTask(t)
	if tsk.Priority() != defs.AppDefaultPriority {
		t.Fatalf("expected default priority %d, got %d", defs.AppDefaultPriority, tsk.Priority())
	}
	tsk.SetPriority(10)
	if tsk.Priority() != 10 {
		t.Fatalf("expected priority updated to 10, got %d", tsk.Priority())
	}
}

func TestWaitpidWithNoChildrenReturnsMinusOne(t *testing.T) {
	tsk := newTestTask(t)
	p, _, _ := tsk.Waitpid(-1)
	if p != -1 {
		t.Fatalf("expected -1 with no children at all, got %d", p)
	}
}

func TestWaitpidOnLiveChildReturnsMinusTwo(t *testing.T) {
	parent := newTestTask(t)
	child := newTestTask(t)
	parent.children = append(parent.children, child)
	child.parent = parent

	p, _, _ := parent.Waitpid(-1)
	if p != -2 {
		t.Fatalf("expected -2 for a live (non-zombie) child, got %d", p)
	}
}

func TestWaitpidReapsMatchingZombieChild(t *testing.T) {
	parent := newTestTask(t)
	child := newTestTask(t)
	parent.children = append(parent.children, child)
	child.status = Zombie
	child.exitCode = 7

	p, code, err := parent.Waitpid(child.Getpid())
	if err != 0 {
		t.Fatalf("Waitpid: %d", err)
	}
	if p != child.Getpid() || code != 7 {
		t.Fatalf("expected reaped (pid=%d, code=7), got (pid=%d, code=%d)", child.Getpid(), p, code)
	}
	if len(parent.children) != 0 {
		t.Fatal("expected the reaped child removed from the parent's children slice")
	}
}

func TestWaitpidWithWrongTargetPidReturnsMinusOne(t *testing.T) {
	parent := newTestTask(t)
	child := newTestTask(t)
	parent.children = append(parent.children, child)
	child.status = Zombie

	p, _, _ := parent.Waitpid(child.Getpid() + 1000)
	if p != -1 {
		t.Fatalf("expected -1 when no child matches the requested pid, got %d", p)
	}
}

func TestAllocatedTasksGetDistinctPids(t *testing.T) {
	a := newTestTask(t)
	b := newTestTask(t)
	if a.Getpid() == b.Getpid() {
		t.Fatal("expected distinct PIDs for distinct tasks")
	}
}
