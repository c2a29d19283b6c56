// Package pid allocates process identifiers and their per-task kernel
// stacks inside the kernel's own address space (spec.md §4.E).
package pid

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"defs"
	"klog"
	"limits"
	"mem"
	"vm"
)

var (
	pidLog = klog.For("pid")
	live   int64
)

// Allocator hands out small integer PIDs from a monotonically
// increasing counter, recycling whatever has been returned through
// Dealloc before minting a new one — the same free-list-then-high-
// water-mark shape as the frame allocator in mem.Physmem_t.
type Allocator struct {
	sync.Mutex
	current  int
	recycled []int
}

var global = &Allocator{current: 0}

// PidHandle is an RAII-style PID allocation: Dealloc is called exactly
// once, when the owning task is reaped by waitpid.
type PidHandle struct {
	pid int
}

// Pid returns the numeric process id.
func (h *PidHandle) Pid() int { return h.pid }

// Alloc mints a fresh PID, preferring one most recently returned by
// Dealloc. Logs (but does not refuse) once the live count exceeds
// Syslimit.Sysprocs, the same best-effort posture mailbox/pipe
// accounting takes.
func Alloc() *PidHandle {
	if n := atomic.AddInt64(&live, 1); n > int64(limits.Syslimit.Sysprocs) {
		pidLog.Warnf("live task count %d exceeds Sysprocs limit %d", n, limits.Syslimit.Sysprocs)
	}

	global.Lock()
	defer global.Unlock()
	if n := len(global.recycled); n > 0 {
		p := global.recycled[n-1]
		global.recycled = global.recycled[:n-1]
		return &PidHandle{pid: p}
	}
	p := global.current
	global.current++
	return &PidHandle{pid: p}
}

// Dealloc returns a PID to the free list.
func Dealloc(h *PidHandle) {
	atomic.AddInt64(&live, -1)
	global.Lock()
	defer global.Unlock()
	global.recycled = append(global.recycled, h.pid)
}

// kernelStackBounds computes the [bottom, top) virtual address range
// the kernel stack for PID p occupies within the kernel MemorySet: one
// guard page below every stack so a kernel-stack overflow page-faults
// instead of silently corrupting the next task's stack.
func kernelStackBounds(p int) (bottom, top uintptr) {
	perSlot := uintptr(defs.KernelStackSize + mem.PageSize)
	top = defs.TrampolineVA - uintptr(p)*perSlot
	bottom = top - defs.KernelStackSize
	return
}

// KernelStack is the RAII holder for a task's kernel stack, mapped into
// the kernel's own MemorySet at a PID-indexed slot (spec.md §4.E).
type KernelStack struct {
	pid    int
	bottom uintptr
	top    uintptr
	space  *vm.MemorySet
}

// NewKernelStack maps a fresh kernel stack for the given PID into ks.
func NewKernelStack(kernelSpace *vm.MemorySet, h *PidHandle) (*KernelStack, defs.Err_t) {
	bottom, top := kernelStackBounds(h.pid)
	if err := kernelSpace.InsertFramedArea(
		mem.VirtPageNum(bottom>>mem.PageShift),
		mem.VirtPageNum(top>>mem.PageShift),
		vm.PermR|vm.PermW,
	); err != 0 {
		return nil, err
	}
	return &KernelStack{pid: h.pid, bottom: bottom, top: top, space: kernelSpace}, 0
}

// Top returns the stack's initial (empty, grows-down) stack pointer.
func (ks *KernelStack) Top() uintptr { return ks.top }

// PushOnTop copies val just below the stack's top and returns the
// address it was written to, used once at task-construction time to
// seed the initial TaskContext (spec.md §4.E push_on_top). The stack is
// a framed area of the kernel MemorySet, so the address is translated
// through that MemorySet's page table to reach the backing frame.
func PushOnTop[T any](ks *KernelStack, val T) uintptr {
	size := uintptr(unsafe.Sizeof(val))
	addr := ks.top - size
	p, err := vm.TranslatedRefMut[T](ks.space, addr)
	if err != 0 {
		panic("pid: kernel stack top is not mapped")
	}
	*p = val
	return addr
}

// Free unmaps the kernel stack from kernelSpace. Must be called exactly
// once, when the kernel stack is no longer needed (waitpid time, per
// spec.md §4.F: "the kernel stack survives until the parent calls
// waitpid").
func (ks *KernelStack) Free(kernelSpace *vm.MemorySet) {
	vpnStart := mem.VirtPageNum(ks.bottom >> mem.PageShift)
	vpnEnd := mem.VirtPageNum(ks.top >> mem.PageShift)
	kernelSpace.RemoveFramedArea(vpnStart, vpnEnd)
}
