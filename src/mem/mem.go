// Package mem implements the physical frame allocator (spec.md §4.A):
// physical addresses, page-table entry flags for SV39, and a RAII-style
// FrameTracker that zeroes its frame on construction and returns it to
// the free list when released.
package mem

import (
	"sync"

	"defs"
)

// PageShift and PageSize mirror defs' memory-layout constants; kept
// local too since every file in this package reaches for them.
const (
	PageShift = defs.PageShift
	PageSize  = defs.PageSize
)

// Pa_t is a physical address. PhysPageNum is a physical page number
// (Pa_t >> PageShift); VirtPageNum is its virtual-address counterpart.
type Pa_t uintptr
type PhysPageNum uint64
type VirtPageNum uint64

// SV39 PTE flag bits (spec.md §4.B), matching the RISC-V Sv39 hardware
// layout bit-for-bit: V, R, W, X, U, G, A, D.
const (
	PTE_V Pa_t = 1 << 0 // valid
	PTE_R Pa_t = 1 << 1 // readable
	PTE_W Pa_t = 1 << 2 // writable
	PTE_X Pa_t = 1 << 3 // executable
	PTE_U Pa_t = 1 << 4 // user-accessible
	PTE_G Pa_t = 1 << 5 // global
	PTE_A Pa_t = 1 << 6 // accessed
	PTE_D Pa_t = 1 << 7 // dirty
)

// PPNShift is where the physical page number begins inside a raw PTE on
// SV39 (10 flag/reserved bits below it).
const PPNShift = 10

// Bytepg_t is a byte-addressed page.
type Bytepg_t [PageSize]uint8

// Pg2bytes reinterprets a frame's backing array as a byte page. Frames
// are always allocated as Bytepg_t underneath; this helper exists so
// callers that think in words (page tables) and callers that think in
// bytes (user copies) share one allocation path.
func Pg2bytes(pg *Bytepg_t) *Bytepg_t { return pg }

// physpg_t tracks one entry in the free-frame stack.
type physpg_t struct {
	nexti uint32 // index of next free page, or sentinel
}

const freeSentinel = ^uint32(0)

// Physmem_t is the global physical frame allocator. It reserves the
// range [ekernel, MEMORY_END) at boot and hands out single frames with
// RAII ownership via FrameTracker (spec.md §4.A): a stack of free PPNs
// plus a high-water mark. Allocation failure never panics the hart; it
// reports None (ok=false) and the syscall boundary turns that into -1.
type Physmem_t struct {
	sync.Mutex
	pages   []Bytepg_t
	meta    []physpg_t
	startpg PhysPageNum // PPN of pages[0]
	freei   uint32
	nfree   int
	highwater int // index of the next never-yet-used page
}

// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

// PhysInit reserves npages frames starting at PPN start and initializes
// the free-list/high-water allocator. It must be called exactly once
// during boot, before any call to Alloc.
func PhysInit(start PhysPageNum, npages int) {
	phys := Physmem
	phys.Lock()
	defer phys.Unlock()
	phys.pages = make([]Bytepg_t, npages)
	phys.meta = make([]physpg_t, npages)
	phys.startpg = start
	phys.freei = freeSentinel
	phys.nfree = 0
	phys.highwater = 0
}

// FrameTracker owns exactly one physical frame. The frame is zeroed when
// acquired and returned to the allocator's free list when Free is
// called — Go has no destructors, so callers must call Free explicitly
// on every error path that would otherwise leak the frame (spec.md §9).
type FrameTracker struct {
	ppn PhysPageNum
	idx int
}

// PPN returns the physical page number this tracker owns.
func (f *FrameTracker) PPN() PhysPageNum { return f.ppn }

// Bytes returns the zeroed (at acquisition time), mutable backing page.
func (f *FrameTracker) Bytes() *Bytepg_t {
	return &Physmem.pages[f.idx]
}

// Alloc hands out a single zeroed frame with RAII ownership. It returns
// ok=false (not a panic) when physical memory is exhausted.
func (phys *Physmem_t) Alloc() (*FrameTracker, bool) {
	phys.Lock()
	defer phys.Unlock()

	var idx int
	if phys.freei != freeSentinel {
		idx = int(phys.freei)
		phys.freei = phys.meta[idx].nexti
		phys.nfree--
	} else if phys.highwater < len(phys.pages) {
		idx = phys.highwater
		phys.highwater++
	} else {
		return nil, false
	}

	pg := &phys.pages[idx]
	for i := range pg {
		pg[i] = 0
	}
	return &FrameTracker{ppn: phys.startpg + PhysPageNum(idx), idx: idx}, true
}

// Dealloc returns a frame to the free list by PPN. It is also reachable
// through FrameTracker.Free, which is the path every caller should use.
func (phys *Physmem_t) Dealloc(ppn PhysPageNum) {
	phys.Lock()
	defer phys.Unlock()
	idx := int(ppn - phys.startpg)
	phys.meta[idx].nexti = phys.freei
	phys.freei = uint32(idx)
	phys.nfree++
}

// Free releases the frame back to the allocator. After Free returns,
// the tracker must not be used again; its contents are undefined.
func (f *FrameTracker) Free() {
	Physmem.Dealloc(f.ppn)
	f.idx = -1
}

// StartPPN returns the physical page number backing pages[0]. Combined
// with FrameBytes, it lets other packages (notably vm's page-table
// walker) address a physical page by PPN the way hardware would via the
// direct map, while this kernel represents physical memory as an
// ordinary Go slice rather than a real unsafe.Pointer-addressed range.
func (phys *Physmem_t) StartPPN() PhysPageNum { return phys.startpg }

// FrameBytes returns the backing byte page for ppn. The caller must
// already hold (or not need) phys's lock; this is a raw accessor used
// by the page-table walker, not a synchronized allocation path.
func (phys *Physmem_t) FrameBytes(ppn PhysPageNum) *Bytepg_t {
	return &phys.pages[ppn-phys.startpg]
}

// Nfree reports the number of frames Alloc can still hand out: those on
// the free list plus those above the high-water mark, for diagnostics
// and tests.
func (phys *Physmem_t) Nfree() int {
	phys.Lock()
	defer phys.Unlock()
	return phys.nfree + (len(phys.pages) - phys.highwater)
}
