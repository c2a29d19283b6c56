// Package vm implements SV39 page tables, address spaces (MemorySet),
// and the cross-space accessors that safely move bytes across the
// user/kernel boundary (spec.md §4.B, §4.C, §4.D).
package vm

import (
	"unsafe"

	"defs"
	"mem"
)

// Pte_t is one SV39 page-table entry: 10 reserved/flag bits followed by
// a 44-bit physical page number, the same [512]word-per-page shape the
// teacher's x86-64 Pmap_t uses, just three levels deep instead of four.
type Pte_t mem.Pa_t

// Pmap_t is one level of a page table: 512 eight-byte entries, exactly
// one physical page.
type Pmap_t [512]Pte_t

const (
	vpnBits  = 9
	vpnMask  = (1 << vpnBits) - 1
	sv39Lvls = 3
)

// vpnIdx returns the 9-bit index into page-table level lvl (0 = leaf)
// for the given virtual page number.
func vpnIdx(vpn mem.VirtPageNum, lvl int) uint64 {
	return (uint64(vpn) >> (uint(lvl) * vpnBits)) & vpnMask
}

func (p Pte_t) valid() bool { return mem.Pa_t(p)&mem.PTE_V != 0 }
func (p Pte_t) ppn() mem.PhysPageNum {
	return mem.PhysPageNum(mem.Pa_t(p) >> mem.PPNShift)
}
func mkpte(ppn mem.PhysPageNum, flags mem.Pa_t) Pte_t {
	return Pte_t(mem.Pa_t(ppn)<<mem.PPNShift | flags | mem.PTE_V)
}

// PageTable owns its root frame and every intermediate frame it has
// allocated, so the whole tree is freed in one pass when the owning
// MemorySet is torn down.
type PageTable struct {
	rootFrame    *mem.FrameTracker
	frames       []*mem.FrameTracker // intermediate (non-leaf) frames, owned
	borrowedRoot mem.PhysPageNum     // set only by FromToken views
}

// NewPageTable allocates a fresh, empty root page table.
func NewPageTable() (*PageTable, defs.Err_t) {
	root, ok := mem.Physmem.Alloc()
	if !ok {
		return nil, -defs.ENOMEM
	}
	return &PageTable{rootFrame: root}, 0
}

// FromToken builds a non-owning view of a page table given its satp
// value (spec.md §4.B from_token). It never frees anything on its own
// and is used solely for cross-space reads (§4.D).
func FromToken(satp uint64) *PageTable {
	ppn := mem.PhysPageNum(satp & ((1 << 44) - 1))
	return &PageTable{borrowedRoot: ppn}
}

// rootPPN returns the PPN of the root table, whether owned or borrowed
// via FromToken.
func (pt *PageTable) rootPPN() mem.PhysPageNum {
	if pt.rootFrame == nil {
		return pt.borrowedRoot
	}
	return pt.rootFrame.PPN()
}

// pmapAt reinterprets the frame backing ppn as one page-table level.
// FromToken builds page tables from a bare satp value handed back by
// the kernel itself, but a corrupted one could still carry a PPN below
// the physical memory window; checked against StartPPN here rather
// than trusting FrameBytes's raw slice index to catch it.
func pmapAt(ppn mem.PhysPageNum) *Pmap_t {
	if ppn < mem.Physmem.StartPPN() {
		panic("vm: page-table PPN below physical memory window")
	}
	return (*Pmap_t)(unsafe.Pointer(mem.Physmem.FrameBytes(ppn)))
}

// walk returns the leaf PTE for vpn, allocating intermediate levels
// along the way when alloc is true. ok is false if a missing
// intermediate is hit with alloc=false.
func (pt *PageTable) walk(vpn mem.VirtPageNum, alloc bool) (*Pte_t, bool) {
	ppn := pt.rootPPN()
	for lvl := sv39Lvls - 1; lvl > 0; lvl-- {
		pm := pmapAt(ppn)
		idx := vpnIdx(vpn, lvl)
		pte := &pm[idx]
		if !pte.valid() {
			if !alloc {
				return nil, false
			}
			frame, ok := mem.Physmem.Alloc()
			if !ok {
				return nil, false
			}
			pt.frames = append(pt.frames, frame)
			*pte = mkpte(frame.PPN(), mem.PTE_V)
		}
		ppn = pte.ppn()
	}
	pm := pmapAt(ppn)
	return &pm[vpnIdx(vpn, 0)], true
}

// Map installs vpn -> ppn with the given permission flags (R/W/X/U, V is
// implied). It panics if the leaf is already valid (spec.md §4.B) and
// returns -ENOMEM if an intermediate level cannot be allocated.
func (pt *PageTable) Map(vpn mem.VirtPageNum, ppn mem.PhysPageNum, flags mem.Pa_t) defs.Err_t {
	pte, ok := pt.walk(vpn, true)
	if !ok {
		return -defs.ENOMEM
	}
	if pte.valid() {
		panic("vm: remap of already-mapped vpn")
	}
	*pte = mkpte(ppn, flags)
	return 0
}

// Unmap removes the mapping for vpn. The leaf must already be valid.
func (pt *PageTable) Unmap(vpn mem.VirtPageNum) {
	pte, ok := pt.walk(vpn, false)
	if !ok || !pte.valid() {
		panic("vm: unmap of unmapped vpn")
	}
	*pte = 0
}

// Translate performs a read-only walk, returning the leaf PTE's value
// (spec.md §4.B translate).
func (pt *PageTable) Translate(vpn mem.VirtPageNum) (Pte_t, bool) {
	pte, ok := pt.walk(vpn, false)
	if !ok || !pte.valid() {
		return 0, false
	}
	return *pte, true
}

// Free releases the root frame and every intermediate frame this table
// allocated. It must not be called on a FromToken view.
func (pt *PageTable) Free() {
	if pt.rootFrame == nil {
		panic("vm: Free on a borrowed (FromToken) page table")
	}
	for _, f := range pt.frames {
		f.Free()
	}
	pt.frames = nil
	pt.rootFrame.Free()
}

// Token returns the satp value for this page table (mode=8 for SV39,
// per the RISC-V privileged spec, packed into the top 4 bits).
func (pt *PageTable) Token() uint64 {
	const satpModeSV39 = uint64(8) << 60
	return satpModeSV39 | uint64(pt.rootPPN())
}
