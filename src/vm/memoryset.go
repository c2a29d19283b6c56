package vm

import (
	"bytes"
	"debug/elf"

	"defs"
	"mem"
	"util"
)

// vpnFloor and vpnCeil convert a byte address to the virtual page
// number containing it, or bounding it from above.
func vpnFloor(va uintptr) mem.VirtPageNum { return mem.VirtPageNum(va >> mem.PageShift) }
func vpnCeil(va uintptr) mem.VirtPageNum {
	return mem.VirtPageNum(util.Roundup(va, uintptr(mem.PageSize)) >> mem.PageShift)
}

// MemorySet is one address space: a page table plus the list of
// MapAreas that describe what's mapped into it (spec.md §4.C). Every
// MemorySet, kernel or user, carries the trampoline page and, for user
// spaces, the trap-context page as sentinel regions at fixed virtual
// addresses so the trap handler can find them regardless of which
// space is currently active.
type MemorySet struct {
	pt    *PageTable
	areas []*MapArea
}

// Token returns the satp value that activates this address space.
func (ms *MemorySet) Token() uint64 { return ms.pt.Token() }

// PageTable exposes the underlying page table, e.g. for Translate calls
// from the cross-space accessors in userbuf.go.
func (ms *MemorySet) PageTable() *PageTable { return ms.pt }

// insert adds area to the set after checking it doesn't overlap an
// existing one, then maps it immediately.
func (ms *MemorySet) insert(area *MapArea) defs.Err_t {
	for _, other := range ms.areas {
		if area.Overlaps(other) {
			panic("vm: overlapping MapArea insert")
		}
	}
	if err := area.Map(ms.pt); err != 0 {
		return err
	}
	ms.areas = append(ms.areas, area)
	return 0
}

// InsertFramedArea adds a new framed area spanning [vpnStart, vpnEnd)
// with the given permissions (spec.md §4.C insert_framed_area).
func (ms *MemorySet) InsertFramedArea(vpnStart, vpnEnd mem.VirtPageNum, perm Perm) defs.Err_t {
	return ms.insert(NewFramedArea(vpnStart, vpnEnd, perm))
}

// MmapFramedArea is insert_framed_area's "exact=true" mode (spec.md
// §4.C): used only by sys_mmap, it reports an overlapping range as
// -EINVAL instead of panicking, since an overlap here is a normal user
// mistake rather than a kernel-internal invariant violation.
func (ms *MemorySet) MmapFramedArea(vpnStart, vpnEnd mem.VirtPageNum, perm Perm) defs.Err_t {
	candidate := NewFramedArea(vpnStart, vpnEnd, perm)
	for _, other := range ms.areas {
		if candidate.Overlaps(other) {
			return -defs.EINVAL
		}
	}
	return ms.insert(candidate)
}

// VpnFloor and VpnCeil expose vpnFloor/vpnCeil to other packages that
// need to convert a user-supplied byte address into page units, e.g.
// the mmap/munmap syscall handlers.
func VpnFloor(va uintptr) mem.VirtPageNum { return vpnFloor(va) }
func VpnCeil(va uintptr) mem.VirtPageNum  { return vpnCeil(va) }

// RemoveFramedArea unmaps and drops the area covering exactly
// [vpnStart, vpnEnd), if one exists (spec.md §4.C remove_framed_area;
// original_source task.rs's remove_map_area takes a full Range for the
// same reason: a munmap whose length doesn't match the mapped area must
// fail rather than tear down more or less than was asked for). Reports
// whether a matching area was found.
func (ms *MemorySet) RemoveFramedArea(vpnStart, vpnEnd mem.VirtPageNum) bool {
	for i, a := range ms.areas {
		if a.vpnStart == vpnStart && a.vpnEnd == vpnEnd {
			a.Unmap(ms.pt)
			ms.areas = append(ms.areas[:i], ms.areas[i+1:]...)
			return true
		}
	}
	return false
}

// Translate performs a read-only page-table walk for vpn.
func (ms *MemorySet) Translate(vpn mem.VirtPageNum) (Pte_t, bool) {
	return ms.pt.Translate(vpn)
}

// mapTrampoline maps the trampoline code page at the fixed TRAMPOLINE
// virtual address onto the physical trampoline page trampolinePPN —
// every MemorySet gets this mapping so a trap
// taken while satp is swapped can still execute the next instruction.
func (ms *MemorySet) mapTrampoline(trampolinePPN mem.PhysPageNum) {
	vpn := vpnFloor(defs.TrampolineVA)
	if err := ms.pt.Map(vpn, trampolinePPN, mem.PTE_R|mem.PTE_X); err != 0 {
		panic("vm: failed to map trampoline")
	}
}

// mapTrapContext inserts the one-page framed area at the fixed
// TRAP_CONTEXT virtual address every user MemorySet carries (spec.md
// §4.C from_elf/from_existed_user): R|W, no U bit, since only the
// kernel ever reads or writes it.
func (ms *MemorySet) mapTrapContext() defs.Err_t {
	vpn := vpnFloor(defs.TrapContextVA)
	return ms.InsertFramedArea(vpn, vpn+1, PermR|PermW)
}

// TrapContextBytes returns the backing page for this MemorySet's
// trap-context area, for the kernel to reinterpret as a *trap.TrapContext.
func (ms *MemorySet) TrapContextBytes() *mem.Bytepg_t {
	vpn := vpnFloor(defs.TrapContextVA)
	for _, a := range ms.areas {
		if a.vpnStart == vpn {
			return a.FrameBytes(vpn)
		}
	}
	return nil
}

// NewKernelSpace builds the kernel's own address space: identity-mapped
// over all of physical memory (so the kernel can dereference any
// physical address directly) plus the trampoline page (spec.md §4.C
// new_kernel).
func NewKernelSpace(trampolinePPN mem.PhysPageNum, memEnd uintptr) (*MemorySet, defs.Err_t) {
	pt, err := NewPageTable()
	if err != 0 {
		return nil, err
	}
	ms := &MemorySet{pt: pt}
	ms.mapTrampoline(trampolinePPN)
	end := vpnCeil(memEnd)
	// Kernel identity area: vpn 0 through end, R|W|X, no U bit.
	if err := ms.insert(NewIdentityArea(0, end, PermR|PermW|PermX)); err != 0 {
		return nil, err
	}
	return ms, 0
}

// ElfAuxResult carries back what a caller needs to finish building a
// task's address space from an ELF image: the user stack's top, the
// program's entry point, and the first virtual page above the user
// stack.
type ElfAuxResult struct {
	Entry        uintptr
	UserStackTop uintptr
	MaxVpn       mem.VirtPageNum
}

// NewFromElf parses an ELF image and builds a fresh user address space
// from its loadable segments, then appends a guard page, a fixed-size
// user stack, and the trampoline + trap-context sentinel pages (spec.md
// §4.C from_elf). Mirrors the teacher's own use of debug/elf in
// chentry.go to inspect ELF headers, extended here to also read and
// map PT_LOAD segment contents.
func NewFromElf(image []byte, trampolinePPN mem.PhysPageNum) (*MemorySet, *ElfAuxResult, defs.Err_t) {
	pt, err := NewPageTable()
	if err != 0 {
		return nil, nil, err
	}
	ms := &MemorySet{pt: pt}
	ms.mapTrampoline(trampolinePPN)
	if err := ms.mapTrapContext(); err != 0 {
		return nil, nil, err
	}

	ef, ferr := elf.NewFile(bytes.NewReader(image))
	if ferr != nil {
		return nil, nil, -defs.ENOEXEC
	}

	var maxVpn mem.VirtPageNum
	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		vpnStart := vpnFloor(uintptr(prog.Vaddr))
		vpnEnd := vpnCeil(uintptr(prog.Vaddr) + uintptr(prog.Filesz))
		if prog.Filesz < prog.Memsz {
			vpnEnd = vpnCeil(uintptr(prog.Vaddr) + uintptr(prog.Memsz))
		}
		perm := PermU
		if prog.Flags&elf.PF_R != 0 {
			perm |= PermR
		}
		if prog.Flags&elf.PF_W != 0 {
			perm |= PermW
		}
		if prog.Flags&elf.PF_X != 0 {
			perm |= PermX
		}
		area := NewFramedArea(vpnStart, vpnEnd, perm)
		if err := ms.insert(area); err != 0 {
			return nil, nil, err
		}
		if err := copySegment(area, prog, vpnStart, uintptr(prog.Vaddr)&(mem.PageSize-1)); err != 0 {
			return nil, nil, err
		}
		if vpnEnd > maxVpn {
			maxVpn = vpnEnd
		}
	}

	// One guard page, then the fixed-size user stack, growing up from
	// maxVpn+1 to keep a faulting stack overflow from silently
	// corrupting the program's data segment.
	ustackBottom := uintptr(maxVpn+1) << mem.PageShift
	ustackTop := ustackBottom + defs.UserStackSize
	if err := ms.InsertFramedArea(vpnFloor(ustackBottom), vpnFloor(ustackTop), PermR|PermW|PermU); err != 0 {
		return nil, nil, err
	}

	aux := &ElfAuxResult{
		Entry:        uintptr(ef.Entry),
		UserStackTop: ustackTop,
		MaxVpn:       vpnFloor(ustackTop),
	}
	return ms, aux, 0
}

// copySegment reads a PT_LOAD segment's file contents into the frames
// already allocated for area, page by page. pageOff is prog.Vaddr's
// offset within its first page: vpnStart is already floored to that
// page, so the segment's bytes must land starting at pageOff rather
// than at the start of the frame, or they'd be shifted low by up to
// pageOff bytes on every non-page-aligned load.
func copySegment(area *MapArea, prog *elf.Prog, vpnStart mem.VirtPageNum, pageOff uintptr) defs.Err_t {
	data := make([]byte, prog.Filesz)
	if _, rerr := prog.ReadAt(data, 0); rerr != nil {
		return -defs.EINVAL
	}
	off := 0
	for vpn := vpnStart; off < len(data); vpn++ {
		pg := area.FrameBytes(vpn)
		if pg == nil {
			return -defs.EINVAL
		}
		start := uintptr(0)
		if vpn == vpnStart {
			start = pageOff
		}
		n := copy(pg[start:], data[off:])
		off += n
	}
	return 0
}

// NewFromExisted clones src's framed areas into a fresh address space,
// copying every backing frame's bytes so the two MemorySets no longer
// share any physical memory — fork's page-level isolation guarantee
// (spec.md §4.C from_existed_user, §9).
func NewFromExisted(src *MemorySet, trampolinePPN mem.PhysPageNum) (*MemorySet, defs.Err_t) {
	pt, err := NewPageTable()
	if err != 0 {
		return nil, err
	}
	ms := &MemorySet{pt: pt}
	ms.mapTrampoline(trampolinePPN)

	for _, a := range src.areas {
		newArea := NewFramedArea(a.vpnStart, a.vpnEnd, a.perm)
		if a.mtype == MapIdentity {
			newArea = NewIdentityArea(a.vpnStart, a.vpnEnd, a.perm)
		}
		if err := ms.insert(newArea); err != 0 {
			return nil, err
		}
		if a.mtype == MapFramed {
			for vpn := a.vpnStart; vpn < a.vpnEnd; vpn++ {
				src := a.FrameBytes(vpn)
				dst := newArea.FrameBytes(vpn)
				copy(dst[:], src[:])
			}
		}
	}
	return ms, 0
}

// Destroy unmaps and frees every area and the page table itself. Must
// be called exactly once, when the owning task exits.
func (ms *MemorySet) Destroy() {
	for _, a := range ms.areas {
		a.Unmap(ms.pt)
	}
	ms.areas = nil
	ms.pt.Free()
}
