package vm

import (
	"defs"
	"mem"
)

// MapType distinguishes a framed area, whose pages are backed by
// individually allocated physical frames, from an identity area, whose
// virtual page numbers equal their physical page numbers (used for the
// kernel's identity map of physical memory; the trampoline is mapped
// directly through the page table, not through an area).
type MapType int

const (
	MapFramed MapType = iota
	MapIdentity
)

// Perm is the permission bits a MapArea carries, independent of the
// hardware PTE_* bits so callers never have to know the V bit is
// implied.
type Perm mem.Pa_t

const (
	PermR Perm = 1 << 1
	PermW Perm = 1 << 2
	PermX Perm = 1 << 3
	PermU Perm = 1 << 4
)

func (p Perm) flags() mem.Pa_t { return mem.Pa_t(p) }

// MapArea is a contiguous, half-open range of virtual pages
// [vpnStart, vpnEnd) mapped with one permission set and one mapping
// mode. A MemorySet owns a list of non-overlapping MapAreas (spec.md
// §4.C invariant).
type MapArea struct {
	vpnStart mem.VirtPageNum
	vpnEnd   mem.VirtPageNum
	mtype    MapType
	perm     Perm

	// frames backs each framed page in [vpnStart, vpnEnd); empty for
	// identity areas. Index i corresponds to vpnStart+i.
	frames []*mem.FrameTracker
}

// NewFramedArea creates an area covering [vpnStart, vpnEnd) whose pages
// will be backed by freshly allocated physical frames as they're mapped.
func NewFramedArea(vpnStart, vpnEnd mem.VirtPageNum, perm Perm) *MapArea {
	return &MapArea{vpnStart: vpnStart, vpnEnd: vpnEnd, mtype: MapFramed, perm: perm}
}

// NewIdentityArea creates an area covering [vpnStart, vpnEnd) mapped
// directly onto the physical pages of the same numeric value.
func NewIdentityArea(vpnStart, vpnEnd mem.VirtPageNum, perm Perm) *MapArea {
	return &MapArea{vpnStart: vpnStart, vpnEnd: vpnEnd, mtype: MapIdentity, perm: perm}
}

// VpnStart and VpnEnd expose the area's half-open virtual page range so
// a MemorySet can check for overlap before inserting a new area.
func (a *MapArea) VpnStart() mem.VirtPageNum { return a.vpnStart }
func (a *MapArea) VpnEnd() mem.VirtPageNum   { return a.vpnEnd }

// Overlaps reports whether a and b share any virtual page.
func (a *MapArea) Overlaps(b *MapArea) bool {
	return a.vpnStart < b.vpnEnd && b.vpnStart < a.vpnEnd
}

// mapOne installs the mapping for a single vpn within this area.
func (a *MapArea) mapOne(pt *PageTable, vpn mem.VirtPageNum) defs.Err_t {
	var ppn mem.PhysPageNum
	switch a.mtype {
	case MapIdentity:
		ppn = mem.PhysPageNum(vpn)
	case MapFramed:
		frame, ok := mem.Physmem.Alloc()
		if !ok {
			return -defs.ENOMEM
		}
		ppn = frame.PPN()
		a.frames = append(a.frames, frame)
	}
	return pt.Map(vpn, ppn, a.perm.flags())
}

// Map installs every page in this area into pt, rolling back the
// frames it already allocated if it runs out partway through.
func (a *MapArea) Map(pt *PageTable) defs.Err_t {
	for vpn := a.vpnStart; vpn < a.vpnEnd; vpn++ {
		if err := a.mapOne(pt, vpn); err != 0 {
			a.Unmap(pt)
			return err
		}
	}
	return 0
}

// Unmap removes every page of this area from pt and releases any
// frames it owns. Safe to call on a partially-mapped area.
func (a *MapArea) Unmap(pt *PageTable) {
	for vpn := a.vpnStart; vpn < a.vpnEnd; vpn++ {
		if _, ok := pt.Translate(vpn); ok {
			pt.Unmap(vpn)
		}
	}
	for _, f := range a.frames {
		f.Free()
	}
	a.frames = nil
}

// FrameBytes returns the backing page for vpn within a framed area, or
// nil if vpn is out of range or the area isn't framed. Used by the
// ELF loader to copy segment contents in, by TrapContextBytes, and by
// NewFromExisted to copy frames between address spaces.
func (a *MapArea) FrameBytes(vpn mem.VirtPageNum) *mem.Bytepg_t {
	if a.mtype != MapFramed || vpn < a.vpnStart || vpn >= a.vpnEnd {
		return nil
	}
	return a.frames[vpn-a.vpnStart].Bytes()
}
