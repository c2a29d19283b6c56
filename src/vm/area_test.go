package vm

import (
	"testing"

	"mem"
)

func TestFramedAreaMapAndUnmapReleasesFrames(t *testing.T) {
	mem.PhysInit(0, 32)
	pt, _ := NewPageTable()
	defer pt.Free()
	// Build the intermediate page-table levels for vpns 0..2 up front:
	// they stay allocated until pt.Free, so the counts below see only the
	// area's own leaf frames.
	if _, ok := pt.walk(mem.VirtPageNum(0), true); !ok {
		t.Fatal("walk failed to allocate intermediate levels")
	}

	before := mem.Physmem.Nfree()
	area := NewFramedArea(mem.VirtPageNum(0), mem.VirtPageNum(3), PermR|PermW)
	if err := area.Map(pt); err != 0 {
		t.Fatalf("Map failed: %d", err)
	}
	if got := mem.Physmem.Nfree(); got != before-3 {
		t.Fatalf("expected 3 frames consumed, free count went %d -> %d", before, got)
	}
	for vpn := mem.VirtPageNum(0); vpn < 3; vpn++ {
		if _, ok := pt.Translate(vpn); !ok {
			t.Fatalf("expected vpn %d to be mapped", vpn)
		}
	}

	area.Unmap(pt)
	if got := mem.Physmem.Nfree(); got != before {
		t.Fatalf("expected all frames released after Unmap, free count %d want %d", got, before)
	}
}

func TestIdentityAreaMapsVpnOntoSamePpn(t *testing.T) {
	mem.PhysInit(0, 32)
	pt, _ := NewPageTable()
	defer pt.Free()

	area := NewIdentityArea(mem.VirtPageNum(2), mem.VirtPageNum(4), PermR|PermW|PermX)
	if err := area.Map(pt); err != 0 {
		t.Fatalf("Map failed: %d", err)
	}
	pte, ok := pt.Translate(mem.VirtPageNum(2))
	if !ok || pte.ppn() != mem.PhysPageNum(2) {
		t.Fatalf("expected identity vpn 2 -> ppn 2, got ok=%v ppn=%d", ok, pte.ppn())
	}
}

func TestOverlapsDetectsSharedPages(t *testing.T) {
	a := NewFramedArea(mem.VirtPageNum(0), mem.VirtPageNum(5), PermR)
	b := NewFramedArea(mem.VirtPageNum(4), mem.VirtPageNum(8), PermR)
	c := NewFramedArea(mem.VirtPageNum(5), mem.VirtPageNum(8), PermR)
	if !a.Overlaps(b) {
		t.Fatal("expected [0,5) and [4,8) to overlap")
	}
	if a.Overlaps(c) {
		t.Fatal("expected [0,5) and [5,8) (adjacent, half-open) not to overlap")
	}
}
