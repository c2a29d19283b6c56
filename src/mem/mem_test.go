package mem

import "testing"

func TestAllocZeroesAndDeallocRecycles(t *testing.T) {
	PhysInit(0, 4)

	f, ok := Physmem.Alloc()
	if !ok {
		t.Fatal("expected Alloc to succeed with free frames available")
	}
	bytes := f.Bytes()
	for i := range bytes {
		if bytes[i] != 0 {
			t.Fatalf("freshly allocated frame not zeroed at offset %d", i)
		}
	}
	bytes[0] = 0xff
	ppn := f.PPN()
	f.Free()

	f2, ok := Physmem.Alloc()
	if !ok {
		t.Fatal("expected Alloc to succeed after Dealloc")
	}
	if f2.PPN() != ppn {
		t.Fatalf("expected recycled PPN %d, got %d", ppn, f2.PPN())
	}
	if f2.Bytes()[0] != 0 {
		t.Fatal("recycled frame was not re-zeroed on Alloc")
	}
}

func TestAllocExhaustionReportsFalseNotPanic(t *testing.T) {
	PhysInit(0, 2)
	var got []*FrameTracker
	for i := 0; i < 2; i++ {
		f, ok := Physmem.Alloc()
		if !ok {
			t.Fatalf("Alloc %d should have succeeded", i)
		}
		got = append(got, f)
	}
	if _, ok := Physmem.Alloc(); ok {
		t.Fatal("expected Alloc to report exhaustion, not allocate a 3rd frame")
	}
	for _, f := range got {
		f.Free()
	}
}

func TestNfreeTracksHighWaterAndFreeList(t *testing.T) {
	PhysInit(0, 8)
	if n := Physmem.Nfree(); n != 8 {
		t.Fatalf("expected 8 free frames at boot, got %d", n)
	}
	f, _ := Physmem.Alloc()
	if n := Physmem.Nfree(); n != 7 {
		t.Fatalf("expected 7 free frames after one Alloc, got %d", n)
	}
	f.Free()
	if n := Physmem.Nfree(); n != 8 {
		t.Fatalf("expected 8 free frames after Free, got %d", n)
	}
}
