package util

import "testing"

func TestMinMax(t *testing.T) {
	if Min(3, 5) != 3 {
		t.Fatal("Min(3,5) should be 3")
	}
	if Max(3, 5) != 5 {
		t.Fatal("Max(3,5) should be 5")
	}
	if Min(uint(7), uint(7)) != 7 {
		t.Fatal("Min of equal values should return that value")
	}
}

func TestRounddownRoundup(t *testing.T) {
	if got := Rounddown(4097, 4096); got != 4096 {
		t.Fatalf("Rounddown(4097,4096) = %d, want 4096", got)
	}
	if got := Roundup(4097, 4096); got != 8192 {
		t.Fatalf("Roundup(4097,4096) = %d, want 8192", got)
	}
	if got := Roundup(4096, 4096); got != 4096 {
		t.Fatalf("Roundup of an already-aligned value should be a no-op, got %d", got)
	}
}

func TestReadnWritenRoundTrip(t *testing.T) {
	buf := make([]uint8, 16)
	Writen(buf, 4, 4, 0x11223344)
	if got := Readn(buf, 4, 4); got != 0x11223344 {
		t.Fatalf("Readn after Writen = %#x, want %#x", got, 0x11223344)
	}
	Writen(buf, 8, 8, 42)
	if got := Readn(buf, 8, 8); got != 42 {
		t.Fatalf("Readn(8) after Writen(8) = %d, want 42", got)
	}
}

func TestWritenOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Writen past the end of the slice to panic")
		}
	}()
	buf := make([]uint8, 4)
	Writen(buf, 4, 2, 1)
}
