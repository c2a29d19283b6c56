package stat

import (
	"testing"
	"unsafe"
)

func TestAccessorsRoundTrip(t *testing.T) {
	var st Stat_t
	st.Wdev(7)
	st.Wino(42)
	st.Wmode(ModeFile)
	st.Wnlink(3)

	if st.Ino() != 42 {
		t.Fatalf("Ino() = %d, want 42", st.Ino())
	}
	if st.Mode() != ModeFile {
		t.Fatalf("Mode() = %#o, want %#o", st.Mode(), ModeFile)
	}
	if st.Nlink() != 3 {
		t.Fatalf("Nlink() = %d, want 3", st.Nlink())
	}
}

func TestBytesLengthMatchesStructSize(t *testing.T) {
	var st Stat_t
	st.Wino(1)
	b := st.Bytes()
	if len(b) != int(unsafe.Sizeof(st)) {
		t.Fatalf("Bytes() length = %d, want %d", len(b), unsafe.Sizeof(st))
	}
}

func TestModeBitsAreDistinct(t *testing.T) {
	if ModeDir == ModeFile {
		t.Fatal("ModeDir and ModeFile must be distinct bit patterns")
	}
}
