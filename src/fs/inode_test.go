package fs

import (
	"testing"

	"defs"
)

func TestOpenFileWithoutCreateOnMissingNameIsENOENT(t *testing.T) {
	_, err := OpenFile("/no/such/file/TestOpenFileWithoutCreateOnMissingNameIsENOENT", RDONLY)
	if err != -defs.ENOENT {
		t.Fatalf("expected -ENOENT, got %d", err)
	}
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	name := "/TestCreateWriteReadRoundTrip"
	f, err := OpenFile(name, CREATE|WRONLY)
	if err != 0 {
		t.Fatalf("OpenFile(CREATE): %d", err)
	}
	n, err := f.Write(&sliceIO{buf: []byte("payload")})
	if err != 0 || n != len("payload") {
		t.Fatalf("Write: n=%d err=%d", n, err)
	}
	f.Close()

	rf, err := OpenFile(name, RDONLY)
	if err != 0 {
		t.Fatalf("reopen for read: %d", err)
	}
	dst := &sliceIO{buf: make([]byte, len("payload"))}
	n, err = rf.Read(dst)
	if err != 0 || n != len("payload") {
		t.Fatalf("Read: n=%d err=%d", n, err)
	}
	if string(dst.buf) != "payload" {
		t.Fatalf("round trip mismatch: got %q", dst.buf)
	}
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	name := "/TestReadPastEOFReturnsZero"
	f, _ := OpenFile(name, CREATE|WRONLY)
	f.Write(&sliceIO{buf: []byte("x")})
	f.Close()

	rf, _ := OpenFile(name, RDONLY)
	rf.Read(&sliceIO{buf: make([]byte, 1)})
	n, err := rf.Read(&sliceIO{buf: make([]byte, 1)})
	if n != 0 || err != 0 {
		t.Fatalf("expected a zero read at EOF, got n=%d err=%d", n, err)
	}
}

func TestLinkatSharesStorageAndBumpsLinknum(t *testing.T) {
	oldname := "/TestLinkatSharesStorageAndBumpsLinknum_old"
	newname := "/TestLinkatSharesStorageAndBumpsLinknum_new"
	f, _ := OpenFile(oldname, CREATE|WRONLY)
	f.Write(&sliceIO{buf: []byte("shared")})
	f.Close()

	if err := Linkat(oldname, newname); err != 0 {
		t.Fatalf("Linkat: %d", err)
	}
	n, ok := Linknum(oldname)
	if !ok || n != 2 {
		t.Fatalf("expected linknum 2 after Linkat, got n=%d ok=%v", n, ok)
	}

	rf, err := OpenFile(newname, RDONLY)
	if err != 0 {
		t.Fatalf("OpenFile(newname): %d", err)
	}
	dst := &sliceIO{buf: make([]byte, len("shared"))}
	rf.Read(dst)
	if string(dst.buf) != "shared" {
		t.Fatalf("expected linked name to see the same bytes, got %q", dst.buf)
	}
}

func TestLinkatOnExistingNewnameFailsEEXIST(t *testing.T) {
	a := "/TestLinkatOnExistingNewnameFailsEEXIST_a"
	b := "/TestLinkatOnExistingNewnameFailsEEXIST_b"
	OpenFile(a, CREATE|WRONLY)
	OpenFile(b, CREATE|WRONLY)
	if err := Linkat(a, b); err != -defs.EEXIST {
		t.Fatalf("expected -EEXIST, got %d", err)
	}
}

func TestUnlinkatRemovesNameAndDropsLinkCount(t *testing.T) {
	name := "/TestUnlinkatRemovesNameAndDropsLinkCount"
	OpenFile(name, CREATE|WRONLY)
	if err := Unlinkat(name); err != 0 {
		t.Fatalf("Unlinkat: %d", err)
	}
	if _, ok := Linknum(name); ok {
		t.Fatal("expected Linknum to report not-found after Unlinkat")
	}
	if _, err := OpenFile(name, RDONLY); err != -defs.ENOENT {
		t.Fatalf("expected -ENOENT reopening an unlinked name, got %d", err)
	}
}
