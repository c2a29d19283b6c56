package circbuf

import (
	"testing"

	"defs"
)

// sliceIO is a minimal fdops.Userio_i backed by a plain byte slice, for
// tests that don't need a real cross-address-space buffer.
type sliceIO struct {
	buf []byte
	off int
}

func (s *sliceIO) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, s.buf[s.off:])
	s.off += n
	return n, 0
}

func (s *sliceIO) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(s.buf[s.off:], src)
	s.off += n
	return n, 0
}

func (s *sliceIO) Remain() int  { return len(s.buf) - s.off }
func (s *sliceIO) Totalsz() int { return len(s.buf) }

func TestEmptyAndFullOnFreshBuffer(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(4)
	if !cb.Empty() {
		t.Fatal("expected a fresh buffer to be empty")
	}
	if cb.Full() {
		t.Fatal("expected a fresh buffer not to be full")
	}
}

func TestCopyinCopyoutRoundTrip(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(8)
	src := &sliceIO{buf: []byte("hello")}
	n, err := cb.Copyin(src)
	if err != 0 || n != 5 {
		t.Fatalf("Copyin: n=%d err=%d", n, err)
	}
	if cb.Used() != 5 {
		t.Fatalf("expected Used()==5, got %d", cb.Used())
	}

	dst := &sliceIO{buf: make([]byte, 5)}
	n, err = cb.Copyout(dst)
	if err != 0 || n != 5 {
		t.Fatalf("Copyout: n=%d err=%d", n, err)
	}
	if string(dst.buf) != "hello" {
		t.Fatalf("Copyout round-trip mismatch: got %q", dst.buf)
	}
	if !cb.Empty() {
		t.Fatal("expected buffer empty after draining everything written")
	}
}

func TestCopyinWrapsAroundTheRingBoundary(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(4)
	cb.Copyin(&sliceIO{buf: []byte("ab")})
	out := make([]byte, 2)
	cb.Copyout(&sliceIO{buf: out})
	// head=2, tail=2 (mod 4): next write of 3 bytes wraps past index 4.
	cb.Copyin(&sliceIO{buf: []byte("cde")})
	if cb.Used() != 3 {
		t.Fatalf("expected 3 bytes used after wrapping write, got %d", cb.Used())
	}
	dst := &sliceIO{buf: make([]byte, 3)}
	cb.Copyout(dst)
	if string(dst.buf) != "cde" {
		t.Fatalf("expected wrapped read to return %q, got %q", "cde", dst.buf)
	}
}

func TestCopyinOnFullBufferIsANoOp(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(2)
	cb.Copyin(&sliceIO{buf: []byte("xy")})
	if !cb.Full() {
		t.Fatal("expected buffer to be full")
	}
	n, err := cb.Copyin(&sliceIO{buf: []byte("z")})
	if n != 0 || err != 0 {
		t.Fatalf("expected Copyin on a full buffer to copy 0 bytes, got n=%d err=%d", n, err)
	}
}

func TestCopyoutOnEmptyBufferIsANoOp(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(4)
	n, err := cb.Copyout(&sliceIO{buf: make([]byte, 4)})
	if n != 0 || err != 0 {
		t.Fatalf("expected Copyout on an empty buffer to copy 0 bytes, got n=%d err=%d", n, err)
	}
}
