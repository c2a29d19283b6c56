package mailbox

import (
	"testing"

	"defs"
)

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

func TestNewPairHasDistinctRoles(t *testing.T) {
	sender, receiver := New()
	if !sender.Writable() || sender.Readable() {
		t.Fatal("expected the sender end to be write-only")
	}
	if !receiver.Readable() || receiver.Writable() {
		t.Fatal("expected the receiver end to be read-only")
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	sender, receiver := New()
	src := &sliceIO{buf: []byte("hello")}
	n, err := sender.Write(src)
	if err != 0 || n != 5 {
		t.Fatalf("Write: n=%d err=%d", n, err)
	}
	dst := &sliceIO{buf: make([]byte, 5)}
	n, err = receiver.Read(dst)
	if err != 0 || n != 5 {
		t.Fatalf("Read: n=%d err=%d", n, err)
	}
	if string(dst.buf) != "hello" {
		t.Fatalf("round trip mismatch: got %q", dst.buf)
	}
}

func TestReadOnEmptyMailboxReturnsZeroNotBlocking(t *testing.T) {
	_, receiver := New()
	dst := &sliceIO{buf: make([]byte, 4)}
	n, err := receiver.Read(dst)
	if n != 0 || err != 0 {
		t.Fatalf("expected a non-blocking zero read on an empty mailbox, got n=%d err=%d", n, err)
	}
}

func TestWriteOnFullMailboxReturnsZeroNotBlocking(t *testing.T) {
	sender, _ := New()
	for i := 0; i < MailBoxSize; i++ {
		if n, err := sender.Write(&sliceIO{buf: []byte("x")}); err != 0 || n != 1 {
			t.Fatalf("fill message %d: n=%d err=%d", i, n, err)
		}
	}
	n, err := sender.Write(&sliceIO{buf: []byte("overflow")})
	if n != 0 || err != 0 {
		t.Fatalf("expected a non-blocking zero write on a full mailbox, got n=%d err=%d", n, err)
	}
}

func TestFromExistedClonesQueueByValue(t *testing.T) {
	sender, _ := New()
	sender.Write(&sliceIO{buf: []byte("carried over")})

	_, childReceiver := FromExisted(sender)
	dst := &sliceIO{buf: make([]byte, len("carried over"))}
	n, err := childReceiver.Read(dst)
	if err != 0 || n != len("carried over") {
		t.Fatalf("Read from cloned mailbox: n=%d err=%d", n, err)
	}
	if string(dst.buf) != "carried over" {
		t.Fatalf("expected cloned queue contents preserved, got %q", dst.buf)
	}

	// the clone must not still be readable from the original sender's
	// paired receiver once consumed independently.
	if sender.inner == childReceiver.inner {
		t.Fatal("expected FromExisted to give the clone its own independent queue")
	}
}

func TestRegisterLookupUnregister(t *testing.T) {
	sender, _ := New()
	Register(999, sender)
	if Lookup(999) != sender {
		t.Fatal("expected Lookup to return the registered sender")
	}
	Unregister(999)
	if Lookup(999) != nil {
		t.Fatal("expected Lookup to return nil after Unregister")
	}
}

func TestRegisterReceiverPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Register with a receiver end to panic")
		}
	}()
	_, receiver := New()
	Register(1000, receiver)
}
