// Package circbuf implements the fixed-size ring buffer backing pipes
// (spec.md §4.J), adapted from the teacher's circbuf.Circbuf_t: a
// head/tail pair of ever-increasing counters modulo the buffer size, so
// Full/Empty/Used/Left never need a separate "is it wrapped" flag.
package circbuf

import (
	"defs"
	"fdops"
)

// Circbuf_t is not safe for concurrent use; callers (pipe.go) serialize
// access with their own mutex.
type Circbuf_t struct {
	buf   []uint8
	bufsz int
	head  int
	tail  int
}

// Cb_init allocates a buffer of sz bytes.
func (cb *Circbuf_t) Cb_init(sz int) {
	if sz <= 0 {
		panic("bad circbuf size")
	}
	cb.buf = make([]uint8, sz)
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
}

func (cb *Circbuf_t) Full() bool  { return cb.head-cb.tail == cb.bufsz }
func (cb *Circbuf_t) Empty() bool { return cb.head == cb.tail }
func (cb *Circbuf_t) Left() int   { return cb.bufsz - (cb.head - cb.tail) }
func (cb *Circbuf_t) Used() int   { return cb.head - cb.tail }

// Copyin reads from src into the circular buffer, wrapping at most
// once, and returns the number of bytes actually copied in (0 if full).
func (cb *Circbuf_t) Copyin(src fdops.Userio_i) (int, defs.Err_t) {
	if cb.Full() {
		return 0, 0
	}
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if ti <= hi {
		dst := cb.buf[hi:]
		wrote, err := src.Uioread(dst)
		if err != 0 {
			return 0, err
		}
		if wrote != len(dst) {
			cb.head += wrote
			return wrote, 0
		}
		c += wrote
		hi = (cb.head + wrote) % cb.bufsz
	}
	dst := cb.buf[hi:ti]
	wrote, err := src.Uioread(dst)
	c += wrote
	if err != 0 {
		return c, err
	}
	cb.head += c
	return c, 0
}

// Copyout writes the entire available contents of the buffer to dst.
func (cb *Circbuf_t) Copyout(dst fdops.Userio_i) (int, defs.Err_t) {
	if cb.Empty() {
		return 0, 0
	}
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if hi <= ti {
		src := cb.buf[ti:]
		wrote, err := dst.Uiowrite(src)
		if err != 0 {
			return 0, err
		}
		if wrote != len(src) {
			cb.tail += wrote
			return wrote, 0
		}
		c += wrote
		ti = (cb.tail + wrote) % cb.bufsz
	}
	src := cb.buf[ti:hi]
	wrote, err := dst.Uiowrite(src)
	if err != 0 {
		return c, err
	}
	c += wrote
	cb.tail += c
	return c, 0
}
