package fs

import (
	"sync"

	"circbuf"
	"defs"
	"fdops"
	"klog"
	"limits"
	"stat"
)

var pipeLog = klog.For("pipe")

// pipeBufSize matches the teacher's circbuf page-sized default; a pipe
// doesn't need more than one page of slack since readers and writers
// trade control via blocking, not buffering depth.
const pipeBufSize = defs.PageSize

// pipeRing is the shared state between a pipe's two ends: the ring
// buffer plus how many read/write ends are still open, so a reader can
// tell "no more data will ever come" apart from "no data right now".
type pipeRing struct {
	sync.Mutex
	cb       circbuf.Circbuf_t
	readers  int
	writers  int
}

// Yield is called by a blocking pipe read/write while it waits for the
// other end to make progress. It's a package variable, not a direct
// import of sched, so fs never depends on the scheduler package;
// whoever wires up the scheduler at boot assigns it once.
var Yield func()

// Pipe is one end (read or write) of a pipe (spec.md §4.J).
type Pipe struct {
	ring      *pipeRing
	readable  bool
	writable  bool
}

// NewPipe creates a connected pipe pair. Every live pipe counts against
// the system-wide Syslimit.Pipes budget, released when both ends close.
func NewPipe() (*Pipe, *Pipe) {
	if !limits.Syslimit.Pipes.Take() {
		pipeLog.Warn("pipe limit exceeded, allocating anyway")
	}
	ring := &pipeRing{readers: 1, writers: 1}
	ring.cb.Cb_init(pipeBufSize)
	return &Pipe{ring: ring, readable: true}, &Pipe{ring: ring, writable: true}
}

func (p *Pipe) Readable() bool { return p.readable }
func (p *Pipe) Writable() bool { return p.writable }

// Read blocks (yielding) while the ring is empty and at least one
// writer is still open; returns 0 once every writer has closed.
func (p *Pipe) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if !p.readable {
		return 0, -defs.EINVAL
	}
	for {
		p.ring.Lock()
		empty := p.ring.cb.Empty()
		writers := p.ring.writers
		if !empty {
			n, err := p.ring.cb.Copyout(dst)
			p.ring.Unlock()
			return n, err
		}
		p.ring.Unlock()
		if writers == 0 {
			return 0, 0
		}
		if Yield == nil {
			return 0, 0
		}
		Yield()
	}
}

// Write blocks (yielding) while the ring is full and at least one
// reader is still open; returns 0 once every reader has closed (the
// canonical EPIPE condition, reported here as a plain empty write
// rather than killing the task with a signal, since this kernel has no
// signal delivery path).
func (p *Pipe) Write(src fdops.Userio_i) (int, defs.Err_t) {
	if !p.writable {
		return 0, -defs.EINVAL
	}
	for {
		p.ring.Lock()
		if p.ring.readers == 0 {
			p.ring.Unlock()
			return 0, 0
		}
		if !p.ring.cb.Full() {
			n, err := p.ring.cb.Copyin(src)
			p.ring.Unlock()
			return n, err
		}
		p.ring.Unlock()
		if Yield == nil {
			return 0, 0
		}
		Yield()
	}
}

// Close drops this end's share of the pipe's reader/writer count,
// giving the pipe's budget back once both ends are gone.
func (p *Pipe) Close() defs.Err_t {
	p.ring.Lock()
	if p.readable {
		p.ring.readers--
	}
	if p.writable {
		p.ring.writers--
	}
	drained := p.ring.readers == 0 && p.ring.writers == 0
	p.ring.Unlock()
	if drained {
		limits.Syslimit.Pipes.Give()
	}
	return 0
}

// Reopen bumps the appropriate end's refcount, used when a pipe fd is
// duplicated (sys_dup) or shared across fork.
func (p *Pipe) Reopen() defs.Err_t {
	p.ring.Lock()
	if p.readable {
		p.ring.readers++
	}
	if p.writable {
		p.ring.writers++
	}
	p.ring.Unlock()
	return 0
}

func (p *Pipe) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.ModeFile)
	return 0
}
