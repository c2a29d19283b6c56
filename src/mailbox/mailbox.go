// Package mailbox implements the bounded, non-blocking mailbox file
// type and its PID-keyed sender registry, adapted from
// original_source/os/src/fs/mail.rs. A mailbox holds up to MailBoxSize
// messages of up to MailContentSize bytes each; send/receive never
// block, reporting empty/full as a zero-byte Read/Write (spec.md §4.J).
package mailbox

import (
	"sync"

	"defs"
	"fdops"
	"klog"
	"limits"
	"stat"
)

var log = klog.For("mailbox")

const (
	MailBoxSize     = 16
	MailContentSize = 256
)

type role int

const (
	roleSender role = iota
	roleReceiver
)

type inner struct {
	sync.Mutex
	queue [][]byte
}

func newInner() *inner { return &inner{} }

func (in *inner) isEmpty() bool {
	in.Lock()
	defer in.Unlock()
	return len(in.queue) == 0
}

func (in *inner) isFull() bool {
	in.Lock()
	defer in.Unlock()
	return len(in.queue) == MailBoxSize
}

func (in *inner) send(msg []byte) bool {
	in.Lock()
	defer in.Unlock()
	if len(in.queue) == MailBoxSize {
		return false
	}
	in.queue = append(in.queue, msg)
	return true
}

func (in *inner) receive() ([]byte, bool) {
	in.Lock()
	defer in.Unlock()
	if len(in.queue) == 0 {
		return nil, false
	}
	msg := in.queue[0]
	in.queue = in.queue[1:]
	return msg, true
}

// clone deep-copies the queue contents, preserving message order. Used
// by fork, which hands the child a copy of the parent's mailbox queue
// rather than sharing it (spec.md §9: a deliberate, source-mandated
// quirk — most other fork'd state is either shared or freshly
// allocated, but the mailbox queue is the one thing fork duplicates by
// value).
func (in *inner) clone() *inner {
	in.Lock()
	defer in.Unlock()
	nin := newInner()
	for _, m := range in.queue {
		cp := make([]byte, len(m))
		copy(cp, m)
		nin.queue = append(nin.queue, cp)
	}
	return nin
}

// MailBox is one end (sender or receiver) of a mailbox. Both ends
// share the same inner queue via the pointer, mirroring the Rust
// Arc<Mutex<MailBoxInner>> the teacher's distillation source uses.
type MailBox struct {
	role  role
	inner *inner
}

// New creates a fresh, empty mailbox and returns its (sender,
// receiver) pair. Every live mailbox counts against the system-wide
// Syslimit.Mailboxes budget; exhausting it doesn't fail task creation
// (there's no graceful-degradation path for it yet), it just logs, the
// same best-effort posture the frame allocator's Nfree diagnostics take.
func New() (sender, receiver *MailBox) {
	if !limits.Syslimit.Mailboxes.Take() {
		log.Warn("mailbox limit exceeded, allocating anyway")
	}
	in := newInner()
	return &MailBox{role: roleSender, inner: in}, &MailBox{role: roleReceiver, inner: in}
}

// FromExisted builds a new mailbox pair whose queue starts as a deep
// copy of exist's current contents (spec.md §4.F fork).
func FromExisted(exist *MailBox) (sender, receiver *MailBox) {
	if !limits.Syslimit.Mailboxes.Take() {
		log.Warn("mailbox limit exceeded, allocating anyway")
	}
	in := exist.inner.clone()
	return &MailBox{role: roleSender, inner: in}, &MailBox{role: roleReceiver, inner: in}
}

func (mb *MailBox) IsEmpty() bool { return mb.inner.isEmpty() }
func (mb *MailBox) IsFull() bool  { return mb.inner.isFull() }

// Read implements fdops.Fdops_i: a non-blocking mailread. Returns 0 if
// the mailbox is empty.
func (mb *MailBox) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	msg, ok := mb.inner.receive()
	if !ok {
		return 0, 0
	}
	n, err := dst.Uiowrite(msg)
	return n, err
}

// Write implements fdops.Fdops_i: a non-blocking mailwrite. Reads up to
// MailContentSize bytes from src and enqueues them as one message;
// returns 0 if the mailbox is full.
func (mb *MailBox) Write(src fdops.Userio_i) (int, defs.Err_t) {
	n := src.Remain()
	if n > MailContentSize {
		n = MailContentSize
	}
	msg := make([]byte, n)
	got, err := src.Uioread(msg)
	if err != 0 {
		return 0, err
	}
	msg = msg[:got]
	if !mb.inner.send(msg) {
		return 0, 0
	}
	return got, 0
}

func (mb *MailBox) Close() defs.Err_t  { return 0 }
func (mb *MailBox) Reopen() defs.Err_t { return 0 }
func (mb *MailBox) Readable() bool     { return mb.role == roleReceiver }
func (mb *MailBox) Writable() bool     { return mb.role == roleSender }
func (mb *MailBox) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.ModeFile)
	return 0
}

// registry maps a PID to its registered mailbox sender end, letting
// mailwrite address a mailbox by destination PID without the sender
// needing its own open fd for it (original_source's MAIL_SENDER table).
type registry struct {
	sync.Mutex
	byPid map[int]*MailBox
}

var global = &registry{byPid: make(map[int]*MailBox)}

// Register installs (or replaces) the sender end registered under pid.
// Register panics if given a receiver end, matching the source's own
// invariant that only sender ends are ever registered.
func Register(pid int, sender *MailBox) {
	if sender.role != roleSender {
		panic("mailbox: registered a non-sender end")
	}
	global.Lock()
	defer global.Unlock()
	global.byPid[pid] = sender
}

// Lookup returns the sender end registered for pid, or nil if none.
func Lookup(pid int) *MailBox {
	global.Lock()
	defer global.Unlock()
	return global.byPid[pid]
}

// Unregister removes pid's registration, called when its task is
// reaped, and gives its mailbox budget back.
func Unregister(pid int) {
	global.Lock()
	defer global.Unlock()
	delete(global.byPid, pid)
	limits.Syslimit.Mailboxes.Give()
}
