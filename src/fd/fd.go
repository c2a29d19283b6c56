// Package fd implements the file descriptor and its per-task table
// (spec.md §4.J), trimmed from the teacher's fd.Fd_t: no Cwd_t/bpath
// path-resolution machinery survives, since this kernel has no real
// directory tree to chdir through (see fs.OSInode, spec.md §4.J′).
package fd

import (
	"sync"

	"defs"
	"fdops"
)

// Fd_t represents one open file descriptor: an interface reference to
// the underlying file's operations, plus its permission bits.
type Fd_t struct {
	Fops  fdops.Fdops_i
	Perms int
}

const (
	FD_READ    = 0x1
	FD_WRITE   = 0x2
	FD_CLOEXEC = 0x4
)

// Copyfd duplicates an open file descriptor by reopening the
// underlying file (used by sys_dup and by fork's fd-table clone).
func Copyfd(f *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *f
	if err := nfd.Fops.Reopen(); err != 0 {
		return nil, err
	}
	return nfd, 0
}

// Close_panic closes a descriptor whose close must succeed.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

// Table is one task's file-descriptor table: a slice of slots, each
// either nil (empty) or holding a shared *Fd_t (spec.md §4.J).
type Table struct {
	sync.Mutex
	slots []*Fd_t
}

// NewStdTable builds the standard fd table every new process starts
// with: [stdin, stdout, stdout] (spec.md §4.F TaskControlBlock.new).
func NewStdTable(stdin, stdout *Fd_t) *Table {
	return &Table{slots: []*Fd_t{stdin, stdout, stdout}}
}

// Alloc installs f into the smallest empty slot, extending the table
// if none exists, and returns that slot's index.
func (t *Table) Alloc(f *Fd_t) int {
	t.Lock()
	defer t.Unlock()
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = f
			return i
		}
	}
	t.slots = append(t.slots, f)
	return len(t.slots) - 1
}

// Get returns the fd at index i, or nil if the slot is empty or i is
// out of range.
func (t *Table) Get(i int) *Fd_t {
	t.Lock()
	defer t.Unlock()
	if i < 0 || i >= len(t.slots) {
		return nil
	}
	return t.slots[i]
}

// Close empties slot i and closes the underlying file. Returns EBADF if
// the slot was already empty or out of range.
func (t *Table) Close(i int) defs.Err_t {
	t.Lock()
	f := (*Fd_t)(nil)
	if i >= 0 && i < len(t.slots) {
		f = t.slots[i]
		t.slots[i] = nil
	}
	t.Unlock()
	if f == nil {
		return -defs.EBADF
	}
	return f.Fops.Close()
}

// Dup reopens the fd at slot oldi into a fresh slot and returns its
// index, or -EBADF if oldi is empty.
func (t *Table) Dup(oldi int) (int, defs.Err_t) {
	old := t.Get(oldi)
	if old == nil {
		return -1, -defs.EBADF
	}
	nfd, err := Copyfd(old)
	if err != 0 {
		return -1, err
	}
	return t.Alloc(nfd), 0
}

// Clone deep-copies the table for fork: every slot's file object is
// shared (reopened, not duplicated in storage), matching spec.md §4.F
// fork's "copies the fd table sharing each file object".
func (t *Table) Clone() (*Table, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	nt := &Table{slots: make([]*Fd_t, len(t.slots))}
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		nf, err := Copyfd(f)
		if err != 0 {
			return nil, err
		}
		nt.slots[i] = nf
	}
	return nt, 0
}

// CloseAll closes every open slot, used when a task exits.
func (t *Table) CloseAll() {
	t.Lock()
	defer t.Unlock()
	for i, f := range t.slots {
		if f != nil {
			f.Fops.Close()
			t.slots[i] = nil
		}
	}
}
