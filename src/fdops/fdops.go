// Package fdops declares the interfaces every fd-backed kernel object
// implements: Userio_i abstracts a user- or kernel-side byte buffer
// (spec.md §4.D UserBuffer, §4.J File::read/write arguments) and
// Fdops_i is the polymorphic file operations set a file-descriptor
// table slot dispatches through (spec.md §4.J).
package fdops

import (
	"defs"
	"stat"
)

// Userio_i is implemented by anything that can serve as the source or
// destination of a Read/Write call: vm.UserBuffer (a user-space
// scatter list) and a plain in-kernel byte slice both satisfy it.
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

// Fdops_i is the operation set behind one open file descriptor. Every
// concrete file type (pipe, mailbox end, regular inode) implements it;
// the fd table only ever stores this interface, never a concrete type.
type Fdops_i interface {
	Close() defs.Err_t
	Fstat(st *stat.Stat_t) defs.Err_t
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	Reopen() defs.Err_t
	Readable() bool
	Writable() bool
}
