// Package stat implements the wire-format Stat_t structure returned by
// sys_fstat, matching the POD layout the teacher repo writes directly
// into a user buffer rather than marshaling through encoding/binary.
package stat

import "unsafe"

// Stat_t mirrors a file's stat information (spec.md §6).
type Stat_t struct {
	_dev   uint64
	_ino   uint64
	_mode  uint32
	_nlink uint32
	_pad   [7]uint64
}

// Dir and file mode bits (spec.md §6).
const (
	ModeDir  uint32 = 0o040000
	ModeFile uint32 = 0o100000
)

// Wdev stores the device ID.
func (st *Stat_t) Wdev(v uint64) { st._dev = v }

// Wino stores the inode number.
func (st *Stat_t) Wino(v uint64) { st._ino = v }

// Wmode records the file mode.
func (st *Stat_t) Wmode(v uint32) { st._mode = v }

// Wnlink records the link count.
func (st *Stat_t) Wnlink(v uint32) { st._nlink = v }

// Mode returns the stored mode value.
func (st *Stat_t) Mode() uint32 { return st._mode }

// Ino returns the stored inode number.
func (st *Stat_t) Ino() uint64 { return st._ino }

// Nlink returns the stored link count.
func (st *Stat_t) Nlink() uint32 { return st._nlink }

// Bytes exposes the raw little-endian bytes of the structure, ready to
// copy into a user buffer via vm.WriteTranslatedByteBuffer.
func (st *Stat_t) Bytes() []uint8 {
	const sz = unsafe.Sizeof(*st)
	sl := (*[sz]uint8)(unsafe.Pointer(st))
	return sl[:]
}
