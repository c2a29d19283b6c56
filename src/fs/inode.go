// Package fs implements the two File-interface citizens this kernel
// needs without a real on-disk filesystem (spec.md §9 Open Question,
// resolved by SPEC_FULL.md §4.J′): Pipe (pipe.go) and OSInode, an
// in-memory, flat name-to-bytes table supporting open/link/unlink.
package fs

import (
	"sync"

	"defs"
	"fdops"
	"stat"
)

// inode is the shared, link-counted backing store behind every name
// that refers to it; two names created via linkat point at the same
// *inode and therefore the same bytes.
type inode struct {
	sync.Mutex
	data  []byte
	links int
}

var (
	tableMu sync.Mutex
	names   = make(map[string]*inode)
)

// OSInode is one open instance of an inode: its own read/write cursor
// and permission bits over shared, link-counted byte storage (spec.md
// §4.J File interface).
type OSInode struct {
	node     *inode
	off      int
	readable bool
	writable bool
}

// Open flag bits, matching the subset sys_openat actually needs.
const (
	RDONLY = 0x000
	WRONLY = 0x001
	RDWR   = 0x002
	CREATE = 0x200
	TRUNC  = 0x400
)

// OpenFile resolves name to an OSInode (spec.md §4.J′ open_file). With
// CREATE set, a missing name is created as a fresh, empty, single-link
// inode; without it, a missing name is ENOENT.
func OpenFile(name string, flags int) (*OSInode, defs.Err_t) {
	tableMu.Lock()
	nd, ok := names[name]
	if !ok {
		if flags&CREATE == 0 {
			tableMu.Unlock()
			return nil, -defs.ENOENT
		}
		nd = &inode{links: 1}
		names[name] = nd
	}
	tableMu.Unlock()

	if flags&TRUNC != 0 {
		nd.Lock()
		nd.data = nil
		nd.Unlock()
	}
	return &OSInode{
		node:     nd,
		readable: flags&WRONLY == 0,
		writable: flags&WRONLY != 0 || flags&RDWR != 0,
	}, 0
}

func (f *OSInode) Readable() bool { return f.readable }
func (f *OSInode) Writable() bool { return f.writable }

// Read copies from the inode's backing bytes starting at the open
// instance's cursor, advancing it, and returns 0 (not blocking) at EOF.
func (f *OSInode) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if !f.readable {
		return 0, -defs.EINVAL
	}
	f.node.Lock()
	defer f.node.Unlock()
	if f.off >= len(f.node.data) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.node.data[f.off:])
	f.off += n
	return n, err
}

// Write appends/overwrites from the cursor and advances it.
func (f *OSInode) Write(src fdops.Userio_i) (int, defs.Err_t) {
	if !f.writable {
		return 0, -defs.EINVAL
	}
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	buf = buf[:n]

	f.node.Lock()
	defer f.node.Unlock()
	end := f.off + len(buf)
	if end > len(f.node.data) {
		grown := make([]byte, end)
		copy(grown, f.node.data)
		f.node.data = grown
	}
	copy(f.node.data[f.off:end], buf)
	f.off = end
	return n, 0
}

func (f *OSInode) Close() defs.Err_t  { return 0 }
func (f *OSInode) Reopen() defs.Err_t { return 0 }
func (f *OSInode) Fstat(st *stat.Stat_t) defs.Err_t {
	f.node.Lock()
	defer f.node.Unlock()
	st.Wmode(stat.ModeFile)
	st.Wnlink(uint32(f.node.links))
	return 0
}

// Linkat creates newname as another name for oldname's inode (spec.md
// §4.J′ linkat), bumping its link count. Fails with EEXIST if newname
// is already taken, ENOENT if oldname doesn't exist.
func Linkat(oldname, newname string) defs.Err_t {
	tableMu.Lock()
	defer tableMu.Unlock()
	if _, exists := names[newname]; exists {
		return -defs.EEXIST
	}
	nd, ok := names[oldname]
	if !ok {
		return -defs.ENOENT
	}
	nd.Lock()
	nd.links++
	nd.Unlock()
	names[newname] = nd
	return 0
}

// Unlinkat removes name from the table, dropping the underlying
// inode's link count (spec.md §4.J′ unlinkat). ENOENT if name doesn't
// exist.
func Unlinkat(name string) defs.Err_t {
	tableMu.Lock()
	defer tableMu.Unlock()
	nd, ok := names[name]
	if !ok {
		return -defs.ENOENT
	}
	delete(names, name)
	nd.Lock()
	nd.links--
	nd.Unlock()
	return 0
}

// Linknum reports how many names refer to name's inode, or false if
// name doesn't exist (spec.md §4.J′ linknum).
func Linknum(name string) (int, bool) {
	tableMu.Lock()
	nd, ok := names[name]
	tableMu.Unlock()
	if !ok {
		return 0, false
	}
	nd.Lock()
	defer nd.Unlock()
	return nd.links, true
}
