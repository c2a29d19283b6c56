package sysc

import (
	"defs"
	"fd"
	"fs"
	"mailbox"
	"profile"
	"stat"
	"ustr"
	"util"
	"vm"
)

// profDeviceName is the reserved path sys_openat special-cases onto the
// profiling device (SPEC_FULL.md §4.L D_PROF) instead of the regular
// inode table, since the profile sink lives in its own package rather
// than fs's name table.
const profDeviceName = "/dev/prof"

func sysOpenat(pathPtr uintptr, flags int) int64 {
	t := current()
	name, err := vm.TranslatedStr(t.AddrSpace(), pathPtr)
	if err != 0 {
		return -1
	}
	if name == profDeviceName {
		dev, derr := profile.OpenDevice()
		if derr != nil {
			return -1
		}
		return int64(t.Fds().Alloc(&fd.Fd_t{Fops: dev, Perms: fd.FD_READ}))
	}
	inode, err := fs.OpenFile(name, flags)
	if err != 0 {
		return -1
	}
	perms := 0
	if inode.Readable() {
		perms |= fd.FD_READ
	}
	if inode.Writable() {
		perms |= fd.FD_WRITE
	}
	return int64(t.Fds().Alloc(&fd.Fd_t{Fops: inode, Perms: perms}))
}

func sysClose(fdnum int) int64 {
	if current().Fds().Close(fdnum) != 0 {
		return -1
	}
	return 0
}

func sysPipe(fdArrPtr uintptr) int64 {
	t := current()
	rd, wr := fs.NewPipe()
	ridx := t.Fds().Alloc(&fd.Fd_t{Fops: rd, Perms: fd.FD_READ})
	widx := t.Fds().Alloc(&fd.Fd_t{Fops: wr, Perms: fd.FD_WRITE})

	buf := make([]byte, 8)
	util.Writen(buf, 4, 0, ridx)
	util.Writen(buf, 4, 4, widx)
	if _, err := vm.WriteTranslatedByteBuffer(t.AddrSpace(), fdArrPtr, buf); err != 0 {
		return -1
	}
	return 0
}

func sysRead(fdnum int, bufPtr uintptr, length int) int64 {
	t := current()
	f := t.Fds().Get(fdnum)
	if f == nil || f.Fops == nil || !f.Fops.Readable() {
		return -1
	}
	ub, err := vm.TranslatedByteBuffer(t.AddrSpace(), bufPtr, length)
	if err != 0 {
		return -1
	}
	n, err := f.Fops.Read(ub)
	if err != 0 {
		return -1
	}
	return int64(n)
}

func sysWrite(fdnum int, bufPtr uintptr, length int) int64 {
	t := current()
	f := t.Fds().Get(fdnum)
	if f == nil || f.Fops == nil || !f.Fops.Writable() {
		return -1
	}
	ub, err := vm.TranslatedByteBuffer(t.AddrSpace(), bufPtr, length)
	if err != 0 {
		return -1
	}
	n, err := f.Fops.Write(ub)
	if err != 0 {
		return -1
	}
	return int64(n)
}

func sysFstat(fdnum int, statPtr uintptr) int64 {
	t := current()
	f := t.Fds().Get(fdnum)
	if f == nil || f.Fops == nil {
		return -1
	}
	var st stat.Stat_t
	if f.Fops.Fstat(&st) != 0 {
		return -1
	}
	if _, err := vm.WriteTranslatedByteBuffer(t.AddrSpace(), statPtr, st.Bytes()); err != 0 {
		return -1
	}
	return 0
}

func sysDup(fdnum int) int64 {
	newfd, err := current().Fds().Dup(fdnum)
	if err != 0 {
		return -1
	}
	return int64(newfd)
}

func sysLinkat(oldPtr, newPtr uintptr) int64 {
	ms := current().AddrSpace()
	oldname, err := vm.TranslatedStr(ms, oldPtr)
	if err != 0 {
		return -1
	}
	newname, err := vm.TranslatedStr(ms, newPtr)
	if err != 0 {
		return -1
	}
	// newname may never be '.' or '..', the same reservation a real
	// linkat() enforces on its directory entries.
	newUstr := ustr.Ustr(newname)
	if newUstr.Isdot() || newUstr.Isdotdot() {
		return -1
	}
	if fs.Linkat(oldname, newname) != 0 {
		return -1
	}
	return 0
}

func sysUnlinkat(pathPtr uintptr) int64 {
	ms := current().AddrSpace()
	name, err := vm.TranslatedStr(ms, pathPtr)
	if err != 0 {
		return -1
	}
	nameUstr := ustr.Ustr(name)
	if nameUstr.Isdot() || nameUstr.Isdotdot() {
		return -1
	}
	if fs.Unlinkat(name) != 0 {
		return -1
	}
	return 0
}

func sysMailread(bufPtr uintptr, length int) int64 {
	t := current()
	recv := t.MailRecv()
	if recv == nil {
		return -1
	}
	ub, err := vm.TranslatedByteBuffer(t.AddrSpace(), bufPtr, length)
	if err != 0 {
		return -1
	}
	n, err := recv.Read(ub)
	if err != 0 {
		return -1
	}
	return int64(n)
}

func sysMailwrite(pid int, bufPtr uintptr, length int) int64 {
	t := current()
	dst := mailbox.Lookup(pid)
	if dst == nil {
		return -1
	}
	ub, err := vm.TranslatedByteBuffer(t.AddrSpace(), bufPtr, length)
	if err != 0 {
		return -1
	}
	n, err := dst.Write(ub)
	if err != 0 {
		return -1
	}
	return int64(n)
}
