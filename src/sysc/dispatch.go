// Package sysc is the syscall dispatch table (spec.md §6): it decodes
// the numeric syscall ID trap.Dispatch hands it, routes to one of the
// process-lifecycle or file-I/O handlers below, and wires itself into
// trap.Dispatch_syscall at package init so the trap gate never needs to
// import this package directly.
package sysc

import (
	"defs"
	"klog"
	"proc"
	"trap"
)

var log = klog.For("syscall")

func init() {
	trap.Dispatch_syscall = Dispatch
}

// Dispatch routes one trapped syscall to its handler. id and the five
// argument registers (a0..a4) come straight out of the TrapContext (spec.md §4.H
// Dispatch); the return value is written back into a0 by the caller.
func Dispatch(id uint64, args [5]uint64) int64 {
	switch id {
	case defs.SYS_EXIT:
		return sysExit(int(int32(args[0])))
	case defs.SYS_YIELD:
		return sysYield()
	case defs.SYS_GETPID:
		return sysGetpid()
	case defs.SYS_FORK:
		return sysFork()
	case defs.SYS_EXEC:
		return sysExec(uintptr(args[0]), uintptr(args[1]))
	case defs.SYS_WAITPID:
		return sysWaitpid(int(int32(args[0])), uintptr(args[1]))
	case defs.SYS_SPAWN:
		return sysSpawn(uintptr(args[0]), uintptr(args[1]))
	case defs.SYS_SET_PRIO:
		return sysSetPriority(int(int32(args[0])))
	case defs.SYS_GET_TIME:
		return sysGetTime(uintptr(args[0]))
	case defs.SYS_MMAP:
		return sysMmap(uintptr(args[0]), uintptr(args[1]), int(args[2]))
	case defs.SYS_MUNMAP:
		return sysMunmap(uintptr(args[0]), uintptr(args[1]))

	// openat(dirfd, path, flags, mode): dirfd/mode are accepted for ABI
	// fidelity but unused, since this kernel has no directory tree to
	// resolve dirfd against (fs.OSInode, spec.md §4.J′).
	case defs.SYS_OPENAT:
		return sysOpenat(uintptr(args[1]), int(args[2]))
	case defs.SYS_CLOSE:
		return sysClose(int(args[0]))
	case defs.SYS_PIPE:
		return sysPipe(uintptr(args[0]))
	case defs.SYS_READ:
		return sysRead(int(args[0]), uintptr(args[1]), int(args[2]))
	case defs.SYS_WRITE:
		return sysWrite(int(args[0]), uintptr(args[1]), int(args[2]))
	case defs.SYS_FSTAT:
		return sysFstat(int(args[0]), uintptr(args[1]))
	case defs.SYS_DUP:
		return sysDup(int(args[0]))
	// linkat(olddirfd, old, newdirfd, new, flags): both dirfds ignored,
	// same reason as openat above.
	case defs.SYS_LINKAT:
		return sysLinkat(uintptr(args[1]), uintptr(args[3]))
	case defs.SYS_UNLINKAT:
		return sysUnlinkat(uintptr(args[1]))
	case defs.SYS_MAILREAD:
		return sysMailread(uintptr(args[0]), int(args[1]))
	case defs.SYS_MAILWRITE:
		return sysMailwrite(int(args[0]), uintptr(args[1]), int(args[2]))

	default:
		log.Warnf("unsupported syscall id %d", id)
		return -1
	}
}

// current fetches the running task, panicking if called with none —
// every syscall handler below runs on behalf of the task that trapped
// into it, so Current() being nil here is a kernel-internal invariant
// violation, not a user error.
func current() *proc.TaskControlBlock {
	t := proc.Current()
	if t == nil {
		klog.Panicf("syscall dispatched with no current task")
	}
	return t
}
