// Package proc implements the task control block and its lifecycle
// operations (spec.md §4.F): construction from an ELF image, fork,
// exec, spawn, exit, and wait, plus the scheduler-facing "current task"
// slot (spec.md §4.G) that ties everything together.
//
// This kernel runs hosted inside an ordinary Go binary rather than on
// bare RISC-V silicon, so "switching" from one task to another has no
// real register-level counterpart to assemble: there is no second
// native execution context to jump into, only a record of which
// TaskControlBlock the trap gate should currently be dispatching
// syscalls against. TaskContext below is kept as a data structure for
// fidelity to the spec's model (and because exec/fork still need a
// well-defined "freshly constructed task" state to seed), but switching
// between tasks is an ordinary Go assignment of the current-task
// pointer, not a hand-rolled asm context swap (see DESIGN.md).
package proc

import (
	"sync"
	"unsafe"

	"accnt"
	"defs"
	"fd"
	"klog"
	"mailbox"
	"mem"
	"pid"
	"trap"
	"vm"
)

// TaskStatus mirrors task.rs's TaskStatus enum.
type TaskStatus int

const (
	Ready TaskStatus = iota
	Running
	Zombie
)

// TaskContext is the seed state a newly constructed task's kernel-side
// bookkeeping starts from. On real hardware its Ra would point at
// trap_return; here it only records whether the task has been
// dispatched: RunNextTask sets everRun, and nothing reads it back.
type TaskContext struct {
	everRun bool
}

// TaskControlBlock is one process (spec.md §4.F). The immutable fields
// never change after construction; priority and stride are guarded by
// prioMu and everything else by mu,
// matching the teacher's split of accnt.Accnt_t-style plain fields from
// mutex-guarded mutable state used throughout the pack.
type TaskControlBlock struct {
	Pid         *pid.PidHandle
	KernelStack *pid.KernelStack

	prioMu   sync.RWMutex
	priority int
	stride   int

	mu        sync.Mutex
	addrSpace *vm.MemorySet
	taskCx    TaskContext
	status    TaskStatus
	parent    *TaskControlBlock
	children  []*TaskControlBlock
	exitCode  int
	fds       *fd.Table
	mailSend  *mailbox.MailBox
	mailRecv  *mailbox.MailBox

	cpu      *accnt.Accnt_t
	runStart int64
}

// trapContext reinterprets the task's trap-context page as a
// *trap.TrapContext. Caller must hold mu.
func (t *TaskControlBlock) trapContext() *trap.TrapContext {
	pg := t.addrSpace.TrapContextBytes()
	return (*trap.TrapContext)(unsafe.Pointer(pg))
}

// Pid/status/priority/stride accessors used by sched.Entry and the
// syscall layer.

func (t *TaskControlBlock) Getpid() int { return t.Pid.Pid() }

func (t *TaskControlBlock) Priority() int {
	t.prioMu.RLock()
	defer t.prioMu.RUnlock()
	return t.priority
}

// SetPriority installs a new priority (spec.md §4.G set_priority:
// "requires p > 1"). The caller (the sys_set_priority handler) is
// responsible for rejecting p <= 1 before calling this.
func (t *TaskControlBlock) SetPriority(p int) {
	t.prioMu.Lock()
	defer t.prioMu.Unlock()
	t.priority = p
}

func (t *TaskControlBlock) Stride() int {
	t.prioMu.RLock()
	defer t.prioMu.RUnlock()
	return t.stride
}

func (t *TaskControlBlock) SetStride(s int) {
	t.prioMu.Lock()
	defer t.prioMu.Unlock()
	t.stride = s
}

func (t *TaskControlBlock) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *TaskControlBlock) Token() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addrSpace.Token()
}

func (t *TaskControlBlock) Fds() *fd.Table { return t.fds }

// MailRecv exposes the task's own mailbox receive end, for sys_mailread.
func (t *TaskControlBlock) MailRecv() *mailbox.MailBox { return t.mailRecv }

// Accnt exposes the task's accumulated CPU-time accounting, the
// rusage-style payload a future getrusage-class syscall would read.
func (t *TaskControlBlock) Accnt() *accnt.Accnt_t { return t.cpu }

// StartRun marks the instant the scheduler hands this task the CPU;
// StopRun folds the elapsed wall time into its accounting when the
// scheduler takes the CPU back (spec.md §8 property 6, fairness over
// accumulated runtime).
func (t *TaskControlBlock) StartRun() {
	t.mu.Lock()
	t.runStart = t.cpu.Now()
	t.mu.Unlock()
}

func (t *TaskControlBlock) StopRun() {
	t.mu.Lock()
	if t.runStart != 0 {
		t.cpu.Finish(t.runStart)
		t.runStart = 0
	}
	t.mu.Unlock()
}

// AddrSpace exposes the task's address space to the syscall layer, e.g.
// for the cross-space accessors in vm/userbuf.go.
func (t *TaskControlBlock) AddrSpace() *vm.MemorySet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addrSpace
}

// Mmap implements sys_mmap's core (spec.md §6): port's low 3 bits are
// R|W|X, every other bit must be clear, and at least one of R|W|X must
// be set. A zero-length request is a no-op success. Returns the rounded
// mapped length, or -1 on any bad argument or overlap.
func (t *TaskControlBlock) Mmap(start, length uintptr, port int) int64 {
	if port&^0b111 != 0 || port&0b111 == 0 {
		return -1
	}
	if start%mem.PageSize != 0 {
		return -1
	}
	if length == 0 {
		return 0
	}
	perm := vm.PermU
	if port&0b001 != 0 {
		perm |= vm.PermR
	}
	if port&0b010 != 0 {
		perm |= vm.PermW
	}
	if port&0b100 != 0 {
		perm |= vm.PermX
	}
	vpnStart := vm.VpnFloor(start)
	vpnEnd := vm.VpnCeil(start + length)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.addrSpace.MmapFramedArea(vpnStart, vpnEnd, perm); err != 0 {
		return -1
	}
	return int64(uintptr(vpnEnd-vpnStart) * mem.PageSize)
}

// Munmap implements sys_munmap's core (spec.md §6): a zero-length
// request is a no-op success; otherwise an area covering exactly
// [start, start+length) must exist or the call fails. On success it
// returns the rounded unmapped length, matching Mmap's return
// convention rather than a bare 0.
func (t *TaskControlBlock) Munmap(start, length uintptr) int64 {
	if length == 0 {
		return 0
	}
	vpnStart := vm.VpnFloor(start)
	vpnEnd := vm.VpnCeil(start + length)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.addrSpace.RemoveFramedArea(vpnStart, vpnEnd) {
		return -1
	}
	return int64(uintptr(vpnEnd-vpnStart) * mem.PageSize)
}

// newBareTask allocates the PID/kernel-stack pair and fd/mailbox
// defaults shared by every construction path (new/fork/spawn).
func newBareTask(ms *vm.MemorySet, stdin, stdout *fd.Fd_t, fds *fd.Table, mailSend, mailRecv *mailbox.MailBox) (*TaskControlBlock, defs.Err_t) {
	h := pid.Alloc()
	ks, err := pid.NewKernelStack(kernelSpace, h)
	if err != 0 {
		pid.Dealloc(h)
		return nil, err
	}
	t := &TaskControlBlock{
		Pid:         h,
		KernelStack: ks,
		priority:    defs.AppDefaultPriority,
		addrSpace:   ms,
		status:      Ready,
		fds:         fds,
		mailSend:    mailSend,
		mailRecv:    mailRecv,
		cpu:         &accnt.Accnt_t{},
	}
	mailbox.Register(h.Pid(), mailSend)
	return t, 0
}

// NewInitTask builds the very first task from an embedded ELF image
// (spec.md §4.F new): fresh MemorySet, fd table [stdin, stdout,
// stdout], a new mailbox, Ready status, default priority.
func NewInitTask(elf []byte) (*TaskControlBlock, defs.Err_t) {
	ms, aux, err := vm.NewFromElf(elf, trampolinePPN)
	if err != 0 {
		return nil, err
	}
	stdin, stdout := standardFds()
	fds := fd.NewStdTable(stdin, stdout)
	mailSend, mailRecv := mailbox.New()

	t, err := newBareTask(ms, stdin, stdout, fds, mailSend, mailRecv)
	if err != 0 {
		return nil, err
	}

	t.mu.Lock()
	*t.trapContext() = *trap.NewAppContext(
		uint64(aux.Entry), uint64(aux.UserStackTop),
		kernelSpace.Token(), uint64(t.KernelStack.Top()),
	)
	t.mu.Unlock()
	return t, 0
}

// Fork deep-clones the parent's address space, fd table, and mailbox
// queue into a brand-new child TCB (spec.md §4.F fork). The child's a0
// is forced to 0 so the syscall returns 0 in the child.
func (parent *TaskControlBlock) Fork() (*TaskControlBlock, defs.Err_t) {
	parent.mu.Lock()
	defer parent.mu.Unlock()

	ms, err := vm.NewFromExisted(parent.addrSpace, trampolinePPN)
	if err != 0 {
		return nil, err
	}
	newFds, err := parent.fds.Clone()
	if err != 0 {
		return nil, err
	}
	mailSend, mailRecv := mailbox.FromExisted(parent.mailSend)

	child, err := newBareTask(ms, nil, nil, newFds, mailSend, mailRecv)
	if err != 0 {
		return nil, err
	}
	child.parent = parent
	parent.children = append(parent.children, child)

	child.mu.Lock()
	*child.trapContext() = *parent.trapContext()
	child.trapContext().KernelSp = uint64(child.KernelStack.Top())
	child.trapContext().SetA0(0)
	child.mu.Unlock()

	return child, 0
}

// layoutArgv writes argv onto the top of a freshly loaded address
// space's user stack (spec.md §4.F exec/spawn): a pointer table
// immediately below stackTop, NUL-terminated strings immediately below
// the pointer table. Returns the resulting stack pointer (8-byte
// aligned, below everything written) and the pointer table's base
// (a1/argv_base). Shared by Exec and Spawn so neither can drift from
// the other's argv layout.
func layoutArgv(ms *vm.MemorySet, stackTop uintptr, argv []string) (sp, argvBase uintptr, err defs.Err_t) {
	ptrSize := uintptr(8)
	sp = stackTop - uintptr(len(argv)+1)*ptrSize
	argvBase = sp

	// Strings sit below the pointer table, not above stackTop: the
	// pointer table already occupies [argvBase, stackTop), so the
	// string cursor must start at argvBase, matching the original's
	// single descending user_sp.
	ptrs := make([]uintptr, len(argv)+1)
	strTop := argvBase
	for i := len(argv) - 1; i >= 0; i-- {
		strTop -= uintptr(len(argv[i]) + 1)
		ptrs[i] = strTop
		buf := append([]byte(argv[i]), 0)
		if _, werr := vm.WriteTranslatedByteBuffer(ms, strTop, buf); werr != 0 {
			return 0, 0, werr
		}
	}
	sp = strTop &^ (ptrSize - 1) // align down to 8 bytes, below the strings

	for i, p := range ptrs {
		addr := argvBase + uintptr(i)*ptrSize
		pv := uint64(p)
		buf := (*[8]byte)(unsafe.Pointer(&pv))[:]
		if _, werr := vm.WriteTranslatedByteBuffer(ms, addr, buf); werr != 0 {
			return 0, 0, werr
		}
	}
	return sp, argvBase, 0
}

// Exec replaces t's address space in place with a freshly loaded ELF
// image, laying argv out on the new user stack (spec.md §4.F exec):
// a0=argc, a1=argv_base. PID, kernel stack, fd table, mailbox, and
// children all survive untouched.
func (t *TaskControlBlock) Exec(elf []byte, argv []string) defs.Err_t {
	ms, aux, err := vm.NewFromElf(elf, trampolinePPN)
	if err != 0 {
		return err
	}

	sp, argvBase, err := layoutArgv(ms, aux.UserStackTop, argv)
	if err != 0 {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.addrSpace = ms
	*t.trapContext() = *trap.NewAppContext(
		uint64(aux.Entry), uint64(sp), kernelSpace.Token(), uint64(t.KernelStack.Top()),
	)
	t.trapContext().SetA0(uint64(len(argv)))
	t.trapContext().X[11] = uint64(argvBase)
	return 0
}

// Spawn is fork+exec without ever materializing the parent's image in
// the child (spec.md §4.F spawn).
func (parent *TaskControlBlock) Spawn(elf []byte, argv []string) (*TaskControlBlock, defs.Err_t) {
	ms, aux, err := vm.NewFromElf(elf, trampolinePPN)
	if err != 0 {
		return nil, err
	}
	parent.mu.Lock()
	newFds, ferr := parent.fds.Clone()
	parent.mu.Unlock()
	if ferr != 0 {
		return nil, ferr
	}
	mailSend, mailRecv := mailbox.New()

	sp, argvBase, err := layoutArgv(ms, aux.UserStackTop, argv)
	if err != 0 {
		return nil, err
	}

	child, err := newBareTask(ms, nil, nil, newFds, mailSend, mailRecv)
	if err != 0 {
		return nil, err
	}

	parent.mu.Lock()
	child.parent = parent
	parent.children = append(parent.children, child)
	parent.mu.Unlock()

	child.mu.Lock()
	*child.trapContext() = *trap.NewAppContext(
		uint64(aux.Entry), uint64(sp), kernelSpace.Token(), uint64(child.KernelStack.Top()),
	)
	child.trapContext().SetA0(uint64(len(argv)))
	child.trapContext().X[11] = uint64(argvBase)
	child.mu.Unlock()

	return child, 0
}

// Exit marks t Zombie, records code, reparents every child to init,
// and eagerly drops the user address space — the kernel stack survives
// until waitpid reaps it (spec.md §4.F Exit).
func (t *TaskControlBlock) Exit(code int) {
	t.mu.Lock()
	t.status = Zombie
	t.exitCode = code
	for _, c := range t.children {
		c.mu.Lock()
		c.parent = initTask
		c.mu.Unlock()
		if initTask != nil {
			initTask.mu.Lock()
			initTask.children = append(initTask.children, c)
			initTask.mu.Unlock()
		}
	}
	t.children = nil
	t.fds.CloseAll()
	t.addrSpace.Destroy()
	t.addrSpace = nil
	mailbox.Unregister(t.Pid.Pid())
	t.mu.Unlock()
	klog.ForPid("proc", t.Pid.Pid()).Infof("exited with code %d", code)
}

// Waitpid implements sys_waitpid's core (spec.md §4.F Wait): -1 if no
// matching child exists, -2 if one exists but none is a zombie yet,
// otherwise reaps the first matching zombie and returns (its pid, its
// exit code).
func (t *TaskControlBlock) Waitpid(target int) (int, int, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	for i, c := range t.children {
		if target != -1 && c.Getpid() != target {
			continue
		}
		found = true
		if c.Status() != Zombie {
			continue
		}
		t.children = append(t.children[:i:i], t.children[i+1:]...)
		c.mu.Lock()
		code := c.exitCode
		pidNum := c.Getpid()
		c.mu.Unlock()
		c.KernelStack.Free(kernelSpace)
		pid.Dealloc(c.Pid)
		return pidNum, code, 0
	}
	if !found {
		return -1, 0, 0
	}
	return -2, 0, 0
}
