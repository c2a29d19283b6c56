package proc

import (
	"sync"

	"defs"
	"fd"
	"fs"
	"klog"
	"mem"
	"profile"
	"sbi"
	"sched"
	"trap"
	"vm"
)

var (
	kernelSpace   *vm.MemorySet
	trampolinePPN mem.PhysPageNum

	currentMu sync.Mutex
	current   *TaskControlBlock
	initTask  *TaskControlBlock

	log = klog.For("proc")
)

// standardFds builds the [stdin, stdout] pair every new task's fd table
// starts from (spec.md §4.F TaskControlBlock.new).
func standardFds() (*fd.Fd_t, *fd.Fd_t) {
	return &fd.Fd_t{Fops: fs.Stdin, Perms: fd.FD_READ},
		&fd.Fd_t{Fops: fs.Stdout, Perms: fd.FD_WRITE}
}

// Init brings up the kernel's own address space and installs the
// trampoline's physical frame, then loads and schedules the init task
// (spec.md §4.F init_proc, §4.G "at least one task is always runnable").
// trampolinePhys is the physical page holding the trap entry/exit code;
// memEnd bounds the kernel's identity map.
func Init(trampolinePhys mem.PhysPageNum, memEnd uintptr, initElf []byte) defs.Err_t {
	ks, err := vm.NewKernelSpace(trampolinePhys, memEnd)
	if err != 0 {
		return err
	}
	kernelSpace = ks
	trampolinePPN = trampolinePhys

	t, err := NewInitTask(initElf)
	if err != 0 {
		return err
	}
	initTask = t
	sched.Global.Add(t)
	log.Info("init task scheduled")
	return 0
}

// AddTask pushes task onto the ready queue (spec.md §4.G add_task).
func AddTask(t *TaskControlBlock) {
	sched.Global.Add(t)
}

// Current returns the task presently occupying the CPU, or nil if the
// kernel is idle between tasks.
func Current() *TaskControlBlock {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// RunNextTask pops the next ready task off the scheduler and installs
// it as Current, marking it Running (spec.md §4.G run_next_task). On a
// hosted kernel this has no register-level switch to perform: the
// "switch" is simply updating which TaskControlBlock the trap gate
// consults next, since there is no second native execution context to
// jump into (see proc package doc, DESIGN.md). Returns false if the
// ready queue is empty.
func RunNextTask() bool {
	next := sched.Global.Fetch()
	if next == nil {
		return false
	}
	t := next.(*TaskControlBlock)
	t.mu.Lock()
	t.status = Running
	t.taskCx.everRun = true
	t.mu.Unlock()

	currentMu.Lock()
	current = t
	currentMu.Unlock()
	t.StartRun()
	profile.Sample(t.Getpid(), "run")
	return true
}

// SuspendCurrentAndRunNext demotes the current task back to Ready,
// re-enqueues it, and switches to whatever runs next (spec.md §4.G
// suspend_current_and_run_next, the timer-interrupt and sys_yield path).
func SuspendCurrentAndRunNext() {
	t := Current()
	if t == nil {
		return
	}
	t.StopRun()
	t.mu.Lock()
	t.status = Ready
	t.mu.Unlock()
	AddTask(t)
	currentMu.Lock()
	current = nil
	currentMu.Unlock()
	RunNextTask()
}

// ExitCurrentAndRunNext tears down the current task with the given exit
// code and switches to whatever runs next (spec.md §4.F exit_current_
// and_run_next). The kernel itself exits via sbi.Shutdown as soon as
// the init task exits, whether or not other tasks remain, matching spec.md §6's
// contract that exiting the init task halts the machine.
func ExitCurrentAndRunNext(code int) {
	t := Current()
	if t == nil {
		return
	}
	t.StopRun()
	t.Exit(code)
	currentMu.Lock()
	current = nil
	currentMu.Unlock()

	if t == initTask {
		log.Infof("init task exited with code %d, shutting down", code)
		sbi.Shutdown(code)
		return
	}
	if !RunNextTask() {
		log.Info("ready queue empty, idling")
	}
}

// SetNextTimerTrigger re-arms the preemption timer. Bare hardware would
// reprogram the mtimecmp CSR here; this hosted kernel has no real timer
// interrupt source, so the call exists purely so trap.Dispatch's
// InterruptTimer case has something to invoke (see DESIGN.md).
func SetNextTimerTrigger() {}

// Yield is the blocking-I/O hook pipe.Read/pipe.Write call while they
// wait for a peer (fs.Yield), wired here to re-enter the scheduler
// exactly as a real sys_yield would.
func Yield() {
	SuspendCurrentAndRunNext()
}

func init() {
	fs.Yield = Yield
	trap.ExitCurrentAndRunNext = ExitCurrentAndRunNext
	trap.SuspendCurrentAndRunNext = SuspendCurrentAndRunNext
	trap.SetNextTimerTrigger = SetNextTimerTrigger
}
