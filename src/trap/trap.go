package trap

import (
	"caller"
	"defs"
	"klog"
	"stats"
)

// Cause names the RISC-V trap causes this kernel handles. It is a plain
// enumeration, not the scause bit encoding: Dispatch is handed an already-decoded
// Cause rather than reading the scause CSR directly, since this kernel
// runs hosted rather than on bare silicon — see DESIGN.md for why the
// __alltraps/__restore trampoline exists only at the structural level.
type Cause int

const (
	ExceptionUserEnvCall Cause = iota
	ExceptionStoreFault
	ExceptionStorePageFault
	ExceptionLoadFault
	ExceptionLoadPageFault
	ExceptionIllegalInstruction
	InterruptTimer
)

// timerIntervalMs is the preemption quantum (spec.md §4.H: "10 ms").
const timerIntervalMs = 10

// Hooks the trap handler calls into. Set by the init functions of proc
// (the scheduler hooks) and sysc (Dispatch_syscall); kept as package variables (not direct imports of proc
// or sysc) so trap has no dependency on either — the same pattern
// fs.Yield uses to avoid a dependency cycle with sched.
var (
	Dispatch_syscall         func(id uint64, args [5]uint64) int64
	ExitCurrentAndRunNext    func(code int)
	SuspendCurrentAndRunNext func()
	SetNextTimerTrigger      func()
)

// Init installs the trap entry point. On real hardware this would
// point stvec at __alltraps; in this hosted kernel there is no stvec to
// write, so Init exists to keep the boot sequence's shape recognizable
// and to fail loudly if the hooks above were never wired.
func Init() {
	if Dispatch_syscall == nil || ExitCurrentAndRunNext == nil || SuspendCurrentAndRunNext == nil || SetNextTimerTrigger == nil {
		panic("trap: Init called before hooks were wired")
	}
}

// Dispatch is trap_handler (spec.md §4.H Handler): it decodes cause and
// stval, and either completes a syscall in place or hands control to
// the scheduler. cx is mutated in place, mirroring trap_handler's
// &mut TrapContext round trip.
func Dispatch(cx *TrapContext, cause Cause, stval uint64) {
	stats.Irqs++
	if int(cause) < len(stats.Nirqs) {
		stats.Nirqs[cause]++
	}

	switch cause {
	case ExceptionUserEnvCall:
		stats.Trap.Syscalls.Inc()
		cx.Sepc += 4
		ret := Dispatch_syscall(cx.SyscallID(), [5]uint64{cx.A0(), cx.A1(), cx.A2(), cx.A3(), cx.A4()})
		cx.SetA0(uint64(ret))

	case ExceptionStoreFault, ExceptionStorePageFault, ExceptionLoadFault, ExceptionLoadPageFault:
		stats.Trap.PageFaults.Inc()
		klog.Warnf("page fault in application, bad addr = %#x, bad instruction = %#x", stval, cx.Sepc)
		ExitCurrentAndRunNext(-int(defs.EFAULT))

	case ExceptionIllegalInstruction:
		stats.Trap.IllegalInstr.Inc()
		klog.Warnf("illegal instruction in application, sepc = %#x", cx.Sepc)
		ExitCurrentAndRunNext(-1)

	case InterruptTimer:
		stats.Trap.TimerTicks.Inc()
		SetNextTimerTrigger()
		SuspendCurrentAndRunNext()

	default:
		caller.Callerdump(2)
		panic("trap: unsupported trap cause")
	}
}
