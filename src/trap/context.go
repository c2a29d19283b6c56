// Package trap implements the trap context, trap dispatch, and the
// __alltraps/__restore/__switch assembly contract (spec.md §4.H).
package trap

import "defs"

// TrapContext is the register-save area the trampoline reads from and
// writes to on every user/kernel boundary crossing. Its layout is
// fixed: x[0] is unused (x0 is hardwired zero), x[1]..x[31] are the
// general registers, then sstatus and sepc, followed by the four
// kernel-side fields: the three the trampoline needs to re-enter the
// kernel without yet having switched satp (spec.md §4.H entry
// sequence), and the kernel thread pointer, which nothing uses.
type TrapContext struct {
	X          [32]uint64 // general-purpose registers, x[2] is sp
	Sstatus    uint64
	Sepc       uint64
	KernelSatp uint64
	KernelSp   uint64
	TrapHandlerAddr uint64
	KernelTp   uint64 // kernel thread pointer; never read or written
}

// Sp returns/sets the saved stack pointer (x2).
func (cx *TrapContext) Sp() uint64     { return cx.X[2] }
func (cx *TrapContext) SetSp(v uint64) { cx.X[2] = v }

// A0..A4 are the syscall argument registers (x10..x14); A7 carries the
// syscall number (x17, per the RISC-V Linux-style calling convention
// spec.md §4.H/§4.I assume). Five argument registers cover the widest
// syscall in the table (linkat's five arguments).
func (cx *TrapContext) A0() uint64        { return cx.X[10] }
func (cx *TrapContext) SetA0(v uint64)    { cx.X[10] = v }
func (cx *TrapContext) A1() uint64        { return cx.X[11] }
func (cx *TrapContext) A2() uint64        { return cx.X[12] }
func (cx *TrapContext) A3() uint64        { return cx.X[13] }
func (cx *TrapContext) A4() uint64        { return cx.X[14] }
func (cx *TrapContext) SyscallID() uint64 { return cx.X[17] }

// NewAppContext builds the initial TrapContext for a task about to
// enter user mode for the first time: sp is the user stack top, sepc
// is the entry point, and the three kernel-side fields are pre-loaded
// so __restore/__alltraps can round-trip through the kernel without
// any other bookkeeping (spec.md §4.H, §4.F TaskControlBlock.new).
func NewAppContext(entry, userSp, kernelSatp, kernelSp uint64) *TrapContext {
	cx := &TrapContext{
		Sepc:            entry,
		KernelSatp:      kernelSatp,
		KernelSp:        kernelSp,
		TrapHandlerAddr: uint64(defs.TrampolineVA), // dispatched in-process, see Dispatch
	}
	cx.SetSp(userSp)
	return cx
}
