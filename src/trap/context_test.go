package trap

import "testing"

func TestNewAppContextSeedsEntrySpAndKernelFields(t *testing.T) {
	cx := NewAppContext(0x1000, 0x2000, 0x3000, 0x4000)
	if cx.Sepc != 0x1000 {
		t.Fatalf("Sepc = %#x, want %#x", cx.Sepc, 0x1000)
	}
	if cx.Sp() != 0x2000 {
		t.Fatalf("Sp() = %#x, want %#x", cx.Sp(), 0x2000)
	}
	if cx.KernelSatp != 0x3000 || cx.KernelSp != 0x4000 {
		t.Fatalf("kernel fields not seeded correctly: satp=%#x sp=%#x", cx.KernelSatp, cx.KernelSp)
	}
}

func TestSetSpWritesX2(t *testing.T) {
	var cx TrapContext
	cx.SetSp(0xabc)
	if cx.X[2] != 0xabc {
		t.Fatalf("expected SetSp to write X[2], got %#x", cx.X[2])
	}
}

func TestArgumentRegisterAccessors(t *testing.T) {
	var cx TrapContext
	cx.X[10], cx.X[11], cx.X[12], cx.X[13], cx.X[14], cx.X[17] = 1, 2, 3, 4, 5, 64
	if cx.A0() != 1 || cx.A1() != 2 || cx.A2() != 3 || cx.A3() != 4 || cx.A4() != 5 {
		t.Fatal("argument register accessors did not read the expected x-registers")
	}
	if cx.SyscallID() != 64 {
		t.Fatalf("SyscallID() = %d, want 64", cx.SyscallID())
	}
	cx.SetA0(99)
	if cx.X[10] != 99 {
		t.Fatal("expected SetA0 to write X[10]")
	}
}
