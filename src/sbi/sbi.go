// Package sbi is the kernel's call surface onto its console and power
// management (spec.md §6, SPEC_FULL.md §4.M). On bare RISC-V this would
// be a pair of ecall wrappers (SBI function IDs 1 and 8); this kernel is
// hosted inside an ordinary Go process, so PutChar writes to the host's
// standard output and Shutdown exits the process instead of issuing a
// real supervisor call — the call surface's shape is kept so callers
// (proc's shutdown on init exit) use it unchanged. klog does not write
// through it; logrus writes to its own output.
package sbi

import "os"

// PutChar emits one byte to the console (SBI function ID 1).
func PutChar(c byte) {
	os.Stdout.Write([]byte{c})
}

// PutStr emits s to the console a byte at a time through PutChar,
// mirroring how a bare-metal caller would have no buffered-write
// primitive to fall back on.
func PutStr(s string) {
	for i := 0; i < len(s); i++ {
		PutChar(s[i])
	}
}

// Shutdown powers off the machine (SBI function ID 8). code 0 means a
// clean shutdown, matching the convention spec.md's sys_exit uses for
// the init task's final exit code.
func Shutdown(code int) {
	os.Exit(code)
}
