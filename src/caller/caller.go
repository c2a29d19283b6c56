// Package caller provides debug helpers for dumping Go call stacks from
// inside the kernel's own goroutines, used when a trap handler wants to
// report where a kernel-internal invariant violation originated.
package caller

import (
	"fmt"
	"runtime"
)

// Callerdump prints the call stack starting at the given depth.
func Callerdump(start int) {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	fmt.Printf("%s", s)
}

// Stack returns the current call stack as a string, starting at depth
// start, without printing it. Used by klog to attach a trace to fatal
// log records.
func Stack(start int) string {
	s := ""
	for i := start; ; i++ {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		s += fmt.Sprintf("%s:%d\n", f, l)
	}
	return s
}
