package fs

import (
	"bufio"
	"os"

	"defs"
	"fdops"
	"stat"
)

// Stdin and Stdout are the two console-backed files every task's fd
// table seeds slots 0-2 with (spec.md §4.F TaskControlBlock.new: "[stdin,
// stdout, stdout]"). Unlike Pipe and OSInode they're singletons: every
// task shares the same host console.
type stdinFile struct{ r *bufio.Reader }
type stdoutFile struct{}

var Stdin = &stdinFile{r: bufio.NewReader(os.Stdin)}
var Stdout = &stdoutFile{}

func (s *stdinFile) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]byte, dst.Remain())
	n, rerr := s.r.Read(buf)
	if n == 0 && rerr != nil {
		return 0, 0
	}
	return dst.Uiowrite(buf[:n])
}

func (s *stdinFile) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EINVAL }
func (s *stdinFile) Close() defs.Err_t                          { return 0 }
func (s *stdinFile) Reopen() defs.Err_t                         { return 0 }
func (s *stdinFile) Readable() bool                             { return true }
func (s *stdinFile) Writable() bool                             { return false }
func (s *stdinFile) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.ModeFile)
	st.Wnlink(1)
	return 0
}

func (s *stdoutFile) Read(dst fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EINVAL }
func (s *stdoutFile) Write(src fdops.Userio_i) (int, defs.Err_t) {
	total := 0
	buf := make([]byte, 512)
	for src.Remain() > 0 {
		n, err := src.Uioread(buf)
		if err != 0 {
			return total, err
		}
		if n == 0 {
			break
		}
		os.Stdout.Write(buf[:n])
		total += n
	}
	return total, 0
}
func (s *stdoutFile) Close() defs.Err_t  { return 0 }
func (s *stdoutFile) Reopen() defs.Err_t { return 0 }
func (s *stdoutFile) Readable() bool     { return false }
func (s *stdoutFile) Writable() bool     { return true }
func (s *stdoutFile) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.ModeFile)
	st.Wnlink(1)
	return 0
}
