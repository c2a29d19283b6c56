// Package profile is the kernel's profiling sink (SPEC_FULL.md §4.L): a
// process-wide pprof profile that the scheduler samples into each time
// RunNextTask dispatches a task, served back out through the same File abstraction any
// other fd uses.
package profile

import (
	"bytes"
	"sync"

	"github.com/google/pprof/profile"

	"defs"
	"fdops"
	"stat"
)

var (
	mu   sync.Mutex
	prof = &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "scheduler", Unit: "tick"},
		Period:     1,
	}
)

// Sample records one scheduling event for pid, tagged with event (e.g.
// "run", "yield", "exit"), labeled the way a pprof labeled profile
// would tag a goroutine's CPU sample.
func Sample(pid int, event string) {
	mu.Lock()
	defer mu.Unlock()
	prof.Sample = append(prof.Sample, &profile.Sample{
		Value: []int64{1},
		Label: map[string][]string{
			"pid":   {itoa(pid)},
			"event": {event},
		},
	})
}

// Serialize encodes the accumulated profile in pprof wire format.
func Serialize() ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Device is the read-only file backing the profiling fd: reading it
// serializes the whole accumulated profile into the caller's buffer in
// one shot (spec.md §4.J File abstraction, SPEC_FULL.md §4.L D_PROF).
type Device struct {
	snapshot []byte
	consumed bool
}

// OpenDevice snapshots the current profile and returns a fresh read
// handle onto it; each open gets its own snapshot, so concurrent
// readers never interleave partial writes.
func OpenDevice() (*Device, error) {
	data, err := Serialize()
	if err != nil {
		return nil, err
	}
	return &Device{snapshot: data}, nil
}

func (d *Device) Readable() bool { return true }
func (d *Device) Writable() bool { return false }

func (d *Device) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if d.consumed {
		return 0, 0
	}
	n, err := dst.Uiowrite(d.snapshot)
	if err != 0 {
		return 0, err
	}
	d.consumed = true
	return n, 0
}

func (d *Device) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EINVAL }
func (d *Device) Close() defs.Err_t                          { return 0 }
func (d *Device) Reopen() defs.Err_t                         { return 0 }
func (d *Device) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.ModeFile)
	return 0
}
