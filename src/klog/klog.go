// Package klog is the kernel's structured logger (spec.md §9 supplement,
// SPEC_FULL.md §4.K): every subsystem logs through a child of one
// process-wide logrus.Logger instead of ad hoc prints, tagged with a
// subsys field so boot, scheduling, trap, and syscall-failure messages
// can be told apart.
package klog

import (
	"sync"

	"github.com/sirupsen/logrus"

	"caller"
)

var (
	mu   sync.Mutex
	root = newRoot()
)

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel adjusts the process-wide verbosity, e.g. DebugLevel during
// kernel development.
func SetLevel(level logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(level)
}

// For returns a child logger tagged with the given subsystem name, e.g.
// For("sched") or For("trap"). Subsystems cache their own *Entry rather
// than calling For on every log line.
func For(subsys string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return root.WithField("subsys", subsys)
}

// ForPid is For, with a pid field attached too — used by proc and the
// syscall layer where messages are naturally per-task.
func ForPid(subsys string, pid int) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return root.WithFields(logrus.Fields{"subsys": subsys, "pid": pid})
}

// Infof/Warnf/Debugf/Panicf log against the bare root logger (no
// subsys field) for call sites, like trap.Dispatch, that don't yet have
// a natural per-task or per-package child logger plumbed through.
func Infof(format string, args ...interface{}) {
	mu.Lock()
	l := root
	mu.Unlock()
	l.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	mu.Lock()
	l := root
	mu.Unlock()
	l.Warnf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	mu.Lock()
	l := root
	mu.Unlock()
	l.Debugf(format, args...)
}

// Panicf logs at Panic level then panics, the kernel-internal-invariant
// path SPEC_FULL.md §4.K calls for: fatal bugs bring the whole kernel
// down rather than just the offending task.
func Panicf(format string, args ...interface{}) {
	mu.Lock()
	l := root
	mu.Unlock()
	l.WithField("stack", caller.Stack(2)).Errorf(format, args...)
	l.Panicf(format, args...)
}
