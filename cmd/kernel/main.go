// Command kernel boots the simulated RISC-V kernel: it brings up the
// physical frame allocator, the kernel's own address space, the
// embedded application table, and the init task, then drives the
// scheduler loop. There is no real RISC-V execution engine behind this
// binary (see DESIGN.md): RunNextTask and the syscall dispatch table
// are exercised directly by the test suite and by this loop's own
// bookkeeping, not by interpreting fetched instructions.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"defs"
	"fs"
	"klog"
	"mem"
	"proc"
	"stats"
	_ "sysc" // registers itself as trap.Dispatch_syscall via init
	"trap"
)

var log = klog.For("boot")

func main() {
	appsDir := flag.String("apps", "", "directory of compiled app ELF images, sorted by name")
	initName := flag.String("init", "initproc", "name of the application to run as the init task")
	memPages := flag.Int("mempages", (defs.MemoryEnd)>>defs.PageShift, "number of physical pages to manage")
	flag.Parse()

	mem.PhysInit(0, *memPages)

	trampoline, ok := mem.Physmem.Alloc()
	if !ok {
		log.Panicf("out of memory allocating the trampoline frame")
	}

	if *appsDir != "" {
		images, err := loadApps(*appsDir)
		if err != nil {
			log.Panicf("loading apps from %s: %v", *appsDir, err)
		}
		fs.RegisterApps(images)
	}

	initElf, ok := fs.GetAppData(*initName)
	if !ok {
		log.Panicf("init application %q not found among registered apps", *initName)
	}

	if err := proc.Init(trampoline.PPN(), defs.MemoryEnd, initElf); err != 0 {
		log.Panicf("proc.Init failed: %d", err)
	}
	trap.Init()

	log.Info("kernel booted, entering scheduler loop")
	for proc.RunNextTask() {
	}
	log.Infof("ready queue empty, halting%s", stats.Stats2String(stats.Trap))
}

// loadApps reads every regular file in dir, sorted by name (spec.md §6
// app embedding's "sorted by name" contract), keyed by its base name
// with any extension stripped.
func loadApps(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	images := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := e.Name()
		images[name[:len(name)-len(filepath.Ext(name))]] = data
	}
	return images, nil
}
