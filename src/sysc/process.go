package sysc

import (
	"time"

	"defs"
	"fs"
	"proc"
	"vm"
)

// readArgv walks the NUL-pointer-terminated array of string pointers at
// argvPtr in ms, translating each element (spec.md §4.F exec: "argv
// table, then NUL-terminated strings").
func readArgv(ms *vm.MemorySet, argvPtr uintptr) ([]string, defs.Err_t) {
	if argvPtr == 0 {
		return nil, 0
	}
	var out []string
	for i := 0; ; i++ {
		p, err := vm.TranslatedRef[uint64](ms, argvPtr+uintptr(i)*8)
		if err != 0 {
			return nil, err
		}
		if *p == 0 {
			break
		}
		s, err := vm.TranslatedStr(ms, uintptr(*p))
		if err != 0 {
			return nil, err
		}
		out = append(out, s)
	}
	return out, 0
}

func sysExit(code int) int64 {
	proc.ExitCurrentAndRunNext(code)
	return 0 // unreachable once a next task is running; kept for signature symmetry
}

func sysYield() int64 {
	proc.SuspendCurrentAndRunNext()
	return 0
}

func sysGetpid() int64 {
	return int64(current().Getpid())
}

func sysFork() int64 {
	parent := current()
	child, err := parent.Fork()
	if err != 0 {
		return -1
	}
	proc.AddTask(child)
	return int64(child.Getpid())
}

func sysExec(pathPtr, argvPtr uintptr) int64 {
	t := current()
	ms := t.AddrSpace()
	name, err := vm.TranslatedStr(ms, pathPtr)
	if err != 0 {
		return -1
	}
	argv, err := readArgv(ms, argvPtr)
	if err != 0 {
		return -1
	}
	elf, ok := fs.GetAppData(name)
	if !ok {
		return -1
	}
	if err := t.Exec(elf, argv); err != 0 {
		return -1
	}
	return int64(len(argv))
}

func sysSpawn(pathPtr, argvPtr uintptr) int64 {
	parent := current()
	ms := parent.AddrSpace()
	name, err := vm.TranslatedStr(ms, pathPtr)
	if err != 0 {
		return -1
	}
	argv, err := readArgv(ms, argvPtr)
	if err != 0 {
		return -1
	}
	elf, ok := fs.GetAppData(name)
	if !ok {
		return -1
	}
	child, err := parent.Spawn(elf, argv)
	if err != 0 {
		return -1
	}
	proc.AddTask(child)
	return int64(child.Getpid())
}

func sysWaitpid(target int, exitCodePtr uintptr) int64 {
	t := current()
	pid, code, _ := t.Waitpid(target)
	if pid < 0 {
		return int64(pid)
	}
	if exitCodePtr != 0 {
		ref, err := vm.TranslatedRefMut[int32](t.AddrSpace(), exitCodePtr)
		if err != 0 {
			return -1
		}
		*ref = int32(code)
	}
	return int64(pid)
}

func sysSetPriority(p int) int64 {
	if p <= 1 {
		return -1
	}
	current().SetPriority(p)
	return int64(p)
}

func sysGetTime(tsPtr uintptr) int64 {
	t := current()
	ref, err := vm.TranslatedRefMut[defs.TimeVal](t.AddrSpace(), tsPtr)
	if err != 0 {
		return -1
	}
	now := time.Now()
	ref.Sec = uint64(now.Unix())
	ref.Usec = uint64(now.Nanosecond() / 1000)
	return 0
}

func sysMmap(start, length uintptr, port int) int64 {
	return current().Mmap(start, length, port)
}

func sysMunmap(start, length uintptr) int64 {
	return current().Munmap(start, length)
}
