package fs

import "sync"

// app is one entry in the application image table, loaded at boot from
// the directory given to cmd/kernel's -apps flag (the layout the
// mkembed tool stages, SPEC_FULL.md §4.N); it is wholly separate from the OSInode name table above,
// since app images are read-only and fixed at build time.
type app struct {
	name string
	elf  []byte
}

var (
	appsMu sync.Mutex
	apps   []app
)

// RegisterApps installs the application table. Called once at boot by
// cmd/kernel after it reads the -apps directory.
func RegisterApps(images map[string][]byte) {
	appsMu.Lock()
	defer appsMu.Unlock()
	apps = apps[:0]
	for name, elf := range images {
		apps = append(apps, app{name: name, elf: elf})
	}
}

// GetAppData returns the ELF bytes for a named embedded application,
// used by exec/spawn to build a fresh MemorySet (spec.md §4.C from_elf).
func GetAppData(name string) ([]byte, bool) {
	appsMu.Lock()
	defer appsMu.Unlock()
	for _, a := range apps {
		if a.name == name {
			return a.elf, true
		}
	}
	return nil, false
}

// ListApps enumerates every embedded application's name (spec.md
// §4.J′ list_apps).
func ListApps() []string {
	appsMu.Lock()
	defer appsMu.Unlock()
	out := make([]string, len(apps))
	for i, a := range apps {
		out[i] = a.name
	}
	return out
}
