// Command mkembed assembles the embedded-application image set described
// by spec.md §6's `_num_app` table. The original implementation links
// raw ELF bytes directly into the kernel binary with that table
// prepended; this kernel reads its applications from a plain directory
// at boot (cmd/kernel's -apps flag) instead of compiling them in, so
// mkembed's job is the validation and staging step that would otherwise
// happen implicitly at link time: check every input is a loadable
// RISC-V ELF, sort them by name, and copy them into an output directory
// ready for -apps to point at. Adapted from the teacher's chentry.go,
// which performs the equivalent ELF-header inspection and rewrite for
// its own (x86-64) boot sequence.
package main

import (
	"bytes"
	"debug/elf"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
)

func main() {
	srcDir := flag.String("src", "", "directory of compiled RISC-V app ELF binaries")
	outDir := flag.String("out", "", "output directory to stage validated apps into")
	flag.Parse()

	if *srcDir == "" || *outDir == "" {
		log.Fatal("usage: mkembed -src <dir> -out <dir>")
	}

	entries, err := os.ReadDir(*srcDir)
	if err != nil {
		log.Fatalf("reading %s: %v", *srcDir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("creating %s: %v", *outDir, err)
	}

	for _, name := range names {
		path := filepath.Join(*srcDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("reading %s: %v", path, err)
		}
		if err := checkELF(data); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		if err := os.WriteFile(filepath.Join(*outDir, name), data, 0o644); err != nil {
			log.Fatalf("writing %s: %v", name, err)
		}
		log.Printf("staged %s (%d bytes)", name, len(data))
	}
	log.Printf("staged %d app(s) into %s", len(names), *outDir)
}

// checkELF validates that data is a loadable little-endian RISC-V
// executable, the Go-side equivalent of the teacher's chkELF.
func checkELF(data []byte) error {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if f.FileHeader.Class != elf.ELFCLASS64 {
		return errors.New("not a 64-bit elf")
	}
	if f.FileHeader.Data != elf.ELFDATA2LSB {
		return errors.New("not little-endian")
	}
	if f.FileHeader.Type != elf.ET_EXEC {
		return errors.New("not an executable elf")
	}
	if f.FileHeader.Machine != elf.EM_RISCV {
		return errors.New("not a risc-v elf")
	}
	return nil
}
