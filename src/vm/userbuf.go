package vm

import (
	"unsafe"

	"defs"
	"mem"
)

// UserBuffer is a scatter list of page-sized byte slices covering a
// (possibly unaligned, possibly multi-page) range of another address
// space's virtual memory. It is built once by TranslatedByteBuffer and
// then read or written page by page, the same loop shape as the
// teacher's Userbuf_t._tx, and implements fdops.Userio_i so a pipe or
// mailbox's Circbuf_t-style backing store can copy to/from it without
// knowing it crosses an address space at all.
type UserBuffer struct {
	chunks [][]byte
	off    int // consumed so far, across all Uioread/Uiowrite calls
}

// Totalsz returns the total number of bytes across every chunk.
func (ub *UserBuffer) Totalsz() int {
	n := 0
	for _, c := range ub.chunks {
		n += len(c)
	}
	return n
}

// Remain returns the number of unconsumed bytes left in the buffer.
func (ub *UserBuffer) Remain() int {
	return ub.Totalsz() - ub.off
}

// byteAt returns a pointer to the byte at the buffer's logical offset
// i, searching across chunk boundaries.
func (ub *UserBuffer) byteAt(i int) *byte {
	for _, c := range ub.chunks {
		if i < len(c) {
			return &c[i]
		}
		i -= len(c)
	}
	return nil
}

// Uioread copies bytes out of the buffer into dst starting at the
// buffer's current offset, advances past however much was copied, and
// returns the number of bytes copied.
func (ub *UserBuffer) Uioread(dst []uint8) (int, defs.Err_t) {
	n := 0
	for n < len(dst) && ub.off < ub.Totalsz() {
		dst[n] = *ub.byteAt(ub.off)
		n++
		ub.off++
	}
	return n, 0
}

// Uiowrite copies bytes from src into the buffer starting at the
// buffer's current offset, advances past however much was copied, and
// returns the number of bytes copied.
func (ub *UserBuffer) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := 0
	for n < len(src) && ub.off < ub.Totalsz() {
		*ub.byteAt(ub.off) = src[n]
		n++
		ub.off++
	}
	return n, 0
}

// pageBytes resolves vpn to its backing physical page within ms,
// translating through the page table (spec.md §4.B translate).
func pageBytes(ms *MemorySet, vpn mem.VirtPageNum) (*mem.Bytepg_t, defs.Err_t) {
	pte, ok := ms.Translate(vpn)
	if !ok {
		return nil, -defs.EFAULT
	}
	return mem.Physmem.FrameBytes(pte.ppn()), 0
}

// TranslatedByteBuffer walks ms's page table to build a scatter list
// covering the byte range [ptr, ptr+length) of ms's virtual address
// space (spec.md §4.D translated_byte_buffer). It never assumes the
// range is page-aligned or lies within a single page.
func TranslatedByteBuffer(ms *MemorySet, ptr uintptr, length int) (*UserBuffer, defs.Err_t) {
	if length < 0 {
		return nil, -defs.EINVAL
	}
	ub := &UserBuffer{}
	start := ptr
	end := ptr + uintptr(length)
	for start < end {
		vpn := vpnFloor(start)
		pageEnd := (uintptr(vpn) + 1) << mem.PageShift
		chunkEnd := pageEnd
		if end < chunkEnd {
			chunkEnd = end
		}
		pg, err := pageBytes(ms, vpn)
		if err != 0 {
			return nil, err
		}
		lo := start & (mem.PageSize - 1)
		hi := lo + (chunkEnd - start)
		ub.chunks = append(ub.chunks, pg[lo:hi])
		start = chunkEnd
	}
	return ub, 0
}

// TranslatedStr reads a NUL-terminated string starting at ptr out of
// ms's address space (spec.md §4.D translated_str), one byte at a time
// since the string's length isn't known up front.
func TranslatedStr(ms *MemorySet, ptr uintptr) (string, defs.Err_t) {
	var out []byte
	for va := ptr; ; va++ {
		pg, err := pageBytes(ms, vpnFloor(va))
		if err != 0 {
			return "", err
		}
		b := pg[va&(mem.PageSize-1)]
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	return string(out), 0
}

// TranslatedRef returns a read-only *T backed by ms's physical memory
// at ptr (spec.md §4.D translated_ref). T must not straddle a page
// boundary; the kernel only ever calls this with small fixed-layout
// structs (e.g. TimeVal) that the loader guarantees are aligned.
func TranslatedRef[T any](ms *MemorySet, ptr uintptr) (*T, defs.Err_t) {
	return translatedPtr[T](ms, ptr)
}

// TranslatedRefMut is TranslatedRef's mutable counterpart (spec.md §4.D
// translated_refmut): the returned pointer aliases the task's own
// physical page, so writes through it are visible to the task directly.
func TranslatedRefMut[T any](ms *MemorySet, ptr uintptr) (*T, defs.Err_t) {
	return translatedPtr[T](ms, ptr)
}

func translatedPtr[T any](ms *MemorySet, ptr uintptr) (*T, defs.Err_t) {
	var zero T
	size := unsafe.Sizeof(zero)
	vpn := vpnFloor(ptr)
	off := ptr & (mem.PageSize - 1)
	if off+size > mem.PageSize {
		return nil, -defs.EFAULT
	}
	pg, err := pageBytes(ms, vpn)
	if err != 0 {
		return nil, err
	}
	return (*T)(unsafe.Pointer(&pg[off])), 0
}

// WriteTranslatedByteBuffer copies data into ms's address space at ptr
// (spec.md §4.D write_translated_byte_buffer), returning the number of
// bytes actually written (fewer than len(data) only if ptr+len(data)
// runs past an unmapped page, which is reported as EFAULT).
func WriteTranslatedByteBuffer(ms *MemorySet, ptr uintptr, data []byte) (int, defs.Err_t) {
	ub, err := TranslatedByteBuffer(ms, ptr, len(data))
	if err != 0 {
		return 0, err
	}
	n, _ := ub.Uiowrite(data)
	return n, 0
}
