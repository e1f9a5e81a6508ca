package vm

import "fmt"

import "weenix/defs"
import "weenix/mem"

// Mapping_info renders the map into buf, one row per area, and returns
// the number of bytes written. Output is truncated, never overrun,
// when buf fills up.
func (m *Vmmap_t) Mapping_info(buf []uint8) int {
	written := 0
	put := func(s string) bool {
		n := copy(buf[written:], s)
		written += n
		return n == len(s)
	}
	hdr := fmt.Sprintf("%21s %5s %7s %8s %10s %12s\n",
		"VADDR RANGE", "PROT", "FLAGS", "MMOBJ", "OFFSET", "VFN RANGE")
	if !put(hdr) {
		return written
	}
	for vma := m.head; vma != nil; vma = vma.next {
		r, w, x := byte('-'), byte('-'), byte('-')
		if vma.Prot&defs.PROT_READ != 0 {
			r = 'r'
		}
		if vma.Prot&defs.PROT_WRITE != 0 {
			w = 'w'
		}
		if vma.Prot&defs.PROT_EXEC != 0 {
			x = 'x'
		}
		fl := "PRIVATE"
		if vma.Flags&defs.MAP_SHARED != 0 {
			fl = " SHARED"
		}
		row := fmt.Sprintf("%#.8x-%#.8x  %c%c%c  %7s %#8x %#.5x %#.5x-%#.5x\n",
			vma.Start<<mem.PGSHIFT, vma.End<<mem.PGSHIFT, r, w, x, fl,
			vma.Obj.Id(), vma.Off, vma.Start, vma.End)
		if !put(row) {
			return written
		}
	}
	return written
}

// String renders the full mapping table.
func (m *Vmmap_t) String() string {
	buf := make([]uint8, 80*(m.nvmas+2))
	return string(buf[:m.Mapping_info(buf)])
}
