//go:build linux

package mem

import "golang.org/x/sys/unix"

// the arena comes straight from the host kernel so pages are
// page-aligned and zero-filled.
func arenaalloc(sz int) []uint8 {
	buf, err := unix.Mmap(-1, 0, sz, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		panic("oom reserving arena")
	}
	return buf
}
