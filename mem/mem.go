// Package mem implements the physical page allocator. Pages live in a
// single anonymous arena; Pa_t addresses are byte offsets into it and
// every page carries a reference count.
package mem

import "sync"
import "sync/atomic"
import "unsafe"

// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

// Pa_t represents a physical address.
type Pa_t uintptr

// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

// Pg_t is a generic page of ints.
type Pg_t [512]int

// Pg2bytes converts a page of ints to a page of bytes.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

// Bytepg2pg converts a byte page back to a Pg_t.
func Bytepg2pg(pg *Bytepg_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(pg))
}

func _pg2pgn(p_pg Pa_t) uint32 {
	return uint32(p_pg >> PGSHIFT)
}

// Physpg_t describes a single physical page.
type Physpg_t struct {
	Refcnt int32
	// index into pgs of next page on free list
	nexti uint32
}

// Physmem_t manages all physical memory for the system.
type Physmem_t struct {
	sync.Mutex
	arena []uint8
	Pgs   []Physpg_t
	// index into pgs of first free pg
	freei    uint32
	freelen  int32
	Dmapinit bool
}

// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

// Zeropg is a global zero-filled page used for allocations.
var Zeropg *Pg_t

// Zerobpg is a byte representation of the zero page.
var Zerobpg *Bytepg_t

// P_zeropg is the physical address of Zeropg.
var P_zeropg Pa_t

const nilidx = ^uint32(0)

// Phys_init reserves npages pages of backing memory and initializes
// the free list. The first call wins; later calls return the existing
// allocator.
func Phys_init(npages int) *Physmem_t {
	phys := Physmem
	phys.Lock()
	if phys.Dmapinit {
		phys.Unlock()
		return phys
	}
	if npages < 2 {
		panic("arena too small")
	}
	phys.arena = arenaalloc(npages * PGSIZE)
	phys.Pgs = make([]Physpg_t, npages)
	for i := range phys.Pgs {
		phys.Pgs[i].Refcnt = 0
		phys.Pgs[i].nexti = uint32(i) + 1
	}
	phys.Pgs[npages-1].nexti = nilidx
	phys.freei = 0
	phys.freelen = int32(npages)
	phys.Dmapinit = true
	phys.Unlock()

	// Refpg_new uses the Zeropg to zero the page
	pg, p_pg, ok := phys._refpg_new()
	if !ok {
		panic("oom in phys init")
	}
	for i := range pg {
		pg[i] = 0
	}
	Zeropg = pg
	P_zeropg = p_pg
	phys.Pgs[_pg2pgn(p_pg)].Refcnt = 1
	Zerobpg = Pg2bytes(Zeropg)
	return phys
}

// Refaddr returns the refcount pointer and index for the given page.
func (phys *Physmem_t) Refaddr(p_pg Pa_t) (*int32, uint32) {
	idx := _pg2pgn(p_pg)
	return &phys.Pgs[idx].Refcnt, idx
}

// Refcnt returns the current reference count of a page.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	ref, _ := phys.Refaddr(p_pg)
	return int(atomic.LoadInt32(ref))
}

// Refup increments the reference count of a page.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	ref, _ := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, 1)
	// XXXPANIC
	if c <= 0 {
		panic("wut")
	}
}

// returns true if p_pg should be added to the free list and the index
// of the page in the pgs array
func (phys *Physmem_t) _refdec(p_pg Pa_t) (bool, uint32) {
	ref, idx := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, -1)
	// XXXPANIC
	if c < 0 {
		panic("wut")
	}
	return c == 0, idx
}

// Refdown decrements the reference count of a page.
// It returns true when the page is freed.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	if add, idx := phys._refdec(p_pg); add {
		phys.Lock()
		phys.Pgs[idx].nexti = phys.freei
		phys.freei = idx
		phys.freelen++
		phys.Unlock()
		return true
	}
	return false
}

func (phys *Physmem_t) _refpg_new() (*Pg_t, Pa_t, bool) {
	if !phys.Dmapinit {
		panic("phys not initted")
	}
	var p_pg Pa_t
	var ok bool
	phys.Lock()
	ff := phys.freei
	if ff != nilidx {
		p_pg = Pa_t(ff) << PGSHIFT
		phys.freei = phys.Pgs[ff].nexti
		ok = true
		if phys.Pgs[ff].Refcnt < 0 {
			panic("negative ref count")
		}
		phys.freelen--
		if phys.freelen < 0 {
			panic("no")
		}
	}
	phys.Unlock()
	if ok {
		return phys.Dmap(p_pg), p_pg, true
	}
	return nil, 0, false
}

// Refpg_new allocates a zeroed page and returns its mapping and
// address. The returned page's refcount is not incremented.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys._refpg_new()
	if !ok {
		return nil, 0, false
	}
	*pg = *Zeropg
	return pg, p_pg, true
}

// Refpg_new_nozero allocates an uninitialised page.
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys._refpg_new()
	if !ok {
		return nil, 0, false
	}
	return pg, p_pg, true
}

// Dmap converts a physical address into its page mapping.
func (phys *Physmem_t) Dmap(p Pa_t) *Pg_t {
	pa := p & PGMASK
	if int(pa) >= len(phys.arena) {
		panic("physical address out of range")
	}
	return (*Pg_t)(unsafe.Pointer(&phys.arena[pa]))
}

// Dmap8 returns a byte slice mapped to the given physical address,
// extending to the end of its page.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	pg := phys.Dmap(p)
	off := p & PGOFFSET
	bpg := Pg2bytes(pg)
	return bpg[off:]
}

// Nfree reports the number of pages on the free list.
func (phys *Physmem_t) Nfree() int {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.freelen)
}
