// Package vm implements the per-process virtual address-space map: an
// ordered set of non-overlapping page regions, each backed by a memory
// object, together with the mapping, unmapping, cloning and user-copy
// operations built on it.
package vm

import "go.uber.org/zap"

import "weenix/bounds"
import "weenix/defs"
import "weenix/mem"
import "weenix/mmobj"
import "weenix/res"
import "weenix/stats"

// USERMEMHIGH is one past the highest user virtual address.
const USERMEMHIGH uint = 1 << 22

// USERPAGES is the number of pages in the user virtual window; valid
// vfns are [0, USERPAGES).
const USERPAGES uint = USERMEMHIGH / uint(mem.PGSIZE)

// Dir_t selects the scan direction of a gap search.
type Dir_t int

const (
	DIR_LOHI Dir_t = iota
	DIR_HILO
)

// Vmstats counts address-space operations.
var Vmstats struct {
	Nmaps    stats.Counter_t
	Nremoves stats.Counter_t
	Nclones  stats.Counter_t
	Nreads   stats.Counter_t
	Nwrites  stats.Counter_t
}

var dbg = zap.NewNop().Sugar()

// SetLogger routes the package's debug traces to l.
func SetLogger(l *zap.Logger) {
	dbg = l.Sugar()
}

// Vmarea_t describes one contiguous range of mapped pages. [Start,
// End) are user vfns; Off is the page offset within Obj of the page at
// Start. Each linked area owns exactly one reference on Obj.
type Vmarea_t struct {
	Start uint
	End   uint
	Off   uint
	Prot  int
	Flags int
	Obj   mmobj.Mmobj_i
	// Olink threads the area onto its bottom object's region list.
	Olink mmobj.Olink_t
	vmmap *Vmmap_t
	prev  *Vmarea_t
	next  *Vmarea_t
}

// Vmmap returns the containing map, or nil while unlinked.
func (vma *Vmarea_t) Vmmap() *Vmmap_t {
	return vma.vmmap
}

// Npages returns the length of the area in pages.
func (vma *Vmarea_t) Npages() uint {
	return vma.End - vma.Start
}

func vmarea_alloc() *Vmarea_t {
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_VMAREA_T)) {
		return nil
	}
	return &Vmarea_t{}
}

func vmarea_free(vma *Vmarea_t) {
	if vma.vmmap != nil || vma.prev != nil || vma.next != nil {
		panic("freeing linked vma")
	}
	res.Resfree(bounds.Bounds(bounds.B_VMAREA_T))
}

// Vmmap_t is a process address space: the ordered sequence of areas.
type Vmmap_t struct {
	head  *Vmarea_t
	tail  *Vmarea_t
	nvmas int
}

// Mkvmmap creates an empty address space. It returns nil when the
// kernel heap is exhausted.
func Mkvmmap() *Vmmap_t {
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_VMMAP_T)) {
		return nil
	}
	return &Vmmap_t{}
}

func vmmap_free(m *Vmmap_t) {
	if m.head != nil {
		panic("freeing non-empty vmmap")
	}
	res.Resfree(bounds.Bounds(bounds.B_VMMAP_T))
}

// Nvmas returns the number of areas in the map.
func (m *Vmmap_t) Nvmas() int {
	return m.nvmas
}

// Head returns the lowest area, or nil for an empty map.
func (m *Vmmap_t) Head() *Vmarea_t {
	return m.head
}

// Next returns the next-higher area, or nil.
func (vma *Vmarea_t) Next() *Vmarea_t {
	return vma.next
}

func (m *Vmmap_t) linkbefore(vma, succ *Vmarea_t) {
	if succ == nil {
		vma.prev = m.tail
		vma.next = nil
		if m.tail != nil {
			m.tail.next = vma
		} else {
			m.head = vma
		}
		m.tail = vma
	} else {
		vma.prev = succ.prev
		vma.next = succ
		if succ.prev != nil {
			succ.prev.next = vma
		} else {
			m.head = vma
		}
		succ.prev = vma
	}
	vma.vmmap = m
	m.nvmas++
}

func (m *Vmmap_t) unlink(vma *Vmarea_t) {
	if vma.prev != nil {
		vma.prev.next = vma.next
	} else {
		m.head = vma.next
	}
	if vma.next != nil {
		vma.next.prev = vma.prev
	} else {
		m.tail = vma.prev
	}
	vma.prev, vma.next = nil, nil
	vma.vmmap = nil
	m.nvmas--
}

// Insert links vma at the unique position that keeps the map ordered.
// The area must be unlinked, non-empty, in bounds, and disjoint from
// every existing area.
func (m *Vmmap_t) Insert(vma *Vmarea_t) {
	if vma.vmmap != nil || vma.prev != nil || vma.next != nil {
		panic("vma already linked")
	}
	if vma.End <= vma.Start {
		panic("bad vma")
	}
	if vma.End > USERPAGES {
		panic("vma out of bounds")
	}
	dbg.Debugf("vmmap_insert [%v, %v)", vma.Start, vma.End)
	var succ *Vmarea_t
	for v := m.head; v != nil; v = v.next {
		if v.Start >= vma.End {
			succ = v
			break
		}
		// every area below succ starts before vma ends; it must lie
		// entirely below vma
		if v.End > vma.Start {
			panic("vma overlaps existing area")
		}
	}
	m.linkbefore(vma, succ)
}

// Lookup returns the area containing vfn, if any.
func (m *Vmmap_t) Lookup(vfn uint) (*Vmarea_t, bool) {
	if vfn >= USERPAGES {
		panic("bad vfn")
	}
	for v := m.head; v != nil; v = v.next {
		if vfn < v.Start {
			break
		}
		if vfn < v.End {
			return v, true
		}
	}
	return nil, false
}

// Is_range_empty reports whether no area overlaps [startvfn,
// startvfn+npages).
func (m *Vmmap_t) Is_range_empty(startvfn, npages uint) bool {
	endvfn := startvfn + npages
	for v := m.head; v != nil; v = v.next {
		if v.Start >= endvfn || v.End <= startvfn {
			continue
		}
		return false
	}
	return true
}

// Find_range searches first-fit for a free run of exactly npages pages
// and returns its starting vfn. DIR_LOHI returns the lowest-addressed
// fit; DIR_HILO the highest.
func (m *Vmmap_t) Find_range(npages uint, dir Dir_t) (uint, bool) {
	if npages == 0 {
		panic("bad npages")
	}
	if npages > USERPAGES {
		return 0, false
	}
	if dir == DIR_HILO {
		// hole is the exclusive upper bound of the gap below the
		// last area visited
		hole := USERPAGES
		for v := m.tail; v != nil; v = v.prev {
			if hole-v.End >= npages {
				return hole - npages, true
			}
			hole = v.Start
		}
		if hole >= npages {
			return hole - npages, true
		}
		return 0, false
	}
	last := uint(0)
	for v := m.head; v != nil; v = v.next {
		if v.Start-last >= npages {
			return last, true
		}
		last = v.End
	}
	if USERPAGES-last >= npages {
		return last, true
	}
	return 0, false
}

// Remove unmaps [lopage, lopage+npages) from every area overlapping
// it. An area is trimmed, split, or dropped depending on how the range
// covers it. Removal is progress-monotone: if the split in the
// interior-cut case cannot allocate, areas already processed stay
// removed and -ENOSPC is returned.
func (m *Vmmap_t) Remove(lopage, npages uint) defs.Err_t {
	hipage := lopage + npages
	dbg.Debugf("vmmap_remove [%v, %v)", lopage, hipage)
	var next *Vmarea_t
	for vma := m.head; vma != nil; vma = next {
		next = vma.next
		if vma.Start >= hipage {
			break
		}
		if vma.End <= lopage {
			continue
		}
		switch {
		case vma.Start < lopage && vma.End > hipage:
			// the range lies strictly inside vma: split into
			// [vma.Start, lopage) and [hipage, vma.End). the
			// allocation happens before vma is touched so failure
			// leaves it whole.
			nvma := vmarea_alloc()
			if nvma == nil {
				return -defs.ENOSPC
			}
			nvma.Start = vma.Start
			nvma.End = lopage
			nvma.Off = vma.Off
			nvma.Prot = vma.Prot
			nvma.Flags = vma.Flags
			nvma.Obj = vma.Obj
			nvma.Obj.Ref()
			nvma.Obj.Bottom().Addvma(&nvma.Olink)
			m.linkbefore(nvma, vma)
			vma.Off += hipage - vma.Start
			vma.Start = hipage
		case vma.Start < lopage:
			// the range covers vma's tail
			vma.End = lopage
		case vma.End > hipage:
			// the range covers vma's head
			vma.Off += hipage - vma.Start
			vma.Start = hipage
		default:
			// engulfed
			vma.Obj.Bottom().Rmvma(&vma.Olink)
			vma.Obj.Put()
			vma.Obj = nil
			m.unlink(vma)
			vmarea_free(vma)
		}
	}
	Vmstats.Nremoves.Inc()
	return 0
}

// Destroy releases every area's object reference, unlinks and frees
// all areas, and frees the map. The handle is invalid afterwards.
func (m *Vmmap_t) Destroy() {
	var next *Vmarea_t
	for vma := m.head; vma != nil; vma = next {
		next = vma.next
		vma.Obj.Bottom().Rmvma(&vma.Olink)
		vma.Obj.Put()
		vma.Obj = nil
		m.unlink(vma)
		vmarea_free(vma)
	}
	vmmap_free(m)
}
