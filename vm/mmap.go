package vm

import "weenix/defs"
import "weenix/mem"
import "weenix/mmobj"

// Vnode_i is the file-system surface the address space needs: the mmap
// callback returns the memory object that should back the area under
// construction (often, but not necessarily, the vnode's own page
// source).
type Vnode_i interface {
	Mmap(vma *Vmarea_t) (mmobj.Mmobj_i, defs.Err_t)
}

// Map establishes a mapping of npages pages. A zero lopage asks for a
// first-fit range in the given direction; a non-zero lopage is
// caller-chosen and any existing mapping there is clobbered. A nil
// file maps anonymous zero-fill memory; otherwise the vnode's mmap
// callback supplies the backing object. MAP_PRIVATE layers a fresh
// shadow over the backing object.
//
// The order below is load-bearing: every step that can fail runs
// before the deferred removal and the insertion, so a failure returns
// the map in its pre-call state.
func (m *Vmmap_t) Map(file Vnode_i, lopage, npages uint, prot, flags int,
	off int, dir Dir_t) (*Vmarea_t, defs.Err_t) {
	if npages == 0 {
		panic("bad npages")
	}
	if off&(mem.PGSIZE-1) != 0 || off < 0 {
		panic("offset not page aligned")
	}
	shared := flags&defs.MAP_SHARED != 0
	private := flags&defs.MAP_PRIVATE != 0
	if shared == private {
		panic("exactly one of MAP_SHARED, MAP_PRIVATE")
	}
	if lopage != 0 && lopage+npages > USERPAGES {
		panic("bad range")
	}

	vma := vmarea_alloc()
	if vma == nil {
		return nil, -defs.ENOSPC
	}

	remove := false
	if lopage == 0 {
		gap, ok := m.Find_range(npages, dir)
		if !ok {
			vmarea_free(vma)
			return nil, -defs.ENOMEM
		}
		dbg.Debugf("vmmap_map found range [%v, %v)", gap, gap+npages)
		lopage = gap
	} else if !m.Is_range_empty(lopage, npages) {
		// clobbering the range frees areas, which cannot be undone;
		// hold off until nothing can fail
		remove = true
	}

	vma.Start = lopage
	vma.End = lopage + npages
	vma.Off = uint(off) >> mem.PGSHIFT
	vma.Prot = prot
	vma.Flags = flags

	var obj mmobj.Mmobj_i
	if file == nil {
		anon := mmobj.New_anonymous()
		if anon == nil {
			vmarea_free(vma)
			return nil, -defs.ENOMEM
		}
		obj = anon
	} else {
		o, err := file.Mmap(vma)
		if err != 0 {
			vmarea_free(vma)
			return nil, err
		}
		obj = o
	}
	if private {
		// the shadow takes over the single reference to the base
		sh := mmobj.New_shadow(obj)
		if sh == nil {
			obj.Put()
			vmarea_free(vma)
			return nil, -defs.ENOMEM
		}
		obj = sh
	}
	vma.Obj = obj

	if remove {
		if err := m.Remove(lopage, npages); err != 0 {
			vma.Obj = nil
			obj.Put()
			vmarea_free(vma)
			return nil, err
		}
	}
	m.Insert(vma)
	obj.Bottom().Addvma(&vma.Olink)
	Vmstats.Nmaps.Inc()
	return vma, 0
}

// Clone builds a new address space mirroring this one, with
// copy-on-write semantics between the two: each private area's backing
// is restacked behind a pair of fresh shadows, one per side, and
// shared areas reference the same object. Failure is all-or-nothing;
// all allocation happens before this map is touched.
func (m *Vmmap_t) Clone() (*Vmmap_t, defs.Err_t) {
	nm := Mkvmmap()
	if nm == nil {
		return nil, -defs.ENOSPC
	}

	type cvma_t struct {
		src *Vmarea_t
		dst *Vmarea_t
		// shadow pair for a private area; sp for this map, sc for
		// the clone
		sp mmobj.Mmobj_i
		sc mmobj.Mmobj_i
	}
	cl := make([]cvma_t, 0, m.nvmas)
	abort := func() {
		for i := range cl {
			c := &cl[i]
			if c.sp != nil {
				c.sp.Put()
			}
			if c.sc != nil {
				c.sc.Put()
			}
			vmarea_free(c.dst)
		}
		vmmap_free(nm)
	}

	for vma := m.head; vma != nil; vma = vma.next {
		dst := vmarea_alloc()
		if dst == nil {
			abort()
			return nil, -defs.ENOSPC
		}
		dst.Start = vma.Start
		dst.End = vma.End
		dst.Off = vma.Off
		dst.Prot = vma.Prot
		dst.Flags = vma.Flags
		cl = append(cl, cvma_t{src: vma, dst: dst})
		if vma.Flags&defs.MAP_PRIVATE == 0 {
			continue
		}
		c := &cl[len(cl)-1]
		base := vma.Obj
		base.Ref()
		sp := mmobj.New_shadow(base)
		if sp == nil {
			base.Put()
			abort()
			return nil, -defs.ENOMEM
		}
		c.sp = sp
		base.Ref()
		sc := mmobj.New_shadow(base)
		if sc == nil {
			base.Put()
			abort()
			return nil, -defs.ENOMEM
		}
		c.sc = sc
	}

	// commit; nothing below can fail
	for i := range cl {
		c := &cl[i]
		if c.sp != nil {
			old := c.src.Obj
			c.src.Obj = c.sp
			c.dst.Obj = c.sc
			// the source area's chain link stays on the bottom
			// object, which is unchanged
			old.Put()
		} else {
			c.src.Obj.Ref()
			c.dst.Obj = c.src.Obj
		}
		nm.Insert(c.dst)
		c.dst.Obj.Bottom().Addvma(&c.dst.Olink)
	}
	dbg.Debugf("vmmap_clone copied %v areas", len(cl))
	Vmstats.Nclones.Inc()
	return nm, 0
}
