package mmobj

import "sync/atomic"

import "weenix/bounds"
import "weenix/defs"
import "weenix/hashtable"
import "weenix/res"

// Shadow_t is a copy-on-write overlay. Reads fall through to the
// shadowed object until the shadow copies a page up on first write;
// from then on the shadow's copy wins.
type Shadow_t struct {
	id     int
	refcnt int32
	pages  *hashtable.Hashtable_t
	// next object down the chain; the shadow owns one reference
	shadowed Mmobj_i
	bottom   Mmobj_i
}

// New_shadow creates a shadow over the given object and takes over one
// reference to it. On exhaustion it returns nil and the caller still
// owns its reference.
func New_shadow(shadowed Mmobj_i) *Shadow_t {
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_SHADOW_T)) {
		return nil
	}
	s := &Shadow_t{}
	s.id = mkid()
	s.refcnt = 1
	s.pages = mkpages()
	s.shadowed = shadowed
	s.bottom = shadowed.Bottom()
	return s
}

// Id returns the object's diagnostic identity.
func (s *Shadow_t) Id() int {
	return s.id
}

// Ref takes an additional reference.
func (s *Shadow_t) Ref() {
	c := atomic.AddInt32(&s.refcnt, 1)
	// XXXPANIC
	if c <= 1 {
		panic("ref of dead object")
	}
}

// Put releases one reference. The last release frees the copied pages
// and drops the reference on the shadowed object.
func (s *Shadow_t) Put() {
	c := atomic.AddInt32(&s.refcnt, -1)
	if c < 0 {
		panic("put of dead object")
	}
	if c == 0 {
		freepages(s.pages)
		s.pages = nil
		s.shadowed.Put()
		s.shadowed = nil
		s.bottom = nil
		res.Resfree(bounds.Bounds(bounds.B_SHADOW_T))
	}
}

// Refcnt reports the current reference count.
func (s *Shadow_t) Refcnt() int {
	return int(atomic.LoadInt32(&s.refcnt))
}

// Lookuppage returns the frame for object page pgn. Reads walk down
// the chain without copying; the first write copies the page into this
// shadow.
func (s *Shadow_t) Lookuppage(pgn uint, forwrite bool) (*Pframe_t, defs.Err_t) {
	if v, ok := s.pages.Get(pgn); ok {
		return v.(*Pframe_t), 0
	}
	if !forwrite {
		return s.shadowed.Lookuppage(pgn, false)
	}
	// copy-on-write: pull the current contents from below, then own a
	// private copy
	src, err := s.shadowed.Lookuppage(pgn, false)
	if err != 0 {
		return nil, err
	}
	pf, ok := mkpframe(pgn, false)
	if !ok {
		return nil, -defs.ENOMEM
	}
	*pf.Pg() = *src.Pg()
	s.pages.Set(pgn, pf)
	return pf, 0
}

// Bottom returns the bottom object of the chain.
func (s *Shadow_t) Bottom() Mmobj_i {
	return s.bottom
}

// Addvma delegates region bookkeeping to the bottom object.
func (s *Shadow_t) Addvma(ol *Olink_t) {
	s.bottom.Addvma(ol)
}

// Rmvma delegates region bookkeeping to the bottom object.
func (s *Shadow_t) Rmvma(ol *Olink_t) {
	s.bottom.Rmvma(ol)
}

// Shadowed returns the next object down the chain.
func (s *Shadow_t) Shadowed() Mmobj_i {
	return s.shadowed
}

// Respages reports the number of pages this shadow has copied up.
func (s *Shadow_t) Respages() int {
	return s.pages.Size()
}
