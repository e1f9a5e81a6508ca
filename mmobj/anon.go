package mmobj

import "sync/atomic"

import "weenix/bounds"
import "weenix/defs"
import "weenix/hashtable"
import "weenix/res"

// Anon_t is a memory object that zero-fills pages on first touch. It
// is the bottom of any shadow chain stacked over it and keeps the
// chain's region list.
type Anon_t struct {
	id     int
	refcnt int32
	pages  *hashtable.Hashtable_t
	vmas   vmalist_t
}

// New_anonymous creates an anonymous zero-fill object with one
// reference. It returns nil when the kernel heap is exhausted.
func New_anonymous() *Anon_t {
	if !res.Resadd_noblock(bounds.Bounds(bounds.B_ANON_T)) {
		return nil
	}
	a := &Anon_t{}
	a.id = mkid()
	a.refcnt = 1
	a.pages = mkpages()
	return a
}

func mkpages() *hashtable.Hashtable_t {
	return hashtable.MkHash(64)
}

// Id returns the object's diagnostic identity.
func (a *Anon_t) Id() int {
	return a.id
}

// Ref takes an additional reference.
func (a *Anon_t) Ref() {
	c := atomic.AddInt32(&a.refcnt, 1)
	// XXXPANIC
	if c <= 1 {
		panic("ref of dead object")
	}
}

// Put releases one reference, freeing all resident pages on the last.
func (a *Anon_t) Put() {
	c := atomic.AddInt32(&a.refcnt, -1)
	if c < 0 {
		panic("put of dead object")
	}
	if c == 0 {
		if a.vmas.len() != 0 {
			panic("freeing object with mapped regions")
		}
		freepages(a.pages)
		a.pages = nil
		res.Resfree(bounds.Bounds(bounds.B_ANON_T))
	}
}

func freepages(pages *hashtable.Hashtable_t) {
	pages.Iter(func(k interface{}, v interface{}) bool {
		v.(*Pframe_t).free()
		return false
	})
}

// Refcnt reports the current reference count.
func (a *Anon_t) Refcnt() int {
	return int(atomic.LoadInt32(&a.refcnt))
}

// Lookuppage returns the frame holding object page pgn, zero-filling
// it on first touch.
func (a *Anon_t) Lookuppage(pgn uint, forwrite bool) (*Pframe_t, defs.Err_t) {
	if v, ok := a.pages.Get(pgn); ok {
		return v.(*Pframe_t), 0
	}
	pf, ok := mkpframe(pgn, true)
	if !ok {
		return nil, -defs.ENOMEM
	}
	a.pages.Set(pgn, pf)
	return pf, 0
}

// Bottom returns the object itself; anonymous objects terminate shadow
// chains.
func (a *Anon_t) Bottom() Mmobj_i {
	return a
}

// Addvma links a region into the chain's region list.
func (a *Anon_t) Addvma(ol *Olink_t) {
	a.vmas.insert(ol)
}

// Rmvma unlinks a region from the chain's region list.
func (a *Anon_t) Rmvma(ol *Olink_t) {
	a.vmas.remove(ol)
}

// Nvmas reports how many regions map the chain rooted at this object.
func (a *Anon_t) Nvmas() int {
	return a.vmas.len()
}

// Respages reports the number of resident pages.
func (a *Anon_t) Respages() int {
	return a.pages.Size()
}
