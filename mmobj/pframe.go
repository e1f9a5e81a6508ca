package mmobj

import "weenix/mem"

// Pframe_t is a borrowable handle to one resident physical page of a
// memory object. The owning object holds the page's reference.
type Pframe_t struct {
	p_pg  mem.Pa_t
	pgn   uint
	dirty bool
}

// allocates and references a physical page for object page pgn.
func mkpframe(pgn uint, zero bool) (*Pframe_t, bool) {
	var p_pg mem.Pa_t
	var ok bool
	if zero {
		_, p_pg, ok = mem.Physmem.Refpg_new()
	} else {
		_, p_pg, ok = mem.Physmem.Refpg_new_nozero()
	}
	if !ok {
		return nil, false
	}
	mem.Physmem.Refup(p_pg)
	return &Pframe_t{p_pg: p_pg, pgn: pgn}, true
}

func (pf *Pframe_t) free() {
	mem.Physmem.Refdown(pf.p_pg)
	pf.p_pg = 0
}

// Pa returns the physical address of the frame.
func (pf *Pframe_t) Pa() mem.Pa_t {
	return pf.p_pg
}

// Pgn returns the object page index of the frame.
func (pf *Pframe_t) Pgn() uint {
	return pf.pgn
}

// Pg returns the frame's page.
func (pf *Pframe_t) Pg() *mem.Pg_t {
	return mem.Physmem.Dmap(pf.p_pg)
}

// Data returns the frame's page as bytes.
func (pf *Pframe_t) Data() []uint8 {
	bpg := mem.Pg2bytes(pf.Pg())
	return bpg[:]
}

// Mark_dirty records that the page contents were modified.
func (pf *Pframe_t) Mark_dirty() {
	pf.dirty = true
}

// Dirty reports whether the page was modified.
func (pf *Pframe_t) Dirty() bool {
	return pf.dirty
}
