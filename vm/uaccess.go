package vm

import "weenix/bounds"
import "weenix/defs"
import "weenix/mem"
import "weenix/res"
import "weenix/util"

// udmap8 returns the mapped bytes of the page containing va, extending
// to the end of that page. When forwrite is set the frame is marked
// dirty before the caller touches it.
func (m *Vmmap_t) udmap8(va int, forwrite bool) ([]uint8, defs.Err_t) {
	if va < 0 || uint(va) >= USERMEMHIGH {
		return nil, -defs.EFAULT
	}
	voff := va & (mem.PGSIZE - 1)
	vfn := uint(va) >> mem.PGSHIFT
	vma, ok := m.Lookup(vfn)
	if !ok {
		return nil, -defs.EFAULT
	}
	pgn := (vfn - vma.Start) + vma.Off
	pf, err := vma.Obj.Lookuppage(pgn, forwrite)
	if err != 0 {
		return nil, err
	}
	if forwrite {
		pf.Mark_dirty()
	}
	return pf.Data()[voff:], 0
}

// Read copies len(dst) bytes out of the address space starting at byte
// address va. The caller guarantees the range is mapped; no protection
// check is made.
func (m *Vmmap_t) Read(va int, dst []uint8) defs.Err_t {
	gimme := bounds.Bounds(bounds.B_VMMAP_T_READ)
	if !res.Resadd_noblock(gimme) {
		return -defs.ENOHEAP
	}
	defer res.Resfree(gimme)
	cnt := 0
	for len(dst) != 0 {
		src, err := m.udmap8(va+cnt, false)
		if err != 0 {
			return err
		}
		did := copy(dst, src)
		dst = dst[did:]
		cnt += did
	}
	Vmstats.Nreads.Inc()
	return 0
}

// Write copies src into the address space starting at byte address va,
// dirtying every frame it touches. The caller guarantees the range is
// mapped; no protection check is made.
func (m *Vmmap_t) Write(va int, src []uint8) defs.Err_t {
	gimme := bounds.Bounds(bounds.B_VMMAP_T_WRITE)
	if !res.Resadd_noblock(gimme) {
		return -defs.ENOHEAP
	}
	defer res.Resfree(gimme)
	cnt := 0
	for len(src) != 0 {
		dst, err := m.udmap8(va+cnt, true)
		if err != 0 {
			return err
		}
		did := copy(dst, src)
		src = src[did:]
		cnt += did
	}
	Vmstats.Nwrites.Inc()
	return 0
}

// Userreadn reads an n byte little-endian value from byte address va.
func (m *Vmmap_t) Userreadn(va, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("large n")
	}
	var ret int
	var src []uint8
	var err defs.Err_t
	for i := 0; i < n; i += len(src) {
		src, err = m.udmap8(va+i, false)
		if err != 0 {
			return 0, err
		}
		l := util.Min(n-i, len(src))
		for j := 0; j < l; j++ {
			ret |= int(src[j]) << (8 * uint(i+j))
		}
	}
	return ret, 0
}

// Userwriten writes an n byte value to byte address va.
func (m *Vmmap_t) Userwriten(va, n, val int) defs.Err_t {
	if n > 8 {
		panic("large n")
	}
	var dst []uint8
	var err defs.Err_t
	for i := 0; i < n; i += len(dst) {
		v := val >> (8 * uint(i))
		dst, err = m.udmap8(va+i, true)
		if err != 0 {
			return err
		}
		l := util.Min(n-i, len(dst))
		for j := 0; j < l; j++ {
			dst[j] = uint8(v >> (8 * uint(j)))
		}
	}
	return 0
}

// Userbuf_t assists reading and writing a span of user memory,
// restartable after a partial transfer.
type Userbuf_t struct {
	userva int
	len    int
	// 0 <= off <= len
	off int
	m   *Vmmap_t
}

// Mkuserbuf initializes a Userbuf_t referencing user memory starting
// at userva.
func (m *Vmmap_t) Mkuserbuf(userva, len int) *Userbuf_t {
	ub := &Userbuf_t{}
	ub.userva = userva
	ub.len = len
	ub.off = 0
	ub.m = m
	return ub
}

// Remain returns the number of untransferred bytes left in the buffer.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

// Totalsz reports the total size of the buffer in bytes.
func (ub *Userbuf_t) Totalsz() int {
	return ub.len
}

// copies the min of either the provided buffer or ub.len. returns
// number of bytes copied and error. if an error occurs in the middle
// of a transfer, the userbuf's state is updated such that the
// operation can be restarted.
func (ub *Userbuf_t) _tx(buf []uint8, write bool) (int, defs.Err_t) {
	gimme := bounds.Bounds(bounds.B_USERBUF_T__TX)
	if !res.Resadd_noblock(gimme) {
		return 0, -defs.ENOHEAP
	}
	defer res.Resfree(gimme)
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := ub.userva + ub.off
		ubuf, err := ub.m.udmap8(va, write)
		if err != 0 {
			return ret, err
		}
		if left := ub.len - ub.off; len(ubuf) > left {
			ubuf = ubuf[:left]
		}
		var c int
		if write {
			c = copy(ubuf, buf)
		} else {
			c = copy(buf, ubuf)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, 0
}

// Uioread copies data from user memory into dst and returns the number
// of bytes read.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub._tx(dst, false)
}

// Uiowrite copies data from src into user memory and returns the
// number of bytes written.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub._tx(src, true)
}

// Fakeubuf_t implements the same interface as Userbuf_t but operates
// on a kernel buffer. It is used when the kernel needs to treat
// internal memory like user memory.
type Fakeubuf_t struct {
	fbuf []uint8
	len  int
}

// Fake_init sets up the fake buffer with the provided slice.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.fbuf = buf
	fb.len = len(fb.fbuf)
}

// Remain returns the number of bytes left in the fake buffer.
func (fb *Fakeubuf_t) Remain() int {
	return len(fb.fbuf)
}

// Totalsz returns the total length of the fake buffer.
func (fb *Fakeubuf_t) Totalsz() int {
	return fb.len
}

func (fb *Fakeubuf_t) _tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.fbuf, buf)
	} else {
		c = copy(buf, fb.fbuf)
	}
	fb.fbuf = fb.fbuf[c:]
	return c, 0
}

// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return fb._tx(dst, false)
}

// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return fb._tx(src, true)
}
