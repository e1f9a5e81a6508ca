package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenix/defs"
	"weenix/mem"
)

func TestReadWriteRoundtrip(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 4)

	va := 10*mem.PGSIZE + 100
	msg := []uint8("the quick brown fox")
	require.Equal(t, defs.Err_t(0), m.Write(va, msg))

	got := make([]uint8, len(msg))
	require.Equal(t, defs.Err_t(0), m.Read(va, got))
	assert.Equal(t, msg, got)
}

func TestReadZeroFill(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 2)

	got := make([]uint8, 2*mem.PGSIZE)
	require.Equal(t, defs.Err_t(0), m.Read(10*mem.PGSIZE, got))
	assert.Equal(t, make([]uint8, 2*mem.PGSIZE), got)
}

func TestReadWriteCrossesAreas(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 2)
	mapanon(t, m, 12, 2)

	// a span straddling the boundary between two areas
	va := 11*mem.PGSIZE + mem.PGSIZE/2
	buf := bytes.Repeat([]uint8{0xa5}, 2*mem.PGSIZE)
	require.Equal(t, defs.Err_t(0), m.Write(va, buf))

	got := make([]uint8, len(buf))
	require.Equal(t, defs.Err_t(0), m.Read(va, got))
	assert.Equal(t, buf, got)
}

func TestReadWriteOffsetArithmetic(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 20, 4)

	va := 22 * mem.PGSIZE
	require.Equal(t, defs.Err_t(0), m.Write(va, []uint8("stays put")))

	// trimming the head moves Start and Off in lockstep, so the same
	// virtual address still reaches the same object page
	require.Equal(t, defs.Err_t(0), m.Remove(20, 2))
	vma, ok := m.Lookup(22)
	require.True(t, ok)
	require.Equal(t, uint(2), vma.Off)

	got := make([]uint8, 9)
	require.Equal(t, defs.Err_t(0), m.Read(va, got))
	assert.Equal(t, "stays put", string(got))
}

func TestReadUnmappedFaults(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 1)

	buf := make([]uint8, 2*mem.PGSIZE)
	assert.Equal(t, -defs.EFAULT, m.Read(10*mem.PGSIZE, buf))
	assert.Equal(t, -defs.EFAULT, m.Write(9*mem.PGSIZE, buf[:1]))
}

func TestWriteDirtiesFrames(t *testing.T) {
	m := mkmap(t)
	vma := mapanon(t, m, 10, 2)

	require.Equal(t, defs.Err_t(0), m.Write(10*mem.PGSIZE, []uint8{1}))
	pf, err := vma.Obj.Lookuppage(0, false)
	require.Equal(t, defs.Err_t(0), err)
	assert.True(t, pf.Dirty())

	// reads must not dirty
	got := make([]uint8, 1)
	require.Equal(t, defs.Err_t(0), m.Read(11*mem.PGSIZE, got))
	pf, err = vma.Obj.Lookuppage(1, false)
	require.Equal(t, defs.Err_t(0), err)
	assert.False(t, pf.Dirty())
}

func TestUserreadnUserwriten(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 2)

	va := 10*mem.PGSIZE + 8
	require.Equal(t, defs.Err_t(0), m.Userwriten(va, 8, 0x1122334455667788))
	v, err := m.Userreadn(va, 8)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 0x1122334455667788, v)

	require.Equal(t, defs.Err_t(0), m.Userwriten(va, 2, 0xbeef))
	v, err = m.Userreadn(va, 2)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 0xbeef, v)
}

func TestUserbuf(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 10, 2)

	msg := bytes.Repeat([]uint8{7}, mem.PGSIZE+17)
	ub := m.Mkuserbuf(10*mem.PGSIZE, len(msg))
	require.Equal(t, len(msg), ub.Totalsz())

	did, err := ub.Uiowrite(msg)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, len(msg), did)
	assert.Equal(t, 0, ub.Remain())

	// the buffer transfers at most its configured span
	ub = m.Mkuserbuf(10*mem.PGSIZE, 8)
	did, err = ub.Uiowrite(msg)
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 8, did)

	// partial reads restart where they left off
	ub = m.Mkuserbuf(10*mem.PGSIZE, len(msg))
	half := make([]uint8, len(msg)/2)
	did, err = ub.Uioread(half)
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, len(half), did)
	rest := make([]uint8, len(msg)-len(half))
	did, err = ub.Uioread(rest)
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, len(rest), did)
	assert.Equal(t, msg, append(half, rest...))
}

func TestFakeubuf(t *testing.T) {
	var fb Fakeubuf_t
	fb.Fake_init(make([]uint8, 16))
	require.Equal(t, 16, fb.Totalsz())

	did, err := fb.Uiowrite([]uint8("0123456789"))
	require.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, 10, did)
	assert.Equal(t, 6, fb.Remain())
}
