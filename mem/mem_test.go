package mem

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Phys_init(1024)
	os.Exit(m.Run())
}

func TestRefpgNewZeroed(t *testing.T) {
	pg, p_pg, ok := Physmem.Refpg_new()
	require.True(t, ok)
	Physmem.Refup(p_pg)
	defer Physmem.Refdown(p_pg)

	for _, w := range pg {
		require.Equal(t, 0, w)
	}
	assert.Equal(t, pg, Physmem.Dmap(p_pg))
}

func TestRefcounting(t *testing.T) {
	free := Physmem.Nfree()
	_, p_pg, ok := Physmem.Refpg_new()
	require.True(t, ok)
	Physmem.Refup(p_pg)
	require.Equal(t, free-1, Physmem.Nfree())
	require.Equal(t, 1, Physmem.Refcnt(p_pg))

	Physmem.Refup(p_pg)
	require.Equal(t, 2, Physmem.Refcnt(p_pg))

	assert.False(t, Physmem.Refdown(p_pg))
	assert.True(t, Physmem.Refdown(p_pg))
	assert.Equal(t, free, Physmem.Nfree())
}

func TestDmap8(t *testing.T) {
	_, p_pg, ok := Physmem.Refpg_new()
	require.True(t, ok)
	Physmem.Refup(p_pg)
	defer Physmem.Refdown(p_pg)

	b := Physmem.Dmap8(p_pg + 100)
	require.Equal(t, PGSIZE-100, len(b))
	b[0] = 0xab
	full := Pg2bytes(Physmem.Dmap(p_pg))
	assert.Equal(t, uint8(0xab), full[100])
}

func TestZeropgPinned(t *testing.T) {
	require.NotNil(t, Zeropg)
	require.Equal(t, 1, Physmem.Refcnt(P_zeropg))
	for _, w := range Zeropg {
		require.Equal(t, 0, w)
	}
}

func TestExhaustion(t *testing.T) {
	var held []Pa_t
	for {
		_, p_pg, ok := Physmem.Refpg_new()
		if !ok {
			break
		}
		Physmem.Refup(p_pg)
		held = append(held, p_pg)
	}
	require.NotEmpty(t, held)
	_, _, ok := Physmem.Refpg_new_nozero()
	assert.False(t, ok)

	for _, p_pg := range held {
		Physmem.Refdown(p_pg)
	}
	_, p_pg, ok := Physmem.Refpg_new()
	assert.True(t, ok)
	Physmem.Refup(p_pg)
	Physmem.Refdown(p_pg)
}
