package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenix/defs"
)

func TestMappingInfo(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 16, 16)
	_, err := m.Map(nil, 64, 8, defs.PROT_READ|defs.PROT_EXEC,
		defs.MAP_PRIVATE|defs.MAP_ANON, 0, DIR_LOHI)
	require.Equal(t, defs.Err_t(0), err)

	s := m.String()
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	require.Len(t, lines, 3)

	for _, col := range []string{"VADDR RANGE", "PROT", "FLAGS", "MMOBJ",
		"OFFSET", "VFN RANGE"} {
		assert.Contains(t, lines[0], col)
	}
	assert.Contains(t, lines[1], "rw-")
	assert.Contains(t, lines[1], " SHARED")
	assert.Contains(t, lines[1], "0x00010000-0x00020000")
	assert.Contains(t, lines[1], "0x00010-0x00020")
	assert.Contains(t, lines[2], "r-x")
	assert.Contains(t, lines[2], "PRIVATE")
	assert.Contains(t, lines[2], "0x00040-0x00048")
}

func TestMappingInfoTruncates(t *testing.T) {
	m := mkmap(t)
	mapanon(t, m, 16, 16)

	full := make([]uint8, 4096)
	n := m.Mapping_info(full)
	require.Greater(t, n, 0)

	for _, sz := range []int{0, 1, 10, n - 1} {
		buf := make([]uint8, sz)
		got := m.Mapping_info(buf)
		assert.LessOrEqual(t, got, sz)
		assert.Equal(t, full[:got], buf[:got])
	}

	exact := make([]uint8, n)
	assert.Equal(t, n, m.Mapping_info(exact))
}
