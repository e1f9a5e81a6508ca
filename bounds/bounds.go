// Package bounds records the worst-case kernel heap cost, in bytes, of
// each allocation site. Call sites pass these to res.Resadd_noblock
// before allocating.
package bounds

type Boundkey_t int

const (
	B_VMAREA_T Boundkey_t = iota
	B_VMMAP_T
	B_ANON_T
	B_SHADOW_T
	B_USERBUF_T__TX
	B_VMMAP_T_READ
	B_VMMAP_T_WRITE
)

// object sizes are conservative upper bounds, not sizeofs; they only
// need to be stable so tests can position a budget between two sites.
var bounds = map[Boundkey_t]int{
	B_VMAREA_T:      128,
	B_VMMAP_T:       64,
	B_ANON_T:        256,
	B_SHADOW_T:      256,
	B_USERBUF_T__TX: 32,
	B_VMMAP_T_READ:  32,
	B_VMMAP_T_WRITE: 32,
}

// Bounds returns the reservation for the given call site.
func Bounds(k Boundkey_t) int {
	n, ok := bounds[k]
	if !ok {
		panic("no bound for call site")
	}
	return n
}
