// Package res accounts for kernel heap reservations. Allocation sites
// reserve their worst-case cost before allocating and give it back when
// the object is freed; when the budget is exhausted the allocation
// fails instead of blocking.
package res

import "sync/atomic"

// effectively unlimited. tests shrink this to inject allocator
// failures at specific sites.
const defaultbudget int64 = 1 << 62

var kernmem atomic.Int64

func init() {
	kernmem.Store(defaultbudget)
}

// Resadd_noblock reserves c bytes of kernel heap. It returns false
// without blocking if the reservation cannot be satisfied.
func Resadd_noblock(c int) bool {
	if c < 0 {
		panic("negative reservation")
	}
	for {
		old := kernmem.Load()
		if old < int64(c) {
			return false
		}
		if kernmem.CompareAndSwap(old, old-int64(c)) {
			return true
		}
	}
}

// Resfree returns a reservation taken with Resadd_noblock.
func Resfree(c int) {
	if c < 0 {
		panic("negative reservation")
	}
	kernmem.Add(int64(c))
}

// Setbudget replaces the remaining budget; used by tests to inject
// allocation failures deterministically.
func Setbudget(n int64) {
	kernmem.Store(n)
}

// Budget returns the remaining budget.
func Budget() int64 {
	return kernmem.Load()
}

// Resetbudget restores the default, effectively unlimited budget.
func Resetbudget() {
	kernmem.Store(defaultbudget)
}
