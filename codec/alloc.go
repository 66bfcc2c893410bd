package codec

import (
	"sync"

	"github.com/wippyai/canon"
)

// Allocation is one guest-memory region obtained while lowering.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records the guest allocations made while lowering a call's
// values, so the dispatcher can free them when the call completes or faults.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

// NewAllocationList returns a pooled, empty list.
func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns the list to the pool. The list is invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat.
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

// FreeAndRelease frees every recorded region and returns the list to the pool.
func (al *AllocationList) FreeAndRelease(allocator canon.Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

func (al *AllocationList) Free(allocator canon.Allocator) {
	if allocator == nil {
		return
	}
	for _, a := range al.allocations {
		if a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
