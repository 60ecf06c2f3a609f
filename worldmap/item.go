package worldmap

import "jbw/energy"

// ItemType is the static, per-type data shared by every instance of an item
// type: its appearance, its blocking behavior, and the kernels that govern
// how the Gibbs sampler places it (spec.md §3).
type ItemType struct {
	Name           string
	Scent          []float32 // length S
	Color          []float32 // length C
	BlocksMovement bool

	// RequiredCounts[t] is the minimum collected[t] an agent needs before
	// it may collect this type. RequiredCosts[t] is how much collected[t]
	// is spent (saturating at 0) on collection. Both length numTypes.
	RequiredCounts []uint32
	RequiredCosts  []uint32

	Intensity    energy.IntensityFn
	Interactions []energy.InteractionFn // one per other item type, indexed by type
}

// Item is a single instance of an ItemType placed in the world.
type Item struct {
	TypeIndex    int
	LocationX    int64
	LocationY    int64
	CreationTime uint64 // 0 means "existed since the beginning"
	DeletionTime uint64 // 0 means "not deleted"
}

// Deleted reports whether the item has been collected (but not necessarily
// reaped yet).
func (it *Item) Deleted() bool {
	return it.DeletionTime != 0
}

// ShouldReap reports whether the item has outlived removedItemLifetime
// ticks past its deletion and should be dropped from its patch (spec.md §3
// Lifecycle, §4.6 step 3).
func (it *Item) ShouldReap(now uint64, removedItemLifetime uint64) bool {
	return it.Deleted() && now >= it.DeletionTime+removedItemLifetime
}
