// Package worldmap implements the lazily materialized world: a
// position-keyed hash map of patches, each a square of world cells that is
// either still "live" (subject to Gibbs resampling) or permanently "fixed"
// (spec.md §3 "World map", §4.3 "Patch store").
package worldmap

import (
	"sync"

	"jbw/position"
)

// Store is the position-keyed map of patches. All access goes through its
// exported methods, which guard the map itself with a single mutex;
// individual patches have their own locks for field-level mutation, so the
// map lock is held only long enough to find-or-create the *Patch pointer,
// never while touching patch contents (spec.md §5, "Agent states lock"
// discipline applied to patches).
type Store struct {
	patchSize int64

	mu      sync.Mutex
	patches map[position.Position]*Patch
}

// NewStore returns an empty store whose patches are patchSize x patchSize
// world cells. patchSize must be positive and, for GetFixedNeighborhood's
// quadrant arithmetic to make sense, even.
func NewStore(patchSize int64) *Store {
	return &Store{
		patchSize: patchSize,
		patches:   make(map[position.Position]*Patch),
	}
}

// PatchSize returns the configured patch side length N.
func (s *Store) PatchSize() int64 {
	return s.patchSize
}

// WorldToPatch maps a world cell position to its owning patch coordinate
// and the cell's offset within that patch, using floored division so
// negative coordinates resolve correctly (spec.md §4.3).
func (s *Store) WorldToPatch(world position.Position) (patchPos position.Position, within position.Position) {
	px := position.FloorDiv(world.X, s.patchSize)
	py := position.FloorDiv(world.Y, s.patchSize)
	patchPos = position.Position{X: px, Y: py}
	within = position.Position{
		X: position.FloorMod(world.X, s.patchSize),
		Y: position.FloorMod(world.Y, s.patchSize),
	}
	return
}

// GetIfExists returns the patch at pos if it has already been materialized,
// without creating it.
func (s *Store) GetIfExists(pos position.Position) *Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[pos]
}

// GetOrCreate returns the patch at pos, creating an empty, unfixed one if
// absent. It is idempotent under concurrent callers: the store's lock
// serializes the check-and-create.
func (s *Store) GetOrCreate(pos position.Position) *Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.patches[pos]; ok {
		return p
	}
	p := NewPatch(pos, s.patchSize)
	s.patches[pos] = p
	return p
}

// Put installs p as the patch at its own Position, overwriting whatever was
// there. Used only by save-file loading, which constructs fully-formed
// patches directly from the wire rather than growing them through
// GetOrCreate (spec.md §6, "Save file").
func (s *Store) Put(p *Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches[p.Position] = p
}

// Len returns the number of materialized patches, mostly for tests and
// the admin server's /stats endpoint.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches)
}

// Snapshot returns every materialized patch, sorted by (x,y), for
// deterministic iteration: save-file serialization (spec.md §6) requires
// this order.
func (s *Store) Snapshot() []*Patch {
	s.mu.Lock()
	out := make([]*Patch, 0, len(s.patches))
	for _, p := range s.patches {
		out = append(out, p)
	}
	s.mu.Unlock()
	sortPatches(out)
	return out
}

// ReapDeleted sweeps every materialized patch and permanently drops items
// that were deleted (collected) at least removedItemLifetime ticks before
// now, per spec.md §4.6's removed-item lifetime. It is safe to call
// concurrently with normal patch access; each patch is locked only for the
// duration of its own sweep.
func (s *Store) ReapDeleted(now uint64, removedItemLifetime uint64) {
	for _, p := range s.Snapshot() {
		p.Lock()
		items := p.Items()
		var toReap []int
		for i, it := range items {
			if it.Deleted() && it.ShouldReap(now, removedItemLifetime) {
				toReap = append(toReap, i)
			}
		}
		for i := len(toReap) - 1; i >= 0; i-- {
			p.RemoveItemAt(toReap[i])
		}
		p.Unlock()
	}
}

func sortPatches(patches []*Patch) {
	// Simple insertion sort: patch counts per save/snapshot are small
	// relative to per-tick hot paths, and this keeps the dependency surface
	// to what the patch already exposes (Position.Less) rather than pulling
	// in sort.Slice's reflection-based comparator for a handful of callers.
	for i := 1; i < len(patches); i++ {
		for j := i; j > 0 && patches[j].Position.Less(patches[j-1].Position); j-- {
			patches[j], patches[j-1] = patches[j-1], patches[j]
		}
	}
}
