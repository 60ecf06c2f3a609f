// Package gibbs implements the single-cell Gibbs sampler that lazily
// realizes the world (spec.md §4.4): when a patch is first approached, a
// staged neighborhood of patches is materialized and resampled cell-by-cell
// for a configured number of iterations, then the originally requested
// patches are frozen as "fixed" and will never be resampled again.
package gibbs

import (
	"math/rand"

	"jbw/energy"
	"jbw/position"
	"jbw/worldmap"
)

// ItemType is an alias for worldmap.ItemType (the same type, not a
// subset); it exists only to keep call sites in other packages readable.
type ItemType = worldmap.ItemType

// Fix materializes the staging set for the patches in target (target union
// their 3x3 patch neighborhoods, minus already-fixed patches), runs
// `iterations` sweeps of single-cell Gibbs updates across the whole staged
// set, and then marks every patch in target as fixed. Patches that were
// only staged because they neighbor a target patch are left unfixed.
//
// rng must be a per-simulator *rand.Rand seeded from the simulator's
// random_seed (spec.md §4.4): never the package-level global RNG, so that
// two simulators built from the same seed produce identical worlds.
func Fix(
	store *worldmap.Store,
	types []ItemType,
	target []*worldmap.Patch,
	targetPositions []position.Position,
	iterations int,
	rng *rand.Rand,
) {
	staged, stagedPos := stagingSet(store, targetPositions)
	if len(staged) == 0 {
		markFixed(target)
		return
	}

	n := store.PatchSize()
	totalCells := n * n
	for iter := 0; iter < iterations; iter++ {
		updatesThisSweep := int64(len(staged)) * totalCells
		for u := int64(0); u < updatesThisSweep; u++ {
			pIdx := rng.Intn(len(staged))
			patchPos := stagedPos[pIdx]

			cellX := patchPos.X*n + int64(rng.Intn(int(n)))
			cellY := patchPos.Y*n + int64(rng.Intn(int(n)))
			sampleCell(store, types, position.Position{X: cellX, Y: cellY}, rng)
		}
	}

	markFixed(target)
}

func markFixed(target []*worldmap.Patch) {
	for _, p := range target {
		p.Lock()
		p.MarkFixed()
		p.Unlock()
	}
}

// stagingSet computes target union neighbors9(target), minus any patch that
// is already fixed, materializing every patch it returns.
func stagingSet(store *worldmap.Store, targetPositions []position.Position) ([]*worldmap.Patch, []position.Position) {
	seen := make(map[position.Position]bool)
	var patches []*worldmap.Patch
	var positions []position.Position

	add := func(pos position.Position) {
		if seen[pos] {
			return
		}
		seen[pos] = true
		p := store.GetOrCreate(pos)
		p.Lock()
		fixed := p.Fixed()
		p.Unlock()
		if fixed {
			return
		}
		patches = append(patches, p)
		positions = append(positions, pos)
	}

	for _, t := range targetPositions {
		for _, n := range position.Neighbors9(t) {
			add(n)
		}
	}
	return patches, positions
}

// GetFixedNeighborhood realizes spec.md §4.3's operation of the same name:
// it finds the 2x2 patch neighborhood around worldPos, fixes it via Fix,
// and returns the four now-fixed patches. Calling it twice for the same
// worldPos is idempotent: the second call finds every patch already fixed,
// so Fix is not called and no sampling work is repeated (spec.md
// §8's idempotence property).
func GetFixedNeighborhood(
	store *worldmap.Store,
	types []ItemType,
	iterations int,
	worldPos position.Position,
	rng *rand.Rand,
) (patches [4]*worldmap.Patch, positions [4]position.Position, centerIndex int) {
	patches, positions, centerIndex = store.Neighborhood4(worldPos)

	var toFix []*worldmap.Patch
	var toFixPos []position.Position
	for i, p := range patches {
		p.Lock()
		fixed := p.Fixed()
		p.Unlock()
		if !fixed {
			toFix = append(toFix, p)
			toFixPos = append(toFixPos, positions[i])
		}
	}
	if len(toFix) > 0 {
		Fix(store, types, toFix, toFixPos, iterations, rng)
	}
	return
}

// sampleCell performs a single Gibbs update of the content of world cell c,
// per spec.md §4.4 steps 1-4.
func sampleCell(store *worldmap.Store, types []ItemType, c position.Position, rng *rand.Rand) {
	numTypes := len(types)
	logProbs := make([]float64, numTypes+1) // last slot is "empty"

	neighborPatches, _, _ := store.Neighborhood4(c)

	for k := 0; k < numTypes; k++ {
		lp := types[k].Intensity.Evaluate(c.X, c.Y, k)
		for _, np := range neighborPatches {
			np.Lock()
			for _, item := range np.Items() {
				if item.LocationX == c.X && item.LocationY == c.Y {
					continue // an item instance never interacts with itself
				}
				interactionFn := types[k].Interactions[item.TypeIndex]
				lp += interactionFn.Evaluate(c.X, c.Y, item.LocationX, item.LocationY, k, item.TypeIndex)
			}
			np.Unlock()
		}
		logProbs[k] = lp
	}
	logProbs[numTypes] = 0 // the "empty" alternative

	probs := energy.NormalizeExp(logProbs)
	chosen := sampleCategorical(probs, rng)

	owningPatch, _ := store.WorldToPatch(c)
	patch := store.GetOrCreate(owningPatch)
	patch.Lock()
	defer patch.Unlock()

	items := patch.Items()
	existingIdx := -1
	for i, it := range items {
		if it.LocationX == c.X && it.LocationY == c.Y {
			existingIdx = i
			break
		}
	}

	currentType := -1
	if existingIdx >= 0 {
		currentType = items[existingIdx].TypeIndex
	}
	if chosen == numTypes {
		// Chose "empty".
		if existingIdx >= 0 {
			patch.RemoveItemAt(existingIdx)
		}
		return
	}
	if chosen == currentType {
		return // no change
	}
	if existingIdx >= 0 {
		patch.RemoveItemAt(existingIdx)
	}
	patch.AppendItem(worldmap.Item{
		TypeIndex:    chosen,
		LocationX:    c.X,
		LocationY:    c.Y,
		CreationTime: 0,
		DeletionTime: 0,
	})
}

// sampleCategorical draws an index from probs, which must sum to
// (approximately) 1. Ties are resolved by the RNG's own draw order, which
// is uniform at random per spec.md §4.4.
func sampleCategorical(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if r < cum {
			return i
		}
	}
	return len(probs) - 1
}
