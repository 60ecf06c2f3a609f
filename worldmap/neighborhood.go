package worldmap

import "jbw/position"

// Neighborhood4 returns the four patches covering the 2x2 patch
// neighborhood that contains worldPos, creating any missing patches
// (spec.md §4.3). Patches are partitioned into quadrants of side N/2; the
// four selected patches are the one containing worldPos and its three
// axis/diagonal neighbors on the side of that quadrant. The returned
// positions are sorted into a fixed canonical order (ascending X, then Y)
// so center_index is deterministic across calls; this is an implementation
// choice where spec.md leaves "row-major order" otherwise unspecified.
func (s *Store) Neighborhood4(worldPos position.Position) (patches [4]*Patch, positions [4]position.Position, centerIndex int) {
	patchPos, within := s.WorldToPatch(worldPos)
	half := s.patchSize / 2

	dx := int64(-1)
	if within.X >= half {
		dx = 1
	}
	dy := int64(-1)
	if within.Y >= half {
		dy = 1
	}

	candidates := [4]position.Position{
		patchPos,
		{X: patchPos.X + dx, Y: patchPos.Y},
		{X: patchPos.X, Y: patchPos.Y + dy},
		{X: patchPos.X + dx, Y: patchPos.Y + dy},
	}

	// Insertion-sort the four candidates into canonical order.
	for i := 1; i < 4; i++ {
		for j := i; j > 0 && candidates[j].Less(candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	for i, pos := range candidates {
		positions[i] = pos
		patches[i] = s.GetOrCreate(pos)
		if pos == patchPos {
			centerIndex = i
		}
	}
	return
}
