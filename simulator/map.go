package simulator

import (
	"jbw/position"
	"jbw/worldmap"
)

// PatchView is one patch's contribution to a SimulationMap snapshot: its
// coordinate, live items, resident agent ids, and the scent/vision fields
// an operator tool would want to render without re-deriving them from raw
// items (spec.md §4.5's map operation).
type PatchView struct {
	Position position.Position
	Fixed    bool
	Items    []worldmap.Item
	AgentIDs []uint64

	// Scent is the sum of diffusion contributions from every item in this
	// patch's 3x3 patch neighborhood, sampled at the patch's own cells.
	Scent []float32
	// Vision is the item/agent color raster over the patch's cells, one
	// ColorDim-length pixel per cell, row-major in (x,y).
	Vision []float32
}

// SimulationMap is a read-only snapshot of every fixed patch intersecting a
// requested rectangle.
type SimulationMap struct {
	Patches []PatchView
}

// Map returns a snapshot of fixed patches intersecting [bottomLeft, topRight]
// (inclusive), each annotated with its scent and vision fields (spec.md
// §4.5). Unfixed patches straddling the window are omitted rather than
// forced to fix: Map is an inspection operation and must not have the side
// effect of growing the world.
func (s *Simulator) Map(bottomLeft, topRight position.Position) SimulationMap {
	patchSize := s.store.PatchSize()
	minPatch, _ := s.store.WorldToPatch(bottomLeft)
	maxPatch, _ := s.store.WorldToPatch(topRight)

	var views []PatchView
	for px := minPatch.X; px <= maxPatch.X; px++ {
		for py := minPatch.Y; py <= maxPatch.Y; py++ {
			pos := position.Position{X: px, Y: py}
			patch := s.store.GetIfExists(pos)
			if patch == nil {
				continue
			}
			patch.Lock()
			if !patch.Fixed() {
				patch.Unlock()
				continue
			}
			view := PatchView{
				Position: pos,
				Fixed:    true,
				Items:    append([]worldmap.Item(nil), patch.Items()...),
				AgentIDs: append([]uint64(nil), patch.AgentIDs()...),
			}
			patch.Unlock()

			view.Scent, view.Vision = s.patchFields(pos, patchSize, view.AgentIDs)
			views = append(views, view)
		}
	}
	return SimulationMap{Patches: views}
}

// patchFields computes the per-cell scent and vision rasters for the patch
// at pos, summing contributions from its own items and its 3x3 patch
// neighborhood's items (spec.md §4.5: "sum of diffusion contributions from
// all items in a 3x3 patch neighborhood").
func (s *Simulator) patchFields(pos position.Position, patchSize int64, residentIDs []uint64) (scent, vision []float32) {
	scentDim := int(s.config.ScentDim)
	colorDim := int(s.config.ColorDim)
	radius := s.diffusion.Radius()
	now := s.Time()
	lifetime := uint64(s.config.RemovedItemLifetime)

	scent = make([]float32, patchSize*patchSize*int64(scentDim))
	vision = make([]float32, patchSize*patchSize*int64(colorDim))

	var neighborItems []worldmap.Item
	for _, npos := range position.Neighbors9(pos) {
		np := s.store.GetIfExists(npos)
		if np == nil {
			continue
		}
		np.Lock()
		neighborItems = append(neighborItems, np.Items()...)
		np.Unlock()
	}

	minX := pos.X * patchSize
	minY := pos.Y * patchSize

	for cx := int64(0); cx < patchSize; cx++ {
		for cy := int64(0); cy < patchSize; cy++ {
			worldX := minX + cx
			worldY := minY + cy
			cellIdx := cx*patchSize + cy
			for _, it := range neighborItems {
				if it.Deleted() {
					continue
				}
				dx := it.LocationX - worldX
				dy := it.LocationY - worldY
				if absInt64(dx) >= radius || absInt64(dy) >= radius {
					continue
				}
				age := clampAge(now, it.CreationTime, lifetime)
				w := float32(s.diffusion.Value(age, dx, dy))
				if w == 0 {
					continue
				}
				itemScent := s.config.ItemTypes[it.TypeIndex].Scent
				base := cellIdx * int64(scentDim)
				for k := 0; k < scentDim && k < len(itemScent); k++ {
					scent[base+int64(k)] += w * itemScent[k]
				}
				if it.LocationX == worldX && it.LocationY == worldY {
					color := s.config.ItemTypes[it.TypeIndex].Color
					vbase := cellIdx * int64(colorDim)
					for c := 0; c < colorDim && c < len(color); c++ {
						vision[vbase+int64(c)] = color[c]
					}
				}
			}
		}
	}

	colorLen := colorDim
	if colorLen > len(s.config.AgentColor) {
		colorLen = len(s.config.AgentColor)
	}
	for _, id := range residentIDs {
		agent, err := s.getAgent(id)
		if err != nil {
			continue
		}
		p := agent.Position()
		if p.X < minX || p.X >= minX+patchSize || p.Y < minY || p.Y >= minY+patchSize {
			continue
		}
		cellIdx := (p.X-minX)*patchSize + (p.Y - minY)
		vbase := cellIdx * int64(colorDim)
		for c := 0; c < colorLen; c++ {
			vision[vbase+int64(c)] = s.config.AgentColor[c]
		}
	}

	return scent, vision
}
