package simulator

import (
	"math/rand"

	"jbw/gibbs"
	"jbw/position"
	"jbw/worldmap"
)

// refreshPerception recomputes agent's scent and vision fields from the
// fixed 2x2 patch neighborhood around its current position (spec.md §4.6):
// zero both fields, fix the neighborhood, then for every live item in range
// accumulate its scent contribution (decayed/diffused by age and offset)
// and, if within the vision window, draw its color into the agent's
// rotated-into-its-own-facing vision raster. Deleted items contribute a
// decaying negative scent and are reaped from their patch once they have
// aged past removed_item_lifetime. rng is the simulator's RNG, which the
// caller already holds through withRNG; the neighborhood is fixed with it
// directly rather than through fixedNeighborhoodAround, which would take
// rngMu a second time.
func (s *Simulator) refreshPerception(agent *Agent, rng *rand.Rand) {
	agent.mu.Lock()
	at := agent.position
	facing := agent.facing
	agent.mu.Unlock()

	neighborhood, _, _ := gibbs.GetFixedNeighborhood(s.store, s.config.ItemTypes, int(s.config.McmcIterations), at, rng)
	radius := s.diffusion.Radius()
	visionRange := int64(s.config.VisionRange)
	width := s.config.VisionWidth()
	colorDim := int(s.config.ColorDim)
	scentDim := int(s.config.ScentDim)
	lifetime := uint64(s.config.RemovedItemLifetime)

	now := s.Time()

	newScent := make([]float32, scentDim)
	newVision := make([]float32, len(agent.vision))

	// rel rotates a world-relative offset into the agent's own "facing up"
	// raster frame. Rotate itself maps that canonical frame onto the world
	// given an actual facing, so here we need its inverse.
	inverseFacing := facing.Inverse()

	drawColor := func(dx, dy int64, color []float32) {
		rel := position.Rotate(position.Position{X: dx, Y: dy}, inverseFacing)
		if rel.X < -visionRange || rel.X > visionRange || rel.Y < -visionRange || rel.Y > visionRange {
			return
		}
		vx := int(rel.X + visionRange)
		vy := int(rel.Y + visionRange)
		base := (vx*width + vy) * colorDim
		for c := 0; c < colorDim && c < len(color); c++ {
			newVision[base+c] = color[c]
		}
	}

	for _, patch := range neighborhood {
		patch.Lock()
		items := patch.Items()
		var toReap []int
		for i := range items {
			it := &items[i]
			if it.Deleted() && it.ShouldReap(now, lifetime) {
				toReap = append(toReap, i)
				continue
			}

			dx := it.LocationX - at.X
			dy := it.LocationY - at.Y
			if absInt64(dx) < radius && absInt64(dy) < radius {
				age := clampAge(now, it.CreationTime, lifetime)
				w := float32(s.diffusion.Value(age, dx, dy))
				if w != 0 {
					itemScent := s.config.ItemTypes[it.TypeIndex].Scent
					for k := 0; k < scentDim && k < len(itemScent); k++ {
						newScent[k] += w * itemScent[k]
					}
				}
				if it.Deleted() {
					// A deleted item's trail decays out smoothly rather than
					// vanishing the instant it's collected: subtract the same
					// kernel evaluated at its own age since deletion.
					age := clampAge(now, it.DeletionTime, lifetime)
					w := float32(s.diffusion.Value(age, dx, dy))
					if w != 0 {
						itemScent := s.config.ItemTypes[it.TypeIndex].Scent
						for k := 0; k < scentDim && k < len(itemScent); k++ {
							newScent[k] -= w * itemScent[k]
						}
					}
				}
			}

			if !it.Deleted() {
				drawColor(dx, dy, s.config.ItemTypes[it.TypeIndex].Color)
			}
		}

		for i := len(toReap) - 1; i >= 0; i-- {
			patch.RemoveItemAt(toReap[i])
		}

		s.drawAgentsInPatch(patch, agent, at, drawColor)
		patch.Unlock()
	}

	agent.mu.Lock()
	copy(agent.scent, newScent)
	copy(agent.vision, newVision)
	agent.mu.Unlock()
}

// drawAgentsInPatch draws every other live agent resident in patch into the
// viewer's vision raster via drawColor. Caller must hold patch's lock.
func (s *Simulator) drawAgentsInPatch(patch *worldmap.Patch, viewer *Agent, at position.Position, drawColor func(dx, dy int64, color []float32)) {
	for _, otherID := range patch.AgentIDs() {
		if otherID == viewer.ID() {
			continue
		}
		other, err := s.getAgent(otherID)
		if err != nil {
			continue
		}
		otherPos := other.Position()
		drawColor(otherPos.X-at.X, otherPos.Y-at.Y, s.config.AgentColor)
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// clampAge computes time-since, clamped to [0, lifetime-1] so that items
// older than the diffusion table's horizon still read the table's oldest
// (smallest nonzero) bucket instead of falling off the edge to zero.
func clampAge(now, since, lifetime uint64) uint64 {
	var age uint64
	if now > since {
		age = now - since
	}
	if lifetime > 0 && age > lifetime-1 {
		age = lifetime - 1
	}
	return age
}
