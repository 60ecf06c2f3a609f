package simulator

import (
	"math/rand"
	"sync/atomic"

	"jbw/position"
	"jbw/worldmap"
)

// beginAction resolves id, checks it is eligible to act this tick, and
// returns it with its lock held on success; callers must unlock it (on every
// return path, including validation failures) before calling commitAction.
func (s *Simulator) beginAction(id uint64) (*Agent, error) {
	agent, err := s.getAgent(id)
	if err != nil {
		return nil, err
	}
	agent.mu.Lock()
	if !agent.active || agent.actedThisTick {
		agent.mu.Unlock()
		return nil, newErr(AgentAlreadyActed, "agent is inactive or has already acted this tick")
	}
	return agent, nil
}

// Move validates and registers a move request (spec.md §4.5). steps beyond
// max_steps_per_move, or a disallowed direction, fail with
// ViolatedPermissions. An Ignored direction is accepted as a no-op move
// that still consumes the agent's turn.
func (s *Simulator) Move(id uint64, dir position.Direction, steps uint32) error {
	agent, err := s.beginAction(id)
	if err != nil {
		return err
	}

	if !dir.Valid() {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "invalid direction")
	}
	if steps > s.config.MaxStepsPerMove {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "steps exceeds max_steps_per_move")
	}
	status := s.config.AllowedMoves[dir]
	if status == Disallowed {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "move direction is disallowed")
	}

	// dir.Delta() is already world-absolute (spec.md §8's collision scenarios
	// pin "Down" to world -Y regardless of the mover's facing): unlike vision,
	// which rotates a world offset into the agent's own frame, a move request
	// is never reoriented by facing.
	requested := agent.position
	if status == Allowed {
		requested = agent.position.Add(position.Scale(dir.Delta(), steps))
	}
	agent.requestedPosition = requested
	agent.requestedDirection = agent.facing
	agent.actedThisTick = true
	requestedPos := agent.requestedPosition
	agent.mu.Unlock()

	s.commitAction(id, requestedPos)
	return nil
}

// Turn validates and registers a turn request: the agent's position does
// not change, only its requested facing.
func (s *Simulator) Turn(id uint64, turn position.TurnDirection) error {
	agent, err := s.beginAction(id)
	if err != nil {
		return err
	}

	if !turn.Valid() {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "invalid turn direction")
	}
	status := s.config.AllowedTurns[turn]
	if status == Disallowed {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "turn is disallowed")
	}

	agent.requestedPosition = agent.position
	if status == Allowed {
		agent.requestedDirection = position.Compose(agent.facing, turn)
	} else {
		agent.requestedDirection = agent.facing
	}
	agent.actedThisTick = true
	requestedPos := agent.requestedPosition
	agent.mu.Unlock()

	s.commitAction(id, requestedPos)
	return nil
}

// NoOp registers a no-op action, succeeding only if the config allows it.
func (s *Simulator) NoOp(id uint64) error {
	agent, err := s.beginAction(id)
	if err != nil {
		return err
	}

	if !s.config.NoOpAllowed {
		agent.mu.Unlock()
		return newErr(ViolatedPermissions, "no_op is not allowed by config")
	}

	agent.requestedPosition = agent.position
	agent.requestedDirection = agent.facing
	agent.actedThisTick = true
	requestedPos := agent.requestedPosition
	agent.mu.Unlock()

	s.commitAction(id, requestedPos)
	return nil
}

// commitAction registers id's requested move, increments the barrier
// counter, and closes the barrier if that was the last active agent. Caller
// must not hold id's agent lock: closing the barrier runs the whole step
// procedure synchronously, which needs to acquire every acted agent's lock
// in turn, including id's own.
func (s *Simulator) commitAction(id uint64, requestedPos position.Position) {
	seq := atomic.AddInt64(&s.actionSeq, 1)

	s.requestedMu.Lock()
	s.requestedMoves[requestedPos] = append(s.requestedMoves[requestedPos], id)
	s.requestSeq[id] = seq
	s.requestedMu.Unlock()

	s.agentsMu.Lock()
	s.acted++
	s.agentsMu.Unlock()

	s.maybeCloseBarrier()
}

// maybeCloseBarrier checks whether every active agent has acted and, if so,
// runs the step procedure. The check-and-reset happens under agentsMu, but
// the step body itself runs without holding it, since step takes finer
// grained locks (per-agent, per-patch) as it goes (spec.md §5: "the step
// procedure ... may hold the requested-moves lock briefly and takes
// per-patch locks only pairwise").
func (s *Simulator) maybeCloseBarrier() {
	s.agentsMu.Lock()
	if s.activeCount == 0 || s.acted < s.activeCount {
		s.agentsMu.Unlock()
		return
	}
	s.acted = 0
	ids := make([]uint64, 0, len(s.agents))
	for i, a := range s.agents {
		if a != nil && a.IsActive() {
			ids = append(ids, uint64(i))
		}
	}
	s.agentsMu.Unlock()

	s.runStep(ids)
}

type pendingMove struct {
	id   uint64
	old  position.Position
	want position.Position
	dir  position.Direction
	seq  int64
}

// runStep executes one full tick: collision resolution, the time advance,
// applying winning moves, item collection, clearing requested moves,
// perception refresh, and the step callback (spec.md §4.5).
func (s *Simulator) runStep(actedIDs []uint64) {
	s.requestedMu.Lock()
	moves := s.collectPendingLocked(actedIDs)
	s.requestedMoves = make(map[position.Position][]uint64)
	s.requestSeq = make(map[uint64]int64)
	s.requestedMu.Unlock()

	final := s.resolveCollisions(moves)

	s.agentsMu.Lock()
	s.time++
	newTime := s.time
	s.agentsMu.Unlock()

	for _, mv := range moves {
		agent, err := s.getAgent(mv.id)
		if err != nil {
			continue
		}
		won := final[mv.id] == mv.want

		agent.mu.Lock()
		oldPos := agent.position
		if won {
			agent.position = final[mv.id]
			agent.facing = mv.dir
		}
		newPos := agent.position
		agent.mu.Unlock()

		if newPos != oldPos {
			s.moveResidency(agent.ID(), oldPos, newPos)
		}

		s.collectAt(agent, newPos, newTime)
	}

	for _, id := range actedIDs {
		if agent, err := s.getAgent(id); err == nil {
			agent.mu.Lock()
			agent.actedThisTick = false
			agent.mu.Unlock()
			s.refreshPerceptionFor(agent)
		}
	}

	s.agentsMu.RLock()
	cb := s.stepCallback
	s.agentsMu.RUnlock()
	if cb != nil {
		cb(newTime, actedIDs)
	}
	s.TickGauge.Store(1)
}

// collectPendingLocked builds the pendingMove list for the acted agents
// from the request maps. Caller must hold requestedMu.
func (s *Simulator) collectPendingLocked(actedIDs []uint64) []pendingMove {
	moves := make([]pendingMove, 0, len(actedIDs))
	for _, id := range actedIDs {
		agent, err := s.getAgent(id)
		if err != nil {
			continue
		}
		agent.mu.Lock()
		mv := pendingMove{
			id:   id,
			old:  agent.position,
			want: agent.requestedPosition,
			dir:  agent.requestedDirection,
			seq:  s.requestSeq[id],
		}
		agent.mu.Unlock()
		moves = append(moves, mv)
	}
	return moves
}

// moveResidency updates patch agent-lists when an agent crosses a patch
// boundary, taking the old and new patch locks in ascending (x,y) order to
// avoid deadlock (spec.md §5).
func (s *Simulator) moveResidency(id uint64, oldPos, newPos position.Position) {
	oldPatchPos, _ := s.store.WorldToPatch(oldPos)
	newPatchPos, _ := s.store.WorldToPatch(newPos)
	if oldPatchPos == newPatchPos {
		return
	}

	oldPatch := s.store.GetOrCreate(oldPatchPos)
	newPatch := s.store.GetOrCreate(newPatchPos)

	first, second := oldPatch, newPatch
	if !oldPatchPos.Less(newPatchPos) {
		first, second = newPatch, oldPatch
	}
	first.Lock()
	second.Lock()
	oldPatch.RemoveAgent(id)
	newPatch.AddAgent(id)
	second.Unlock()
	first.Unlock()
}

// collectAt checks the agent's new cell for an uncollected item it has met
// the prerequisites for, and collects it (spec.md §4.5 step 4).
func (s *Simulator) collectAt(agent *Agent, at position.Position, now uint64) {
	neighborhood := s.fixedNeighborhoodAround(at)
	patchPos, _ := s.store.WorldToPatch(at)

	var patch *worldmap.Patch
	for _, p := range neighborhood {
		if p.Position == patchPos {
			patch = p
			break
		}
	}
	if patch == nil {
		return
	}

	patch.Lock()
	items := patch.Items()
	idx := -1
	for i, it := range items {
		if it.LocationX == at.X && it.LocationY == at.Y && it.DeletionTime == 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		patch.Unlock()
		return
	}
	itemType := items[idx].TypeIndex
	patch.Unlock()

	agent.mu.Lock()
	eligible := true
	for t, req := range s.config.ItemTypes[itemType].RequiredCounts {
		if agent.collected[t] < req {
			eligible = false
			break
		}
	}
	if eligible {
		for t, cost := range s.config.ItemTypes[itemType].RequiredCosts {
			if agent.collected[t] < cost {
				agent.collected[t] = 0
			} else {
				agent.collected[t] -= cost
			}
		}
		agent.collected[itemType]++
	}
	agent.mu.Unlock()

	if eligible {
		patch.Lock()
		items = patch.Items()
		for i := range items {
			if items[i].LocationX == at.X && items[i].LocationY == at.Y && items[i].DeletionTime == 0 {
				items[i].DeletionTime = now
				break
			}
		}
		patch.Unlock()
	}
}

// resolveCollisions implements spec.md §4.5 step 1: blocking-item vetoes
// always apply; under NoCollisions every remaining requested move succeeds;
// under FirstComeFirstServed/Random, contested cells are resolved and the
// result cascades to a fixpoint.
func (s *Simulator) resolveCollisions(moves []pendingMove) map[uint64]position.Position {
	final := make(map[uint64]position.Position, len(moves))
	active := make(map[uint64]*pendingMove, len(moves))
	for i := range moves {
		active[moves[i].id] = &moves[i]
	}

	for id, mv := range active {
		if mv.want != mv.old && s.cellBlocked(mv.want) {
			final[id] = mv.old
			delete(active, id)
		}
	}

	if s.config.MoveConflictPolicy == NoCollisions {
		for id, mv := range active {
			final[id] = mv.want
		}
		return final
	}

	for {
		changed := false

		stationary := make(map[position.Position]bool)
		for _, p := range final {
			stationary[p] = true
		}
		for _, mv := range active {
			if mv.want == mv.old {
				stationary[mv.old] = true
			}
		}

		targets := make(map[position.Position][]*pendingMove)
		for _, mv := range active {
			if mv.want == mv.old {
				continue
			}
			targets[mv.want] = append(targets[mv.want], mv)
		}

		// Process contested cells, and draw from the RNG within each cell, in
		// a deterministic order: Go's map iteration order is randomized, and
		// this loop both consumes the shared RNG stream and (via cascading)
		// affects later iterations of the outer fixpoint loop, so leaving it
		// to map order would make otherwise-identical runs diverge (spec.md
		// §4.4's reproducibility requirement).
		positions := make([]position.Position, 0, len(targets))
		for pos := range targets {
			positions = append(positions, pos)
		}
		sortPositions(positions)

		for _, pos := range positions {
			movers := targets[pos]
			sortMoves(movers)
			if stationary[pos] {
				for _, mv := range movers {
					final[mv.id] = mv.old
					delete(active, mv.id)
				}
				changed = true
				continue
			}
			if len(movers) == 1 {
				final[movers[0].id] = pos
				delete(active, movers[0].id)
				changed = true
				continue
			}

			var winner *pendingMove
			if s.config.MoveConflictPolicy == FirstComeFirstServed {
				winner = movers[0]
				for _, mv := range movers[1:] {
					if mv.seq < winner.seq {
						winner = mv
					}
				}
			} else {
				s.withRNG(func(rng *rand.Rand) {
					winner = movers[rng.Intn(len(movers))]
				})
			}
			final[winner.id] = pos
			delete(active, winner.id)
			for _, mv := range movers {
				if mv.id != winner.id {
					final[mv.id] = mv.old
					delete(active, mv.id)
				}
			}
			changed = true
		}

		for id, mv := range active {
			if mv.want == mv.old {
				final[id] = mv.old
				delete(active, id)
				changed = true
			}
		}

		if !changed || len(active) == 0 {
			break
		}
	}

	for id, mv := range active {
		final[id] = mv.old
	}
	return final
}

// sortPositions sorts positions in place by (x,y), the same order
// worldmap.Store.Snapshot uses, so callers that need deterministic iteration
// over a set of positions don't each reinvent it.
func sortPositions(positions []position.Position) {
	for i := 1; i < len(positions); i++ {
		for j := i; j > 0 && positions[j].Less(positions[j-1]); j-- {
			positions[j], positions[j-1] = positions[j-1], positions[j]
		}
	}
}

// sortMoves sorts moves in place by agent id, giving the random-policy
// draw over a contested cell a deterministic index order.
func sortMoves(moves []*pendingMove) {
	for i := 1; i < len(moves); i++ {
		for j := i; j > 0 && moves[j].id < moves[j-1].id; j-- {
			moves[j], moves[j-1] = moves[j-1], moves[j]
		}
	}
}

// cellBlocked reports whether world cell c currently holds a live item
// whose type blocks movement.
func (s *Simulator) cellBlocked(c position.Position) bool {
	patchPos, _ := s.store.WorldToPatch(c)
	patch := s.store.GetIfExists(patchPos)
	if patch == nil {
		return false
	}
	patch.Lock()
	defer patch.Unlock()
	for _, it := range patch.Items() {
		if it.LocationX == c.X && it.LocationY == c.Y && it.DeletionTime == 0 {
			if s.config.ItemTypes[it.TypeIndex].BlocksMovement {
				return true
			}
		}
	}
	return false
}
