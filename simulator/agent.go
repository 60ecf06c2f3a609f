package simulator

import (
	"sync"

	"jbw/position"
)

// Agent is the full mutable state of a single agent (spec.md §3). Its id is
// a dense index into the simulator's agent table; fields below are guarded
// by the agent's own mutex except where noted, following the per-agent lock
// discipline in spec.md §5.
type Agent struct {
	mu sync.Mutex

	id       uint64
	position position.Position
	facing   position.Direction

	scent  []float32 // length S
	vision []float32 // length (2R+1)^2 * C, row-major, agent's own frame

	collected []uint32 // length numTypes

	active        bool
	actedThisTick bool

	requestedPosition  position.Position
	requestedDirection position.Direction

	name string // operator-facing label, not sent over the wire
}

func newAgent(id uint64, scentDim, colorDim, visionRange uint32, numTypes int) *Agent {
	width := 2*int(visionRange) + 1
	return &Agent{
		id:        id,
		position:  position.Position{X: 0, Y: 0},
		facing:    position.Up,
		scent:     make([]float32, scentDim),
		vision:    make([]float32, width*width*int(colorDim)),
		collected: make([]uint32, numTypes),
		active:    true,
	}
}

// ID returns the agent's dense table index.
func (a *Agent) ID() uint64 {
	return a.id
}

// Snapshot is a point-in-time, lock-free copy of an agent's externally
// visible state, safe to hand to a protocol encoder or test assertion after
// it has been taken under the agent's lock.
type Snapshot struct {
	ID                 uint64
	Position           position.Position
	Facing             position.Direction
	Scent              []float32
	Vision             []float32
	Collected          []uint32
	ActedThisTick      bool
	RequestedPosition  position.Position
	RequestedDirection position.Direction
	Name               string
}

// Snapshot copies out a's current state under its lock.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		ID:                 a.id,
		Position:           a.position,
		Facing:             a.facing,
		Scent:              append([]float32(nil), a.scent...),
		Vision:             append([]float32(nil), a.vision...),
		Collected:          append([]uint32(nil), a.collected...),
		ActedThisTick:      a.actedThisTick,
		RequestedPosition:  a.requestedPosition,
		RequestedDirection: a.requestedDirection,
		Name:               a.name,
	}
}

// Position returns the agent's current position without taking a snapshot
// of everything else; used by hot paths (perception refresh, collision
// resolution) that only need the coordinate.
func (a *Agent) Position() position.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// IsActive reports whether the agent currently participates in the action
// barrier.
func (a *Agent) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}
