// Package simulator implements the simulation core (spec.md §4.5): agent
// lifecycle, the turn-synchronized action barrier, collision resolution,
// and the perception refresh that feeds each agent's scent and vision.
package simulator

import (
	"log"
	"math/rand"
	"sync"

	"jbw/diffusion"
	"jbw/gibbs"
	"jbw/internal/atomicfloat"
	"jbw/position"
	"jbw/worldmap"
)

// Logger is the minimal logging capability the simulator needs, satisfied
// by the standard library's *log.Logger. Accepting the narrowest interface
// a component needs, rather than a concrete type, lets tests inject a
// discard logger.
type Logger interface {
	Printf(format string, v ...interface{})
}

// StepCallback is invoked once per completed tick with the new tick number
// and the ids of agents that acted to close it (spec.md §4.5 step 7).
type StepCallback func(tick uint64, actedAgentIDs []uint64)

// Simulator is the top-level simulation core: one world, its agents, and
// the single action barrier they all rendezvous on.
type Simulator struct {
	config Config
	logger Logger

	store     *worldmap.Store
	diffusion *diffusion.Table

	rngMu sync.Mutex
	rng   *rand.Rand

	agentsMu       sync.RWMutex
	agents         []*Agent // nil slot = removed id, slice never shrinks
	activeCount    int64
	acted          int64
	actionSeq      int64 // atomically incremented per Move/Turn/NoOp call, for FCFS ordering
	requestedMu    sync.Mutex
	requestedMoves map[position.Position][]uint64
	requestSeq     map[uint64]int64 // agent id -> actionSeq at the time it acted this tick

	time uint64 // protected by agentsMu's happens-before via the barrier; see runStep

	stepCallback StepCallback

	// TickGauge is a lock-free gauge set to 1 after each completed tick,
	// from whichever goroutine's action closed the barrier
	// (internal/atomicfloat avoids a mutex on that hot path).
	TickGauge *atomicfloat.Float64
}

// New constructs a Simulator from a validated Config. Construction is
// fallible (spec.md §9's "replace exit-on-allocation-failure with
// result-returning constructors"): an invalid config or an unbuildable
// diffusion table surfaces as an *Error with kind InvalidConfig.
func New(cfg Config, logger Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	radius := int64(cfg.PatchSize) // generous radius derived from patch size, per spec.md §3
	table, err := diffusion.NewTable(radius, uint64(cfg.RemovedItemLifetime), float64(cfg.ScentDecay), float64(cfg.ScentDiffusion))
	if err != nil {
		return nil, wrapErr(InvalidConfig, "failed to build diffusion table", err)
	}

	return &Simulator{
		config:         cfg,
		logger:         logger,
		store:          worldmap.NewStore(int64(cfg.PatchSize)),
		diffusion:      table,
		rng:            rand.New(rand.NewSource(int64(cfg.RandomSeed))),
		requestedMoves: make(map[position.Position][]uint64),
		requestSeq:     make(map[uint64]int64),
		TickGauge:      atomicfloat.New(0),
	}, nil
}

// Config returns the simulator's (immutable after construction) config.
func (s *Simulator) Config() Config {
	return s.config
}

// Store exposes the underlying patch store, mostly for the admin server and
// tests; simulation callers should prefer Map().
func (s *Simulator) Store() *worldmap.Store {
	return s.store
}

// Time returns the current tick counter.
func (s *Simulator) Time() uint64 {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return s.time
}

// SetStepCallback installs the hook invoked after each completed tick.
func (s *Simulator) SetStepCallback(cb StepCallback) {
	s.agentsMu.Lock()
	defer s.agentsMu.Unlock()
	s.stepCallback = cb
}

func (s *Simulator) numTypes() int {
	return len(s.config.ItemTypes)
}

// withRNG runs fn with the simulator's seeded RNG, serializing access with
// rngMu: math/rand's *Rand is not safe for concurrent use, and the Gibbs
// sampler mutates the stream on every resampled cell. rngMu is not
// reentrant, so fn must not call withRNG again.
func (s *Simulator) withRNG(fn func(*rand.Rand)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	fn(s.rng)
}

// AddAgent allocates a new agent at (0,0) facing Up and returns its id
// (spec.md §4.5). Under any collision policy other than NoCollisions, a
// spawn that collides with an existing agent at (0,0) fails with
// AgentAlreadyExists.
func (s *Simulator) AddAgent() (uint64, error) {
	s.agentsMu.Lock()

	if s.config.MoveConflictPolicy != NoCollisions {
		for _, a := range s.agents {
			if a == nil {
				continue
			}
			if a.IsActive() && a.Position() == (position.Position{X: 0, Y: 0}) {
				s.agentsMu.Unlock()
				return 0, newErr(AgentAlreadyExists, "an agent already occupies the spawn position (0,0)")
			}
		}
	}

	var id uint64
	placed := false
	for i, a := range s.agents {
		if a == nil {
			id = uint64(i)
			s.agents[i] = newAgent(id, s.config.ScentDim, s.config.ColorDim, s.config.VisionRange, s.numTypes())
			placed = true
			break
		}
	}
	if !placed {
		id = uint64(len(s.agents))
		s.agents = append(s.agents, newAgent(id, s.config.ScentDim, s.config.ColorDim, s.config.VisionRange, s.numTypes()))
	}
	s.activeCount++
	// A freshly spawned agent has not yet acted this tick, but it also must
	// not block the barrier that is already in flight: counting it as
	// "acted" immediately means the tick that spawned it can still close
	// normally (spec.md §4.5: "so the new agent is not required to act
	// before the tick that spawned it completes").
	s.acted++
	agent := s.agents[id]
	s.agentsMu.Unlock()

	agent.mu.Lock()
	agent.actedThisTick = true
	agent.mu.Unlock()

	s.registerResidency(agent, position.Position{})

	s.refreshPerceptionFor(agent)

	s.maybeCloseBarrier()

	return id, nil
}

// getAgent resolves id to its *Agent pointer under the agent-states lock,
// then releases the lock before the caller touches agent fields (spec.md
// §5's "Agent states lock" discipline).
func (s *Simulator) getAgent(id uint64) (*Agent, error) {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	if id >= uint64(len(s.agents)) || s.agents[id] == nil {
		return nil, newErr(InvalidAgentId, "no such agent")
	}
	return s.agents[id], nil
}

// RemoveAgent removes id from the simulator: its patch residency, its
// pending requested move, and its table slot are all cleared.
func (s *Simulator) RemoveAgent(id uint64) error {
	agent, err := s.getAgent(id)
	if err != nil {
		return err
	}

	pos := agent.Position()
	patchPos, _ := s.store.WorldToPatch(pos)
	if patch := s.store.GetIfExists(patchPos); patch != nil {
		patch.Lock()
		patch.RemoveAgent(id)
		patch.Unlock()
	}

	agent.mu.Lock()
	req := agent.requestedPosition
	agent.mu.Unlock()

	s.requestedMu.Lock()
	if list, ok := s.requestedMoves[req]; ok {
		s.requestedMoves[req] = removeID(list, id)
		if len(s.requestedMoves[req]) == 0 {
			delete(s.requestedMoves, req)
		}
	}
	s.requestedMu.Unlock()

	s.agentsMu.Lock()
	wasActive := s.agents[id].IsActive()
	s.agents[id] = nil
	if wasActive {
		s.activeCount--
	}
	s.agentsMu.Unlock()
	return nil
}

func removeID(list []uint64, id uint64) []uint64 {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// SetActive toggles whether id participates in the action barrier.
// Deactivating an agent that had not yet acted this tick counts it as
// acted, so it never blocks the barrier.
func (s *Simulator) SetActive(id uint64, active bool) error {
	agent, err := s.getAgent(id)
	if err != nil {
		return err
	}

	agent.mu.Lock()
	wasActive := agent.active
	alreadyActed := agent.actedThisTick
	agent.active = active
	agent.mu.Unlock()

	if wasActive == active {
		return nil
	}

	s.agentsMu.Lock()
	if active {
		s.activeCount++
	} else {
		s.activeCount--
		if !alreadyActed {
			s.acted++
		}
	}
	s.agentsMu.Unlock()

	if !active {
		s.maybeCloseBarrier()
	}
	return nil
}

// IsActive reports whether id currently participates in the action barrier.
func (s *Simulator) IsActive(id uint64) (bool, error) {
	agent, err := s.getAgent(id)
	if err != nil {
		return false, err
	}
	return agent.IsActive(), nil
}

// AgentState returns a point-in-time snapshot of id's state.
func (s *Simulator) AgentState(id uint64) (Snapshot, error) {
	agent, err := s.getAgent(id)
	if err != nil {
		return Snapshot{}, err
	}
	return agent.Snapshot(), nil
}

// AgentIDs returns the ids of every live (not removed) agent.
func (s *Simulator) AgentIDs() []uint64 {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	ids := make([]uint64, 0, len(s.agents))
	for i, a := range s.agents {
		if a != nil {
			ids = append(ids, uint64(i))
		}
	}
	return ids
}

func (s *Simulator) registerResidency(agent *Agent, _ position.Position) {
	pos := agent.Position()
	patchPos, _ := s.store.WorldToPatch(pos)
	patch := s.store.GetOrCreate(patchPos)
	patch.Lock()
	patch.AddAgent(agent.ID())
	patch.Unlock()
}

func (s *Simulator) refreshPerceptionFor(agent *Agent) {
	s.withRNG(func(rng *rand.Rand) {
		s.refreshPerception(agent, rng)
	})
}

// fixedNeighborhoodAround runs the Gibbs sampler to fix and return the 2x2
// patch neighborhood around worldPos, using the simulator's own seeded RNG
// stream (never the global RNG) so runs are reproducible (spec.md §4.4).
func (s *Simulator) fixedNeighborhoodAround(worldPos position.Position) [4]*worldmap.Patch {
	var patches [4]*worldmap.Patch
	s.withRNG(func(rng *rand.Rand) {
		patches, _, _ = gibbs.GetFixedNeighborhood(s.store, s.config.ItemTypes, int(s.config.McmcIterations), worldPos, rng)
	})
	return patches
}
