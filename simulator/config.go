package simulator

import (
	"jbw/worldmap"
)

// MoveStatus is the closed set of permissions a direction (for moves) or a
// turn (for turns) can carry in config (spec.md §6).
type MoveStatus uint8

const (
	Allowed MoveStatus = iota
	Disallowed
	Ignored
)

func (m MoveStatus) String() string {
	switch m {
	case Allowed:
		return "Allowed"
	case Disallowed:
		return "Disallowed"
	case Ignored:
		return "Ignored"
	default:
		return "Unknown"
	}
}

// CollisionPolicy is the closed set of strategies for resolving two agents
// requesting the same destination cell in one tick (spec.md §4.5).
type CollisionPolicy uint8

const (
	NoCollisions CollisionPolicy = iota
	FirstComeFirstServed
	Random
)

func (c CollisionPolicy) String() string {
	switch c {
	case NoCollisions:
		return "NoCollisions"
	case FirstComeFirstServed:
		return "FirstComeFirstServed"
	case Random:
		return "Random"
	default:
		return "Unknown"
	}
}

// Config is the full set of recognized simulator configuration options
// (spec.md §6). It is also the unit serialized at the head of save files
// and sent to clients on connect (spec.md §6 handshake).
type Config struct {
	RandomSeed      uint32
	MaxStepsPerMove uint32
	ScentDim        uint32 // S
	ColorDim        uint32 // C
	VisionRange     uint32 // R

	// AllowedMoves is indexed by position.Direction (Up, Down, Left, Right).
	AllowedMoves [4]MoveStatus
	// AllowedTurns is indexed by position.TurnDirection (NoChange, Reverse,
	// TurnLeft, TurnRight).
	AllowedTurns [4]MoveStatus
	NoOpAllowed  bool

	PatchSize      uint32
	McmcIterations uint32

	ItemTypes  []worldmap.ItemType
	AgentColor []float32 // length ColorDim

	MoveConflictPolicy CollisionPolicy

	ScentDecay     float32 // lambda
	ScentDiffusion float32 // alpha

	RemovedItemLifetime uint32

	// MaxItemsPerPatch is a per-patch live-item limit (0 = unlimited). Not
	// named by spec.md's core data model. It is encoded and loaded with
	// the rest of the config, but neither Validate nor the Gibbs sampler
	// read it, so it places no bound on a patch's items.
	MaxItemsPerPatch uint32
}

// DefaultConfig returns a small, internally consistent configuration
// suitable for tests and as a starting point for jbwconfig.Load.
func DefaultConfig() Config {
	return Config{
		RandomSeed:          1,
		MaxStepsPerMove:      1,
		ScentDim:             3,
		ColorDim:             3,
		VisionRange:          5,
		AllowedMoves:         [4]MoveStatus{Allowed, Allowed, Allowed, Allowed},
		AllowedTurns:         [4]MoveStatus{Allowed, Allowed, Allowed, Allowed},
		NoOpAllowed:          true,
		PatchSize:            32,
		McmcIterations:       10,
		ItemTypes:            nil,
		AgentColor:           []float32{1, 1, 1},
		MoveConflictPolicy:   FirstComeFirstServed,
		ScentDecay:           0.7,
		ScentDiffusion:       0.1,
		RemovedItemLifetime:  2000,
		MaxItemsPerPatch:     0,
	}
}

// Validate checks the cross-field invariants spec.md calls out: the
// diffusion kernel must be non-expanding (lambda+4*alpha<=1), dims must be
// nonzero, item type arrays must agree in length with NumTypes, and
// AgentColor must match ColorDim. Returns an *Error with kind InvalidConfig
// on any violation.
func (c Config) Validate() error {
	if c.ScentDim == 0 || c.ColorDim == 0 {
		return newErr(InvalidConfig, "scent_dim and color_dim must be nonzero")
	}
	if c.PatchSize == 0 || c.PatchSize%2 != 0 {
		return newErr(InvalidConfig, "patch_size must be a nonzero even number")
	}
	lambda := float64(c.ScentDecay)
	alpha := float64(c.ScentDiffusion)
	if lambda <= 0 || lambda > 1 || alpha < 0 || alpha > 0.25 || lambda+4*alpha > 1 {
		return newErr(InvalidConfig, "scent_decay and scent_diffusion must satisfy 0<lambda<=1, 0<=alpha<=1/4, lambda+4*alpha<=1")
	}
	if uint32(len(c.AgentColor)) != c.ColorDim {
		return newErr(InvalidConfig, "agent_color length must equal color_dim")
	}
	numTypes := len(c.ItemTypes)
	for i, it := range c.ItemTypes {
		if uint32(len(it.Scent)) != c.ScentDim {
			return newErr(InvalidConfig, "item type has scent vector of wrong length")
		}
		if uint32(len(it.Color)) != c.ColorDim {
			return newErr(InvalidConfig, "item type has color vector of wrong length")
		}
		if len(it.RequiredCounts) != numTypes || len(it.RequiredCosts) != numTypes {
			return newErr(InvalidConfig, "item type required_counts/required_costs must have length numTypes")
		}
		if len(it.Interactions) != numTypes {
			return newErr(InvalidConfig, "item type interactions must have one entry per other type")
		}
		_ = i
	}
	return nil
}

// VisionWidth returns the side length of the square vision raster,
// 2*VisionRange+1.
func (c Config) VisionWidth() int {
	return 2*int(c.VisionRange) + 1
}
