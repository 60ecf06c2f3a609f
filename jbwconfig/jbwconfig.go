// Package jbwconfig loads a simulator.Config from a YAML file: viper reads
// the file into a loosely typed intermediate, then yaml.v3
// re-marshals/unmarshals that into a concretely typed struct. Kept as a
// separate package from simulator so simulator itself has no dependency on
// viper or yaml (spec.md's core simulation types stay serialization-agnostic;
// only this loader cares about the on-disk format).
package jbwconfig

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"jbw/energy"
	"jbw/simulator"
	"jbw/worldmap"
)

// moveStatusYaml mirrors simulator.MoveStatus as a YAML-friendly string enum.
type moveStatusYaml string

const (
	moveAllowed    moveStatusYaml = "allowed"
	moveDisallowed moveStatusYaml = "disallowed"
	moveIgnored    moveStatusYaml = "ignored"
)

func (m moveStatusYaml) toStatus() (simulator.MoveStatus, error) {
	switch m {
	case moveAllowed, "":
		return simulator.Allowed, nil
	case moveDisallowed:
		return simulator.Disallowed, nil
	case moveIgnored:
		return simulator.Ignored, nil
	default:
		return 0, fmt.Errorf("jbwconfig: unknown move status %q", m)
	}
}

type collisionPolicyYaml string

const (
	policyNoCollisions  collisionPolicyYaml = "no_collisions"
	policyFirstComeFirstServed collisionPolicyYaml = "first_come_first_served"
	policyRandom        collisionPolicyYaml = "random"
)

func (c collisionPolicyYaml) toPolicy() (simulator.CollisionPolicy, error) {
	switch c {
	case policyFirstComeFirstServed, "":
		return simulator.FirstComeFirstServed, nil
	case policyNoCollisions:
		return simulator.NoCollisions, nil
	case policyRandom:
		return simulator.Random, nil
	default:
		return 0, fmt.Errorf("jbwconfig: unknown move_conflict_policy %q", c)
	}
}

// itemTypeYaml is the on-disk shape of one worldmap.ItemType entry; kernel
// args are given by name+args rather than as raw energy.IntensityKind
// numbers, matching spec.md §6's configuration option table.
type itemTypeYaml struct {
	Name           string    `yaml:"name"`
	Scent          []float32 `yaml:"scent"`
	Color          []float32 `yaml:"color"`
	BlocksMovement bool      `yaml:"blocks_movement"`
	RequiredCounts []uint32  `yaml:"required_counts"`
	RequiredCosts  []uint32  `yaml:"required_costs"`

	Intensity    kernelYaml   `yaml:"intensity"`
	Interactions []kernelYaml `yaml:"interactions"`
}

type kernelYaml struct {
	Kind string    `yaml:"kind"`
	Args []float64 `yaml:"args"`
}

type configYaml struct {
	RandomSeed      uint32 `yaml:"random_seed"`
	MaxStepsPerMove uint32 `yaml:"max_steps_per_move"`
	ScentDim        uint32 `yaml:"scent_dim"`
	ColorDim        uint32 `yaml:"color_dim"`
	VisionRange     uint32 `yaml:"vision_range"`

	AllowedMoves [4]moveStatusYaml `yaml:"allowed_moves"`
	AllowedTurns [4]moveStatusYaml `yaml:"allowed_turns"`
	NoOpAllowed  bool              `yaml:"no_op_allowed"`

	PatchSize      uint32 `yaml:"patch_size"`
	McmcIterations uint32 `yaml:"mcmc_iterations"`

	ItemTypes  []itemTypeYaml `yaml:"item_types"`
	AgentColor []float32      `yaml:"agent_color"`

	MoveConflictPolicy collisionPolicyYaml `yaml:"move_conflict_policy"`

	ScentDecay     float32 `yaml:"scent_decay"`
	ScentDiffusion float32 `yaml:"scent_diffusion"`

	RemovedItemLifetime uint32 `yaml:"removed_item_lifetime"`
	MaxItemsPerPatch    uint32 `yaml:"max_items_per_patch"`
}

func intensityKind(name string) (energy.IntensityKind, error) {
	switch name {
	case "", "zero":
		return energy.IntensityZero, nil
	case "constant":
		return energy.IntensityConstant, nil
	default:
		return 0, fmt.Errorf("jbwconfig: unknown intensity kind %q", name)
	}
}

func interactionKind(name string) (energy.InteractionKind, error) {
	switch name {
	case "", "zero":
		return energy.InteractionZero, nil
	case "piecewise_box":
		return energy.InteractionPiecewiseBox, nil
	case "cross":
		return energy.InteractionCross, nil
	default:
		return 0, fmt.Errorf("jbwconfig: unknown interaction kind %q", name)
	}
}

func (y itemTypeYaml) toItemType(numTypes int) (worldmap.ItemType, error) {
	kind, err := intensityKind(y.Intensity.Kind)
	if err != nil {
		return worldmap.ItemType{}, err
	}
	intensity, err := energy.NewIntensityFn(kind, y.Intensity.Args, numTypes)
	if err != nil {
		return worldmap.ItemType{}, fmt.Errorf("jbwconfig: item %q intensity: %w", y.Name, err)
	}

	interactions := make([]energy.InteractionFn, len(y.Interactions))
	for i, iy := range y.Interactions {
		ik, err := interactionKind(iy.Kind)
		if err != nil {
			return worldmap.ItemType{}, err
		}
		fn, err := energy.NewInteractionFn(ik, iy.Args)
		if err != nil {
			return worldmap.ItemType{}, fmt.Errorf("jbwconfig: item %q interaction[%d]: %w", y.Name, i, err)
		}
		interactions[i] = fn
	}

	return worldmap.ItemType{
		Name:           y.Name,
		Scent:          y.Scent,
		Color:          y.Color,
		BlocksMovement: y.BlocksMovement,
		RequiredCounts: y.RequiredCounts,
		RequiredCosts:  y.RequiredCosts,
		Intensity:      intensity,
		Interactions:   interactions,
	}, nil
}

// Load reads a YAML configuration file at path and returns the simulator
// Config it describes, the same viper-into-yaml.v3 two-pass approach as
// reinforcement.FromYaml: viper handles file discovery and format detection,
// yaml.v3 handles strict structural decoding into typed Go values.
func Load(path string) (simulator.Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return simulator.Config{}, fmt.Errorf("jbwconfig: read %s: %w", path, err)
	}

	raw := map[string]interface{}{}
	if err := vp.Unmarshal(&raw); err != nil {
		return simulator.Config{}, fmt.Errorf("jbwconfig: unmarshal %s: %w", path, err)
	}

	spec, err := yaml.Marshal(raw)
	if err != nil {
		return simulator.Config{}, fmt.Errorf("jbwconfig: remarshal %s: %w", path, err)
	}

	// Keys the file omits keep DefaultConfig's values: yaml.v3 leaves the
	// fields of absent keys untouched.
	def := simulator.DefaultConfig()
	cy := configYaml{
		RandomSeed: def.RandomSeed, MaxStepsPerMove: def.MaxStepsPerMove,
		ScentDim: def.ScentDim, ColorDim: def.ColorDim, VisionRange: def.VisionRange,
		NoOpAllowed: def.NoOpAllowed, PatchSize: def.PatchSize, McmcIterations: def.McmcIterations,
		AgentColor: def.AgentColor, ScentDecay: def.ScentDecay, ScentDiffusion: def.ScentDiffusion,
		RemovedItemLifetime: def.RemovedItemLifetime, MaxItemsPerPatch: def.MaxItemsPerPatch,
	}
	if err := yaml.Unmarshal(spec, &cy); err != nil {
		return simulator.Config{}, fmt.Errorf("jbwconfig: decode %s: %w", path, err)
	}

	return cy.toConfig()
}

func (cy configYaml) toConfig() (simulator.Config, error) {
	cfg := simulator.DefaultConfig()

	cfg.RandomSeed = cy.RandomSeed
	cfg.MaxStepsPerMove = cy.MaxStepsPerMove
	cfg.ScentDim = cy.ScentDim
	cfg.ColorDim = cy.ColorDim
	cfg.VisionRange = cy.VisionRange
	cfg.NoOpAllowed = cy.NoOpAllowed
	cfg.PatchSize = cy.PatchSize
	cfg.McmcIterations = cy.McmcIterations
	cfg.AgentColor = cy.AgentColor
	cfg.ScentDecay = cy.ScentDecay
	cfg.ScentDiffusion = cy.ScentDiffusion
	cfg.RemovedItemLifetime = cy.RemovedItemLifetime
	cfg.MaxItemsPerPatch = cy.MaxItemsPerPatch

	for i, m := range cy.AllowedMoves {
		status, err := m.toStatus()
		if err != nil {
			return simulator.Config{}, err
		}
		cfg.AllowedMoves[i] = status
	}
	for i, t := range cy.AllowedTurns {
		status, err := t.toStatus()
		if err != nil {
			return simulator.Config{}, err
		}
		cfg.AllowedTurns[i] = status
	}

	policy, err := cy.MoveConflictPolicy.toPolicy()
	if err != nil {
		return simulator.Config{}, err
	}
	cfg.MoveConflictPolicy = policy

	numTypes := len(cy.ItemTypes)
	itemTypes := make([]worldmap.ItemType, numTypes)
	for i, ity := range cy.ItemTypes {
		it, err := ity.toItemType(numTypes)
		if err != nil {
			return simulator.Config{}, err
		}
		itemTypes[i] = it
	}
	cfg.ItemTypes = itemTypes

	return cfg, nil
}
