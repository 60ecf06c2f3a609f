package jbwconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jbw/jbwconfig"
	"jbw/simulator"
)

const validYaml = `
random_seed: 7
max_steps_per_move: 2
scent_dim: 3
color_dim: 3
vision_range: 4
patch_size: 16
mcmc_iterations: 5
agent_color: [1, 1, 1]
scent_decay: 0.6
scent_diffusion: 0.05
removed_item_lifetime: 1000
max_items_per_patch: 3
move_conflict_policy: random
allowed_moves: [allowed, allowed, disallowed, ignored]
item_types:
  - name: seed
    scent: [0.1, 0, 0]
    color: [0, 1, 0]
    blocks_movement: false
    required_counts: [0]
    required_costs: [0]
    intensity:
      kind: constant
      args: [1]
    interactions:
      - kind: zero
`

// writeTempConfig drops a fixture in the package directory (the test
// binary's working directory) under a relative path, and removes it when
// the test ends.
func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(".", name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })
	return path
}

func TestLoadValidConfig(t *testing.T) {
	Convey("Given a well-formed YAML config", t, func() {
		path := writeTempConfig(t, "fixture_valid.yaml", validYaml)

		Convey("Load decodes scalars, enums, and the item type table", func() {
			cfg, err := jbwconfig.Load(path)
			So(err, ShouldBeNil)

			So(cfg.RandomSeed, ShouldEqual, uint32(7))
			So(cfg.PatchSize, ShouldEqual, uint32(16))
			So(cfg.VisionRange, ShouldEqual, uint32(4))
			So(cfg.MoveConflictPolicy, ShouldEqual, simulator.Random)
			So(cfg.AllowedMoves, ShouldResemble, [4]simulator.MoveStatus{
				simulator.Allowed, simulator.Allowed, simulator.Disallowed, simulator.Ignored,
			})

			So(len(cfg.ItemTypes), ShouldEqual, 1)
			seed := cfg.ItemTypes[0]
			So(seed.Name, ShouldEqual, "seed")
			So(seed.BlocksMovement, ShouldBeFalse)
			So(seed.Intensity.Args, ShouldResemble, []float64{1})
		})
	})
}

func TestLoadUnknownEnumValuesFail(t *testing.T) {
	Convey("An unrecognized move_conflict_policy fails with a descriptive error", t, func() {
		path := writeTempConfig(t, "fixture_bogus_policy.yaml", validYaml+"\nmove_conflict_policy: bogus\n")
		_, err := jbwconfig.Load(path)
		So(err, ShouldNotBeNil)
	})

	Convey("An unrecognized intensity kind fails with a descriptive error", t, func() {
		bad := `
item_types:
  - name: broken
    intensity:
      kind: not_a_real_kind
`
		path := writeTempConfig(t, "fixture_bad_kind.yaml", bad)
		_, err := jbwconfig.Load(path)
		So(err, ShouldNotBeNil)
	})
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	Convey("A config file that sets only random_seed falls back to DefaultConfig's values for the rest", t, func() {
		path := writeTempConfig(t, "fixture_defaults.yaml", "random_seed: 99\n")
		cfg, err := jbwconfig.Load(path)
		So(err, ShouldBeNil)

		want := simulator.DefaultConfig()
		So(cfg.MoveConflictPolicy, ShouldEqual, want.MoveConflictPolicy)
		So(cfg.AllowedMoves, ShouldResemble, want.AllowedMoves)
		So(cfg.RandomSeed, ShouldEqual, uint32(99))
	})
}
