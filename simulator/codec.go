package simulator

import (
	"io"

	"jbw/codec"
	"jbw/worldmap"
)

// EncodeConfig writes a full Config: scalars, the two fixed-length move/turn
// permission arrays, the item type table, and the agent color vector
// (spec.md §6's handshake and save-file config block). It lives in this
// package rather than jbw/codec so it can be shared by both the save-file
// format (persist.go) and the wire protocol without codec importing back
// into simulator.
func EncodeConfig(w io.Writer, c Config) error {
	if err := codec.WriteUint32(w, c.RandomSeed); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.MaxStepsPerMove); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.ScentDim); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.ColorDim); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.VisionRange); err != nil {
		return err
	}
	for _, m := range c.AllowedMoves {
		if err := codec.WriteUint8(w, uint8(m)); err != nil {
			return err
		}
	}
	for _, m := range c.AllowedTurns {
		if err := codec.WriteUint8(w, uint8(m)); err != nil {
			return err
		}
	}
	if err := codec.WriteBool(w, c.NoOpAllowed); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.PatchSize); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.McmcIterations); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, uint32(len(c.ItemTypes))); err != nil {
		return err
	}
	for _, it := range c.ItemTypes {
		if err := codec.WriteItemType(w, it); err != nil {
			return err
		}
	}
	if err := codec.WriteFloat32Slice(w, c.AgentColor); err != nil {
		return err
	}
	if err := codec.WriteUint8(w, uint8(c.MoveConflictPolicy)); err != nil {
		return err
	}
	if err := codec.WriteFloat32(w, c.ScentDecay); err != nil {
		return err
	}
	if err := codec.WriteFloat32(w, c.ScentDiffusion); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, c.RemovedItemLifetime); err != nil {
		return err
	}
	return codec.WriteUint32(w, c.MaxItemsPerPatch)
}

// DecodeConfig reads a Config. It does not call Validate; callers that need
// a guaranteed-consistent config must validate after reading.
func DecodeConfig(r io.Reader) (Config, error) {
	var c Config
	var err error
	if c.RandomSeed, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.MaxStepsPerMove, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.ScentDim, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.ColorDim, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.VisionRange, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	for i := range c.AllowedMoves {
		v, err := codec.ReadUint8(r)
		if err != nil {
			return c, err
		}
		c.AllowedMoves[i] = MoveStatus(v)
	}
	for i := range c.AllowedTurns {
		v, err := codec.ReadUint8(r)
		if err != nil {
			return c, err
		}
		c.AllowedTurns[i] = MoveStatus(v)
	}
	if c.NoOpAllowed, err = codec.ReadBool(r); err != nil {
		return c, err
	}
	if c.PatchSize, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.McmcIterations, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	numTypes, err := codec.ReadUint32(r)
	if err != nil {
		return c, err
	}
	c.ItemTypes = make([]worldmap.ItemType, numTypes)
	for i := range c.ItemTypes {
		if c.ItemTypes[i], err = codec.ReadItemType(r, int(numTypes)); err != nil {
			return c, err
		}
	}
	if c.AgentColor, err = codec.ReadFloat32Slice(r); err != nil {
		return c, err
	}
	policy, err := codec.ReadUint8(r)
	if err != nil {
		return c, err
	}
	c.MoveConflictPolicy = CollisionPolicy(policy)
	if c.ScentDecay, err = codec.ReadFloat32(r); err != nil {
		return c, err
	}
	if c.ScentDiffusion, err = codec.ReadFloat32(r); err != nil {
		return c, err
	}
	if c.RemovedItemLifetime, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	if c.MaxItemsPerPatch, err = codec.ReadUint32(r); err != nil {
		return c, err
	}
	return c, nil
}

// EncodeSnapshot writes the wire form of an agent snapshot (spec.md §6's
// AgentState: position, direction, scent, vision, acted flag, requested
// move, collected items). It omits ID and Name: both are metadata the
// surrounding message already carries (a save file's agent table index, or
// a protocol response's explicit id list).
func EncodeSnapshot(w io.Writer, s Snapshot) error {
	if err := codec.WritePosition(w, s.Position); err != nil {
		return err
	}
	if err := codec.WriteDirection(w, s.Facing); err != nil {
		return err
	}
	if err := codec.WriteFloat32Slice(w, s.Scent); err != nil {
		return err
	}
	if err := codec.WriteFloat32Slice(w, s.Vision); err != nil {
		return err
	}
	if err := codec.WriteBool(w, s.ActedThisTick); err != nil {
		return err
	}
	if err := codec.WritePosition(w, s.RequestedPosition); err != nil {
		return err
	}
	if err := codec.WriteDirection(w, s.RequestedDirection); err != nil {
		return err
	}
	return codec.WriteUint32Slice(w, s.Collected)
}

func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Position, err = codec.ReadPosition(r); err != nil {
		return s, err
	}
	if s.Facing, err = codec.ReadDirection(r); err != nil {
		return s, err
	}
	if s.Scent, err = codec.ReadFloat32Slice(r); err != nil {
		return s, err
	}
	if s.Vision, err = codec.ReadFloat32Slice(r); err != nil {
		return s, err
	}
	if s.ActedThisTick, err = codec.ReadBool(r); err != nil {
		return s, err
	}
	if s.RequestedPosition, err = codec.ReadPosition(r); err != nil {
		return s, err
	}
	if s.RequestedDirection, err = codec.ReadDirection(r); err != nil {
		return s, err
	}
	if s.Collected, err = codec.ReadUint32Slice(r); err != nil {
		return s, err
	}
	return s, nil
}
