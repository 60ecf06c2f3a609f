package codec

import (
	"io"

	"jbw/energy"
	"jbw/worldmap"
)

// WriteItemType writes an ItemType: name, scent/color vectors,
// blocks_movement flag, required_counts/required_costs arrays, the
// intensity kernel, and one interaction kernel per other type (spec.md
// §6's item_types[] configuration entry).
func WriteItemType(w io.Writer, it worldmap.ItemType) error {
	if err := WriteString(w, it.Name); err != nil {
		return err
	}
	if err := WriteFloat32Slice(w, it.Scent); err != nil {
		return err
	}
	if err := WriteFloat32Slice(w, it.Color); err != nil {
		return err
	}
	if err := WriteBool(w, it.BlocksMovement); err != nil {
		return err
	}
	if err := WriteUint32Slice(w, it.RequiredCounts); err != nil {
		return err
	}
	if err := WriteUint32Slice(w, it.RequiredCosts); err != nil {
		return err
	}
	if err := WriteIntensityFn(w, it.Intensity); err != nil {
		return err
	}
	if err := WriteUint32(w, uint32(len(it.Interactions))); err != nil {
		return err
	}
	for _, fn := range it.Interactions {
		if err := WriteInteractionFn(w, fn); err != nil {
			return err
		}
	}
	return nil
}

// ReadItemType reads an ItemType. numTypes validates the intensity kernel's
// argument count; it is the caller's responsibility to pass the final
// total item type count (every type's wire record must agree).
func ReadItemType(r io.Reader, numTypes int) (worldmap.ItemType, error) {
	var it worldmap.ItemType
	var err error
	if it.Name, err = ReadString(r); err != nil {
		return it, err
	}
	if it.Scent, err = ReadFloat32Slice(r); err != nil {
		return it, err
	}
	if it.Color, err = ReadFloat32Slice(r); err != nil {
		return it, err
	}
	if it.BlocksMovement, err = ReadBool(r); err != nil {
		return it, err
	}
	if it.RequiredCounts, err = ReadUint32Slice(r); err != nil {
		return it, err
	}
	if it.RequiredCosts, err = ReadUint32Slice(r); err != nil {
		return it, err
	}
	if it.Intensity, err = ReadIntensityFn(r, numTypes); err != nil {
		return it, err
	}
	n, err := ReadUint32(r)
	if err != nil {
		return it, err
	}
	if err := checkLen("interactions", n); err != nil {
		return it, err
	}
	it.Interactions = make([]energy.InteractionFn, n)
	for i := range it.Interactions {
		if it.Interactions[i], err = ReadInteractionFn(r); err != nil {
			return it, err
		}
	}
	return it, nil
}

// WriteItem writes a single placed item instance.
func WriteItem(w io.Writer, it worldmap.Item) error {
	if err := WriteUint32(w, uint32(it.TypeIndex)); err != nil {
		return err
	}
	if err := WriteInt64(w, it.LocationX); err != nil {
		return err
	}
	if err := WriteInt64(w, it.LocationY); err != nil {
		return err
	}
	if err := WriteUint64(w, it.CreationTime); err != nil {
		return err
	}
	return WriteUint64(w, it.DeletionTime)
}

func ReadItem(r io.Reader) (worldmap.Item, error) {
	var it worldmap.Item
	typeIdx, err := ReadUint32(r)
	if err != nil {
		return it, err
	}
	it.TypeIndex = int(typeIdx)
	if it.LocationX, err = ReadInt64(r); err != nil {
		return it, err
	}
	if it.LocationY, err = ReadInt64(r); err != nil {
		return it, err
	}
	if it.CreationTime, err = ReadUint64(r); err != nil {
		return it, err
	}
	if it.DeletionTime, err = ReadUint64(r); err != nil {
		return it, err
	}
	return it, nil
}

// WritePatch writes a patch's coordinate, fixed flag, item list and
// resident agent ids. It takes p's lock itself, so the caller must not hold
// it. An unfixed patch round-trips its fixed=false flag, so load can resume
// sampling it later.
func WritePatch(w io.Writer, p *worldmap.Patch) error {
	p.Lock()
	defer p.Unlock()

	if err := WritePosition(w, p.Position); err != nil {
		return err
	}
	if err := WriteBool(w, p.Fixed()); err != nil {
		return err
	}
	items := p.Items()
	if err := WriteUint32(w, uint32(len(items))); err != nil {
		return err
	}
	for _, it := range items {
		if err := WriteItem(w, it); err != nil {
			return err
		}
	}
	agentIDs := p.AgentIDs()
	return WriteUint64Slice(w, agentIDs)
}

// ReadPatch reads a patch record into a fresh, unlocked *worldmap.Patch.
func ReadPatch(r io.Reader, patchSize int64) (*worldmap.Patch, error) {
	pos, err := ReadPosition(r)
	if err != nil {
		return nil, err
	}
	fixed, err := ReadBool(r)
	if err != nil {
		return nil, err
	}
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if err := checkLen("patch items", n); err != nil {
		return nil, err
	}
	items := make([]worldmap.Item, n)
	for i := range items {
		if items[i], err = ReadItem(r); err != nil {
			return nil, err
		}
	}
	agentIDs, err := ReadUint64Slice(r)
	if err != nil {
		return nil, err
	}

	p := worldmap.NewPatch(pos, patchSize)
	p.SetItems(items)
	for _, id := range agentIDs {
		p.AddAgent(id)
	}
	if fixed {
		p.MarkFixed()
	}
	return p, nil
}
