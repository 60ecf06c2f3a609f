package simulator

import (
	"bufio"
	"io"
	"math/rand"

	"jbw/codec"
	"jbw/position"
)

// saveMagic identifies a jbw save file; saveVersion lets Load reject a file
// written by an incompatible future format (spec.md §6's save file header).
const (
	saveMagic   uint32 = 0x4a42574d // "JBWM"
	saveVersion uint32 = 1
)

// Save writes a complete snapshot of the simulator to w: header, config,
// tick counter and action-barrier counters, every agent slot (including
// gaps left by removed agents), the requested-move table for the
// in-flight tick, and every materialized world patch sorted by (x,y)
// (spec.md §6, "Save file").
//
// The RNG stream is not captured byte-for-byte: Load reseeds from
// config.RandomSeed, so a resumed run's sequence of draws diverges from
// what an uninterrupted process would have produced past the save point.
// Reproducibility is guaranteed within a process lifetime, not across a
// save/load boundary -- see DESIGN.md.
func (s *Simulator) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := codec.WriteUint32(bw, saveMagic); err != nil {
		return err
	}
	if err := codec.WriteUint32(bw, saveVersion); err != nil {
		return err
	}
	if err := EncodeConfig(bw, s.config); err != nil {
		return err
	}

	s.agentsMu.Lock()
	time := s.time
	acted := s.acted
	activeCount := s.activeCount
	actionSeq := s.actionSeq
	agents := append([]*Agent(nil), s.agents...)
	s.agentsMu.Unlock()

	if err := codec.WriteUint64(bw, time); err != nil {
		return err
	}
	if err := codec.WriteInt64(bw, acted); err != nil {
		return err
	}
	if err := codec.WriteInt64(bw, activeCount); err != nil {
		return err
	}
	if err := codec.WriteInt64(bw, actionSeq); err != nil {
		return err
	}

	if err := codec.WriteUint32(bw, uint32(len(agents))); err != nil {
		return err
	}
	for _, a := range agents {
		if a == nil {
			if err := codec.WriteBool(bw, false); err != nil {
				return err
			}
			continue
		}
		if err := codec.WriteBool(bw, true); err != nil {
			return err
		}
		if err := writeAgentRecord(bw, a); err != nil {
			return err
		}
	}

	s.requestedMu.Lock()
	requestedMoves := s.requestedMoves
	requestSeq := s.requestSeq
	if err := writeRequestedMoves(bw, requestedMoves, requestSeq); err != nil {
		s.requestedMu.Unlock()
		return err
	}
	s.requestedMu.Unlock()

	patches := s.store.Snapshot()
	if err := codec.WriteUint32(bw, uint32(len(patches))); err != nil {
		return err
	}
	for _, p := range patches {
		if err := codec.WritePatch(bw, p); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeAgentRecord(w io.Writer, a *Agent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := codec.WritePosition(w, a.position); err != nil {
		return err
	}
	if err := codec.WriteDirection(w, a.facing); err != nil {
		return err
	}
	if err := codec.WriteFloat32Slice(w, a.scent); err != nil {
		return err
	}
	if err := codec.WriteFloat32Slice(w, a.vision); err != nil {
		return err
	}
	if err := codec.WriteUint32Slice(w, a.collected); err != nil {
		return err
	}
	if err := codec.WriteBool(w, a.active); err != nil {
		return err
	}
	if err := codec.WriteBool(w, a.actedThisTick); err != nil {
		return err
	}
	if err := codec.WritePosition(w, a.requestedPosition); err != nil {
		return err
	}
	if err := codec.WriteDirection(w, a.requestedDirection); err != nil {
		return err
	}
	return codec.WriteString(w, a.name)
}

func readAgentRecord(r io.Reader, id uint64) (*Agent, error) {
	a := &Agent{id: id}
	var err error
	if a.position, err = codec.ReadPosition(r); err != nil {
		return nil, err
	}
	if a.facing, err = codec.ReadDirection(r); err != nil {
		return nil, err
	}
	if a.scent, err = codec.ReadFloat32Slice(r); err != nil {
		return nil, err
	}
	if a.vision, err = codec.ReadFloat32Slice(r); err != nil {
		return nil, err
	}
	if a.collected, err = codec.ReadUint32Slice(r); err != nil {
		return nil, err
	}
	if a.active, err = codec.ReadBool(r); err != nil {
		return nil, err
	}
	if a.actedThisTick, err = codec.ReadBool(r); err != nil {
		return nil, err
	}
	if a.requestedPosition, err = codec.ReadPosition(r); err != nil {
		return nil, err
	}
	if a.requestedDirection, err = codec.ReadDirection(r); err != nil {
		return nil, err
	}
	if a.name, err = codec.ReadString(r); err != nil {
		return nil, err
	}
	return a, nil
}

func writeRequestedMoves(w io.Writer, moves map[position.Position][]uint64, seq map[uint64]int64) error {
	if err := codec.WriteUint32(w, uint32(len(moves))); err != nil {
		return err
	}
	cells := make([]position.Position, 0, len(moves))
	for c := range moves {
		cells = append(cells, c)
	}
	sortPositions(cells)
	for _, c := range cells {
		if err := codec.WritePosition(w, c); err != nil {
			return err
		}
		if err := codec.WriteUint64Slice(w, moves[c]); err != nil {
			return err
		}
	}

	if err := codec.WriteUint32(w, uint32(len(seq))); err != nil {
		return err
	}
	ids := make([]uint64, 0, len(seq))
	for id := range seq {
		ids = append(ids, id)
	}
	sortUint64s(ids)
	for _, id := range ids {
		if err := codec.WriteUint64(w, id); err != nil {
			return err
		}
		if err := codec.WriteInt64(w, seq[id]); err != nil {
			return err
		}
	}
	return nil
}

func readRequestedMoves(r io.Reader) (map[position.Position][]uint64, map[uint64]int64, error) {
	n, err := codec.ReadUint32(r)
	if err != nil {
		return nil, nil, err
	}
	moves := make(map[position.Position][]uint64, n)
	for i := uint32(0); i < n; i++ {
		c, err := codec.ReadPosition(r)
		if err != nil {
			return nil, nil, err
		}
		ids, err := codec.ReadUint64Slice(r)
		if err != nil {
			return nil, nil, err
		}
		moves[c] = ids
	}

	m, err := codec.ReadUint32(r)
	if err != nil {
		return nil, nil, err
	}
	seq := make(map[uint64]int64, m)
	for i := uint32(0); i < m; i++ {
		id, err := codec.ReadUint64(r)
		if err != nil {
			return nil, nil, err
		}
		v, err := codec.ReadInt64(r)
		if err != nil {
			return nil, nil, err
		}
		seq[id] = v
	}
	return moves, seq, nil
}

// sortUint64s is an insertion sort, matching sortPositions/sortPatches'
// rationale: save/load id lists are small relative to per-tick hot paths.
func sortUint64s(ids []uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// Load reconstructs a Simulator from a stream written by Save. The
// returned simulator's RNG is freshly seeded from the loaded config's
// RandomSeed (see Save's doc comment on reproducibility).
func Load(r io.Reader, logger Logger) (*Simulator, error) {
	magic, err := codec.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if magic != saveMagic {
		return nil, newErr(InvalidConfig, "not a jbw save file")
	}
	version, err := codec.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if version != saveVersion {
		return nil, newErr(InvalidConfig, "unsupported save file version")
	}

	cfg, err := DecodeConfig(r)
	if err != nil {
		return nil, err
	}

	sim, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if sim.time, err = codec.ReadUint64(r); err != nil {
		return nil, err
	}
	if sim.acted, err = codec.ReadInt64(r); err != nil {
		return nil, err
	}
	if sim.activeCount, err = codec.ReadInt64(r); err != nil {
		return nil, err
	}
	if sim.actionSeq, err = codec.ReadInt64(r); err != nil {
		return nil, err
	}

	n, err := codec.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	agents := make([]*Agent, n)
	for i := uint32(0); i < n; i++ {
		present, err := codec.ReadBool(r)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		a, err := readAgentRecord(r, uint64(i))
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}
	sim.agents = agents

	sim.requestedMoves, sim.requestSeq, err = readRequestedMoves(r)
	if err != nil {
		return nil, err
	}

	pn, err := codec.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < pn; i++ {
		p, err := codec.ReadPatch(r, int64(cfg.PatchSize))
		if err != nil {
			return nil, err
		}
		sim.store.Put(p)
	}

	sim.rng = rand.New(rand.NewSource(int64(cfg.RandomSeed)))

	return sim, nil
}
