// Package protocol implements the client/server wire protocol (spec.md §6,
// §4.9): a closed catalog of 64-bit tagged messages framed over raw TCP,
// encoded with the jbw/codec primitives and jbw/simulator's wire-shaped
// config/snapshot encoders.
package protocol

import (
	"io"
	"math"

	"jbw/codec"
	"jbw/position"
	"jbw/simulator"
	"jbw/worldmap"
)

// Tag identifies a message's shape. Requests and responses share the same
// numeric space; which direction a given tag travels is determined by the
// sender's role, exactly as spec.md §6 describes.
type Tag uint64

const (
	TagAddAgent Tag = iota
	TagAddAgentResp
	TagMove
	TagMoveResp
	TagTurn
	TagTurnResp
	TagGetMap
	TagGetMapResp
	TagStepResp
	TagNoOp
	TagNoOpResp
	TagRemoveAgent
	TagRemoveAgentResp
	TagSetActive
	TagSetActiveResp
	TagIsActive
	TagIsActiveResp
	TagGetAgentIds
	TagGetAgentIdsResp
	TagGetAgentStates
	TagGetAgentStatesResp
)

// NoSuchAgent is the agent_id sentinel a response carries when the request
// it answers failed (spec.md §6: "agent_id = u64::MAX on failure").
const NoSuchAgent = math.MaxUint64

func WriteTag(w io.Writer, t Tag) error {
	return codec.WriteUint64(w, uint64(t))
}

func ReadTag(r io.Reader) (Tag, error) {
	v, err := codec.ReadUint64(r)
	return Tag(v), err
}

// AddAgentResp is {agent_id, state}.
type AddAgentResp struct {
	AgentID uint64
	State   simulator.Snapshot
}

func WriteAddAgentResp(w io.Writer, m AddAgentResp) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	return simulator.EncodeSnapshot(w, m.State)
}

func ReadAddAgentResp(r io.Reader) (AddAgentResp, error) {
	var m AddAgentResp
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	m.State, err = simulator.DecodeSnapshot(r)
	return m, err
}

// Move is {agent_id, dir, steps}.
type Move struct {
	AgentID uint64
	Dir     position.Direction
	Steps   uint32
}

func WriteMove(w io.Writer, m Move) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	if err := codec.WriteDirection(w, m.Dir); err != nil {
		return err
	}
	return codec.WriteUint32(w, m.Steps)
}

func ReadMove(r io.Reader) (Move, error) {
	var m Move
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	if m.Dir, err = codec.ReadDirection(r); err != nil {
		return m, err
	}
	m.Steps, err = codec.ReadUint32(r)
	return m, err
}

// Turn is {agent_id, turn}.
type Turn struct {
	AgentID uint64
	Turn    position.TurnDirection
}

func WriteTurn(w io.Writer, m Turn) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	return codec.WriteTurnDirection(w, m.Turn)
}

func ReadTurn(r io.Reader) (Turn, error) {
	var m Turn
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	m.Turn, err = codec.ReadTurnDirection(r)
	return m, err
}

// AgentIDResp is the shared shape of MoveResp/TurnResp/NoOpResp/
// RemoveAgentResp/SetActiveResp: {agent_id, success}.
type AgentIDResp struct {
	AgentID uint64
	Success bool
}

func WriteAgentIDResp(w io.Writer, m AgentIDResp) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	return codec.WriteBool(w, m.Success)
}

func ReadAgentIDResp(r io.Reader) (AgentIDResp, error) {
	var m AgentIDResp
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	m.Success, err = codec.ReadBool(r)
	return m, err
}

// AgentIDRequest is the shared shape of NoOp/RemoveAgent/IsActive: a single
// {agent_id}.
type AgentIDRequest struct {
	AgentID uint64
}

func WriteAgentIDRequest(w io.Writer, m AgentIDRequest) error {
	return codec.WriteUint64(w, m.AgentID)
}

func ReadAgentIDRequest(r io.Reader) (AgentIDRequest, error) {
	var m AgentIDRequest
	var err error
	m.AgentID, err = codec.ReadUint64(r)
	return m, err
}

// SetActive is {agent_id, active}.
type SetActive struct {
	AgentID uint64
	Active  bool
}

func WriteSetActive(w io.Writer, m SetActive) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	return codec.WriteBool(w, m.Active)
}

func ReadSetActive(r io.Reader) (SetActive, error) {
	var m SetActive
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	m.Active, err = codec.ReadBool(r)
	return m, err
}

// IsActiveResp is {agent_id, active, success}.
type IsActiveResp struct {
	AgentID uint64
	Active  bool
	Success bool
}

func WriteIsActiveResp(w io.Writer, m IsActiveResp) error {
	if err := codec.WriteUint64(w, m.AgentID); err != nil {
		return err
	}
	if err := codec.WriteBool(w, m.Active); err != nil {
		return err
	}
	return codec.WriteBool(w, m.Success)
}

func ReadIsActiveResp(r io.Reader) (IsActiveResp, error) {
	var m IsActiveResp
	var err error
	if m.AgentID, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	if m.Active, err = codec.ReadBool(r); err != nil {
		return m, err
	}
	m.Success, err = codec.ReadBool(r)
	return m, err
}

// GetMap is {bl, tr}.
type GetMap struct {
	BottomLeft position.Position
	TopRight   position.Position
}

func WriteGetMap(w io.Writer, m GetMap) error {
	if err := codec.WritePosition(w, m.BottomLeft); err != nil {
		return err
	}
	return codec.WritePosition(w, m.TopRight)
}

func ReadGetMap(r io.Reader) (GetMap, error) {
	var m GetMap
	var err error
	if m.BottomLeft, err = codec.ReadPosition(r); err != nil {
		return m, err
	}
	m.TopRight, err = codec.ReadPosition(r)
	return m, err
}

// WriteSimulationMap writes a GetMapResp payload: a length-prefixed array
// of patches, each with its position, fixed flag, items, resident agent
// ids, and precomputed scent/vision rasters (simulator.PatchView).
func WriteSimulationMap(w io.Writer, m simulator.SimulationMap) error {
	if err := codec.WriteUint32(w, uint32(len(m.Patches))); err != nil {
		return err
	}
	for _, p := range m.Patches {
		if err := codec.WritePosition(w, p.Position); err != nil {
			return err
		}
		if err := codec.WriteBool(w, p.Fixed); err != nil {
			return err
		}
		if err := codec.WriteUint32(w, uint32(len(p.Items))); err != nil {
			return err
		}
		for _, it := range p.Items {
			if err := codec.WriteItem(w, it); err != nil {
				return err
			}
		}
		if err := codec.WriteUint64Slice(w, p.AgentIDs); err != nil {
			return err
		}
		if err := codec.WriteFloat32Slice(w, p.Scent); err != nil {
			return err
		}
		if err := codec.WriteFloat32Slice(w, p.Vision); err != nil {
			return err
		}
	}
	return nil
}

func ReadSimulationMap(r io.Reader) (simulator.SimulationMap, error) {
	var m simulator.SimulationMap
	n, err := codec.ReadUint32(r)
	if err != nil {
		return m, err
	}
	if err := checkArrayLen("map patches", n); err != nil {
		return m, err
	}
	m.Patches = make([]simulator.PatchView, n)
	for i := range m.Patches {
		p := &m.Patches[i]
		if p.Position, err = codec.ReadPosition(r); err != nil {
			return m, err
		}
		if p.Fixed, err = codec.ReadBool(r); err != nil {
			return m, err
		}
		itemCount, err := codec.ReadUint32(r)
		if err != nil {
			return m, err
		}
		if err := checkArrayLen("map patch items", itemCount); err != nil {
			return m, err
		}
		p.Items = make([]worldmap.Item, itemCount)
		for j := range p.Items {
			if p.Items[j], err = codec.ReadItem(r); err != nil {
				return m, err
			}
		}
		if p.AgentIDs, err = codec.ReadUint64Slice(r); err != nil {
			return m, err
		}
		if p.Scent, err = codec.ReadFloat32Slice(r); err != nil {
			return m, err
		}
		if p.Vision, err = codec.ReadFloat32Slice(r); err != nil {
			return m, err
		}
	}
	return m, nil
}

// GetAgentStates is {ids}.
type GetAgentStates struct {
	AgentIDs []uint64
}

func WriteGetAgentStates(w io.Writer, m GetAgentStates) error {
	return codec.WriteUint64Slice(w, m.AgentIDs)
}

func ReadGetAgentStates(r io.Reader) (GetAgentStates, error) {
	var m GetAgentStates
	var err error
	m.AgentIDs, err = codec.ReadUint64Slice(r)
	return m, err
}

// GetAgentStatesResp is {states}, parallel to the request's id array.
type GetAgentStatesResp struct {
	States []simulator.Snapshot
}

func WriteGetAgentStatesResp(w io.Writer, m GetAgentStatesResp) error {
	if err := codec.WriteUint32(w, uint32(len(m.States))); err != nil {
		return err
	}
	for _, st := range m.States {
		if err := simulator.EncodeSnapshot(w, st); err != nil {
			return err
		}
	}
	return nil
}

func ReadGetAgentStatesResp(r io.Reader) (GetAgentStatesResp, error) {
	var m GetAgentStatesResp
	n, err := codec.ReadUint32(r)
	if err != nil {
		return m, err
	}
	if err := checkArrayLen("agent states", n); err != nil {
		return m, err
	}
	m.States = make([]simulator.Snapshot, n)
	for i := range m.States {
		if m.States[i], err = simulator.DecodeSnapshot(r); err != nil {
			return m, err
		}
	}
	return m, nil
}

// GetAgentIdsResp is {ids}.
type GetAgentIdsResp struct {
	AgentIDs []uint64
}

func WriteGetAgentIdsResp(w io.Writer, m GetAgentIdsResp) error {
	return codec.WriteUint64Slice(w, m.AgentIDs)
}

func ReadGetAgentIdsResp(r io.Reader) (GetAgentIdsResp, error) {
	var m GetAgentIdsResp
	var err error
	m.AgentIDs, err = codec.ReadUint64Slice(r)
	return m, err
}

// StepResp is the server-push sent once per closed barrier: the receiving
// connection's owned agent ids and their fresh states (spec.md §4.9: "Step
// broadcasts include, per client, only the owned agents' new states").
type StepResp struct {
	OwnedAgentIDs    []uint64
	OwnedAgentStates []simulator.Snapshot
}

func WriteStepResp(w io.Writer, m StepResp) error {
	if err := codec.WriteUint64Slice(w, m.OwnedAgentIDs); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, uint32(len(m.OwnedAgentStates))); err != nil {
		return err
	}
	for _, st := range m.OwnedAgentStates {
		if err := simulator.EncodeSnapshot(w, st); err != nil {
			return err
		}
	}
	return nil
}

func ReadStepResp(r io.Reader) (StepResp, error) {
	var m StepResp
	var err error
	if m.OwnedAgentIDs, err = codec.ReadUint64Slice(r); err != nil {
		return m, err
	}
	n, err := codec.ReadUint32(r)
	if err != nil {
		return m, err
	}
	if err := checkArrayLen("step resp states", n); err != nil {
		return m, err
	}
	m.OwnedAgentStates = make([]simulator.Snapshot, n)
	for i := range m.OwnedAgentStates {
		if m.OwnedAgentStates[i], err = simulator.DecodeSnapshot(r); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Handshake is the connect-time {sim_time, config} the server sends first
// (spec.md §6).
type Handshake struct {
	SimTime uint64
	Config  simulator.Config
}

func WriteHandshake(w io.Writer, m Handshake) error {
	if err := codec.WriteUint64(w, m.SimTime); err != nil {
		return err
	}
	return simulator.EncodeConfig(w, m.Config)
}

func ReadHandshake(r io.Reader) (Handshake, error) {
	var m Handshake
	var err error
	if m.SimTime, err = codec.ReadUint64(r); err != nil {
		return m, err
	}
	m.Config, err = simulator.DecodeConfig(r)
	return m, err
}

// HandshakeAck is the client's {n, agent_ids[n]} reply to Handshake.
type HandshakeAck struct {
	AgentIDs []uint64
}

func WriteHandshakeAck(w io.Writer, m HandshakeAck) error {
	return codec.WriteUint64Slice(w, m.AgentIDs)
}

func ReadHandshakeAck(r io.Reader) (HandshakeAck, error) {
	var m HandshakeAck
	var err error
	m.AgentIDs, err = codec.ReadUint64Slice(r)
	return m, err
}

func checkArrayLen(field string, n uint32) error {
	if n > codec.MaxArrayLen {
		return &codec.ErrTooLarge{Field: field, Len: n}
	}
	return nil
}
