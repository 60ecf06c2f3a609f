package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"jbw/simulator"
)

// Logger is the minimal logging capability Server needs, satisfied by the
// standard library's *log.Logger (same narrow-interface habit as
// simulator.Logger).
type Logger interface {
	Printf(format string, v ...interface{})
}

// connState is one accepted connection's protocol-level bookkeeping: its
// framed Conn and the set of agent ids this connection owns (spec.md §4.9:
// "per connection the server tracks the set of agent ids owned by that
// client").
type connState struct {
	conn *Conn

	mu            sync.Mutex
	ownedAgentIDs []uint64

	// stepCh carries at most one pending StepResp: a connection slow to
	// drain a tick's push only ever sees the latest tick, never a growing
	// backlog.
	stepCh chan StepResp
}

func (cs *connState) owns(id uint64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, o := range cs.ownedAgentIDs {
		if o == id {
			return true
		}
	}
	return false
}

func (cs *connState) addOwned(id uint64) {
	cs.mu.Lock()
	cs.ownedAgentIDs = append(cs.ownedAgentIDs, id)
	cs.mu.Unlock()
}

func (cs *connState) removeOwned(id uint64) {
	cs.mu.Lock()
	for i, o := range cs.ownedAgentIDs {
		if o == id {
			cs.ownedAgentIDs = append(cs.ownedAgentIDs[:i], cs.ownedAgentIDs[i+1:]...)
			break
		}
	}
	cs.mu.Unlock()
}

// Server serves the wire protocol (spec.md §6) over accepted TCP
// connections against a single live Simulator.
type Server struct {
	sim    *simulator.Simulator
	logger Logger

	// connsMu is the connection-set lock (spec.md §5): guards conns during
	// accept/close and step broadcast.
	connsMu sync.Mutex
	conns   map[*connState]struct{}
}

func NewServer(sim *simulator.Simulator, logger Logger) *Server {
	s := &Server{
		sim:    sim,
		logger: logger,
		conns:  make(map[*connState]struct{}),
	}
	sim.SetStepCallback(s.onStep)
	return s
}

// onStep runs synchronously on whichever goroutine's action closed the
// barrier (spec.md §5: "the step procedure itself executes synchronously on
// the thread of the last agent to act; it must be short"), so it only
// computes per-connection deltas and performs non-blocking channel sends.
func (s *Server) onStep(tick uint64, actedAgentIDs []uint64) {
	_ = tick
	acted := make(map[uint64]bool, len(actedAgentIDs))
	for _, id := range actedAgentIDs {
		acted[id] = true
	}

	s.connsMu.Lock()
	conns := make([]*connState, 0, len(s.conns))
	for cs := range s.conns {
		conns = append(conns, cs)
	}
	s.connsMu.Unlock()

	for _, cs := range conns {
		cs.mu.Lock()
		owned := append([]uint64(nil), cs.ownedAgentIDs...)
		cs.mu.Unlock()

		var ids []uint64
		var states []simulator.Snapshot
		for _, id := range owned {
			if !acted[id] {
				continue
			}
			snap, err := s.sim.AgentState(id)
			if err != nil {
				continue
			}
			ids = append(ids, id)
			states = append(states, snap)
		}
		if len(ids) == 0 {
			continue
		}

		resp := StepResp{OwnedAgentIDs: ids, OwnedAgentStates: states}
		select {
		case cs.stepCh <- resp:
		default:
			select {
			case <-cs.stepCh:
			default:
			}
			select {
			case cs.stepCh <- resp:
			default:
			}
		}
	}
}

// Serve accepts connections from ln until it returns an error (typically
// because ln was closed).
func (s *Server) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(nc)
	}
}

// HandleConn runs the protocol over an already-accepted connection until it
// closes. Exported so a netpoll.Listener (or any other acceptor) can use it
// directly as a netpoll.Handler instead of going through Serve's own accept
// loop.
func (s *Server) HandleConn(nc net.Conn) {
	s.handleConn(nc)
}

func (s *Server) handleConn(nc net.Conn) {
	conn := NewConn(nc)
	cs := &connState{conn: conn, stepCh: make(chan StepResp, 1)}

	if err := s.handshake(conn, cs); err != nil {
		if s.logger != nil {
			s.logger.Printf("protocol: handshake failed: %v", err)
		}
		conn.Close()
		return
	}

	s.connsMu.Lock()
	s.conns[cs] = struct{}{}
	s.connsMu.Unlock()

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, cs)
		s.connsMu.Unlock()
		conn.Close()
	}()

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error { return s.readPump(ctx, conn, cs) })
	group.Go(func() error { return s.stepPump(ctx, conn, cs) })
	if err := group.Wait(); err != nil && s.logger != nil {
		s.logger.Printf("protocol: connection %s closed: %v", nc.RemoteAddr(), err)
	}
}

// handshake runs the connect sequence (spec.md §6): server sends
// {sim_time, config}, client replies with its owned agent id list, server
// replies with that many AgentState blobs.
func (s *Server) handshake(conn *Conn, cs *connState) error {
	if err := conn.WriteRaw(func(w io.Writer) error {
		return WriteHandshake(w, Handshake{SimTime: s.sim.Time(), Config: s.sim.Config()})
	}); err != nil {
		return err
	}

	var ack HandshakeAck
	if err := conn.ReadRaw(func(r io.Reader) error {
		a, err := ReadHandshakeAck(r)
		ack = a
		return err
	}); err != nil {
		return err
	}
	cs.ownedAgentIDs = ack.AgentIDs

	return conn.WriteRaw(func(w io.Writer) error {
		for _, id := range ack.AgentIDs {
			snap, err := s.sim.AgentState(id)
			if err != nil {
				snap = simulator.Snapshot{}
			}
			if err := simulator.EncodeSnapshot(w, snap); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseErr marks an error as a malformed-request parse failure: per
// spec.md §7's local recovery rule, these drop the offending message but
// keep the connection open, unlike every other error readPump sees.
type parseErr struct{ err error }

func (e *parseErr) Error() string { return e.err.Error() }
func (e *parseErr) Unwrap() error { return e.err }

func isParseErr(err error) bool {
	var pe *parseErr
	return errors.As(err, &pe)
}

func (s *Server) readPump(ctx context.Context, conn *Conn, cs *connState) error {
	for {
		tag, err := conn.ReadTag()
		if err != nil {
			conn.UnlockRead()
			return err
		}
		err = s.dispatch(conn, cs, tag)
		conn.UnlockRead()
		if err != nil {
			if isParseErr(err) {
				if s.logger != nil {
					s.logger.Printf("protocol: parse error: %v", err)
				}
				continue
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (s *Server) stepPump(ctx context.Context, conn *Conn, cs *connState) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case resp := <-cs.stepCh:
			if err := conn.WriteMessage(TagStepResp, func(w io.Writer) error {
				return WriteStepResp(w, resp)
			}); err != nil {
				return err
			}
		}
	}
}

// dispatch decodes one request body (already past its tag, read lock held
// by the caller) and writes the matching response.
func (s *Server) dispatch(conn *Conn, cs *connState, tag Tag) error {
	r := conn.Reader()

	switch tag {
	case TagAddAgent:
		id, err := s.sim.AddAgent()
		resp := AddAgentResp{AgentID: NoSuchAgent}
		if err == nil {
			resp.AgentID = id
			resp.State, _ = s.sim.AgentState(id)
			cs.addOwned(id)
		}
		return conn.WriteMessage(TagAddAgentResp, func(w io.Writer) error {
			return WriteAddAgentResp(w, resp)
		})

	case TagMove:
		req, err := ReadMove(r)
		if err != nil {
			return &parseErr{err}
		}
		err = s.sim.Move(req.AgentID, req.Dir, req.Steps)
		return conn.WriteMessage(TagMoveResp, func(w io.Writer) error {
			return WriteAgentIDResp(w, AgentIDResp{AgentID: req.AgentID, Success: err == nil})
		})

	case TagTurn:
		req, err := ReadTurn(r)
		if err != nil {
			return &parseErr{err}
		}
		err = s.sim.Turn(req.AgentID, req.Turn)
		return conn.WriteMessage(TagTurnResp, func(w io.Writer) error {
			return WriteAgentIDResp(w, AgentIDResp{AgentID: req.AgentID, Success: err == nil})
		})

	case TagNoOp:
		req, err := ReadAgentIDRequest(r)
		if err != nil {
			return &parseErr{err}
		}
		err = s.sim.NoOp(req.AgentID)
		return conn.WriteMessage(TagNoOpResp, func(w io.Writer) error {
			return WriteAgentIDResp(w, AgentIDResp{AgentID: req.AgentID, Success: err == nil})
		})

	case TagRemoveAgent:
		req, err := ReadAgentIDRequest(r)
		if err != nil {
			return &parseErr{err}
		}
		err = s.sim.RemoveAgent(req.AgentID)
		if err == nil {
			cs.removeOwned(req.AgentID)
		}
		return conn.WriteMessage(TagRemoveAgentResp, func(w io.Writer) error {
			return WriteAgentIDResp(w, AgentIDResp{AgentID: req.AgentID, Success: err == nil})
		})

	case TagSetActive:
		req, err := ReadSetActive(r)
		if err != nil {
			return &parseErr{err}
		}
		err = s.sim.SetActive(req.AgentID, req.Active)
		return conn.WriteMessage(TagSetActiveResp, func(w io.Writer) error {
			return WriteAgentIDResp(w, AgentIDResp{AgentID: req.AgentID, Success: err == nil})
		})

	case TagIsActive:
		req, err := ReadAgentIDRequest(r)
		if err != nil {
			return &parseErr{err}
		}
		active, err := s.sim.IsActive(req.AgentID)
		return conn.WriteMessage(TagIsActiveResp, func(w io.Writer) error {
			return WriteIsActiveResp(w, IsActiveResp{AgentID: req.AgentID, Active: active, Success: err == nil})
		})

	case TagGetMap:
		req, err := ReadGetMap(r)
		if err != nil {
			return &parseErr{err}
		}
		m := s.sim.Map(req.BottomLeft, req.TopRight)
		return conn.WriteMessage(TagGetMapResp, func(w io.Writer) error {
			return WriteSimulationMap(w, m)
		})

	case TagGetAgentIds:
		ids := s.sim.AgentIDs()
		return conn.WriteMessage(TagGetAgentIdsResp, func(w io.Writer) error {
			return WriteGetAgentIdsResp(w, GetAgentIdsResp{AgentIDs: ids})
		})

	case TagGetAgentStates:
		req, err := ReadGetAgentStates(r)
		if err != nil {
			return &parseErr{err}
		}
		states := make([]simulator.Snapshot, 0, len(req.AgentIDs))
		for _, id := range req.AgentIDs {
			snap, err := s.sim.AgentState(id)
			if err != nil {
				snap = simulator.Snapshot{}
			}
			states = append(states, snap)
		}
		return conn.WriteMessage(TagGetAgentStatesResp, func(w io.Writer) error {
			return WriteGetAgentStatesResp(w, GetAgentStatesResp{States: states})
		})

	default:
		return &parseErr{fmt.Errorf("unknown message tag %d", tag)}
	}
}
