// Command jbw-client is a minimal scripted client: it connects, claims one
// fresh agent, and drives it forward for a fixed number of ticks, printing
// each step's position. It exists as a runnable worked example of the wire
// protocol from the client side.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"jbw/position"
	"jbw/protocol"
)

func main() {
	var (
		addr  = flag.String("addr", "localhost:54321", "server address")
		ticks = flag.Int("ticks", 20, "number of forward moves to make")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "jbw-client: ", log.LstdFlags)

	nc, err := net.Dial("tcp", *addr)
	if err != nil {
		logger.Fatalf("dial %s: %v", *addr, err)
	}
	conn := protocol.NewConn(nc)
	defer conn.Close()

	var hs protocol.Handshake
	if err := conn.ReadRaw(func(r io.Reader) error {
		h, err := protocol.ReadHandshake(r)
		hs = h
		return err
	}); err != nil {
		logger.Fatalf("handshake read: %v", err)
	}
	logger.Printf("connected: sim_time=%d scent_dim=%d color_dim=%d", hs.SimTime, hs.Config.ScentDim, hs.Config.ColorDim)

	if err := conn.WriteRaw(func(w io.Writer) error {
		return protocol.WriteHandshakeAck(w, protocol.HandshakeAck{AgentIDs: nil})
	}); err != nil {
		logger.Fatalf("handshake ack: %v", err)
	}

	if err := conn.WriteMessage(protocol.TagAddAgent, func(w io.Writer) error { return nil }); err != nil {
		logger.Fatalf("add agent: %v", err)
	}
	tag, err := conn.ReadTag()
	if err != nil {
		logger.Fatalf("add agent resp tag: %v", err)
	}
	var addResp protocol.AddAgentResp
	err = func() error {
		defer conn.UnlockRead()
		if tag != protocol.TagAddAgentResp {
			return fmt.Errorf("expected AddAgentResp, got tag %d", tag)
		}
		addResp, err = protocol.ReadAddAgentResp(conn.Reader())
		return err
	}()
	if err != nil {
		logger.Fatalf("add agent resp: %v", err)
	}
	if addResp.AgentID == protocol.NoSuchAgent {
		logger.Fatalf("server refused to add agent")
	}
	logger.Printf("agent %d spawned at %v", addResp.AgentID, addResp.State.Position)

	for i := 0; i < *ticks; i++ {
		if err := conn.WriteMessage(protocol.TagMove, func(w io.Writer) error {
			return protocol.WriteMove(w, protocol.Move{AgentID: addResp.AgentID, Dir: position.Up, Steps: 1})
		}); err != nil {
			logger.Fatalf("move: %v", err)
		}

		tag, err := conn.ReadTag()
		if err != nil {
			logger.Fatalf("move resp tag: %v", err)
		}
		var moveResp protocol.AgentIDResp
		err = func() error {
			defer conn.UnlockRead()
			if tag != protocol.TagMoveResp {
				return fmt.Errorf("expected MoveResp, got tag %d", tag)
			}
			moveResp, err = protocol.ReadAgentIDResp(conn.Reader())
			return err
		}()
		if err != nil {
			logger.Fatalf("move resp: %v", err)
		}
		if !moveResp.Success {
			logger.Printf("tick %d: move rejected", i)
			continue
		}

		tag, err = conn.ReadTag()
		if err != nil {
			logger.Fatalf("step resp tag: %v", err)
		}
		err = func() error {
			defer conn.UnlockRead()
			if tag != protocol.TagStepResp {
				return fmt.Errorf("expected StepResp, got tag %d", tag)
			}
			step, err := protocol.ReadStepResp(conn.Reader())
			if err != nil {
				return err
			}
			for j, id := range step.OwnedAgentIDs {
				if id == addResp.AgentID {
					logger.Printf("tick %d: position=%v", i, step.OwnedAgentStates[j].Position)
				}
			}
			return nil
		}()
		if err != nil {
			logger.Fatalf("step resp: %v", err)
		}
	}
}
