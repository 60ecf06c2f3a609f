package protocol_test

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jbw/position"
	"jbw/protocol"
	"jbw/simulator"
)

func TestTagRoundTrip(t *testing.T) {
	Convey("A Tag round-trips as a uint64", t, func() {
		var buf bytes.Buffer
		So(protocol.WriteTag(&buf, protocol.TagMove), ShouldBeNil)
		got, err := protocol.ReadTag(&buf)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, protocol.TagMove)
	})
}

func TestRequestMessageRoundTrips(t *testing.T) {
	Convey("Request payloads round-trip through their Write/Read pair", t, func() {
		Convey("Move", func() {
			var buf bytes.Buffer
			want := protocol.Move{AgentID: 3, Dir: position.Right, Steps: 2}
			So(protocol.WriteMove(&buf, want), ShouldBeNil)
			got, err := protocol.ReadMove(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("Turn", func() {
			var buf bytes.Buffer
			want := protocol.Turn{AgentID: 5, Turn: position.TurnRight}
			So(protocol.WriteTurn(&buf, want), ShouldBeNil)
			got, err := protocol.ReadTurn(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("AgentIDRequest", func() {
			var buf bytes.Buffer
			want := protocol.AgentIDRequest{AgentID: 42}
			So(protocol.WriteAgentIDRequest(&buf, want), ShouldBeNil)
			got, err := protocol.ReadAgentIDRequest(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("SetActive", func() {
			var buf bytes.Buffer
			want := protocol.SetActive{AgentID: 9, Active: true}
			So(protocol.WriteSetActive(&buf, want), ShouldBeNil)
			got, err := protocol.ReadSetActive(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("GetMap", func() {
			var buf bytes.Buffer
			want := protocol.GetMap{
				BottomLeft: position.Position{X: -5, Y: -5},
				TopRight:   position.Position{X: 5, Y: 5},
			}
			So(protocol.WriteGetMap(&buf, want), ShouldBeNil)
			got, err := protocol.ReadGetMap(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("GetAgentStates", func() {
			var buf bytes.Buffer
			want := protocol.GetAgentStates{AgentIDs: []uint64{1, 2, 3}}
			So(protocol.WriteGetAgentStates(&buf, want), ShouldBeNil)
			got, err := protocol.ReadGetAgentStates(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})
	})
}

func TestResponseMessageRoundTrips(t *testing.T) {
	Convey("Response payloads round-trip through their Write/Read pair", t, func() {
		Convey("AgentIDResp carrying NoSuchAgent on failure", func() {
			var buf bytes.Buffer
			want := protocol.AgentIDResp{AgentID: protocol.NoSuchAgent, Success: false}
			So(protocol.WriteAgentIDResp(&buf, want), ShouldBeNil)
			got, err := protocol.ReadAgentIDResp(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("IsActiveResp", func() {
			var buf bytes.Buffer
			want := protocol.IsActiveResp{AgentID: 1, Active: true, Success: true}
			So(protocol.WriteIsActiveResp(&buf, want), ShouldBeNil)
			got, err := protocol.ReadIsActiveResp(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("GetAgentIdsResp", func() {
			var buf bytes.Buffer
			want := protocol.GetAgentIdsResp{AgentIDs: []uint64{10, 20}}
			So(protocol.WriteGetAgentIdsResp(&buf, want), ShouldBeNil)
			got, err := protocol.ReadGetAgentIdsResp(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("HandshakeAck", func() {
			var buf bytes.Buffer
			want := protocol.HandshakeAck{AgentIDs: []uint64{7}}
			So(protocol.WriteHandshakeAck(&buf, want), ShouldBeNil)
			got, err := protocol.ReadHandshakeAck(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})
	})
}

func TestHandshakeRoundTrip(t *testing.T) {
	Convey("Handshake carries the sim clock and full config", t, func() {
		cfg := simulator.DefaultConfig()
		want := protocol.Handshake{SimTime: 123, Config: cfg}

		var buf bytes.Buffer
		So(protocol.WriteHandshake(&buf, want), ShouldBeNil)
		got, err := protocol.ReadHandshake(&buf)
		So(err, ShouldBeNil)
		So(got.SimTime, ShouldEqual, want.SimTime)
		So(got.Config.RandomSeed, ShouldEqual, cfg.RandomSeed)
		So(got.Config.PatchSize, ShouldEqual, cfg.PatchSize)
		So(got.Config.AgentColor, ShouldResemble, cfg.AgentColor)
	})
}

func TestStepRespRoundTrip(t *testing.T) {
	Convey("StepResp carries one connection's owned agents and their fresh states", t, func() {
		want := protocol.StepResp{
			OwnedAgentIDs: []uint64{1, 2},
			OwnedAgentStates: []simulator.Snapshot{
				{ID: 1, Position: position.Position{X: 1, Y: 0}, Facing: position.Up},
				{ID: 2, Position: position.Position{X: 0, Y: 1}, Facing: position.Right},
			},
		}

		var buf bytes.Buffer
		So(protocol.WriteStepResp(&buf, want), ShouldBeNil)
		got, err := protocol.ReadStepResp(&buf)
		So(err, ShouldBeNil)
		So(got.OwnedAgentIDs, ShouldResemble, want.OwnedAgentIDs)
		So(len(got.OwnedAgentStates), ShouldEqual, len(want.OwnedAgentStates))
		for i := range want.OwnedAgentStates {
			So(got.OwnedAgentStates[i].ID, ShouldEqual, want.OwnedAgentStates[i].ID)
			So(got.OwnedAgentStates[i].Position, ShouldResemble, want.OwnedAgentStates[i].Position)
			So(got.OwnedAgentStates[i].Facing, ShouldEqual, want.OwnedAgentStates[i].Facing)
		}
	})
}
