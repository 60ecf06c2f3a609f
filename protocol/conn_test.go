package protocol_test

import (
	"io"
	"net"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jbw/protocol"
)

func TestConnWriteMessageReadTagRoundTrip(t *testing.T) {
	Convey("Given a pair of connections joined by a pipe", t, func() {
		clientNC, serverNC := net.Pipe()
		defer clientNC.Close()
		defer serverNC.Close()

		client := protocol.NewConn(clientNC)
		server := protocol.NewConn(serverNC)

		Convey("WriteMessage on one end is read as the same tag and payload on the other", func() {
			want := protocol.Move{AgentID: 9, Dir: 3, Steps: 1}

			done := make(chan error, 1)
			go func() {
				done <- client.WriteMessage(protocol.TagMove, func(w io.Writer) error {
					return protocol.WriteMove(w, want)
				})
			}()

			tag, err := server.ReadTag()
			So(err, ShouldBeNil)
			So(tag, ShouldEqual, protocol.TagMove)

			got, err := protocol.ReadMove(server.Reader())
			server.UnlockRead()
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)

			So(<-done, ShouldBeNil)
		})
	})
}

func TestConnWriteRawReadRaw(t *testing.T) {
	Convey("Given a pair of connections joined by a pipe", t, func() {
		clientNC, serverNC := net.Pipe()
		defer clientNC.Close()
		defer serverNC.Close()

		client := protocol.NewConn(clientNC)
		server := protocol.NewConn(serverNC)

		Convey("WriteRaw's untagged payload is read back exactly via ReadRaw", func() {
			want := protocol.HandshakeAck{AgentIDs: []uint64{1, 2, 3}}

			done := make(chan error, 1)
			go func() {
				done <- client.WriteRaw(func(w io.Writer) error {
					return protocol.WriteHandshakeAck(w, want)
				})
			}()

			var got protocol.HandshakeAck
			err := server.ReadRaw(func(r io.Reader) error {
				var decodeErr error
				got, decodeErr = protocol.ReadHandshakeAck(r)
				return decodeErr
			})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
			So(<-done, ShouldBeNil)
		})
	})
}
