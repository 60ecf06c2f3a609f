package netpoll_test

import (
	"net"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jbw/netpoll"
)

func mustListen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	return ln
}

func TestListenerLifecycle(t *testing.T) {
	Convey("A freshly constructed Listener starts in the Starting state", t, func() {
		ln := mustListen(t)
		l := netpoll.New(ln, 2, func(net.Conn) {})
		So(l.State(), ShouldEqual, netpoll.Starting)

		Convey("Start transitions it to Started", func() {
			So(l.Start(), ShouldBeNil)
			So(l.State(), ShouldEqual, netpoll.Started)

			Convey("A second Start call fails with ErrAlreadyStarted", func() {
				So(l.Start(), ShouldEqual, netpoll.ErrAlreadyStarted)
			})

			Convey("Stop transitions it to Stopped and refuses new connections", func() {
				So(l.Stop(), ShouldBeNil)
				So(l.State(), ShouldEqual, netpoll.Stopped)

				_, err := net.Dial("tcp", ln.Addr().String())
				So(err, ShouldNotBeNil)
			})
		})

		Convey("Stop before Start fails with ErrNotStarted", func() {
			So(l.Stop(), ShouldEqual, netpoll.ErrNotStarted)
		})
	})
}

func TestListenerDispatchesAcceptedConnectionsToHandler(t *testing.T) {
	Convey("Given a started listener with a handler that records connections", t, func() {
		ln := mustListen(t)

		var mu sync.Mutex
		handled := 0
		done := make(chan struct{}, 3)

		l := netpoll.New(ln, 2, func(c net.Conn) {
			mu.Lock()
			handled++
			mu.Unlock()
			c.Close()
			done <- struct{}{}
		})
		So(l.Start(), ShouldBeNil)
		defer l.Stop()

		Convey("Each dialed connection reaches the handler exactly once", func() {
			for i := 0; i < 3; i++ {
				conn, err := net.Dial("tcp", ln.Addr().String())
				So(err, ShouldBeNil)
				conn.Close()
			}

			for i := 0; i < 3; i++ {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("timed out waiting for handler dispatch")
				}
			}

			mu.Lock()
			defer mu.Unlock()
			So(handled, ShouldEqual, 3)
		})
	})
}
