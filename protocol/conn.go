package protocol

import (
	"bufio"
	"io"
	"net"
	"sync"
)

// Conn serializes reads and writes to a single TCP connection: the wire
// format has no inherent framing beyond "tag then fixed fields", so two
// goroutines writing concurrently would interleave their bytes. One mutex
// each for reads and writes, over a raw net.Conn plus buffered
// reader/writer.
type Conn struct {
	nc net.Conn
	r  *bufio.Reader
	w  *bufio.Writer

	readMu  sync.Mutex
	writeMu sync.Mutex
}

func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: bufio.NewReader(nc), w: bufio.NewWriter(nc)}
}

// Reader exposes the buffered reader for decode functions that need direct
// io.Reader access. It takes no lock; callers decode through it only
// between ReadTag and UnlockRead.
func (c *Conn) Reader() *bufio.Reader {
	return c.r
}

// ReadTag serializes against other readers and returns the next message's
// tag; the caller then calls the matching Read*-function directly against
// c.Reader() to decode the payload before releasing readMu via UnlockRead.
func (c *Conn) ReadTag() (Tag, error) {
	c.readMu.Lock()
	return ReadTag(c.r)
}

// UnlockRead releases the read lock ReadTag acquired. Always call exactly
// once after ReadTag, whether or not the payload decode succeeded.
func (c *Conn) UnlockRead() {
	c.readMu.Unlock()
}

// ReadRaw serializes against other readers for the duration of decode, used
// for the handshake's untagged payloads.
func (c *Conn) ReadRaw(decode func(io.Reader) error) error {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return decode(c.r)
}

// WriteMessage writes tag followed by encode's payload as one atomic unit
// from the perspective of other writers, then flushes.
func (c *Conn) WriteMessage(tag Tag, encode func(io.Writer) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := WriteTag(c.w, tag); err != nil {
		return err
	}
	if err := encode(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

// WriteRaw writes a payload with no leading tag, for the handshake's
// untagged {sim_time, config} and the untagged AgentState blobs that follow
// the client's ack (spec.md §6).
func (c *Conn) WriteRaw(encode func(io.Writer) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := encode(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
