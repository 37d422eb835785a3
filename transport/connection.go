// Package transport implements the TCP connection wrapper (spec.md §4.5)
// and the incremental read pipeline (spec.md §4.6) that drives an httpx.Parser
// against a live socket.
package transport

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// ReadBufferSize is the fixed-size read buffer every Connection owns,
// per spec.md §3 (TcpConnection attributes).
const ReadBufferSize = 8192

// LifecycleMode is a TcpConnection's post-response disposition.
type LifecycleMode int

const (
	// Close tears the connection down after the current response.
	Close LifecycleMode = iota
	// KeepAlive returns the connection to the accept path for another
	// request/response cycle.
	KeepAlive
	// Pipelined is reserved; it behaves as KeepAlive for now (spec.md §3).
	Pipelined
)

// Connection wraps one accepted socket: the read buffer, TLS flag, and
// lifecycle mode from spec.md §3, plus the correlation ID from
// SPEC_FULL.md §4.13. The read/write path is owned by exactly one goroutine
// at a time — whichever one currently holds the pointer — which is how this
// implementation realizes the spec's "strand" ordering guarantee without
// any additional locking (SPEC_FULL.md §5). The lifecycle mode is the one
// exception: Server.Stop marks a connection for close from a different
// goroutine than the one driving its pipeline, so mode is guarded by its
// own mutex.
type Connection struct {
	conn   net.Conn
	tls    bool
	id     string
	remote string

	modeMu sync.Mutex
	mode   LifecycleMode

	readBuf [ReadBufferSize]byte
}

// NewConnection wraps conn, stamping it with a fresh time-ordered
// correlation ID (spec.md §4.5, SPEC_FULL.md §4.13).
func NewConnection(conn net.Conn, tls bool) *Connection {
	id, err := uuid.NewV7()
	var idStr string
	if err != nil {
		idStr = uuid.NewString()
	} else {
		idStr = id.String()
	}
	return &Connection{
		conn:   conn,
		tls:    tls,
		mode:   KeepAlive,
		id:     idStr,
		remote: conn.RemoteAddr().String(),
	}
}

// ID returns the connection's correlation ID.
func (c *Connection) ID() string { return c.id }

// RemoteAddr returns the peer's address string.
func (c *Connection) RemoteAddr() string { return c.remote }

// IsTLS reports the tls flag the connection was created with
// (httpserver.Config.TLS). TLS itself is treated as an opaque byte-stream
// transport (spec.md §1 Non-goals); this flag is only exposed to any handler
// that wants to branch on scheme.
func (c *Connection) IsTLS() bool { return c.tls }

// SetMode sets the connection's lifecycle disposition. The read pipeline
// consults this after every completed response; Server.Stop calls it from
// outside the pipeline goroutine to mark a connection for close-after-
// current-response.
func (c *Connection) SetMode(mode LifecycleMode) {
	c.modeMu.Lock()
	c.mode = mode
	c.modeMu.Unlock()
}

// Mode returns the current lifecycle disposition.
func (c *Connection) Mode() LifecycleMode {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

// ReadSome performs one read into the connection's fixed 8KB buffer and
// returns the slice actually filled. It blocks the calling goroutine for
// the duration of the syscall — the Go runtime's netpoller integration is
// this implementation's realization of "suspension points are exactly the
// async I/O operations" (spec.md §5): the goroutine yields the OS thread
// while waiting, exactly as an async callback would suspend, without any
// callback-passing machinery in user code.
func (c *Connection) ReadSome() ([]byte, error) {
	n, err := c.conn.Read(c.readBuf[:])
	if n > 0 {
		return c.readBuf[:n], err
	}
	return nil, err
}

// ReadExactly reads until buf is completely filled or an error occurs.
func (c *Connection) ReadExactly(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := c.conn.Read(buf[total:])
		total += n
		if err != nil {
			return err
		}
	}
	return nil
}

// Write implements io.Writer so httpx.Response.Send (and the httpx.Connection
// interface used by module handlers) can write directly to the socket.
func (c *Connection) Write(p []byte) (int, error) { return c.conn.Write(p) }

// Finish closes the underlying socket. A caller keeping the connection
// alive for another request does not call it and resubmits a follow-up job
// instead (see httpserver.Server.serve).
func (c *Connection) Finish() error {
	return c.conn.Close()
}
