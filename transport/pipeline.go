package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/nyholt/emberhttp/httpx"
	"github.com/nyholt/emberhttp/telemetry"
)

// MaxPostContentLen bounds an incoming body, mirroring httpx.MaxPostContentLen
// (spec.md §4.1); enforced here because the pipeline is what decides how
// many more bytes to read for the body.
const MaxPostContentLen = httpx.MaxPostContentLen

// Pipeline orchestrates one accept-to-dispatch read cycle for a Connection
// (spec.md §4.6): async read-some -> parse -> read-more -> spill-over copy
// -> dispatch.
type Pipeline struct {
	Dispatcher *httpx.Dispatcher
	Logger     *slog.Logger
	telemetry  *telemetry.Telemetry
}

// NewPipeline returns a Pipeline dispatching through d, logging and
// instrumenting through tel (a nil tel falls back to telemetry.Noop()).
func NewPipeline(d *httpx.Dispatcher, tel *telemetry.Telemetry) *Pipeline {
	if tel == nil {
		tel = telemetry.Noop()
	}
	return &Pipeline{Dispatcher: d, Logger: tel.Logger, telemetry: tel}
}

// Run drives exactly one request/response cycle on conn: it reads until a
// full request-line-and-headers block is seen (or the connection errs or
// hits a limit), reads any remaining body bytes, dispatches to the
// registered module, and reports whether the connection should be kept
// alive for a follow-up Run call.
//
// Run never loops internally waiting for a second request — spec.md §2's
// "connection either closes... or re-enters the acceptor's idle path" is
// realized by the caller (httpserver.Server.serve) resubmitting a new job
// for this Connection when keepAlive is true. That next Run blocks its
// worker goroutine in ReadSome until the client sends again or the read
// fails.
func (p *Pipeline) Run(conn *Connection) (keepAlive bool) {
	req := httpx.NewRequest(conn.RemoteAddr())
	req.ConnectionID = conn.ID()
	parser := httpx.NewParser(req)

	// Each ReadSome call is fed to the parser as-is: the parser's own state
	// tracks how much of any earlier fragment it already consumed, so only
	// the newly read bytes are ever passed in (spec.md §4.3's "ptr is
	// advanced past bytes consumed... may be called repeatedly").
	var spillover []byte

	result := httpx.Incomplete
	for result == httpx.Incomplete {
		chunk, err := conn.ReadSome()
		if err != nil {
			p.logReadError(conn, parser, err)
			conn.SetMode(Close)
			conn.Finish()
			return false
		}

		var n int
		result, n = parser.Parse(chunk)
		if result != httpx.Incomplete {
			// Bytes past n in this last chunk spilled over from the
			// header read; copy them out now since chunk aliases the
			// connection's reusable read buffer.
			spillover = append([]byte(nil), chunk[n:]...)
		}
	}

	if result == httpx.Invalid {
		p.Logger.Debug("request parse invalid",
			"connection_id", conn.ID(), "remote_addr", conn.RemoteAddr(), "reason", "parse_invalid")
		conn.SetMode(Close)
		req.KeepAlive = false
		p.dispatch(req, conn)
		conn.Finish()
		return false
	}

	// result == Complete.

	req.UpdateContentLengthFromHeader()
	req.UpdateTransferCodingFromHeader()
	contentLength := req.GetContentLength()

	if contentLength > MaxPostContentLen {
		p.Logger.Debug("request body exceeds limit",
			"connection_id", conn.ID(), "content_length", contentLength)
		conn.SetMode(Close)
		conn.Finish()
		return false
	}

	if contentLength > 0 {
		req.CreateContentBuffer()
		buf := req.ContentBuffer()

		toCopy := len(spillover)
		if toCopy > contentLength {
			// Excess bytes beyond Content-Length in the header-read buffer
			// are a protocol error in this core: no pipelining
			// (spec.md §9 Open Question (b)).
			p.Logger.Debug("excess bytes beyond content-length",
				"connection_id", conn.ID())
			conn.SetMode(Close)
			conn.Finish()
			return false
		}
		copy(buf, spillover)

		if toCopy < contentLength {
			if err := conn.ReadExactly(buf[toCopy:contentLength]); err != nil {
				p.logReadError(conn, parser, err)
				conn.SetMode(Close)
				conn.Finish()
				return false
			}
		}
	}

	if err := req.Finalize(); err != nil {
		// A malformed query string, form body, or Cookie header is surfaced
		// to the handler as an invalid Request (spec.md §7's ParseError
		// policy: "no automatic response generation at the parser layer") —
		// the connection still closes since nothing recovers a
		// partially-decoded request, but the handler runs first.
		p.Logger.Debug("request finalize failed",
			"connection_id", conn.ID(), "error", err.Error())
		conn.SetMode(Close)
		req.KeepAlive = false
		p.dispatch(req, conn)
		conn.Finish()
		return false
	}

	// A connection already marked Close by Server.Stop (graceful shutdown,
	// spec.md §4.9) finishes its current response but is never resubmitted,
	// regardless of what this request itself asked for.
	keepAlive = req.CheckKeepAlive() && conn.Mode() != Close
	if keepAlive {
		conn.SetMode(KeepAlive)
	} else {
		conn.SetMode(Close)
	}
	req.KeepAlive = keepAlive

	p.dispatch(req, conn)

	if !keepAlive {
		conn.Finish()
	}
	return keepAlive
}

// dispatch wraps one Dispatcher.Dispatch call with a request span and the
// requests/duration metrics from p.telemetry, sniffing the response status
// code off the first bytes the handler writes (the status line, written as
// its own net.Buffers entry by Response.Send).
func (p *Pipeline) dispatch(req *httpx.Request, conn *Connection) {
	_, finish := p.telemetry.StartRequest(context.Background(), req.Method, req.Resource)
	sc := &statusSniffingConn{Connection: conn}
	p.Dispatcher.Dispatch(req, sc)
	finish(sc.status)
}

// statusSniffingConn forwards every Write to the wrapped Connection while
// extracting the numeric status code from the first Write call, which
// Response.Send always issues as the standalone status line.
type statusSniffingConn struct {
	*Connection
	status  int
	scanned bool
}

func (s *statusSniffingConn) Write(p []byte) (int, error) {
	if !s.scanned {
		s.scanned = true
		s.status = parseStatusCode(p)
	}
	return s.Connection.Write(p)
}

func parseStatusCode(statusLine []byte) int {
	fields := bytes.SplitN(statusLine, []byte(" "), 3)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return 0
	}
	return code
}

// logReadError classifies a transport read failure per spec.md §7: an
// aborted operation (shutdown in progress) logs at Info with a distinct
// reason from any other I/O failure, and a read failure before any bytes
// were parsed (still MethodStart) is silent per spec.md §4.6 step 1.
func (p *Pipeline) logReadError(conn *Connection, parser *httpx.Parser, err error) {
	if errors.Is(err, io.EOF) && parser.State() == httpx.MethodStart {
		return
	}
	if isAborted(err) {
		p.Logger.Info("connection aborted", "connection_id", conn.ID(), "reason", "shutdown")
		return
	}
	if parser.State() == httpx.MethodStart {
		return
	}
	p.Logger.Info("connection read error",
		"connection_id", conn.ID(), "reason", "io_error", "error", err.Error())
}

func isAborted(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
