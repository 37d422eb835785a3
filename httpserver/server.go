// Package httpserver implements the per-port TCP/HTTP acceptor (spec.md
// §4.9): it owns a listener, a set of live connections, and the module
// dispatch table those connections are served through.
package httpserver

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nyholt/emberhttp/httpx"
	"github.com/nyholt/emberhttp/telemetry"
	"github.com/nyholt/emberhttp/transport"
	"github.com/nyholt/emberhttp/validation"
)

// Config is an HTTPServer's validated construction input (SPEC_FULL §4.12).
type Config struct {
	Port           int
	ReadBufferSize int

	// TLS marks every connection this server accepts as logically
	// TLS-originated, e.g. when this server sits behind a TLS-terminating
	// proxy that has already stripped TLS before bytes reach it. The
	// framework never performs the TLS handshake itself (spec.md §1
	// Non-goals); this flag carries no transport behavior of its own — it
	// only sets the Connection.IsTLS() value exposed to handlers
	// (SPEC_FULL §4.13).
	TLS bool
}

// DefaultConfig returns a Config with the framework's defaults, matching
// transport.ReadBufferSize.
func DefaultConfig(port int) Config {
	return Config{Port: port, ReadBufferSize: transport.ReadBufferSize}
}

// Validate checks Config against SPEC_FULL §4.12's rules via
// validation.ValidateMap, the typed struct converted to the map[string]any
// shape that validator expects.
func (c Config) Validate() error {
	readBufferSize := c.ReadBufferSize
	if readBufferSize == 0 {
		readBufferSize = transport.ReadBufferSize
	}

	violations := validation.ValidateMap(
		map[string]any{
			"port":             c.Port,
			"read_buffer_size": readBufferSize,
			"tls":              c.TLS,
		},
		map[string][]string{
			"port":             {"min:1", "max:65535"},
			"read_buffer_size": {"min:512"},
			"tls":              {"bool"},
		},
	)
	if !violations.IsEmpty() {
		return &StateError{Op: "validate", Reason: fmt.Sprint(violations.Errors)}
	}
	return nil
}

// StateError reports a server-level misconfiguration or lifecycle error
// (spec.md §7's StateError, never crosses a connection boundary).
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string { return fmt.Sprintf("httpserver: %s: %s", e.Op, e.Reason) }

// Submitter hands a freshly accepted or keep-alive connection to whatever
// drives it forward — the engine's worker pool in production, a direct call
// in tests. Decoupling Server from the pool avoids an import cycle back
// into engine.
type Submitter interface {
	Submit(job func())
}

// SubmitterFunc adapts a plain function to a Submitter.
type SubmitterFunc func(job func())

func (f SubmitterFunc) Submit(job func()) { f(job) }

// Server is one listening HTTP endpoint: an acceptor loop, a live-connection
// set, and the Dispatcher every accepted connection is served through
// (spec.md §4.9). The zero value is not usable; construct with New.
type Server struct {
	config     Config
	dispatcher *httpx.Dispatcher
	pipeline   *transport.Pipeline
	telemetry  *telemetry.Telemetry
	submitter  Submitter

	mu          sync.Mutex
	listener    net.Listener
	listening   bool
	connections map[*transport.Connection]struct{}
}

// New returns a Server bound to cfg, dispatching accepted requests through
// dispatcher and driving each connection's read pipeline via submit (in
// production, engine.Engine.Submit; in tests, a synchronous SubmitterFunc).
func New(cfg Config, dispatcher *httpx.Dispatcher, submit Submitter, tel *telemetry.Telemetry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tel == nil {
		tel = telemetry.Noop()
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = transport.ReadBufferSize
	}

	dispatcher.SetPanicHandler(func(recovered any, stack []byte) {
		tel.Logger.Error("handler panic recovered",
			"recovered", fmt.Sprintf("%v", recovered), "stack", string(stack))
	})

	return &Server{
		config:      cfg,
		dispatcher:  dispatcher,
		pipeline:    transport.NewPipeline(dispatcher, tel),
		telemetry:   tel,
		submitter:   submit,
		connections: make(map[*transport.Connection]struct{}),
	}, nil
}

// Port returns the server's configured port.
func (s *Server) Port() int { return s.config.Port }

// Dispatcher returns the module dispatch table this server serves through,
// so callers can register modules before or after Start.
func (s *Server) Dispatcher() *httpx.Dispatcher { return s.dispatcher }

// Start binds the listener and begins accepting connections in a background
// goroutine (spec.md §4.9). Calling Start twice is a StateError.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return &StateError{Op: "start", Reason: "already listening"}
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		s.mu.Unlock()
		return &StateError{Op: "start", Reason: err.Error()}
	}
	s.listener = listener
	s.listening = true
	s.mu.Unlock()

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := !s.listening
			s.mu.Unlock()
			if stopping {
				return
			}
			s.telemetry.Logger.Info("accept error", "port", s.config.Port, "error", err.Error())
			continue
		}
		s.handleConnection(conn)
	}
}

// handleConnection wraps the accepted socket and submits its first read as
// a job (spec.md §4.9's handle_connection, generalized per SPEC_FULL §5:
// the pool consumes a job queue rather than the server driving I/O inline).
func (s *Server) handleConnection(raw net.Conn) {
	tc := transport.NewConnection(raw, s.config.TLS)

	s.mu.Lock()
	s.connections[tc] = struct{}{}
	s.mu.Unlock()

	s.submitter.Submit(func() { s.serve(tc) })
}

// serve drives one Pipeline.Run cycle and, on keep-alive, resubmits a
// follow-up job for the same connection rather than looping inline. The
// follow-up job's Run blocks the worker that picks it up in ReadSome for as
// long as the client stays idle. Mode is rechecked here too: Stop may mark the
// connection Close in the window between Run returning and this resubmit
// decision, and Run leaves the socket open whenever it reports keepAlive.
func (s *Server) serve(tc *transport.Connection) {
	keepAlive := s.pipeline.Run(tc)
	if keepAlive && tc.Mode() != transport.Close {
		s.submitter.Submit(func() { s.serve(tc) })
		return
	}
	s.mu.Lock()
	delete(s.connections, tc)
	s.mu.Unlock()
	if keepAlive {
		tc.Finish()
	}
}

// drainPollInterval is how often Stop rechecks the live-connection count
// while waiting for in-flight requests to finish.
const drainPollInterval = 5 * time.Millisecond

// Stop closes the acceptor, marks every live connection for
// close-after-current-response, and waits for them to drain (spec.md
// §4.9).
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = false
	listener := s.listener
	for tc := range s.connections {
		tc.SetMode(transport.Close)
	}
	s.mu.Unlock()

	err := listener.Close()

	for s.GetConnections() > 0 {
		time.Sleep(drainPollInterval)
	}

	return err
}

// GetConnections reports the number of currently tracked connections
// (spec.md §4.9, observable for tests).
func (s *Server) GetConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// Listening reports whether the server is currently accepting.
func (s *Server) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}
