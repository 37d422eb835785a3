package httpx

import (
	"io"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
)

// Connection is the minimal surface a Handler needs from the transport
// layer: enough to write a response and to tag its own log lines, without
// httpx importing the transport package (which itself imports httpx for
// Request/Response — see DESIGN.md for the layering rationale).
type Connection interface {
	io.Writer
	RemoteAddr() string
	ID() string
}

// Handler is the module contract from spec.md §6: given a request and the
// connection it arrived on, produce a response and return true, or return
// false to let dispatch fall through to the next-shorter registered prefix
// (and eventually the fallback).
type Handler func(req *Request, conn Connection) bool

// NotFound is the default fallback handler: an empty 404 response.
func NotFound(req *Request, conn Connection) bool {
	resp := NewResponse()
	resp.SetStatusCode(404)
	resp.SetStatusMessage("Not Found")
	resp.SetVersion(req.Version())
	resp.SetChunkSupported(req.versionMajor > 1 || (req.versionMajor == 1 && req.versionMinor >= 1))
	resp.Send(conn, req.KeepAlive)
	return true
}

// Dispatcher is the per-server module dispatch table (spec.md §4.8): an
// ordered mapping from URI prefix to Handler, longest-prefix-match lookup,
// and a registered fallback. Reads take a shared lock, the rare
// registration/removal calls take an exclusive one (spec.md §5).
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	prefixes []string // kept sorted longest-first for lookup
	fallback Handler

	// onPanic, if set, is invoked when a Handler panics; it receives the
	// recovered value and a captured stack trace. Wired by httpserver to
	// telemetry so httpx itself carries no logging dependency.
	onPanic func(recovered any, stack []byte)
}

// NewDispatcher returns a Dispatcher whose fallback is NotFound.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		fallback: NotFound,
	}
}

// SetPanicHandler installs the callback invoked when a Handler panics.
func (d *Dispatcher) SetPanicHandler(fn func(recovered any, stack []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onPanic = fn
}

// AddModule registers handler for prefix. Registering the empty prefix is
// equivalent to SetFallback, per spec.md §4.8.
func (d *Dispatcher) AddModule(prefix string, handler Handler) {
	if prefix == "" {
		d.SetFallback(handler)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[prefix]; !exists {
		d.prefixes = append(d.prefixes, prefix)
		sort.Slice(d.prefixes, func(i, j int) bool {
			return len(d.prefixes[i]) > len(d.prefixes[j])
		})
	}
	d.handlers[prefix] = handler
}

// RemoveModule unregisters the handler for prefix, if any.
func (d *Dispatcher) RemoveModule(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[prefix]; !exists {
		return
	}
	delete(d.handlers, prefix)
	for i, p := range d.prefixes {
		if p == prefix {
			d.prefixes = append(d.prefixes[:i], d.prefixes[i+1:]...)
			break
		}
	}
}

// SetFallback installs the handler invoked when no registered prefix
// matches the request's resource.
func (d *Dispatcher) SetFallback(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if handler == nil {
		handler = NotFound
	}
	d.fallback = handler
}

// match returns, in longest-to-shortest order, every registered prefix
// that is a prefix of resource.
func (d *Dispatcher) match(resource string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.prefixes))
	for _, p := range d.prefixes {
		if strings.HasPrefix(resource, p) {
			out = append(out, p)
		}
	}
	return out
}

func (d *Dispatcher) handlerFor(prefix string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[prefix]
}

func (d *Dispatcher) fallbackHandler() Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fallback
}

// Dispatch selects the longest registered prefix that is a prefix of
// req.Resource and invokes its handler; if the handler returns false,
// dispatch continues to the next-shorter matching prefix, and finally to
// the fallback. A panicking handler is recovered at this boundary
// (spec.md §7, HandlerError) — the panic never propagates to the caller's
// worker goroutine and does not affect any other in-flight connection.
func (d *Dispatcher) Dispatch(req *Request, conn Connection) {
	defer func() {
		if rec := recover(); rec != nil {
			if fn := d.onPanicFn(); fn != nil {
				fn(rec, debug.Stack())
			}
			resp := NewResponse()
			resp.SetStatusCode(500)
			resp.SetStatusMessage("Internal Server Error")
			resp.SetVersion(req.Version())
			resp.Send(conn, false)
		}
	}()

	for _, prefix := range d.match(req.Resource) {
		handler := d.handlerFor(prefix)
		if handler == nil {
			continue
		}
		if handler(req, conn) {
			return
		}
	}
	d.fallbackHandler()(req, conn)
}

func (d *Dispatcher) onPanicFn() func(recovered any, stack []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.onPanic
}
