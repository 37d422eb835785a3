package httpx

import (
	"bytes"
	"testing"
)

type bufConn struct {
	bytes.Buffer
	remote string
	id     string
}

func (c *bufConn) RemoteAddr() string { return c.remote }
func (c *bufConn) ID() string         { return c.id }

func handlerNamed(name string) Handler {
	return func(req *Request, conn Connection) bool {
		resp := NewResponse()
		resp.SetVersion(req.Version())
		resp.Write([]byte(name))
		resp.Send(conn, false)
		return true
	}
}

// S7 longest-prefix dispatch.
func TestDispatchLongestPrefix(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("/", handlerNamed("root"))
	d.AddModule("/a", handlerNamed("a"))
	d.AddModule("/a/b", handlerNamed("ab"))

	cases := []struct {
		resource string
		want     string
	}{
		{"/a/b/c", "ab"},
		{"/a/x", "a"},
		{"/z", "root"},
	}
	for _, c := range cases {
		req := NewRequest("")
		req.Resource = c.resource
		conn := &bufConn{}
		d.Dispatch(req, conn)
		if !bytes.Contains(conn.Bytes(), []byte(c.want)) {
			t.Errorf("resource %q: response %q does not contain %q", c.resource, conn.String(), c.want)
		}
	}
}

func TestDispatchFallbackWhenRootUnregistered(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("/a", handlerNamed("a"))

	req := NewRequest("")
	req.Resource = "/z"
	conn := &bufConn{}
	d.Dispatch(req, conn)
	if !bytes.Contains(conn.Bytes(), []byte("404")) {
		t.Errorf("expected fallback 404, got %q", conn.String())
	}
}

func TestDispatchFallthrough(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("/a", func(req *Request, conn Connection) bool { return false })
	d.AddModule("/", handlerNamed("root"))

	req := NewRequest("")
	req.Resource = "/a/b"
	conn := &bufConn{}
	d.Dispatch(req, conn)
	if !bytes.Contains(conn.Bytes(), []byte("root")) {
		t.Errorf("expected fallthrough to root, got %q", conn.String())
	}
}

func TestDispatchRemoveModuleFallsThroughToFallback(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("/a", handlerNamed("a"))
	d.AddModule("/", handlerNamed("root"))

	d.RemoveModule("/a")

	req := NewRequest("")
	req.Resource = "/a/b"
	conn := &bufConn{}
	d.Dispatch(req, conn)
	if !bytes.Contains(conn.Bytes(), []byte("root")) {
		t.Errorf("expected fallback to root after RemoveModule, got %q", conn.String())
	}
}

func TestDispatchRemoveModuleUnregisteredPrefixIsNoop(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("/a", handlerNamed("a"))
	d.RemoveModule("/never-registered")

	req := NewRequest("")
	req.Resource = "/a/b"
	conn := &bufConn{}
	d.Dispatch(req, conn)
	if !bytes.Contains(conn.Bytes(), []byte("a")) {
		t.Errorf("expected /a handler to remain registered, got %q", conn.String())
	}
}

func TestDispatchEmptyPrefixIsFallback(t *testing.T) {
	d := NewDispatcher()
	d.AddModule("", handlerNamed("fallback"))

	req := NewRequest("")
	req.Resource = "/anything"
	conn := &bufConn{}
	d.Dispatch(req, conn)
	if !bytes.Contains(conn.Bytes(), []byte("fallback")) {
		t.Errorf("expected empty-prefix registration to act as fallback, got %q", conn.String())
	}
}

func TestDispatchRecoversPanickingHandler(t *testing.T) {
	d := NewDispatcher()
	var recovered any
	d.SetPanicHandler(func(rec any, stack []byte) { recovered = rec })
	d.AddModule("/boom", func(req *Request, conn Connection) bool {
		panic("kaboom")
	})

	req := NewRequest("")
	req.Resource = "/boom"
	conn := &bufConn{}
	d.Dispatch(req, conn)

	if recovered == nil {
		t.Error("expected panic handler to be invoked")
	}
	if !bytes.Contains(conn.Bytes(), []byte("500")) {
		t.Errorf("expected 500 response after recovered panic, got %q", conn.String())
	}
}
