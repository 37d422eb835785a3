package engine

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nyholt/emberhttp/httpx"
)

func freshEngine(t *testing.T) *Engine {
	t.Helper()
	Reset()
	return Instance()
}

func TestConfigValidateRejectsNegativeThreads(t *testing.T) {
	if err := (Config{NumThreads: -1}).Validate(); err == nil {
		t.Fatal("expected validation error for negative NumThreads")
	}
}

func TestInstanceIsASingleton(t *testing.T) {
	freshEngine(t)
	a := Instance()
	b := Instance()
	if a != b {
		t.Fatal("Instance() returned distinct engines")
	}
}

func TestStartWithNoServersIsStateError(t *testing.T) {
	e := freshEngine(t)
	if err := e.Start(); err == nil {
		t.Fatal("expected StateError starting with no registered servers")
	}
}

func TestAddHTTPServerRejectsDuplicatePort(t *testing.T) {
	e := freshEngine(t)
	if _, err := e.AddHTTPServer(18080); err != nil {
		t.Fatalf("first AddHTTPServer: %v", err)
	}
	if _, err := e.AddHTTPServer(18080); err == nil {
		t.Fatal("expected StateError for duplicate port")
	}
}

func TestSetNumThreadsRejectedAfterStart(t *testing.T) {
	e := freshEngine(t)
	if _, err := e.AddHTTPServer(18081); err != nil {
		t.Fatalf("AddHTTPServer: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if err := e.SetNumThreads(2); err == nil {
		t.Fatal("expected error setting num threads after Start")
	}
}

// End-to-end: register a server through the engine, start it, and confirm a
// request round-trips through the worker pool.
func TestEngineServesRequestThroughWorkerPool(t *testing.T) {
	e := freshEngine(t)
	if err := e.SetNumThreads(1); err != nil {
		t.Fatalf("SetNumThreads: %v", err)
	}

	srv, err := e.AddHTTPServer(18082)
	if err != nil {
		t.Fatalf("AddHTTPServer: %v", err)
	}
	srv.Dispatcher().AddModule("/never", func(req *httpx.Request, conn httpx.Connection) bool { return false })

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	var connErr error
	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, connErr = net.Dial("tcp", "127.0.0.1:18082")
		if connErr == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if connErr != nil {
		t.Fatalf("dial: %v", connErr)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.0\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404 (no module matched)", resp.StatusCode)
	}
}

// Property 9: worker-pool fairness with NumThreads = 1 — many concurrent
// short-lived jobs all complete without starvation.
func TestWorkerPoolFairnessSingleThread(t *testing.T) {
	e := freshEngine(t)
	if err := e.SetNumThreads(1); err != nil {
		t.Fatalf("SetNumThreads: %v", err)
	}
	if _, err := e.AddHTTPServer(18083); err != nil {
		t.Fatalf("AddHTTPServer: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		e.Submit(func() { wg.Done() })
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not all complete: possible starvation")
	}
}

// Property 10, engine half: a negative NumThreads fails validation before
// Start (the server half is in httpserver's TestConfigValidateRejectsBadPort).
func TestConfigValidationBeforeStart(t *testing.T) {
	if err := (Config{NumThreads: -5}).Validate(); err == nil {
		t.Fatal("expected engine config validation error")
	}
}
