package transport

import (
	"net"
	"testing"
)

func TestNewConnectionStampsID(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	a := NewConnection(serverConn, false)
	b := NewConnection(serverConn, false)

	if a.ID() == "" {
		t.Fatal("expected a non-empty correlation ID")
	}
	if a.ID() == b.ID() {
		t.Fatal("expected distinct correlation IDs across connections")
	}
}

func TestConnectionModeDefaultsToKeepAlive(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	c := NewConnection(serverConn, false)
	if c.Mode() != KeepAlive {
		t.Errorf("default mode = %v, want KeepAlive", c.Mode())
	}

	c.SetMode(Close)
	if c.Mode() != Close {
		t.Errorf("mode after SetMode(Close) = %v", c.Mode())
	}
}

func TestConnectionReadSomeAndWrite(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	c := NewConnection(serverConn, false)

	go clientConn.Write([]byte("hello"))
	chunk, err := c.ReadSome()
	if err != nil {
		t.Fatalf("ReadSome: %v", err)
	}
	if string(chunk) != "hello" {
		t.Errorf("chunk = %q", chunk)
	}

	readBack := make([]byte, 5)
	go c.Write([]byte("world"))
	if _, err := clientConn.Read(readBack); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(readBack) != "world" {
		t.Errorf("readBack = %q", readBack)
	}
}
