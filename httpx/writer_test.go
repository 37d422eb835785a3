package httpx

import (
	"bytes"
	"strings"
	"testing"
)

func TestSendContentLengthInvariant(t *testing.T) {
	resp := NewResponse()
	resp.SetVersion(1, 1)
	resp.Write([]byte("hello"))

	var buf bytes.Buffer
	if _, err := resp.Send(&buf, true); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("missing Content-Length header: %q", out)
	}
	if strings.Contains(out, "Transfer-Encoding") {
		t.Errorf("unexpected Transfer-Encoding header: %q", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Errorf("body not appended: %q", out)
	}
	if !strings.Contains(out, "Connection: Keep-Alive\r\n") {
		t.Errorf("expected keep-alive header: %q", out)
	}
}

func TestSendChunkedInvariant(t *testing.T) {
	resp := NewResponse()
	resp.SetVersion(1, 1)
	resp.SetChunked(true)
	resp.SetChunkSupported(true)
	resp.Write([]byte("hello"))

	var buf bytes.Buffer
	if _, err := resp.Send(&buf, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "Content-Length") {
		t.Errorf("chunked response must not carry Content-Length: %q", out)
	}
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("missing Transfer-Encoding: %q", out)
	}
	if !strings.Contains(out, "5\r\nhello\r\n") {
		t.Errorf("missing chunk framing: %q", out)
	}
	if !strings.HasSuffix(out, "0\r\n\r\n") {
		t.Errorf("missing final chunk terminator: %q", out)
	}
}

func TestSendNoCopyBody(t *testing.T) {
	resp := NewResponse()
	resp.SetVersion(1, 1)
	static := []byte("static-bytes")
	resp.WriteNoCopy(static)

	var buf bytes.Buffer
	if _, err := resp.Send(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "static-bytes") {
		t.Errorf("no-copy body missing: %q", buf.String())
	}
}

func TestSendSetCookieHeader(t *testing.T) {
	resp := NewResponse()
	resp.SetVersion(1, 1)
	resp.SetCookie(OutgoingCookie{Name: "sid", Value: "abc", Path: "/"})

	var buf bytes.Buffer
	resp.Send(&buf, false)
	if !strings.Contains(buf.String(), "Set-Cookie: sid=abc; Path=/\r\n") {
		t.Errorf("missing Set-Cookie header: %q", buf.String())
	}
}

func TestDeleteCookieExpiresImmediately(t *testing.T) {
	resp := NewResponse()
	resp.SetVersion(1, 1)
	resp.DeleteCookie("sid")

	var buf bytes.Buffer
	resp.Send(&buf, false)
	out := buf.String()
	if !strings.Contains(out, "Set-Cookie: sid=; Path=/; Max-Age=0") {
		t.Errorf("expected immediate expiry cookie: %q", out)
	}
}
