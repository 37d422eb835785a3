package httpx

import (
	"strconv"
	"strings"
)

// messageParts is the shared state common to Request and Response,
// embedded by value in both rather than expressed through inheritance
// (spec.md §9's "replace with composition" note). Methods on *messageParts
// are promoted onto both Request and Response.
type messageParts struct {
	valid          bool
	chunkSupported bool
	remoteAddr     string

	versionMajor int
	versionMinor int

	contentLength int
	chunked       bool
	content       []byte // len == contentLength+1, zero-terminated

	headers Headers
	chunks  [][]byte
}

// HasHeader reports whether the header name is present at least once.
func (m *messageParts) HasHeader(name string) bool { return m.headers.Has(name) }

// GetHeader returns the first value for name, or "" if absent.
func (m *messageParts) GetHeader(name string) string { return m.headers.Get(name) }

// Headers returns the underlying multimap for direct iteration.
func (m *messageParts) Headers() *Headers { return &m.headers }

// AddHeader appends a header occurrence, preserving duplicates.
func (m *messageParts) AddHeader(name, value string) { m.headers.Add(name, value) }

// ChangeHeader replaces every existing occurrence of name with a single value.
func (m *messageParts) ChangeHeader(name, value string) { m.headers.Change(name, value) }

// DeleteHeader removes every occurrence of name.
func (m *messageParts) DeleteHeader(name string) { m.headers.Delete(name) }

// IsValid reports whether this message parsed successfully.
func (m *messageParts) IsValid() bool { return m.valid }

// Version returns the HTTP major/minor version, default 0/0.
func (m *messageParts) Version() (major, minor int) { return m.versionMajor, m.versionMinor }

// SetVersion sets the HTTP major/minor version.
func (m *messageParts) SetVersion(major, minor int) {
	m.versionMajor = major
	m.versionMinor = minor
}

// RemoteAddr returns the peer address associated with this message.
func (m *messageParts) RemoteAddr() string { return m.remoteAddr }

// SetContentLength sets the content length field directly (does not resize
// any existing content buffer).
func (m *messageParts) SetContentLength(n int) { m.contentLength = n }

// GetContentLength returns the content length field.
func (m *messageParts) GetContentLength() int { return m.contentLength }

// CreateContentBuffer allocates a content buffer of contentLength+1 bytes,
// zero-terminated, matching spec.md §3's Message invariant.
func (m *messageParts) CreateContentBuffer() {
	m.content = make([]byte, m.contentLength+1)
}

// Content returns the content buffer's payload (contentLength bytes,
// excluding the terminating zero byte).
func (m *messageParts) Content() []byte {
	if m.content == nil {
		return nil
	}
	if len(m.content) == 0 {
		return m.content
	}
	return m.content[:len(m.content)-1]
}

// ContentBuffer returns the full owned buffer, including the terminator,
// for callers that need to write directly into it (e.g. the read pipeline
// copying spilled-over body bytes).
func (m *messageParts) ContentBuffer() []byte { return m.content }

// UpdateContentLengthFromHeader parses the Content-Length header as a
// base-10 unsigned integer, defaulting to 0 if absent, empty, or malformed.
func (m *messageParts) UpdateContentLengthFromHeader() {
	v := m.headers.Get("Content-Length")
	if v == "" {
		m.contentLength = 0
		return
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 63)
	if err != nil {
		m.contentLength = 0
		return
	}
	m.contentLength = int(n)
}

// UpdateTransferCodingFromHeader sets the chunked flag from a
// case-insensitive comparison against "chunked"; any other value for
// Transfer-Encoding is ignored, not an error.
func (m *messageParts) UpdateTransferCodingFromHeader() {
	v := m.headers.Get("Transfer-Encoding")
	m.chunked = strings.EqualFold(strings.TrimSpace(v), "chunked")
}

// IsChunked reports whether this message declared chunked transfer-encoding.
func (m *messageParts) IsChunked() bool { return m.chunked }

// CheckKeepAlive reports whether the connection should be kept alive: the
// Connection header is not "close" AND either the version is >= 1.1 or the
// Connection header is "keep-alive".
func (m *messageParts) CheckKeepAlive() bool {
	if strings.EqualFold(strings.TrimSpace(m.headers.Get("Connection")), "close") {
		return false
	}
	if m.versionMajor > 1 {
		return true
	}
	if m.versionMajor == 1 && m.versionMinor >= 1 {
		return true
	}
	// HTTP/1.0 and earlier require an explicit keep-alive request.
	return strings.EqualFold(strings.TrimSpace(m.headers.Get("Connection")), "keep-alive")
}
