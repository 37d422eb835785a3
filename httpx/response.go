package httpx

// Response is an HTTP response message: the shared messageParts plus the
// status line, an outgoing-cookie list, and an append-only body buffer
// (spec.md §3). Response formatting and MIME labels are deliberately thin
// plumbing per spec.md §1 — this type only owns what §4.7 specifies.
type Response struct {
	messageParts

	StatusCode    int
	StatusMessage string

	cookies []OutgoingCookie
	body    []byte
	// staticBody holds byte slices appended via WriteNoCopy: they are
	// referenced, not copied, and must outlive Send (spec.md §4.7,
	// "write_no_copy(static_bytes)").
	staticBody [][]byte
	useChunked bool
}

// NewResponse returns a 200 OK response with empty headers and body.
func NewResponse() *Response {
	return &Response{
		StatusCode:    200,
		StatusMessage: "OK",
	}
}

// SetStatusCode sets the numeric status code (must be >= 100 per spec.md §3).
func (r *Response) SetStatusCode(code int) { r.StatusCode = code }

// SetStatusMessage sets the reason phrase.
func (r *Response) SetStatusMessage(msg string) { r.StatusMessage = msg }

// SetContentType is a convenience wrapper over ChangeHeader("Content-Type", ...).
func (r *Response) SetContentType(contentType string) {
	r.ChangeHeader("Content-Type", contentType)
}

// SetChunked toggles whether Send should use chunked transfer-encoding,
// subject to the caller's chunkSupported flag (spec.md §4.7 step 1).
func (r *Response) SetChunked(chunked bool) { r.useChunked = chunked }

// SetChunkSupported records whether the connection this response will be
// sent over supports chunked encoding (HTTP/1.1+); Send ANDs this with
// SetChunked before deciding the wire format.
func (r *Response) SetChunkSupported(supported bool) { r.chunkSupported = supported }

// SetCookie appends an outgoing cookie to be emitted as a Set-Cookie header.
func (r *Response) SetCookie(c OutgoingCookie) {
	r.cookies = append(r.cookies, c)
}

// DeleteCookie appends a Set-Cookie that expires name immediately,
// equivalent to SetCookie(name, "", path=/, max_age=0) per spec.md §4.7.
func (r *Response) DeleteCookie(name string) {
	r.SetCookie(OutgoingCookie{
		Name:      name,
		Value:     "",
		Path:      "/",
		MaxAge:    -1,
		HasMaxAge: true,
	})
}

// Cookies returns the outgoing cookie list.
func (r *Response) Cookies() []OutgoingCookie { return r.cookies }

// Write appends a copy of b to the response body.
func (r *Response) Write(b []byte) {
	r.body = append(r.body, b...)
}

// WriteNoCopy appends a reference to a caller-owned, immutable byte slice
// (e.g. a package-level []byte literal) without copying it, matching
// spec.md §4.7's write_no_copy for static content.
func (r *Response) WriteNoCopy(b []byte) {
	r.staticBody = append(r.staticBody, b)
}

// bodyParts returns every accumulated body chunk in emission order: the
// copied buffer first (if any), then every no-copy reference in append
// order. Kept as a helper so Send and tests agree on ordering.
func (r *Response) bodyParts() [][]byte {
	parts := make([][]byte, 0, 1+len(r.staticBody))
	if len(r.body) > 0 {
		parts = append(parts, r.body)
	}
	parts = append(parts, r.staticBody...)
	return parts
}

// bodyLen returns the total body length across all parts.
func (r *Response) bodyLen() int {
	n := len(r.body)
	for _, b := range r.staticBody {
		n += len(b)
	}
	return n
}
