package httpx

import (
	"io"
	"net"
	"strconv"
)

// Send serializes the response's status line, headers, and body into a
// gathered-write buffer sequence and writes it in one call, matching
// spec.md §4.7. keepAlive is supplied by the caller (a handler passes the
// read pipeline's resolved Request.KeepAlive).
//
// net.Buffers is Go's realization of a "gathered write": Send makes one
// net.Buffers.WriteTo call. When w is itself a *net.TCPConn that collapses
// to a single writev(2) syscall; for any other writer it is one w.Write
// call per buffer, the status line first.
func (r *Response) Send(w io.Writer, keepAlive bool) (int64, error) {
	usingChunks := r.useChunked && r.chunkSupported

	if keepAlive {
		r.ChangeHeader("Connection", "Keep-Alive")
	} else {
		r.ChangeHeader("Connection", "close")
	}

	if usingChunks {
		r.ChangeHeader("Transfer-Encoding", "chunked")
		r.DeleteHeader("Content-Length")
	} else {
		r.DeleteHeader("Transfer-Encoding")
		r.ChangeHeader("Content-Length", strconv.Itoa(r.bodyLen()))
	}

	for _, c := range r.cookies {
		r.AddHeader("Set-Cookie", c.String())
	}

	var buffers net.Buffers

	statusLine := "HTTP/" + strconv.Itoa(max1(r.versionMajor)) + "." + strconv.Itoa(r.versionMinor) +
		" " + strconv.Itoa(r.StatusCode) + " " + r.StatusMessage + "\r\n"
	buffers = append(buffers, []byte(statusLine))

	r.headers.Each(func(name, value string) {
		buffers = append(buffers, []byte(name+": "+value+"\r\n"))
	})
	buffers = append(buffers, []byte("\r\n"))

	if usingChunks {
		for _, part := range r.bodyParts() {
			if len(part) == 0 {
				continue
			}
			buffers = append(buffers, []byte(strconv.FormatInt(int64(len(part)), 16)+"\r\n"))
			buffers = append(buffers, part)
			buffers = append(buffers, []byte("\r\n"))
		}
		buffers = append(buffers, []byte("0\r\n\r\n"))
	} else {
		for _, part := range r.bodyParts() {
			if len(part) > 0 {
				buffers = append(buffers, part)
			}
		}
	}

	return buffers.WriteTo(w)
}

// max1 defaults an unset (0) HTTP major version to 1, so a Response built
// without an explicit SetVersion call still serializes a valid status line.
func max1(major int) int {
	if major == 0 {
		return 1
	}
	return major
}
