package httpx

import "strings"

// Request is an HTTP request message: the shared messageParts plus the
// request-line fields and the decoded query/cookie multimaps produced by
// the sub-parsers in urlencoded.go and cookie.go.
type Request struct {
	messageParts

	Method   string
	Resource string
	Query    string // raw, still percent-encoded

	QueryParams  Multimap
	CookieParams Multimap

	// ConnectionID correlates this request with the transport-layer
	// connection that carried it, for structured logging (SPEC_FULL §4.13).
	ConnectionID string

	// KeepAlive is the read pipeline's resolved keep-alive decision for the
	// connection this request arrived on (spec.md §4.7 step 1: keep_alive is
	// "supplied by caller", not recomputed by the handler). It already
	// accounts for anything besides the request's own Connection header —
	// e.g. a connection Server.Stop marked for close-after-response — so
	// handlers pass it to Response.Send instead of calling CheckKeepAlive
	// themselves.
	KeepAlive bool
}

// NewRequest returns a zero-value Request ready to be driven by a Parser.
func NewRequest(remoteAddr string) *Request {
	req := &Request{}
	req.remoteAddr = remoteAddr
	req.QueryParams = make(Multimap)
	req.CookieParams = make(Multimap)
	return req
}

// Finalize runs the query-string, form-body, and cookie sub-parsers over an
// already-Complete request, matching the read pipeline's finalization step
// (spec.md §4.6 step 5). Call it at most once per request: a second call
// appends the form-body and cookie values to the maps again.
func (req *Request) Finalize() error {
	if req.Query != "" {
		params, err := ParseURLEncoded(req.Query)
		if err != nil {
			return err
		}
		req.QueryParams = params
	}

	if req.HasHeader("Content-Type") && sameContentType(req.GetHeader("Content-Type")) {
		if body := req.Content(); len(body) > 0 {
			params, err := ParseURLEncoded(string(body))
			if err != nil {
				return err
			}
			for k, vs := range params {
				req.QueryParams[k] = append(req.QueryParams[k], vs...)
			}
		}
	}

	for _, cookieHeader := range req.headers.Values("Cookie") {
		params, err := ParseCookieHeader(cookieHeader)
		if err != nil {
			return err
		}
		for k, vs := range params {
			req.CookieParams[k] = append(req.CookieParams[k], vs...)
		}
	}

	req.valid = true
	return nil
}

func sameContentType(v string) bool {
	// Content-Type may carry parameters (e.g. "; charset=..."); only the
	// media type itself is compared.
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.EqualFold(strings.TrimSpace(v), "application/x-www-form-urlencoded")
}
