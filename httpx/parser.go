package httpx

// ParseState enumerates every state of the incremental request-line/header
// parser (spec.md §3). The zero value is the initial state.
type ParseState int

const (
	MethodStart ParseState = iota
	Method
	UriStem
	UriQuery
	HttpVerH
	HttpVerT1
	HttpVerT2
	HttpVerP
	HttpVerSlash
	MajorStart
	Major
	MinorStart
	Minor
	ExpectingNewline
	ExpectingCr
	HeaderWhitespace
	HeaderStart
	HeaderName
	SpaceBeforeHeaderValue
	HeaderValue
	ExpectingFinalNewline
	ExpectingFinalCr
)

// ParseResult is the parser's tri-state return value (spec.md §9: "tribool
// parse result... express as an explicit tri-state variant").
type ParseResult int

const (
	Incomplete ParseResult = iota
	Complete
	Invalid
)

// Parser is the incremental HTTP/1.x request-line-and-headers state
// machine. It is safe to feed it successive fragments of a byte stream
// across repeated calls to Parse; all state lives on the Parser value
// itself, not on the goroutine stack, so ownership can move freely between
// callbacks (spec.md §9, "shared ownership of the parser" — in Go this is
// simply whichever goroutine currently holds the *Parser reference; the
// garbage collector keeps it alive for as long as anything does).
type Parser struct {
	state ParseState
	req   *Request

	method     []byte
	resource   []byte
	query      []byte
	headerName []byte
	headerVal  []byte
}

// NewParser returns a Parser in the initial MethodStart state that will
// populate req as it consumes bytes.
func NewParser(req *Request) *Parser {
	return &Parser{state: MethodStart, req: req}
}

// State returns the parser's current state, primarily so the read pipeline
// can distinguish "no bytes consumed yet" (MethodStart) from a
// partially-parsed request when deciding how to log a read error.
func (p *Parser) State() ParseState { return p.state }

// Parse consumes bytes from buf, advancing the parser's internal state.
// It returns Incomplete if buf was exhausted before a full request-line-
// and-headers was seen, Complete once the terminating blank line has been
// consumed (the caller should look at n to see how many bytes of buf were
// part of the header block — any remainder is body spill-over), or Invalid
// if the byte stream violates the grammar or a field's size limit.
//
// Parse never reads outside buf[:len(buf)] and always returns an n in
// [0, len(buf)].
func (p *Parser) Parse(buf []byte) (result ParseResult, n int) {
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch p.state {

		case MethodStart:
			if c == ' ' || c == '\r' || c == '\n' {
				continue
			}
			if !isTokenChar(c) {
				return Invalid, i + 1
			}
			p.method = append(p.method[:0], c)
			p.state = Method

		case Method:
			if c == ' ' {
				p.req.Method = string(p.method)
				p.state = UriStem
				continue
			}
			if !isTokenChar(c) || len(p.method) >= MaxMethodLen {
				return Invalid, i + 1
			}
			p.method = append(p.method, c)

		case UriStem:
			if c == ' ' {
				p.req.Resource = string(p.resource)
				p.state = HttpVerH
				continue
			}
			if c == '?' {
				p.req.Resource = string(p.resource)
				p.state = UriQuery
				continue
			}
			if isControl(c) || len(p.resource) >= MaxResourceLen {
				return Invalid, i + 1
			}
			p.resource = append(p.resource, c)

		case UriQuery:
			if c == ' ' {
				p.req.Query = string(p.query)
				p.state = HttpVerH
				continue
			}
			if isControl(c) || len(p.query) >= MaxQueryLen {
				return Invalid, i + 1
			}
			p.query = append(p.query, c)

		case HttpVerH:
			if c != 'H' {
				return Invalid, i + 1
			}
			p.state = HttpVerT1
		case HttpVerT1:
			if c != 'T' {
				return Invalid, i + 1
			}
			p.state = HttpVerT2
		case HttpVerT2:
			if c != 'T' {
				return Invalid, i + 1
			}
			p.state = HttpVerP
		case HttpVerP:
			if c != 'P' {
				return Invalid, i + 1
			}
			p.state = HttpVerSlash
		case HttpVerSlash:
			if c != '/' {
				return Invalid, i + 1
			}
			p.state = MajorStart

		case MajorStart:
			if !isDigit(c) {
				return Invalid, i + 1
			}
			p.req.versionMajor = int(c - '0')
			p.state = Major
		case Major:
			if c == '.' {
				p.state = MinorStart
				continue
			}
			if !isDigit(c) {
				return Invalid, i + 1
			}
			p.req.versionMajor = p.req.versionMajor*10 + int(c-'0')

		case MinorStart:
			if !isDigit(c) {
				return Invalid, i + 1
			}
			p.req.versionMinor = int(c - '0')
			p.state = Minor
		case Minor:
			switch {
			case c == '\r':
				p.state = ExpectingNewline
			case c == '\n':
				p.state = ExpectingCr
			case isDigit(c):
				p.req.versionMinor = p.req.versionMinor*10 + int(c-'0')
			default:
				return Invalid, i + 1
			}

		case ExpectingNewline:
			switch {
			case c == '\n':
				p.state = HeaderStart
			case c == '\r':
				return Complete, i + 1
			case c == ' ' || c == '\t':
				p.state = HeaderWhitespace
			case isTokenChar(c):
				p.headerName = append(p.headerName[:0], c)
				p.state = HeaderName
			default:
				return Invalid, i + 1
			}

		case ExpectingCr:
			switch {
			case c == '\r':
				p.state = HeaderStart
			case c == '\n':
				return Complete, i + 1
			case c == ' ' || c == '\t':
				p.state = HeaderWhitespace
			case isTokenChar(c):
				p.headerName = append(p.headerName[:0], c)
				p.state = HeaderName
			default:
				return Invalid, i + 1
			}

		case HeaderWhitespace:
			switch {
			case c == '\r':
				p.state = ExpectingNewline
			case c == '\n':
				p.state = ExpectingCr
			case c == ' ' || c == '\t':
				// stay
			case isTokenChar(c):
				p.headerName = append(p.headerName[:0], c)
				p.state = HeaderName
			default:
				return Invalid, i + 1
			}

		case HeaderStart:
			switch {
			case c == '\r':
				p.state = ExpectingFinalNewline
			case c == '\n':
				p.state = ExpectingFinalCr
			case c == ' ' || c == '\t':
				p.state = HeaderWhitespace
			case isTokenChar(c):
				p.headerName = append(p.headerName[:0], c)
				p.state = HeaderName
			default:
				return Invalid, i + 1
			}

		case HeaderName:
			if c == ':' {
				p.headerVal = p.headerVal[:0]
				p.state = SpaceBeforeHeaderValue
				continue
			}
			if !isTokenChar(c) || len(p.headerName) >= MaxHeaderNameLen {
				return Invalid, i + 1
			}
			p.headerName = append(p.headerName, c)

		case SpaceBeforeHeaderValue:
			switch {
			case c == ' ':
				p.state = HeaderValue
			case c == '\r':
				p.commitHeader()
				p.state = ExpectingNewline
			case c == '\n':
				p.commitHeader()
				p.state = ExpectingCr
			default:
				if isControl(c) || len(p.headerVal) >= MaxHeaderValueLen {
					return Invalid, i + 1
				}
				p.headerVal = append(p.headerVal, c)
				p.state = HeaderValue
			}

		case HeaderValue:
			switch {
			case c == '\r':
				p.commitHeader()
				p.state = ExpectingNewline
			case c == '\n':
				p.commitHeader()
				p.state = ExpectingCr
			default:
				if isControl(c) || len(p.headerVal) >= MaxHeaderValueLen {
					return Invalid, i + 1
				}
				p.headerVal = append(p.headerVal, c)
			}

		case ExpectingFinalNewline:
			if c == '\n' {
				return Complete, i + 1
			}
			return Complete, i

		case ExpectingFinalCr:
			if c == '\r' {
				return Complete, i + 1
			}
			return Complete, i

		default:
			return Invalid, i + 1
		}
	}
	return Incomplete, len(buf)
}

func (p *Parser) commitHeader() {
	p.req.AddHeader(string(p.headerName), string(p.headerVal))
}
