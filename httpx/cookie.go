package httpx

import (
	"errors"
	"strconv"
	"strings"
)

// ErrCookieHeader is returned by ParseCookieHeader when a field exceeds its
// size limit.
var ErrCookieHeader = errors.New("httpx: invalid Cookie header")

// cookieState is the three-state incoming-Cookie-header sub-parser
// (spec.md §4.4): Name, Value, Ignore.
type cookieState int

const (
	ckName cookieState = iota
	ckValue
	ckIgnore
)

// ParseCookieHeader runs the RFC-2109-like cookie sub-parser over one
// Cookie header's value and returns a lowercased-name -> []value multimap.
// Attribute pairs whose name begins with '$' (e.g. $Path, $Domain) are
// consumed but never inserted (property 8 in spec.md §8).
func ParseCookieHeader(header string) (Multimap, error) {
	out := make(Multimap)
	state := ckName
	var name strings.Builder
	var value strings.Builder
	var quote byte

	emit := func() error {
		if name.Len() > MaxCookieNameLen || value.Len() > MaxCookieValueLen {
			return ErrCookieHeader
		}
		n := strings.ToLower(name.String())
		if !strings.HasPrefix(n, "$") && n != "" {
			out[n] = append(out[n], value.String())
		}
		name.Reset()
		value.Reset()
		return nil
	}

	i := 0
	for i < len(header) {
		c := header[i]
		switch state {
		case ckName:
			switch {
			case c == ' ' || c == '\t':
				i++
				continue
			case c == '=':
				state = ckValue
			case c == ';' || c == ',':
				// name with no '=' at all: ignore silently, RFC allows
				// bare tokens only as $Path-like continuations elsewhere.
				name.Reset()
			default:
				if name.Len() >= MaxCookieNameLen {
					return nil, ErrCookieHeader
				}
				name.WriteByte(c)
			}
			i++

		case ckValue:
			switch {
			case value.Len() == 0 && (c == '\'' || c == '"'):
				quote = c
				value.WriteByte(c)
				i++
				// consume the quoted region up to (and including) the
				// matching quote.
				for i < len(header) && header[i] != quote {
					if value.Len() >= MaxCookieValueLen {
						return nil, ErrCookieHeader
					}
					value.WriteByte(header[i])
					i++
				}
				if i < len(header) {
					value.WriteByte(header[i]) // matching quote
					i++
				}
				// Strip the surrounding quotes from the emitted value.
				raw := value.String()
				value.Reset()
				if len(raw) >= 2 {
					value.WriteString(raw[1 : len(raw)-1])
				}
				if err := emit(); err != nil {
					return nil, err
				}
				state = ckIgnore
			case c == ';' || c == ',':
				if err := emit(); err != nil {
					return nil, err
				}
				state = ckName
				i++
			default:
				if value.Len() >= MaxCookieValueLen {
					return nil, ErrCookieHeader
				}
				value.WriteByte(c)
				i++
			}

		case ckIgnore:
			if c == ';' || c == ',' {
				state = ckName
			}
			i++
		}
	}

	if state == ckValue {
		if err := emit(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// SameSite mirrors net/http.SameSite for outgoing Set-Cookie attributes,
// grounded on the teacher's http/cookie.go Cookie type.
type SameSite int

const (
	SameSiteDefaultMode SameSite = iota
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)

// OutgoingCookie describes one Set-Cookie header a Response will emit
// (spec.md §3, Response's "outgoing cookies list").
type OutgoingCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   int // emitted only when HasMaxAge; negative is written as Max-Age=0
	HasMaxAge bool
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// String serializes the cookie into the value of a Set-Cookie header,
// adapted from the teacher's http/cookie.go Cookie.String.
func (c *OutgoingCookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.HasMaxAge {
		b.WriteString("; Max-Age=")
		if c.MaxAge < 0 {
			b.WriteString("0")
		} else {
			b.WriteString(strconv.Itoa(c.MaxAge))
		}
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	switch c.SameSite {
	case SameSiteLaxMode:
		b.WriteString("; SameSite=Lax")
	case SameSiteStrictMode:
		b.WriteString("; SameSite=Strict")
	case SameSiteNoneMode:
		b.WriteString("; SameSite=None")
	}

	return b.String()
}
