package httpx

import (
	"errors"
	"net/url"
)

// Multimap is a decoded key -> []value map, used for both query parameters
// and cookie parameters (spec.md §3).
type Multimap map[string][]string

// Get returns the first value stored for key, or "" if absent.
func (m Multimap) Get(key string) string {
	vs := m[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// ErrURLEncoded is returned by ParseURLEncoded when a pair violates the
// grammar (empty name before '=' or '&') or a field exceeds its limit.
var ErrURLEncoded = errors.New("httpx: invalid application/x-www-form-urlencoded body")

// urlDecodeState is the URL-encoded sub-parser's two-state machine
// (spec.md §4.4): accumulate into name until '=', then into value until
// '&' or end of input. Percent-decoding is applied to each accumulated
// field by the caller (ParseURLEncoded), not during accumulation, matching
// the spec's explicit note that this sub-parser does not decode.
type urlDecodeState int

const (
	ueName urlDecodeState = iota
	ueValue
)

// ParseURLEncoded runs the URL-encoded sub-parser over the raw (still
// percent-encoded) body s and returns the decoded key -> []value multimap.
// A trailing pair with no terminating '&' is flushed at end of input if its
// name is non-empty.
func ParseURLEncoded(s string) (Multimap, error) {
	out := make(Multimap)
	state := ueName
	nameStart := 0
	valStart := 0
	var name string

	flush := func(name, rawValue string) error {
		if len(name) > MaxQueryNameLen || len(rawValue) > MaxQueryValueLen {
			return ErrURLEncoded
		}
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			decodedName = name
		}
		decodedValue, err := url.QueryUnescape(rawValue)
		if err != nil {
			decodedValue = rawValue
		}
		out[decodedName] = append(out[decodedName], decodedValue)
		return nil
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case ueName:
			switch c {
			case '=':
				name = s[nameStart:i]
				if name == "" {
					return nil, ErrURLEncoded
				}
				if len(name) > MaxQueryNameLen {
					return nil, ErrURLEncoded
				}
				valStart = i + 1
				state = ueValue
			case '&':
				if i == nameStart {
					return nil, ErrURLEncoded
				}
				if err := flush(s[nameStart:i], ""); err != nil {
					return nil, err
				}
				nameStart = i + 1
			default:
				if isControl(c) {
					return nil, ErrURLEncoded
				}
			}
		case ueValue:
			switch c {
			case '&':
				if err := flush(name, s[valStart:i]); err != nil {
					return nil, err
				}
				nameStart = i + 1
				state = ueName
			default:
				if isControl(c) {
					return nil, ErrURLEncoded
				}
			}
		}
	}

	switch state {
	case ueName:
		if nameStart < len(s) {
			// A trailing token with no '=' ever seen (e.g. "...&flag" at
			// EOF): treated as a name with an empty value, symmetric with
			// the documented "empty value -> OK" rule for '&'-terminated
			// pairs.
			if err := flush(s[nameStart:], ""); err != nil {
				return nil, err
			}
		}
	case ueValue:
		if name != "" {
			if err := flush(name, s[valStart:]); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
