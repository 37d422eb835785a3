package httpx

import (
	"net/url"
	"testing"
)

func TestParseURLEncodedBasic(t *testing.T) {
	m, err := ParseURLEncoded("x=1&y=two")
	if err != nil {
		t.Fatal(err)
	}
	if m.Get("x") != "1" || m.Get("y") != "two" {
		t.Errorf("got %v", m)
	}
}

func TestParseURLEncodedEmptyValueOK(t *testing.T) {
	m, err := ParseURLEncoded("a=&b=1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Get("a") != "" || m.Get("b") != "1" {
		t.Errorf("got %v", m)
	}
}

func TestParseURLEncodedEmptyNameFails(t *testing.T) {
	if _, err := ParseURLEncoded("=1"); err == nil {
		t.Error("expected error for empty name before '='")
	}
	if _, err := ParseURLEncoded("a=1&=2"); err == nil {
		t.Error("expected error for empty name after '&'")
	}
}

func TestParseURLEncodedDuplicateKeys(t *testing.T) {
	m, err := ParseURLEncoded("k=1&k=2&k=3")
	if err != nil {
		t.Fatal(err)
	}
	if len(m["k"]) != 3 {
		t.Errorf("expected 3 values, got %v", m["k"])
	}
}

// Property 7: URL-encoded round-trip for keys/values without control bytes.
func TestParseURLEncodedRoundTrip(t *testing.T) {
	pairs := map[string]string{
		"name":  "Ada Lovelace",
		"q":     "a+b/c?d",
		"empty": "",
	}
	encoded := ""
	for k, v := range pairs {
		if encoded != "" {
			encoded += "&"
		}
		encoded += url.QueryEscape(k) + "=" + url.QueryEscape(v)
	}

	m, err := ParseURLEncoded(encoded)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range pairs {
		if got := m.Get(k); got != v {
			t.Errorf("key %q: got %q, want %q", k, got, v)
		}
	}
}
