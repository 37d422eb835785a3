package httpx

import "testing"

func TestHeadersChangeReplacesAll(t *testing.T) {
	var h Headers
	h.Add("X-A", "1")
	h.Add("X-A", "2")
	h.Change("X-A", "3")
	if h.Count("X-A") != 1 {
		t.Fatalf("expected 1 entry after Change, got %d", h.Count("X-A"))
	}
	if h.Get("X-A") != "3" {
		t.Errorf("got %q", h.Get("X-A"))
	}
}

func TestHeadersGetFirstOfMultiple(t *testing.T) {
	var h Headers
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	if h.Get("Set-Cookie") != "a=1" {
		t.Errorf("got %q", h.Get("Set-Cookie"))
	}
	if len(h.Values("Set-Cookie")) != 2 {
		t.Errorf("expected 2 values, got %d", len(h.Values("Set-Cookie")))
	}
}

func TestHeadersCaseInsensitiveLookup(t *testing.T) {
	var h Headers
	h.Add("Content-Type", "text/plain")
	if h.Get("content-type") != "text/plain" {
		t.Errorf("case-insensitive Get failed")
	}
	if !h.Has("CONTENT-TYPE") {
		t.Error("case-insensitive Has failed")
	}
}

func TestHeadersDelete(t *testing.T) {
	var h Headers
	h.Add("X-A", "1")
	h.Add("X-B", "2")
	h.Delete("X-A")
	if h.Has("X-A") {
		t.Error("X-A should have been deleted")
	}
	if !h.Has("X-B") {
		t.Error("X-B should still be present")
	}
}
