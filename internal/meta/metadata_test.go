package meta

import (
	"strings"
	"testing"
)

func TestValidateLimits(t *testing.T) {
	m := New(map[string]string{"bank_ref": "abc"})
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	m[""] = "x"
	if err := m.Validate(); err == nil {
		t.Fatalf("expected empty key to fail")
	}
	delete(m, "")
	m["v"] = strings.Repeat("x", MaxValLen+1)
	if err := m.Validate(); err == nil {
		t.Fatalf("expected oversized value to fail")
	}
}

func TestStableJSONOrdering(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1", "c": "3"})
	b1, err := m.MarshalStableJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b1) != `{"a":"1","b":"2","c":"3"}` {
		t.Fatalf("unexpected encoding: %s", b1)
	}
	var round Metadata
	if err := round.UnmarshalJSON(b1); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(round) != 3 || round["b"] != "2" {
		t.Fatalf("round trip mismatch: %v", round)
	}
}

func TestUnmarshalNull(t *testing.T) {
	var m Metadata
	if err := m.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("null: %v", err)
	}
	if m == nil || len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}
