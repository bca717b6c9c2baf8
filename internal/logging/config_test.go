package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"trace", zerolog.TraceLevel, true},
		{"debug", zerolog.DebugLevel, true},
		{"INFO", zerolog.InfoLevel, true},
		{" warn ", zerolog.WarnLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"off", zerolog.Disabled, true},
		{"verbose", zerolog.InfoLevel, false},
	}
	for _, c := range cases {
		got, ok := parseLevel(c.raw)
		if got != c.want || ok != c.ok {
			t.Fatalf("parseLevel(%q) = (%v, %v), want (%v, %v)", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if _, ok := parseBool(""); ok {
		t.Fatalf("empty string should not parse")
	}
	if v, ok := parseBool("true"); !ok || !v {
		t.Fatalf("true should parse as true")
	}
	if v, ok := parseBool(" 0 "); !ok || v {
		t.Fatalf("0 should parse as false")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("garbage should not parse")
	}
}
