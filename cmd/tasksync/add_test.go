package main

import (
	"testing"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

func TestParseQuadrant(t *testing.T) {
	cases := map[string]model.Quadrant{
		"":          model.Uncategorized,
		"do":        model.Do,
		"Schedule":  model.Schedule,
		" delegate": model.Delegate,
		"ELIMINATE": model.Eliminate,
	}
	for input, want := range cases {
		got, err := parseQuadrant(input)
		if err != nil {
			t.Errorf("parseQuadrant(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("parseQuadrant(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := parseQuadrant("urgentish"); err == nil {
		t.Error("parseQuadrant accepted garbage")
	}
}

func TestParseDueLiteralDate(t *testing.T) {
	date, clock, err := parseDue("2026-12-25")
	if err != nil {
		t.Fatalf("parseDue: %v", err)
	}
	if date != "2026-12-25" || clock != "" {
		t.Errorf("parseDue = %q %q, want literal date and no clock", date, clock)
	}
}

func TestParseDueNaturalLanguage(t *testing.T) {
	date, clock, err := parseDue("tomorrow at 9am")
	if err != nil {
		t.Fatalf("parseDue: %v", err)
	}
	want := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	if date != want {
		t.Errorf("date = %q, want %q", date, want)
	}
	if clock != "09:00" {
		t.Errorf("clock = %q, want 09:00", clock)
	}
}

func TestParseDueGarbage(t *testing.T) {
	if _, _, err := parseDue("qwertyuiop"); err == nil {
		t.Error("parseDue accepted nonsense")
	}
}
