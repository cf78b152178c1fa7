package models

import (
	"fmt"
	"testing"
)

func arenaOf(n int) *RegistryArena {
	rows := make([]*CableRecord, n)
	for i := range rows {
		rows[i] = &CableRecord{ID: i + 1, Code: fmt.Sprintf("C-%04d", i+1)}
	}
	return &RegistryArena{rows: rows}
}

func TestWindow_BoundedByViewportAndOverscan(t *testing.T) {
	arena := arenaOf(10000)
	const (
		viewportHeight = 600
		rowHeight      = 28
		overscan       = 5
	)
	// ceil(600/28) = 22 visible rows, plus overscan on both sides.
	maxRows := 22 + 2*overscan

	for _, scroll := range []int{0, 1, 27, 28, 10_000, 123_456, 279_970} {
		window, err := arena.Window(scroll, viewportHeight, rowHeight, overscan)
		if err != nil {
			t.Fatalf("scroll=%d: unexpected error: %v", scroll, err)
		}
		if got := window.End - window.Start; got > maxRows {
			t.Fatalf("scroll=%d: window of %d rows exceeds bound %d", scroll, got, maxRows)
		}
		if len(window.Rows) != window.End-window.Start {
			t.Fatalf("scroll=%d: rows slice does not match range", scroll)
		}
		if window.TotalRows != 10000 {
			t.Fatalf("scroll=%d: expected total 10000, got %d", scroll, window.TotalRows)
		}
	}
}

func TestWindow_TopOfList(t *testing.T) {
	arena := arenaOf(1000)

	window, err := arena.Window(0, 600, 28, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.Start != 0 {
		t.Fatalf("expected start 0, got %d", window.Start)
	}
	if window.TopPad != 0 {
		t.Fatalf("expected no top pad, got %d", window.TopPad)
	}
	// 22 visible + trailing overscan only.
	if window.End != 27 {
		t.Fatalf("expected end 27, got %d", window.End)
	}
}

func TestWindow_MiddleOfList(t *testing.T) {
	arena := arenaOf(1000)

	// scroll 2800px at 28px rows puts row 100 at the top
	window, err := arena.Window(2800, 600, 28, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.Start != 95 {
		t.Fatalf("expected start 95, got %d", window.Start)
	}
	if window.End != 127 {
		t.Fatalf("expected end 127, got %d", window.End)
	}
	if window.TopPad != 95*28 {
		t.Fatalf("expected top pad %d, got %d", 95*28, window.TopPad)
	}
	if window.BottomPad != (1000-127)*28 {
		t.Fatalf("expected bottom pad %d, got %d", (1000-127)*28, window.BottomPad)
	}
	if window.Rows[0].ID != 96 {
		t.Fatalf("expected first row id 96, got %d", window.Rows[0].ID)
	}
}

func TestWindow_ScrollPastEndClamps(t *testing.T) {
	arena := arenaOf(50)

	window, err := arena.Window(1_000_000, 600, 28, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.Start != 50 || window.End != 50 {
		t.Fatalf("expected empty clamped window, got [%d,%d)", window.Start, window.End)
	}
	if window.BottomPad != 0 {
		t.Fatalf("expected no bottom pad, got %d", window.BottomPad)
	}
}

func TestWindow_NegativeScrollClampsToZero(t *testing.T) {
	arena := arenaOf(100)

	window, err := arena.Window(-500, 600, 28, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.Start != 0 {
		t.Fatalf("expected start 0, got %d", window.Start)
	}
}

func TestWindow_EmptyArena(t *testing.T) {
	arena := &RegistryArena{}

	window, err := arena.Window(0, 600, 28, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.Start != 0 || window.End != 0 || len(window.Rows) != 0 {
		t.Fatalf("expected empty window, got %+v", window)
	}
}

func TestWindow_InvalidGeometry(t *testing.T) {
	arena := arenaOf(10)

	if _, err := arena.Window(0, 600, 0, 5); err == nil {
		t.Fatalf("expected error for zero row height")
	}
	if _, err := arena.Window(0, -1, 28, 5); err == nil {
		t.Fatalf("expected error for negative viewport")
	}
	if _, err := arena.Window(0, 600, 28, -1); err == nil {
		t.Fatalf("expected error for negative overscan")
	}
}

func TestMatchesFilter(t *testing.T) {
	laid := CableStatusLaid
	cable := &CableRecord{Code: "P3-ALIM-001", Description: "Alimentazione quadro", Zone: "Ponte 3", Status: CableStatusLaid}

	cases := []struct {
		name     string
		filter   RegistryFilter
		expected bool
	}{
		{"zero filter", RegistryFilter{}, true},
		{"code substring", RegistryFilter{Query: "alim"}, true},
		{"description substring", RegistryFilter{Query: "quadro"}, true},
		{"no match", RegistryFilter{Query: "XYZ"}, false},
		{"zone match", RegistryFilter{Zone: "Ponte 3"}, true},
		{"zone mismatch", RegistryFilter{Zone: "Ponte 4"}, false},
		{"status match", RegistryFilter{Status: &laid}, true},
	}
	for _, tc := range cases {
		if got := matchesFilter(cable, tc.filter); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestSelectionTracker_OnlyLatestSelectionIsCurrent(t *testing.T) {
	tracker := &SelectionTracker{}

	first := tracker.Select()
	second := tracker.Select()

	if tracker.IsCurrent(first) {
		t.Fatalf("superseded selection must not be current")
	}
	if !tracker.IsCurrent(second) {
		t.Fatalf("latest selection must be current")
	}
}
