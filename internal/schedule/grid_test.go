package schedule

import (
	"reflect"
	"testing"
)

func TestGridStepsAndBounds(t *testing.T) {
	grid := Grid("09:00", "11:00")

	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(grid, want) {
		t.Fatalf("got %v want %v", grid, want)
	}
}

func TestGridStrictlyIncreasingAndCapped(t *testing.T) {
	grid := Grid("00:00", "23:59")

	if len(grid) > 48 {
		t.Fatalf("grid exceeds 48 entries: %d", len(grid))
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			t.Fatalf("grid not strictly increasing at %d: %s <= %s", i, grid[i], grid[i-1])
		}
	}
}

func TestGridFallsBackOnMalformedBounds(t *testing.T) {
	grid := Grid("whenever", "late")

	if len(grid) == 0 {
		t.Fatal("expected default grid")
	}
	if grid[0] != DefaultOpen {
		t.Errorf("expected first slot %s, got %s", DefaultOpen, grid[0])
	}
	if last := grid[len(grid)-1]; last != "17:30" {
		t.Errorf("expected last slot 17:30, got %s", last)
	}
}

func TestGlobalBounds(t *testing.T) {
	open, close := GlobalBounds([]string{
		"1,3,5|09:00-13:00",
		"2,4|08:00-12:00,16:00-20:00",
	})

	if open != "08:00" || close != "20:00" {
		t.Errorf("got %s-%s, want 08:00-20:00", open, close)
	}
}

func TestGlobalBoundsDefaultsWithoutRules(t *testing.T) {
	open, close := GlobalBounds([]string{"", "garbage"})

	if open != DefaultOpen || close != DefaultClose {
		t.Errorf("got %s-%s, want defaults", open, close)
	}
}

func TestConsecutiveSlots(t *testing.T) {
	slots, ok := ConsecutiveSlots("09:00", 3)
	if !ok {
		t.Fatal("expected valid start time")
	}
	want := []string{"09:00", "09:30", "10:00"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("got %v want %v", slots, want)
	}

	if _, ok := ConsecutiveSlots("9am", 2); ok {
		t.Error("expected malformed start to be rejected")
	}
}
