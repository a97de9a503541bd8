package chapterselect

import (
	"reflect"
	"testing"
)

func TestParse_RangesAndSingles(t *testing.T) {
	got, err := Parse("1-3,7,10-11")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []int{1, 2, 3, 7, 10, 11}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestParse_DeduplicatesOverlap(t *testing.T) {
	got, err := Parse("1-5,3-7")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []int{1, 2, 3, 4, 5, 6, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestParse_Empty(t *testing.T) {
	got, err := Parse("")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != nil {
		t.Errorf("Parse(\"\") = %v, want nil", got)
	}
}

func TestParse_InvalidRange(t *testing.T) {
	if _, err := Parse("5-1"); err == nil {
		t.Errorf("Parse(\"5-1\") expected error for inverted range")
	}
	if _, err := Parse("abc"); err == nil {
		t.Errorf("Parse(\"abc\") expected error for non-numeric index")
	}
}

func TestContains_EmptySelectionMatchesEverything(t *testing.T) {
	if !Contains(nil, 42) {
		t.Errorf("Contains(nil, 42) = false, want true (no filter)")
	}
}

func TestContains_RespectsSelection(t *testing.T) {
	sel, _ := Parse("1-3")
	if !Contains(sel, 2) {
		t.Errorf("Contains(sel, 2) = false, want true")
	}
	if Contains(sel, 9) {
		t.Errorf("Contains(sel, 9) = true, want false")
	}
}
