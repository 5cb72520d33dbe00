package tally

import (
	"reflect"
	"testing"

	"sendertally/internal/model"
)

func TestRank_FirstSeenTieBreak(t *testing.T) {
	got := Rank([]string{"a", "b", "a", "c", "b", "a"}, 3)
	want := []model.SenderCount{{Address: "a", Count: 3}, {Address: "b", Count: 2}, {Address: "c", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v; want %v", got, want)
	}

	// Equal counts: whoever showed up first wins.
	got = Rank([]string{"y", "x", "x", "y", "z"}, 3)
	want = []model.SenderCount{{Address: "y", Count: 2}, {Address: "x", Count: 2}, {Address: "z", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank tie = %v; want %v", got, want)
	}
}

func TestRank_PermutationInvariant(t *testing.T) {
	base := []string{"a", "b", "a", "c", "b", "a"}
	perms := [][]string{
		{"c", "b", "b", "a", "a", "a"},
		{"a", "a", "a", "b", "b", "c"},
		{"b", "a", "c", "a", "b", "a"},
	}
	want := Rank(base, 3)
	for _, p := range perms {
		if got := Rank(p, 3); !reflect.DeepEqual(got, want) {
			t.Errorf("Rank(%v) = %v; want %v", p, got, want)
		}
	}
}

func TestRank_KLargerThanDistinct(t *testing.T) {
	got := Rank([]string{"a", "b"}, 20)
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
}

func TestRank_SkipsEmptyAndHandlesNoInput(t *testing.T) {
	if got := Rank(nil, 5); len(got) != 0 {
		t.Fatalf("Rank(nil) = %v; want empty", got)
	}
	got := Rank([]string{"", "a", ""}, 5)
	want := []model.SenderCount{{Address: "a", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v; want %v", got, want)
	}
}

func TestTable_Counts(t *testing.T) {
	tb := NewTable()
	for _, a := range []string{"a", "b", "a", ""} {
		tb.Add(a)
	}
	if tb.Len() != 2 || tb.Total() != 3 {
		t.Fatalf("Len=%d Total=%d; want 2, 3", tb.Len(), tb.Total())
	}
	if tb.Count("a") != 2 || tb.Count("missing") != 0 {
		t.Fatalf("Count(a)=%d Count(missing)=%d", tb.Count("a"), tb.Count("missing"))
	}
	if all := tb.Ranked(0); len(all) != 2 {
		t.Fatalf("Ranked(0) len=%d want 2", len(all))
	}
}
