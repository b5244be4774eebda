package tiers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testLayout() Layout {
	return Layout{FirstRow: 1, MaxTier: 2, ColsPerTier: 4, NameOffset: 1}
}

func TestParse(t *testing.T) {
	rows := [][]string{
		{"header"},
		{"", "Summit [C]", "Tier 3", "Tier 5", "", "Ridge [FC]", "Tier 2", "", ""},
		{"", "Summit [C]", "Tier 4", "<<<", "", "Ridge [C]", "Untiered", "", ""},
		{"", "Farewell", "Undetermined", "", "", "", "", "", ""},
		{"", "Den [C]", "n/a", "Tier 1", ""},
	}

	got := Parse(rows, testLayout())
	want := map[string]Entry{
		// Conflicting base tiers: the higher one wins.
		"Summit":   {Base: "Tier 4", FullClear: "Tier 5"},
		"Ridge":    {Base: "Untiered", FullClear: "Tier 2"},
		"Farewell": {Base: "Undetermined", FullClear: "Undetermined"},
		"Den":      {Base: "", FullClear: "Tier 1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	cases := []struct {
		current, next, want string
	}{
		{"", "Tier 2", "Tier 2"},
		{"Tier 2", "Tier 3", "Tier 3"},
		{"Tier 3", "Tier 2", "Tier 3"},
		{"Untiered", "Tier 1", "Tier 1"},
		{"Tier 1", "Untiered", "Tier 1"},
		{"Undetermined", "Untiered", "Undetermined"},
		{"Tier 1", "garbage", "Tier 1"},
	}
	for _, tc := range cases {
		if got := merge(tc.current, tc.next); got != tc.want {
			t.Errorf("merge(%q, %q) = %q, want %q", tc.current, tc.next, got, tc.want)
		}
	}
}

func TestLookup_LoadsOnce(t *testing.T) {
	// WHAT: The loader runs once however many times the cache is read.
	calls := 0
	l := New(func(context.Context) ([][]string, error) {
		calls++
		return [][]string{{}, {"", "Summit [C]", "Tier 3", ""}}, nil
	}, testLayout())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e, ok, err := l.Get(ctx, "Summit")
		if err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
		if e.Base != "Tier 3" || e.FullClear != "Tier 3" {
			t.Errorf("entry = %+v", e)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if got := l.Label(ctx, "Summit", true); got != "Tier 3" {
		t.Errorf("Label = %q", got)
	}
	if got := l.Label(ctx, "Unknown", false); got != "" {
		t.Errorf("Label(unknown) = %q", got)
	}
}

func TestLookup_LoaderErrorIsSticky(t *testing.T) {
	errBoom := errors.New("boom")
	calls := 0
	l := New(func(context.Context) ([][]string, error) {
		calls++
		return nil, errBoom
	}, testLayout())

	ctx := context.Background()
	if err := l.Populate(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("Populate: %v", err)
	}
	if _, _, err := l.Get(ctx, "x"); !errors.Is(err, errBoom) {
		t.Fatalf("Get: %v", err)
	}
	if got := l.Label(ctx, "x", false); got != "" {
		t.Errorf("Label = %q", got)
	}
	if calls != 1 {
		t.Errorf("loader called %d times", calls)
	}
}

func TestLookup_NilIsSafe(t *testing.T) {
	var l *Lookup
	if got := l.Label(context.Background(), "Summit", false); got != "" {
		t.Errorf("Label on nil = %q", got)
	}
}
