package level_test

import (
	"math"
	"testing"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/level"
)

func TestPresetsAreValidAndNamed(t *testing.T) {
	want := map[string]level.Level{
		"beginner":     {Width: 9, Height: 9, Mines: 12},
		"intermediate": {Width: 16, Height: 16, Mines: 40},
		"expert":       {Width: 30, Height: 16, Mines: 99},
	}
	ps := level.Presets()
	if len(ps) != len(want) {
		t.Fatalf("got %d presets, want %d", len(ps), len(want))
	}
	for _, p := range ps {
		if !p.Level.Equal(want[p.Name]) {
			t.Errorf("%s = %+v, want %+v", p.Name, p.Level, want[p.Name])
		}
		if !p.Level.Valid() {
			t.Errorf("%s is not valid", p.Name)
		}
		if got := level.Name(p.Level); got != p.Name {
			t.Errorf("Name(%+v) = %q, want %q", p.Level, got, p.Name)
		}
		if !level.Normalize(p.Level).Equal(p.Level) {
			t.Errorf("Normalize changed preset %s", p.Name)
		}
	}
}

func TestPresetsReturnsCopy(t *testing.T) {
	ps := level.Presets()
	ps[0].Level.Mines = 1
	if level.Beginner.Mines != 12 {
		t.Fatal("mutating Presets() leaked into Beginner")
	}
	if l, _ := level.Lookup("beginner"); l.Mines != 12 {
		t.Fatal("mutating Presets() leaked into the registry")
	}
}

func TestLookup(t *testing.T) {
	if l, ok := level.Lookup("expert"); !ok || !l.Equal(level.Expert) {
		t.Fatalf("Lookup(expert) = %+v, %v", l, ok)
	}
	if _, ok := level.Lookup("nightmare"); ok {
		t.Fatal("Lookup(nightmare) should fail")
	}
	if got := level.Name(level.Level{Width: 10, Height: 10, Mines: 10}); got != level.CustomName {
		t.Fatalf("Name(custom) = %q", got)
	}
}

func TestNormalizeExamples(t *testing.T) {
	cases := []struct {
		in, want level.Level
	}{
		{level.Level{}, level.Level{Width: 9, Height: 9, Mines: 10}},
		{level.Level{Width: 30, Height: 24, Mines: 100000}, level.Level{Width: 30, Height: 24, Mines: 612}},
		{level.Level{Width: -4, Height: -1, Mines: -5}, level.Level{Width: 9, Height: 9, Mines: 10}},
		{level.Level{Width: 100, Height: 100, Mines: 50}, level.Level{Width: 30, Height: 24, Mines: 50}},
		{level.Level{Width: 5, Height: 12, Mines: 3}, level.Level{Width: 9, Height: 12, Mines: 10}},
		{level.Level{Width: 9, Height: 9, Mines: 80}, level.Level{Width: 9, Height: 9, Mines: 68}},
	}
	for _, c := range cases {
		if got := level.Normalize(c.in); !got.Equal(c.want) {
			t.Errorf("Normalize(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestNormalizeAlwaysValid(t *testing.T) {
	mines := []int{-5, 0, 1, 9, 10, 11, 50, 68, 69, 612, 613, 1000, 100000}
	for w := 0; w <= 1000; w += 7 {
		for h := 0; h <= 1000; h += 11 {
			for _, m := range mines {
				got := level.Normalize(level.Level{Width: w, Height: h, Mines: m})
				limit := int(math.Floor(float64(got.Width*got.Height) * 0.85))
				if got.Width < 9 || got.Width > 30 ||
					got.Height < 9 || got.Height > 24 ||
					got.Mines < 10 || got.Mines > limit {
					t.Fatalf("Normalize(%d,%d,%d) = %+v out of bounds", w, h, m, got)
				}
				if !got.Valid() {
					t.Fatalf("Normalize(%d,%d,%d) = %+v not Valid", w, h, m, got)
				}
			}
		}
	}
}
