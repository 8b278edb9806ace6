package feature

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	set, err := Parse([]string{"song", " Water "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name Name
		want bool
	}{
		{Song, true},
		{Water, true},
		{BadWords, false},
		{Command, false},
	}
	for _, tc := range tests {
		if got := Enabled(tc.name, set); got != tc.want {
			t.Errorf("Enabled(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
	if strings.Join(set.Names(), ",") != "song,water" {
		t.Errorf("unexpected names %v", set.Names())
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse([]string{"song", "karaoke"})
	if err == nil || !strings.Contains(err.Error(), "karaoke") {
		t.Fatalf("expected unknown feature error, got %v", err)
	}
}

func TestZeroSetIsEmpty(t *testing.T) {
	var set Set
	if Enabled(Song, set) || len(set.Names()) != 0 {
		t.Error("expected empty set")
	}
}

func TestOfIsIndependentOfCaller(t *testing.T) {
	names := []Name{Song}
	set := Of(names...)
	names[0] = Water
	if !set.Test(Song) || set.Test(Water) {
		t.Error("set must not alias the caller's slice")
	}
}
