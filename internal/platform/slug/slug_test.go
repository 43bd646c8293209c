package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Poker Night", "poker-night"},
		{"  Friday  Game  ", "friday-game"},
		{"High/Low & Stud!", "high-low-stud"},
		{"2026 Series", "2026-series"},
		{"---", ""},
		{"Café Night", "caf-night"},
		{"Night ١٢٣", "night"},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Fatalf("Make(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("poker-night", 1); got != "poker-night" {
		t.Fatalf("unexpected slug for n=1: %s", got)
	}
	if got := WithSuffix("poker-night", 2); got != "poker-night-2" {
		t.Fatalf("unexpected slug for n=2: %s", got)
	}
}
