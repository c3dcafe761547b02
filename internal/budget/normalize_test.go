package budget

import "testing"

func TestToAmount(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 12.5, 12.5},
		{"int", 7, 7},
		{"numeric string", "12.5", 12.5},
		{"empty string", "", 0},
		{"garbage string", "twelve", 0},
		{"bool", true, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := toAmount(tc.in); got != tc.want {
				t.Fatalf("toAmount(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"false", false},
		{"yes", false},
		{nil, false},
		{1, false},
	}
	for _, tc := range cases {
		if got := isTruthy(tc.in); got != tc.want {
			t.Fatalf("isTruthy(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsActiveUnlessFalse(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{nil, true},
		{true, true},
		{false, false},
		{"false", false},
		{"FALSE", false},
		{"true", true},
		{"anything", true},
		{0, true},
	}
	for _, tc := range cases {
		if got := isActiveUnlessFalse(tc.in); got != tc.want {
			t.Fatalf("isActiveUnlessFalse(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
