package titles

import (
	"reflect"
	"testing"
)

func TestSortTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Grinch", "Grinch"},
		{"A Christmas Story", "Christmas Story"},
		{"An American Tail", "American Tail"},
		{"Elf", "Elf"},
		{"  The Santa Clause  ", "Santa Clause"},
		{"Theodore Rex", "Theodore Rex"},
	}
	for _, tc := range cases {
		if got := SortTitle(tc.in); got != tc.want {
			t.Errorf("SortTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Grinch", "grinch"},
		{"Elf: The Musical!", "elf the musical"},
		{"Miracle on 34th Street", "miracle on 34th street"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("  How the Grinch Stole Christmas ")
	want := []string{"how", "the", "grinch", "stole", "christmas"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestYear(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2003", "2003"},
		{"2003-11-07", "2003"},
		{"Nov 2003", "2003"},
		{"christmas", ""},
		{"", ""},
		{"99", ""},
	}
	for _, tc := range cases {
		if got := Year(tc.in); got != tc.want {
			t.Errorf("Year(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
