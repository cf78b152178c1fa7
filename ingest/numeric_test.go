package ingest

import "testing"

func TestParseMeters_ItalianLocaleFormats(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"1.234,56", "1234.56"},
		{"1234,5", "1234.5"},
		{"12,00", "12"},
		{"1.234.567,89", "1234567.89"},
		{"1234.56", "1234.56"},
		{"1234", "1234"},
		{"1 234,56", "1234.56"},
		{" 1.200,00 ", "1200"},
		{"  45,5  ", "45.5"},
	}
	for _, tc := range cases {
		got := ParseMeters(tc.in)
		if got.String() != tc.expected {
			t.Fatalf("ParseMeters(%q) expected %s, got %s", tc.in, tc.expected, got.String())
		}
	}
}

func TestParseMeters_UnitSuffixesAndNoise(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"120 m", "120"},
		{"120m", "120"},
		{"ca. 85,5 mt", "85.5"},
		{"~100", "100"},
	}
	for _, tc := range cases {
		got := ParseMeters(tc.in)
		if got.String() != tc.expected {
			t.Fatalf("ParseMeters(%q) expected %s, got %s", tc.in, tc.expected, got.String())
		}
	}
}

func TestParseMeters_BadInputIsZero(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"n/a",
		"vedi nota",
		"-",
		"-120",
		"-1.234,56",
		".",
		",",
		"m",
	}
	for _, in := range cases {
		got := ParseMeters(in)
		if !got.IsZero() {
			t.Fatalf("ParseMeters(%q) expected 0, got %s", in, got.String())
		}
	}
}
