package usecase

import (
	"reflect"
	"sort"
	"testing"
)

func TestCanonicalQuery(t *testing.T) {
	testCases := []struct {
		name        string
		productName string
		want        string
	}{
		{
			name:        "removes parenthesised color",
			productName: "Apple iPhone 16 128GB (sort)",
			want:        "Apple iPhone 16 128GB",
		},
		{
			name:        "removes smartphone",
			productName: "Samsung Galaxy A36 5G smartphone",
			want:        "Samsung Galaxy A36 5G",
		},
		{
			name:        "removes LTE and parenthesis together",
			productName: "Motorola moto g55 LTE (forest grey)",
			want:        "Motorola moto g55",
		},
		{
			name:        "marketing words are case insensitive",
			productName: "Nokia G22 SmartPhone lte",
			want:        "Nokia G22",
		},
		{
			name:        "keeps words that only contain smartphone",
			productName: "Nokia Smartphones Bundle",
			want:        "Nokia Smartphones Bundle",
		},
		{
			name:        "collapses whitespace",
			productName: "  Google   Pixel 9a\t128GB ",
			want:        "Google Pixel 9a 128GB",
		},
		{
			name:        "only noise yields empty",
			productName: "(hvid) smartphone",
			want:        "",
		},
		{
			name:        "empty input",
			productName: "",
			want:        "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanonicalQuery(tc.productName)
			if got != tc.want {
				t.Errorf("CanonicalQuery(%q) = %q, want %q", tc.productName, got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"Galaxy S25+ 256GB", "galaxy s25 plus 256gb"},
		{"iPhone 16 Pro-Max (Sort)", "iphone 16 pro max sort"},
		{"Café Crème", "cafe creme"},
		{"  many   spaces\t", "many spaces"},
		{"Z Flip7, 12/256GB", "z flip7 12 256gb"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := Normalize(tc.input)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Galaxy S25+ 256GB",
		"iPhone 16 Pro Max (Natural Titanium)",
		"Motorola moto g55 LTE",
		"Sølv/Grøn ++ edition",
		"Café / Crème & Co.",
		"Xiaomi Redmi Note 14 Pro+ 5G 8GB RAM 256GB",
		"__under_score__",
		"",
		"   ",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestSplitFused(t *testing.T) {
	testCases := []struct {
		token string
		want  []string
	}{
		{"flip7", []string{"flip", "7"}},
		{"s25", []string{"s", "25"}},
		{"256gb", []string{"256", "gb"}},
		{"a1b2", []string{"a", "1", "b", "2"}},
		{"galaxy", []string{"galaxy"}},
		{"16", []string{"16"}},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			got := SplitFused(tc.token)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitFused(%q) = %v, want %v", tc.token, got, tc.want)
			}
		})
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Galaxy Z Flip7")
	want := []string{"7", "flip", "flip7", "galaxy", "z"}

	slice := got.Slice()
	sort.Strings(slice)
	if !reflect.DeepEqual(slice, want) {
		t.Errorf("Tokens = %v, want %v", slice, want)
	}

	spaced := Tokens("Galaxy Z Flip 7")
	for _, token := range []string{"flip", "7"} {
		if !spaced.Has(token) || !got.Has(token) {
			t.Errorf("expected both token sets to contain %q", token)
		}
	}
}

func TestSplitParts(t *testing.T) {
	alpha, numeric := splitParts("flip7")
	if !alpha["flip"] || len(alpha) != 1 {
		t.Errorf("alpha = %v, want {flip}", alpha)
	}
	if !numeric["7"] || len(numeric) != 1 {
		t.Errorf("numeric = %v, want {7}", numeric)
	}

	alpha, numeric = splitParts("16")
	if len(alpha) != 0 {
		t.Errorf("alpha = %v, want empty", alpha)
	}
	if !numeric["16"] {
		t.Errorf("numeric = %v, want {16}", numeric)
	}
}

func TestIsNumeric(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"123", true},
		{"7", true},
		{"a1", false},
		{"", false},
		{"flip", false},
	}

	for _, tc := range testCases {
		if got := isNumeric(tc.input); got != tc.want {
			t.Errorf("isNumeric(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
