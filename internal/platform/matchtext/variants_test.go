package matchtext

import (
	"reflect"
	"testing"
)

func TestSplitSides(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"J. Sinner vs F. Cerúndolo", []string{"J. Sinner", "F. Cerúndolo"}},
		{"Sinner VS Cerundolo", []string{"Sinner", "Cerundolo"}},
		{"Sinner vs. Cerundolo", []string{"Sinner", "Cerundolo"}},
		{"Barcelona - Real Madrid", []string{"Barcelona", "Real Madrid"}},
		{"Ann/Kim vs Reynolds/Watt", []string{"Ann/Kim", "Reynolds/Watt"}},
		{"just one name", nil},
		{"", nil},
	}

	for _, tc := range cases {
		if got := SplitSides(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitSides(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		// Single-character initial dropped, surname kept as its own variant.
		{"J. Sinner", []string{"sinner"}},
		{"Jannik Sinner", []string{"jannik sinner", "sinner"}},
		{"Nadal", []string{"nadal"}},
		{"F. Cerúndolo", []string{"cerundolo"}},
		{"", nil},
	}

	for _, tc := range cases {
		if got := Variants(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Variants(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVariants_NeverEmptyForNonEmptyInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"X", "A. B.", "Đo", "o'brien"} {
		if got := Variants(in); len(got) == 0 {
			t.Fatalf("Variants(%q) returned empty set", in)
		}
	}
}

func TestWithDiacriticAlternates(t *testing.T) {
	t.Parallel()

	got := WithDiacriticAlternates([]string{"francisco cerundolo", "sinner"})
	want := []string{"francisco cerundolo", "sinner", "francisco cerúndolo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// No table hit: input passes through untouched.
	got = WithDiacriticAlternates([]string{"alcaraz"})
	if !reflect.DeepEqual(got, []string{"alcaraz"}) {
		t.Fatalf("got %v", got)
	}
}
