package matchtext

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"J. Sinner", "j sinner"},
		{"Francisco Cerúndolo", "francisco cerundolo"},
		{"  ATLÉTICO   Madrid ", "atletico madrid"},
		{"Đere", "đere"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsNormalized(t *testing.T) {
	t.Parallel()

	if !ContainsNormalized("Francisco Cerúndolo", "cerundolo") {
		t.Fatal("expected accented haystack to contain plain needle")
	}
	if !ContainsNormalized("Jannik Sinner", "Sinner") {
		t.Fatal("expected case-insensitive containment")
	}
	if ContainsNormalized("Jannik Sinner", "") {
		t.Fatal("empty needle must never match")
	}
	if ContainsNormalized("Jannik Sinner", "alcaraz") {
		t.Fatal("unrelated needle must not match")
	}
}

func TestSignature_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := Signature("Jannik Sinner", "Francisco Cerúndolo")
	b := Signature("Francisco Cerundolo", "Jannik Sinner")
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
	if a != "francisco cerundolo|jannik sinner" {
		t.Fatalf("unexpected signature: %q", a)
	}
}
