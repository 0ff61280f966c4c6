package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{1, 20, 1, 20},
		{0, 0, 1, 20},
		{-4, -1, 1, 20},
		{3, 500, 3, 100},
		{2, 100, 2, 100},
	}
	for _, tc := range cases {
		p, s := NormalizePage(tc.page, tc.size, 20, 100)
		if p != tc.wantPage || s != tc.wantSize {
			t.Fatalf("NormalizePage(%d,%d) = (%d,%d); want (%d,%d)", tc.page, tc.size, p, s, tc.wantPage, tc.wantSize)
		}
	}
	// max <= 0 means unbounded
	if _, s := NormalizePage(1, 5000, 20, 0); s != 5000 {
		t.Fatalf("unbounded size clipped to %d", s)
	}
}

func TestOffsetAndTotalPages(t *testing.T) {
	if got := Offset(1, 20); got != 0 {
		t.Fatalf("Offset(1,20) = %d", got)
	}
	if got := Offset(3, 20); got != 40 {
		t.Fatalf("Offset(3,20) = %d", got)
	}
	if got := Offset(0, 20); got != 0 {
		t.Fatalf("Offset(0,20) = %d", got)
	}

	for _, tc := range []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	} {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d,%d) = %d; want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
