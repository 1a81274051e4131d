package dicom

import (
	"testing"
)

func TestFirstString(t *testing.T) {
	if s, ok := firstString([]string{" CT "}); !ok || s != "CT" {
		t.Errorf("firstString = %q, %v", s, ok)
	}
	if _, ok := firstString([]string{}); ok {
		t.Error("empty slice should not yield a value")
	}
	if _, ok := firstString([]int{1}); ok {
		t.Error("non-string value should not yield a string")
	}
}

func TestFirstInt(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want int
		ok   bool
	}{
		{"ints", []int{512, 4}, 512, true},
		{"floats", []float64{3.0}, 3, true},
		{"integer string", []string{"12"}, 12, true},
		{"padded string", []string{" 7 "}, 7, true},
		{"decimal string", []string{"4.0"}, 4, true},
		{"garbage", []string{"abc"}, 0, false},
		{"empty", []int{}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := firstInt(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: firstInt = %d, %v; want %d, %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFirstFloat(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want float64
		ok   bool
	}{
		{"floats", []float64{1.5}, 1.5, true},
		{"ints", []int{-1024}, -1024, true},
		{"decimal string", []string{"0.703125"}, 0.703125, true},
		{"exponent string", []string{"1e-3"}, 0.001, true},
		{"garbage", []string{"x"}, 0, false},
		{"empty", []string{}, 0, false},
	}
	for _, tc := range cases {
		got, ok := firstFloat(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: firstFloat = %v, %v; want %v, %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFloatList(t *testing.T) {
	got, ok := floatList([]string{"-158.1", " 21.5", "147.0"})
	if !ok || len(got) != 3 || got[0] != -158.1 || got[1] != 21.5 || got[2] != 147.0 {
		t.Errorf("floatList from strings = %v, %v", got, ok)
	}

	got, ok = floatList([]float64{1, 2})
	if !ok || len(got) != 2 {
		t.Errorf("floatList from floats = %v, %v", got, ok)
	}

	got, ok = floatList([]int{3, 4})
	if !ok || got[0] != 3 || got[1] != 4 {
		t.Errorf("floatList from ints = %v, %v", got, ok)
	}

	if _, ok := floatList([]string{"1.0", "bad"}); ok {
		t.Error("list with unparsable entry should fail as a whole")
	}
	if _, ok := floatList([]string{}); ok {
		t.Error("empty list should not yield a value")
	}
}
