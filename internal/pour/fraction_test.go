package pour

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		name           string
		offset, height float64
		want           float64
	}{
		{name: "top", offset: 0, height: 200, want: 1},
		{name: "middle", offset: 50, height: 200, want: 0.75},
		{name: "bottom", offset: 200, height: 200, want: 0},
		{name: "below", offset: 250, height: 200, want: 0},
		{name: "above", offset: -30, height: 200, want: 1},
		{name: "zeroHeight", offset: 10, height: 0, want: 0},
		{name: "negativeHeight", offset: 10, height: -5, want: 0},
		{name: "nanOffset", offset: math.NaN(), height: 100, want: 0},
		{name: "nanHeight", offset: 10, height: math.NaN(), want: 0},
		{name: "infOffset", offset: math.Inf(1), height: 100, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Fraction(tt.offset, tt.height), 1e-12)
		})
	}
}

func TestFraction_AlwaysInUnitRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.Float64().Draw(t, "offset")
		height := rapid.Float64().Draw(t, "height")
		f := Fraction(offset, height)
		if math.IsNaN(f) || f < 0 || f > 1 {
			t.Fatalf("Fraction(%v, %v) = %v", offset, height, f)
		}
	})
}

func TestFraction_LowerPointerFillsLess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		height := rapid.Float64Range(1, 1000).Draw(t, "height")
		a := rapid.Float64Range(-100, 1100).Draw(t, "a")
		b := rapid.Float64Range(-100, 1100).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		if Fraction(a, height) < Fraction(b, height) {
			t.Fatalf("offset %v filled less than %v", a, b)
		}
	})
}
