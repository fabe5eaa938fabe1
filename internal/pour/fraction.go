package pour

import "math"

// Fraction converts a pointer position into a fill level in [0,1]. offset is
// the pointer distance from the top of the glass outline's bounding box and
// height is the box height; offset 0 is full, offset >= height is empty.
// The outline is drawn rotated, so the box top is where the liquid starts.
func Fraction(offset, height float64) float64 {
	if !(height > 0) || math.IsNaN(offset) {
		return 0
	}
	return clamp01(1 - offset/height)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	}
	return v
}
