// Package color maps beer color intensity (EBC) to a display color.
package color

import "math"

// srmColors holds the calibrated display colors for SRM 0..42.
var srmColors = [...]string{
	"FFFFFF", "FFF099", "FFE699", "FFD878", "FFCA5A", "FFBF42", "FBB123", "F8A600",
	"F39C00", "EA8F00", "E58500", "DE7C00", "D77200", "CF6900", "CB6200", "C35900",
	"BB5100", "B54C00", "B04500", "A63E00", "A13700", "9B3200", "952D00", "8E2900",
	"882300", "821E00", "7B1A00", "771900", "701400", "6A0E00", "660D00", "5E0B00",
	"5A0A02", "600903", "520907", "4C0505", "470606", "440607", "3F0708", "3B0607",
	"3A070B", "36080A", "1E0204",
}

// EBCPerSRM converts EBC units to SRM.
const EBCPerSRM = 1.97

// Darkest is the last table entry, returned for anything past the end.
const Darkest = "#1E0204"

// Steps is the number of entries in the table.
func Steps() int { return len(srmColors) }

// Index returns the table index used for the given EBC value.
func Index(ebc float64) int {
	if math.IsNaN(ebc) {
		return 0
	}
	srm := roundHalfUp(ebc / EBCPerSRM)
	if srm > float64(len(srmColors)-1) {
		return len(srmColors) - 1
	}
	if srm < 0 {
		return 0
	}
	return int(srm)
}

// FromEBC returns the "#RRGGBB" color for an EBC value.
func FromEBC(ebc float64) string {
	return "#" + srmColors[Index(ebc)]
}

// roundHalfUp rounds .5 towards +Inf, so -0.5 becomes 0 rather than -1.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
