package slate

import "math"

// ApplyNoTieLine moves a whole-number line half a point up so a game can
// never land exactly on it: 4 becomes 4.5, -2 becomes -1.5, 3.5 is kept.
// The adjustment is the same for both sides of a market.
func ApplyNoTieLine(value float64, isUnder bool) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	if value == math.Trunc(value) {
		return value + 0.5
	}
	return value
}
