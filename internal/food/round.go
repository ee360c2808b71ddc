package food

import "math"

// DefaultRoundTo is the default calorie rounding granularity.
const DefaultRoundTo = 5

// RoundCalories rounds kcal to the nearest multiple of granularity, with
// halves rounded up. A granularity of 1 or less rounds to whole kcal.
func RoundCalories(kcal float64, granularity int) float64 {
	if granularity <= 1 {
		return math.Round(kcal)
	}
	g := float64(granularity)
	return math.Round(kcal/g) * g
}
