package food

import "strings"

// Units accepted by GramsForRequest.
const (
	UnitGram       = "g"
	UnitOunce      = "oz"
	UnitCup        = "cup"
	UnitTablespoon = "tbsp"
	UnitTeaspoon   = "tsp"
	UnitEach       = "each"
	UnitServing    = "serving"
	UnitServings   = "servings"
)

// GramsPerOunce is the avoirdupois ounce.
const GramsPerOunce = 28.349523125

// KnownUnits lists the units offered to callers.
var KnownUnits = []string{UnitGram, UnitOunce, UnitCup, UnitTablespoon, UnitTeaspoon, UnitEach, UnitServing}

// defaultEachGrams is used for "each" when no food keyword matches.
const defaultEachGrams = 50.0

// eachGrams maps food-name keywords to the weight of one item. Order matters:
// the first keyword found in the food name wins.
var eachGrams = []struct {
	keyword string
	grams   float64
}{
	{"egg", 50},
	{"eggs", 50},
	{"apple", 182},
	{"banana", 118},
	{"orange", 131},
	{"pear", 178},
	{"peach", 150},
}

// volumeGrams are generic grams-per-unit for household volume measures.
var volumeGrams = map[string]float64{
	UnitTablespoon: 14.2,
	UnitTeaspoon:   4.2,
	UnitCup:        240.0,
}

// GramsForRequest converts amount of unit into grams for the given food.
//
// Mass units convert directly. Any other unit first looks for a matching
// portion on the food record; only when none matches do the generic tables
// apply. Unknown units return false. Non-positive amounts pass through.
func GramsForRequest(d *Detail, unit string, amount float64, foodName string) (float64, bool) {
	unit = NormalizeUnit(unit)

	switch unit {
	case UnitGram:
		return amount, true
	case UnitOunce:
		return amount * GramsPerOunce, true
	}

	if p, ok := matchPortion(d, unit); ok {
		return amount * p.GramWeight, true
	}

	if unit == UnitEach {
		return amount * eachWeight(foodName), true
	}

	if g, ok := volumeGrams[unit]; ok {
		return amount * g, true
	}

	return 0, false
}

// matchPortion returns the first portion whose description or measure unit
// mentions unit. For "each", "piece" and "unit" also match.
func matchPortion(d *Detail, unit string) (Portion, bool) {
	if d == nil {
		return Portion{}, false
	}
	for _, p := range d.Portions {
		if p.GramWeight <= 0 {
			continue
		}
		desc := strings.ToLower(p.Description)
		measure := strings.ToLower(p.MeasureUnit)
		if strings.Contains(desc, unit) || strings.Contains(measure, unit) {
			return p, true
		}
		if unit == UnitEach && (mentionsAny(desc, "each", "piece", "unit") || mentionsAny(measure, "each", "piece", "unit")) {
			return p, true
		}
	}
	return Portion{}, false
}

func mentionsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func eachWeight(foodName string) float64 {
	name := strings.ToLower(strings.TrimSpace(foodName))
	for _, e := range eachGrams {
		if strings.Contains(name, e.keyword) {
			return e.grams
		}
	}
	return defaultEachGrams
}

// IsServingUnit reports whether unit asks for label servings.
func IsServingUnit(unit string) bool {
	u := NormalizeUnit(unit)
	return u == UnitServing || u == UnitServings
}
