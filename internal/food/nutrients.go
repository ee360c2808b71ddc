package food

import "strings"

// Energy (kcal) identifiers in FDC nutrient tables. Newer records use the
// nutrient id 1008; legacy records carry the SR number 208.
const (
	EnergyNutrientID     = 1008
	energyCode           = "1008"
	energyLegacyNumber   = "208"
	nutrientTablePerGram = 100.0
)

// CaloriesPerGram derives kcal per gram for a food.
//
// The nutrient table wins when it has a numeric energy entry (per 100 g).
// Otherwise label calories per serving are divided by the serving size in
// grams. Returns false when neither source resolves.
func CaloriesPerGram(d *Detail) (float64, bool) {
	if d == nil {
		return 0, false
	}
	if kcal, ok := energyPer100g(d.Nutrients); ok {
		return kcal / nutrientTablePerGram, true
	}

	label, ok := d.LabelCalories()
	if !ok {
		return 0, false
	}
	grams, ok := ServingGrams(d)
	if !ok || grams <= 0 {
		return 0, false
	}
	return label / grams, true
}

// energyPer100g finds the energy row. Code matches are preferred over
// name-only matches; kJ rows are never used.
func energyPer100g(nutrients []Nutrient) (float64, bool) {
	for _, n := range nutrients {
		if isKilojoule(n) || n.Amount == nil {
			continue
		}
		if isEnergyCode(n) {
			return *n.Amount, true
		}
	}
	for _, n := range nutrients {
		if isKilojoule(n) || n.Amount == nil {
			continue
		}
		name := strings.ToLower(n.Name)
		if strings.Contains(name, "energy") || strings.Contains(name, "kcal") {
			return *n.Amount, true
		}
	}
	return 0, false
}

func isEnergyCode(n Nutrient) bool {
	return n.ID == EnergyNutrientID || n.Number == energyCode || n.Number == energyLegacyNumber
}

func isKilojoule(n Nutrient) bool {
	return strings.EqualFold(strings.TrimSpace(n.Unit), "kj")
}

// ServingGrams resolves a serving size in grams: the explicit serving size
// when its unit is grams, else the first portion with a positive gram weight.
func ServingGrams(d *Detail) (float64, bool) {
	if d == nil {
		return 0, false
	}
	if d.ServingSize != nil && isGramUnit(d.ServingSizeUnit) {
		return *d.ServingSize, true
	}
	for _, p := range d.Portions {
		if p.GramWeight > 0 {
			return p.GramWeight, true
		}
	}
	return 0, false
}

func isGramUnit(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "grm", "gram", "grams":
		return true
	}
	return false
}
