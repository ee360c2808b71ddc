package food

// Data types reported by FoodData Central search results.
const (
	DataTypeSurvey     = "Survey (FNDDS)"
	DataTypeSRLegacy   = "SR Legacy"
	DataTypeFoundation = "Foundation"
	DataTypeBranded    = "Branded"
)

// DefaultDataTypes is the search filter applied on the first search attempt.
var DefaultDataTypes = []string{DataTypeSurvey, DataTypeSRLegacy, DataTypeFoundation, DataTypeBranded}

// Candidate is a search-result summary for a food item, before its full
// detail record is fetched.
type Candidate struct {
	FDCID       int64   `json:"fdc_id"`
	Description string  `json:"description"`
	DataType    string  `json:"data_type"`
	Score       float64 `json:"score"`
	BrandOwner  string  `json:"brand_owner,omitempty"`
}

// Detail is the full nutrition record for one food.
type Detail struct {
	FDCID       int64
	Description string
	DataType    string

	// Nutrients keeps the order in which the source listed them
	Nutrients []Nutrient

	// Label is the nutrition-facts label block (branded foods only)
	Label *LabelNutrients

	// ServingSize and ServingSizeUnit come from the label; both may be empty
	ServingSize     *float64
	ServingSizeUnit string

	Portions []Portion
}

// Nutrient is one row of a food's nutrient table. Amounts are per 100 g.
type Nutrient struct {
	ID     int64
	Number string
	Name   string
	Amount *float64 // nil when the source value is missing or non-numeric
	Unit   string
}

// LabelNutrients holds per-serving values printed on a nutrition label.
type LabelNutrients struct {
	Calories *float64
}

// Portion is an authoritative household measure for a specific food,
// e.g. "1 medium" = 118 g.
type Portion struct {
	GramWeight  float64
	Description string
	MeasureUnit string
}

// LabelCalories returns the label calories-per-serving value, if numeric.
func (d *Detail) LabelCalories() (float64, bool) {
	if d == nil || d.Label == nil || d.Label.Calories == nil {
		return 0, false
	}
	return *d.Label.Calories, true
}
