package fdc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/hpungsan/calcard/internal/food"
)

// number decodes a JSON number, a numeric string, or null. Anything else
// decodes as absent instead of failing the whole response.
type number struct {
	val float64
	ok  bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	*n = number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.set(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			n.set(f)
		}
	}
	return nil
}

func (n *number) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	n.val, n.ok = f, true
}

func (n number) ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.val
	return &v
}

// code decodes a nutrient number given either as "208" or 208.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	*c = ""
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = code(n.String())
	}
	return nil
}

type searchResponse struct {
	TotalHits int          `json:"totalHits"`
	Foods     []searchFood `json:"foods"`
}

type searchFood struct {
	FDCID       number `json:"fdcId"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	Score       number `json:"score"`
	BrandOwner  string `json:"brandOwner"`
}

type foodResponse struct {
	FDCID           number         `json:"fdcId"`
	Description     string         `json:"description"`
	DataType        string         `json:"dataType"`
	FoodNutrients   []wireNutrient `json:"foodNutrients"`
	LabelNutrients  *labelBlock    `json:"labelNutrients"`
	ServingSize     number         `json:"servingSize"`
	ServingSizeUnit string         `json:"servingSizeUnit"`
	FoodPortions    []wirePortion  `json:"foodPortions"`
}

type labelBlock struct {
	Calories *struct {
		Value number `json:"value"`
	} `json:"calories"`
}

// wireNutrient covers the three nutrient layouts FDC emits: nested
// ("nutrient" + "amount"), abridged (flat "number"/"name"/"amount") and the
// search layout ("nutrientId"/"nutrientName"/"value").
type wireNutrient struct {
	Nutrient *struct {
		ID       number `json:"id"`
		Number   code   `json:"number"`
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount number `json:"amount"`

	Number   code   `json:"number"`
	Name     string `json:"name"`
	UnitName string `json:"unitName"`

	NutrientID     number `json:"nutrientId"`
	NutrientNumber code   `json:"nutrientNumber"`
	NutrientName   string `json:"nutrientName"`
	Value          number `json:"value"`
}

type wirePortion struct {
	GramWeight         number `json:"gramWeight"`
	PortionDescription string `json:"portionDescription"`
	Amount             number `json:"amount"`
	Modifier           string `json:"modifier"`
	MeasureUnit        *struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"measureUnit"`
}

func (f searchFood) candidate() (food.Candidate, bool) {
	if !f.FDCID.ok {
		return food.Candidate{}, false
	}
	return food.Candidate{
		FDCID:       int64(f.FDCID.val),
		Description: f.Description,
		DataType:    f.DataType,
		Score:       f.Score.val,
		BrandOwner:  f.BrandOwner,
	}, true
}

func (r *searchResponse) candidates() []food.Candidate {
	out := make([]food.Candidate, 0, len(r.Foods))
	for _, f := range r.Foods {
		if c, ok := f.candidate(); ok {
			out = append(out, c)
		}
	}
	return out
}

func (n wireNutrient) nutrient() food.Nutrient {
	if n.Nutrient != nil {
		return food.Nutrient{
			ID:     int64(n.Nutrient.ID.val),
			Number: string(n.Nutrient.Number),
			Name:   n.Nutrient.Name,
			Amount: n.Amount.ptr(),
			Unit:   n.Nutrient.UnitName,
		}
	}

	out := food.Nutrient{
		ID:     int64(n.NutrientID.val),
		Number: string(n.Number),
		Name:   n.Name,
		Amount: n.Amount.ptr(),
		Unit:   n.UnitName,
	}
	if out.Number == "" {
		out.Number = string(n.NutrientNumber)
	}
	if out.Name == "" {
		out.Name = n.NutrientName
	}
	if out.Amount == nil {
		out.Amount = n.Value.ptr()
	}
	return out
}

func (p wirePortion) portion() food.Portion {
	desc := strings.TrimSpace(p.PortionDescription)
	if desc == "" {
		// SR Legacy portions carry "amount" + "modifier" instead
		parts := make([]string, 0, 2)
		if p.Amount.ok {
			parts = append(parts, strconv.FormatFloat(p.Amount.val, 'g', -1, 64))
		}
		if m := strings.TrimSpace(p.Modifier); m != "" {
			parts = append(parts, m)
		}
		desc = strings.Join(parts, " ")
	}

	var unit string
	if p.MeasureUnit != nil {
		unit = p.MeasureUnit.Name
	}
	return food.Portion{
		GramWeight:  p.GramWeight.val,
		Description: desc,
		MeasureUnit: unit,
	}
}

func (r *foodResponse) detail() *food.Detail {
	d := &food.Detail{
		FDCID:           int64(r.FDCID.val),
		Description:     r.Description,
		DataType:        r.DataType,
		ServingSize:     r.ServingSize.ptr(),
		ServingSizeUnit: r.ServingSizeUnit,
	}
	for _, n := range r.FoodNutrients {
		d.Nutrients = append(d.Nutrients, n.nutrient())
	}
	if r.LabelNutrients != nil && r.LabelNutrients.Calories != nil {
		d.Label = &food.LabelNutrients{Calories: r.LabelNutrients.Calories.Value.ptr()}
	}
	for _, p := range r.FoodPortions {
		d.Portions = append(d.Portions, p.portion())
	}
	return d
}
