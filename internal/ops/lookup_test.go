package ops

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/fdc"
	"github.com/hpungsan/calcard/internal/food"
)

var bananaCandidate = food.Candidate{FDCID: 173944, Description: "Bananas, raw", DataType: food.DataTypeSRLegacy, Score: 100}

func bananaSource() *fakeSource {
	return &fakeSource{
		search: single(bananaCandidate),
		foods:  map[int64]*food.Detail{173944: energyDetail(173944, 89)},
	}
}

func TestLookup_MissingAPIKey(t *testing.T) {
	src := bananaSource()

	out := Lookup(context.Background(), src, config.DefaultConfig(), LookupInput{Name: "banana", Amount: 1, Unit: "each"})
	require.False(t, out.OK)
	require.Zero(t, out.Calories)
	require.Equal(t, StageInput, out.Diagnostic.Stage)
	require.Zero(t, src.searchCount(), "no network call on input errors")
	require.Equal(t, StageInput, LastDiagnostic().Stage)
}

func TestLookup_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		in   LookupInput
	}{
		{"empty name", LookupInput{Name: "  ", Amount: 1, APIKey: "k"}},
		{"negative amount", LookupInput{Name: "banana", Amount: -2, APIKey: "k"}},
		{"blank key", LookupInput{Name: "banana", Amount: 1, APIKey: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := bananaSource()
			out := Lookup(context.Background(), src, nil, tt.in)
			require.False(t, out.OK)
			require.Equal(t, StageInput, out.Diagnostic.Stage)
			require.NotEmpty(t, out.Diagnostic.Message)
			require.Zero(t, src.searchCount())
		})
	}
}

func TestLookup_SearchEmptyAfterAllFallbacks(t *testing.T) {
	src := &fakeSource{}

	out := Lookup(context.Background(), src, config.DefaultConfig(), LookupInput{Name: "grilled unobtainium", Amount: 1, Unit: "g", APIKey: "k"})
	require.False(t, out.OK)
	require.Equal(t, StageSearchEmpty, out.Diagnostic.Stage)

	// filtered, unfiltered, simplified
	require.Len(t, src.searches, 3)
	require.Equal(t, food.DefaultDataTypes, src.searches[0].DataTypes)
	require.Equal(t, 25, src.searches[0].PageSize)
	require.Empty(t, src.searches[1].DataTypes)
	require.Equal(t, "grilled unobtainium", src.searches[1].Query)
	require.Equal(t, "unobtainium", src.searches[2].Query)
	require.Empty(t, src.searches[2].DataTypes)
}

func TestLookup_SimplifiedAttemptSkippedWhenUnchanged(t *testing.T) {
	src := &fakeSource{}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "unobtainium", Amount: 1, APIKey: "k"})
	require.Equal(t, StageSearchEmpty, out.Diagnostic.Stage)
	require.Len(t, src.searches, 2)
}

func TestLookup_HardSearchFailure(t *testing.T) {
	src := &fakeSource{search: func(fdc.SearchRequest) ([]food.Candidate, error) {
		return nil, errors.NewUpstreamUnavailable(503, "/foods/search", nil)
	}}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, APIKey: "k"})
	require.False(t, out.OK)
	require.Equal(t, StageSearch, out.Diagnostic.Stage)
	require.Equal(t, 503, out.Diagnostic.StatusCode)
	require.Len(t, src.searches, 2)
}

func TestLookup_FilteredFailureFallsBackToUnfiltered(t *testing.T) {
	src := bananaSource()
	src.search = func(req fdc.SearchRequest) ([]food.Candidate, error) {
		if len(req.DataTypes) > 0 {
			return nil, errors.NewUpstreamRejected(400, "/foods/search")
		}
		return []food.Candidate{bananaCandidate}, nil
	}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 118, Unit: "g", APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, AttemptUnfiltered, out.Diagnostic.Context["search_attempt"])
}

func TestLookup_MixedFailureAndEmptyIsSearchEmpty(t *testing.T) {
	src := &fakeSource{search: func(req fdc.SearchRequest) ([]food.Candidate, error) {
		if len(req.DataTypes) > 0 {
			return nil, errors.NewUpstreamUnavailable(500, "/foods/search", nil)
		}
		return nil, nil
	}}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, APIKey: "k"})
	require.Equal(t, StageSearchEmpty, out.Diagnostic.Stage)
}

func TestLookup_SimplifiedQueryResolves(t *testing.T) {
	chicken := food.Candidate{FDCID: 5, Description: "Chicken breast", DataType: food.DataTypeFoundation}
	src := &fakeSource{
		search: func(req fdc.SearchRequest) ([]food.Candidate, error) {
			if req.Query == "chicken breast" {
				return []food.Candidate{chicken}, nil
			}
			return nil, nil
		},
		foods: map[int64]*food.Detail{5: energyDetail(5, 165)},
	}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "grilled boneless chicken breast", Amount: 100, Unit: "g", APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, 165.0, out.Calories)
	require.Equal(t, AttemptSimplified, out.Diagnostic.Context["search_attempt"])
}

func TestLookup_BananaGrams(t *testing.T) {
	src := bananaSource()

	out := Lookup(context.Background(), src, config.DefaultConfig(), LookupInput{Name: "banana", Amount: 118, Unit: "g", APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, 105.0, out.Calories)
	require.InDelta(t, 105.02, out.RawCalories, 1e-9)
	require.InDelta(t, 0.89, out.KcalPerGram, 1e-12)
	require.Equal(t, 118.0, out.Grams)
	require.Equal(t, StageOK, out.Diagnostic.Stage)
	require.NotNil(t, out.Match)
	require.Equal(t, int64(173944), out.Match.FDCID)
	require.Equal(t, []int64{173944}, src.fetched)

	last := LastDiagnostic()
	require.Equal(t, out.Diagnostic.LookupID, last.LookupID)
	require.Equal(t, StageOK, last.Stage)
}

func TestLookup_Idempotent(t *testing.T) {
	src := bananaSource()
	in := LookupInput{Name: "banana", Amount: 2, Unit: "each", APIKey: "k"}

	first := Lookup(context.Background(), src, nil, in)
	second := Lookup(context.Background(), src, nil, in)
	require.True(t, first.OK)
	require.Equal(t, first.Calories, second.Calories)
	require.NotEqual(t, first.Diagnostic.LookupID, second.Diagnostic.LookupID)
	require.Len(t, first.Diagnostic.LookupID, 26)
}

func TestLookup_RoundingFromConfig(t *testing.T) {
	// 146 kcal/100 g × 118 g = 172.28
	src := bananaSource()
	src.foods[173944] = energyDetail(173944, 146)
	in := LookupInput{Name: "banana", Amount: 118, Unit: "g", APIKey: "k"}

	out := Lookup(context.Background(), src, config.DefaultConfig(), in)
	require.Equal(t, 170.0, out.Calories)

	cfg := config.DefaultConfig()
	cfg.RoundTo = 1
	out = Lookup(context.Background(), src, cfg, in)
	require.Equal(t, 172.0, out.Calories)

	cfg.RoundTo = 10
	out = Lookup(context.Background(), src, cfg, in)
	require.Equal(t, 170.0, out.Calories)
}

func TestLookup_PrefersSurveyCandidate(t *testing.T) {
	src := &fakeSource{
		search: single(
			food.Candidate{FDCID: 1, Description: "BANANA", DataType: food.DataTypeBranded, Score: 900},
			food.Candidate{FDCID: 2, Description: "Banana, raw", DataType: food.DataTypeFoundation, Score: 500},
			food.Candidate{FDCID: 3, Description: "Banana, raw", DataType: food.DataTypeSurvey, Score: 10},
		),
		foods: map[int64]*food.Detail{3: energyDetail(3, 89)},
	}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 100, APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, int64(3), out.Match.FDCID)
	require.Equal(t, []int64{3}, src.fetched)
}

func TestLookup_DetailsFailure(t *testing.T) {
	src := bananaSource()
	src.foodErr = errors.NewUpstreamRejected(404, "/food/173944")

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, Unit: "each", APIKey: "k"})
	require.False(t, out.OK)
	require.Equal(t, StageDetails, out.Diagnostic.Stage)
	require.Equal(t, 404, out.Diagnostic.StatusCode)
	require.Equal(t, int64(173944), out.Diagnostic.Context["fdc_id"])
}

func TestLookup_PortionWins(t *testing.T) {
	src := bananaSource()
	src.foods[173944] = energyDetail(173944, 89, food.Portion{GramWeight: 150, Description: "1 cup, sliced"})

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, Unit: "cup", APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, 150.0, out.Grams)
	require.Equal(t, 135.0, out.Calories) // 133.5 rounds up to 135
}

func TestLookup_LabelServingFallback(t *testing.T) {
	bar := food.Candidate{FDCID: 9, Description: "PROTEIN BAR", DataType: food.DataTypeBranded}
	src := &fakeSource{
		search: single(bar),
		foods: map[int64]*food.Detail{9: {
			FDCID:    9,
			DataType: food.DataTypeBranded,
			Label:    &food.LabelNutrients{Calories: ptr(190)},
		}},
	}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "protein bar", Amount: 2, Unit: "Servings", APIKey: "k"})
	require.True(t, out.OK)
	require.Equal(t, StageOKFallbackLabel, out.Diagnostic.Stage)
	require.Equal(t, 380.0, out.Calories)
}

func TestLookup_LabelFallbackOnlyForServingUnits(t *testing.T) {
	src := &fakeSource{
		search: single(food.Candidate{FDCID: 9, DataType: food.DataTypeBranded}),
		foods: map[int64]*food.Detail{9: {
			FDCID: 9,
			Label: &food.LabelNutrients{Calories: ptr(190)},
		}},
	}

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "protein bar", Amount: 2, Unit: "g", APIKey: "k"})
	require.False(t, out.OK)
	require.Equal(t, StageParse, out.Diagnostic.Stage)
	require.Contains(t, out.Diagnostic.Message, "calories per gram")
}

func TestLookup_ParseNamesFailingSide(t *testing.T) {
	src := bananaSource()

	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, Unit: "lb", APIKey: "k"})
	require.False(t, out.OK)
	require.Equal(t, StageParse, out.Diagnostic.Stage)
	require.Contains(t, out.Diagnostic.Message, `gram conversion for unit "lb"`)
	require.NotContains(t, out.Diagnostic.Message, "calories per gram")

	src.foods[173944] = &food.Detail{FDCID: 173944}
	out = Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, Unit: "lb", APIKey: "k"})
	require.Contains(t, out.Diagnostic.Message, "no calories per gram and no gram conversion")
}

func TestLookupCalories(t *testing.T) {
	src := bananaSource()

	kcal, ok := LookupCalories(context.Background(), src, nil, "banana", 1, "each", "k")
	require.True(t, ok)
	require.Equal(t, 105.0, kcal) // 118 g × 0.89

	kcal, ok = LookupCalories(context.Background(), src, nil, "banana", 1, "each", "")
	require.False(t, ok)
	require.Zero(t, kcal)
	require.Equal(t, StageInput, LastDiagnostic().Stage)
}

func TestLastDiagnostic_ReturnsCopy(t *testing.T) {
	Lookup(context.Background(), bananaSource(), nil, LookupInput{Name: "banana", Amount: 1, APIKey: "k"})

	d := LastDiagnostic()
	d.Context["query"] = "mutated"
	require.Equal(t, "banana", LastDiagnostic().Context["query"])
}

func TestLookupOutput_Err(t *testing.T) {
	ok := Lookup(context.Background(), bananaSource(), config.DefaultConfig(), LookupInput{Name: "banana", Amount: 100, APIKey: "k"})
	require.True(t, ok.OK)
	require.NoError(t, ok.Err())

	bad := Lookup(context.Background(), bananaSource(), config.DefaultConfig(), LookupInput{Name: "", Amount: 100, APIKey: "k"})
	require.True(t, errors.Is(bad.Err(), errors.ErrInvalidRequest))

	empty := Lookup(context.Background(), &fakeSource{}, config.DefaultConfig(), LookupInput{Name: "unobtainium", Amount: 100, APIKey: "k"})
	err := empty.Err()
	require.True(t, errors.Is(err, errors.ErrUnresolvable))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, StageSearchEmpty, e.Details["stage"])
	require.Equal(t, empty.Diagnostic.LookupID, e.Details["lookup_id"])
	require.NotContains(t, e.Details, "status_code")
}

func TestLookup_NonFiniteAmount(t *testing.T) {
	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		out := Lookup(context.Background(), bananaSource(), nil, LookupInput{Name: "banana", Amount: amount, APIKey: "k"})
		require.False(t, out.OK)
		require.Equal(t, StageInput, out.Diagnostic.Stage)
		require.NotContains(t, out.Diagnostic.Context, "amount")

		_, err := json.Marshal(out)
		require.NoError(t, err)
		_, err = json.Marshal(LastDiagnostic())
		require.NoError(t, err)
	}
}

func TestLookup_OverflowIsParseFailure(t *testing.T) {
	tests := []struct {
		name        string
		kcalPer100g float64
		amount      float64
		unit        string
	}{
		{name: "grams overflow", kcalPer100g: 89, amount: 1e307, unit: "cup"},
		{name: "calories overflow", kcalPer100g: 900, amount: math.MaxFloat64, unit: "g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				search: single(bananaCandidate),
				foods:  map[int64]*food.Detail{173944: energyDetail(173944, tt.kcalPer100g)},
			}
			out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: tt.amount, Unit: tt.unit, APIKey: "k"})
			require.False(t, out.OK)
			require.Zero(t, out.Calories)
			require.Equal(t, StageParse, out.Diagnostic.Stage)
			require.Equal(t, "calorie total is not a finite number", out.Diagnostic.Message)

			_, err := json.Marshal(out)
			require.NoError(t, err)
			_, err = json.Marshal(LastDiagnostic())
			require.NoError(t, err)
		})
	}
}

func TestLookup_ClearsSlotWhileRunning(t *testing.T) {
	Lookup(context.Background(), bananaSource(), nil, LookupInput{Name: "banana", Amount: 1, APIKey: "k"})
	require.Equal(t, StageOK, LastDiagnostic().Stage)

	var during Diagnostic
	src := &fakeSource{
		search: func(fdc.SearchRequest) ([]food.Candidate, error) {
			during = LastDiagnostic()
			return []food.Candidate{bananaCandidate}, nil
		},
		foods: map[int64]*food.Detail{173944: energyDetail(173944, 89)},
	}
	out := Lookup(context.Background(), src, nil, LookupInput{Name: "banana", Amount: 1, APIKey: "k"})

	require.Empty(t, during.Stage)
	require.Equal(t, out.Diagnostic.LookupID, during.LookupID)
	require.Equal(t, StageOK, LastDiagnostic().Stage)
}
