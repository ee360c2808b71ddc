package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/food"
	"github.com/hpungsan/calcard/internal/logging"
)

// LookupInput contains parameters for the Lookup operation.
type LookupInput struct {
	Name   string  // required
	Amount float64 // non-negative
	Unit   string  // g, oz, cup, tbsp, tsp, each, serving(s); default g
	APIKey string  // required
}

// LookupOutput is the result of a single lookup. When OK is false Calories is
// zero and Diagnostic explains why.
type LookupOutput struct {
	OK          bool            `json:"ok"`
	Calories    float64         `json:"calories"`
	RawCalories float64         `json:"raw_calories,omitempty"`
	KcalPerGram float64         `json:"kcal_per_gram,omitempty"`
	Grams       float64         `json:"grams,omitempty"`
	Match       *food.Candidate `json:"match,omitempty"`
	Diagnostic  Diagnostic      `json:"diagnostic"`
}

// LookupCalories returns the rounded calorie total for amount of unit of the
// named food, or false when it cannot be resolved. LastDiagnostic explains
// the most recent outcome.
func LookupCalories(ctx context.Context, src FoodSource, cfg *config.Config, name string, amount float64, unit, apiKey string) (float64, bool) {
	out := Lookup(ctx, src, cfg, LookupInput{Name: name, Amount: amount, Unit: unit, APIKey: apiKey})
	return out.Calories, out.OK
}

// Lookup resolves a food query to a calorie total.
//
// Expected failures (bad input, empty search, upstream errors, missing data)
// are reported through the returned Diagnostic, never as a Go error. Each
// call clears the process-wide slot read by LastDiagnostic when it starts and
// rewrites it when it ends.
func Lookup(ctx context.Context, src FoodSource, cfg *config.Config, in LookupInput) *LookupOutput {
	cfg = orDefault(cfg)

	l := &lookup{
		out: &LookupOutput{},
		diag: Diagnostic{
			LookupID: newLookupID(),
			Context:  map[string]any{},
		},
	}
	l.log = logging.L().With(zap.String("lookup_id", l.diag.LookupID))
	recordDiagnostic(Diagnostic{LookupID: l.diag.LookupID, At: time.Now().UTC()})

	name := strings.TrimSpace(in.Name)
	unit := food.NormalizeUnit(in.Unit)
	l.diag.Context["query"] = name
	l.diag.Context["unit"] = unit

	if name == "" {
		return l.finish(StageInput, 0, "food name is required")
	}
	if strings.TrimSpace(in.APIKey) == "" {
		return l.finish(StageInput, 0, "api key is required")
	}
	if validateAmount(in.Amount) != nil {
		return l.finish(StageInput, 0, "amount must be a non-negative number")
	}
	l.diag.Context["amount"] = in.Amount

	res := runSearchChain(ctx, src, cfg, in.APIKey, name, l.log)
	l.diag.Context["search_attempts"] = res.attempts
	if len(res.candidates) == 0 {
		if res.failed() {
			return l.finish(StageSearch, errors.StatusCode(res.lastErr), res.lastErr.Error())
		}
		return l.finish(StageSearchEmpty, 0, "no candidates found")
	}
	l.diag.Context["search_attempt"] = res.attempt

	best, ok := food.Rank(res.candidates, name)
	if !ok {
		return l.finish(StageSearchEmpty, 0, "no candidates found")
	}
	l.out.Match = &best
	l.diag.Context["fdc_id"] = best.FDCID
	l.diag.Context["description"] = best.Description
	l.diag.Context["data_type"] = best.DataType

	detail, err := src.Food(ctx, in.APIKey, best.FDCID)
	if err != nil {
		return l.finish(StageDetails, errors.StatusCode(err), err.Error())
	}
	if detail == nil {
		return l.finish(StageDetails, 0, "empty detail record")
	}

	kcalPerGram, kcalOK := food.CaloriesPerGram(detail)
	grams, gramsOK := food.GramsForRequest(detail, unit, in.Amount, name)

	if kcalOK && gramsOK {
		raw := kcalPerGram * grams
		if !finite(kcalPerGram, grams, raw) {
			return l.finish(StageParse, 0, "calorie total is not a finite number")
		}
		l.out.KcalPerGram = kcalPerGram
		l.out.Grams = grams
		l.succeed(raw, roundTo(cfg))
		return l.finish(StageOK, 0, "")
	}

	if label, ok := detail.LabelCalories(); ok && food.IsServingUnit(unit) {
		raw := in.Amount * label
		if !finite(label, raw) {
			return l.finish(StageParse, 0, "calorie total is not a finite number")
		}
		l.diag.Context["label_calories"] = label
		l.succeed(raw, roundTo(cfg))
		return l.finish(StageOKFallbackLabel, 0, "resolved from label calories per serving")
	}

	return l.finish(StageParse, 0, parseFailure(kcalOK, gramsOK, unit))
}

func parseFailure(kcalOK, gramsOK bool, unit string) string {
	switch {
	case !kcalOK && !gramsOK:
		return fmt.Sprintf("no calories per gram and no gram conversion for unit %q", unit)
	case !kcalOK:
		return "no calories per gram in nutrient table or label"
	default:
		return fmt.Sprintf("no gram conversion for unit %q", unit)
	}
}

// lookup carries the state of one Lookup call.
type lookup struct {
	out  *LookupOutput
	diag Diagnostic
	log  *zap.Logger
}

func (l *lookup) succeed(raw float64, granularity int) {
	l.out.OK = true
	l.out.RawCalories = raw
	l.out.Calories = food.RoundCalories(raw, granularity)
	l.diag.Context["raw_calories"] = raw
}

// finish stamps the diagnostic, publishes it and returns the output.
func (l *lookup) finish(stage Stage, statusCode int, msg string) *LookupOutput {
	l.diag.Stage = stage
	l.diag.StatusCode = statusCode
	l.diag.Message = msg
	l.diag.At = time.Now().UTC()

	if !stage.Succeeded() {
		l.out.OK = false
		l.out.Calories = 0
	}
	l.out.Diagnostic = l.diag
	recordDiagnostic(l.diag)

	fields := []zap.Field{zap.String("stage", string(stage))}
	if statusCode != 0 {
		fields = append(fields, zap.Int("status_code", statusCode))
	}
	if msg != "" {
		fields = append(fields, zap.String("message", msg))
	}
	if stage.Succeeded() {
		fields = append(fields, zap.Float64("calories", l.out.Calories))
		l.log.Info("lookup resolved", fields...)
	} else {
		l.log.Warn("lookup unresolved", fields...)
	}
	return l.out
}

// Err converts an unresolved lookup into a typed error for surfaces that
// report failures as errors. Returns nil when the lookup succeeded.
func (o *LookupOutput) Err() error {
	if o.OK {
		return nil
	}
	d := o.Diagnostic
	if d.Stage == StageInput {
		return errors.NewInvalidRequest(d.Message)
	}
	e := errors.NewUnresolvable(fmt.Sprintf("%s: %s", d.Stage, d.Message))
	e.Details = map[string]any{
		"lookup_id": d.LookupID,
		"stage":     d.Stage,
	}
	if d.StatusCode != 0 {
		e.Details["status_code"] = d.StatusCode
	}
	return e
}
