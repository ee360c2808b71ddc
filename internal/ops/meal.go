package ops

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/food"
)

// DefaultSection names items submitted without a section.
const DefaultSection = "other"

// MealItem is one line of a meal.
type MealItem struct {
	Section string  `json:"section,omitempty"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Unit    string  `json:"unit,omitempty"`
	// Calories, when set, is used as-is and no lookup is made
	Calories *float64 `json:"calories,omitempty"`
}

// MealInput contains parameters for the MealTotal operation.
type MealInput struct {
	APIKey string
	Items  []MealItem
}

// MealItemResult is the resolved line.
type MealItemResult struct {
	Section    string      `json:"section"`
	Text       string      `json:"text"`
	Calories   float64     `json:"calories"`
	Resolved   bool        `json:"resolved"`
	Manual     bool        `json:"manual,omitempty"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// SectionTotal is the subtotal for one section.
type SectionTotal struct {
	Section  string  `json:"section"`
	Calories float64 `json:"calories"`
	Items    int     `json:"items"`
}

// MealOutput contains per-item results, section subtotals and the grand total.
type MealOutput struct {
	Items      []MealItemResult `json:"items"`
	Sections   []SectionTotal   `json:"sections"`
	Total      float64          `json:"total"`
	Unresolved int              `json:"unresolved"`
}

// MealTotal resolves every item and totals calories per section. Items
// without an explicit calorie value are looked up concurrently, bounded by
// cfg.MaxConcurrentLookups. Unresolved items count as zero.
func MealTotal(ctx context.Context, src FoodSource, cfg *config.Config, input MealInput) (*MealOutput, error) {
	cfg = orDefault(cfg)

	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if len(input.Items) > MaxMealItems {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("items exceeds maximum of %d", MaxMealItems))
	}

	needsLookup := false
	for i, item := range input.Items {
		if _, err := validateName(fmt.Sprintf("items[%d].name", i), item.Name); err != nil {
			return nil, err
		}
		if err := validateAmount(item.Amount); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d].amount must be a non-negative number", i))
		}
		if item.Calories != nil {
			if validateAmount(*item.Calories) != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d].calories must be a non-negative number", i))
			}
			continue
		}
		needsLookup = true
	}
	if needsLookup && strings.TrimSpace(input.APIKey) == "" {
		return nil, errors.NewInvalidRequest("api key is required")
	}

	results := make([]MealItemResult, len(input.Items))

	limit := cfg.MaxConcurrentLookups
	if limit <= 0 {
		limit = config.DefaultConfig().MaxConcurrentLookups
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range input.Items {
		results[i] = MealItemResult{
			Section: sectionName(item.Section),
			Text:    ItemText(item.Name, item.Amount, item.Unit),
		}
		if item.Calories != nil {
			results[i].Calories = *item.Calories
			results[i].Resolved = true
			results[i].Manual = true
			continue
		}

		g.Go(func() error {
			out := Lookup(gctx, src, cfg, LookupInput{
				Name:   item.Name,
				Amount: item.Amount,
				Unit:   item.Unit,
				APIKey: input.APIKey,
			})
			diag := out.Diagnostic
			results[i].Calories = out.Calories
			results[i].Resolved = out.OK
			results[i].Diagnostic = &diag
			return nil
		})
	}
	// lookups report failures through diagnostics, so Wait never errors
	_ = g.Wait()

	out := summarizeMeal(results)
	if !finite(out.Total) {
		return nil, errors.NewInvalidRequest("meal total is not a finite number")
	}
	return out, nil
}

// summarizeMeal groups results by case-insensitive section name. A section
// is labelled the way its first item spelled it.
func summarizeMeal(results []MealItemResult) *MealOutput {
	out := &MealOutput{Items: results, Sections: []SectionTotal{}}
	index := map[string]int{}
	for _, r := range results {
		key := food.Normalize(r.Section)
		i, ok := index[key]
		if !ok {
			i = len(out.Sections)
			index[key] = i
			out.Sections = append(out.Sections, SectionTotal{Section: r.Section})
		}
		out.Sections[i].Calories += r.Calories
		out.Sections[i].Items++
		out.Total += r.Calories
		if !r.Resolved {
			out.Unresolved++
		}
	}
	return out
}

// sectionName trims and collapses whitespace but keeps the caller's casing.
func sectionName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return DefaultSection
	}
	return s
}

// ItemText renders an item as "<name> <amount> <unit>", e.g. "banana 1 each".
func ItemText(name string, amount float64, unit string) string {
	return fmt.Sprintf("%s %g %s", strings.TrimSpace(name), amount, food.NormalizeUnit(unit))
}
