package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/calcard/internal/food"
	"github.com/hpungsan/calcard/internal/ops"
)

var unitDescription = "Household unit: " + strings.Join(food.KnownUnits, ", ") + ". Defaults to g."

var apiKeyOption = mcp.WithString("api_key",
	mcp.Description("FoodData Central API key. Defaults to the server's configured key."),
)

var lookupToolDef = mcp.NewTool("food_lookup",
	mcp.WithDescription("Estimate calories for an amount of a named food using USDA FoodData Central. "+
		"Always returns a diagnostic; ok=false means the food could not be resolved."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(true),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Food name, e.g. \"banana\" or \"grilled chicken breast\""),
	),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Quantity in the given unit (non-negative)"),
		mcp.Min(0),
	),
	mcp.WithString("unit", mcp.Description(unitDescription)),
	mcp.WithNumber("round_to",
		mcp.Description("Rounding granularity in kcal. 1 rounds to whole kcal. Defaults to the configured value."),
	),
	apiKeyOption,
)

var searchToolDef = mcp.NewTool("food_search",
	mcp.WithDescription("Search FoodData Central and return candidates best match first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Free-text food query")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum candidates to return (default 10, max 50)"),
		mcp.Min(1),
		mcp.Max(ops.MaxSearchLimit),
	),
	apiKeyOption,
)

var mealToolDef = mcp.NewTool("meal_total",
	mcp.WithDescription("Total calories for a meal, with per-section subtotals. "+
		"Items with an explicit calories value are not looked up."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(true),
	mcp.WithArray("items",
		mcp.Required(),
		mcp.Description("Meal items (max 50)"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"section":  map[string]any{"type": "string", "description": "Group name, e.g. protein, carb, fat"},
				"name":     map[string]any{"type": "string"},
				"amount":   map[string]any{"type": "number"},
				"unit":     map[string]any{"type": "string"},
				"calories": map[string]any{"type": "number", "description": "Manual override in kcal"},
			},
			"required": []string{"name", "amount"},
		}),
	),
	apiKeyOption,
)

var lastDiagnosticToolDef = mcp.NewTool("food_last_diagnostic",
	mcp.WithDescription("Return the diagnostic of the most recent lookup in this process. "+
		"Concurrent lookups overwrite each other; prefer the diagnostic returned by food_lookup."),
	mcp.WithReadOnlyHintAnnotation(true),
)
