package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	src ops.FoodSource
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(src ops.FoodSource, cfg *config.Config) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{src: src, cfg: cfg}
}

// Request types for each tool

// LookupRequest represents the arguments for food_lookup.
type LookupRequest struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Unit    string  `json:"unit,omitempty"`
	RoundTo *int    `json:"round_to,omitempty"`
	APIKey  string  `json:"api_key,omitempty"`
}

// SearchRequest represents the arguments for food_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// MealRequest represents the arguments for meal_total.
type MealRequest struct {
	Items  []ops.MealItem `json:"items"`
	APIKey string         `json:"api_key,omitempty"`
}

// LastDiagnosticOutput is the food_last_diagnostic result.
type LastDiagnosticOutput struct {
	Available  bool            `json:"available"`
	Diagnostic *ops.Diagnostic `json:"diagnostic,omitempty"`
}

// apiKey prefers the per-call key over the configured one.
func (h *Handlers) apiKey(fromArgs string) string {
	if k := strings.TrimSpace(fromArgs); k != "" {
		return k
	}
	return h.cfg.FDCAPIKey
}

// HandleLookup handles the food_lookup tool call. An unresolved lookup is a
// successful tool call with ok=false; only malformed arguments are errors.
func (h *Handlers) HandleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LookupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	cfg := h.cfg
	if input.RoundTo != nil && *input.RoundTo != 0 {
		c := *h.cfg
		c.RoundTo = *input.RoundTo
		cfg = &c
	}

	result := ops.Lookup(ctx, h.src, cfg, ops.LookupInput{
		Name:   input.Name,
		Amount: input.Amount,
		Unit:   input.Unit,
		APIKey: h.apiKey(input.APIKey),
	})
	return successResult(result)
}

// HandleSearch handles the food_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.src, h.cfg, ops.SearchInput{
		Query:  input.Query,
		Limit:  input.Limit,
		APIKey: h.apiKey(input.APIKey),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMealTotal handles the meal_total tool call.
func (h *Handlers) HandleMealTotal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MealRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MealTotal(ctx, h.src, h.cfg, ops.MealInput{
		Items:  input.Items,
		APIKey: h.apiKey(input.APIKey),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLastDiagnostic handles the food_last_diagnostic tool call.
func (h *Handlers) HandleLastDiagnostic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := ops.LastDiagnostic()
	if d.Stage == "" {
		return successResult(LastDiagnosticOutput{})
	}
	return successResult(LastDiagnosticOutput{Available: true, Diagnostic: &d})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var calErr *errors.Error
	if stderrors.As(err, &calErr) {
		// keep wrapper context such as "items[2]: "
		msg := calErr.Message
		if err != error(calErr) {
			msg = strings.Replace(err.Error(), calErr.Error(), calErr.Message, 1)
		}
		errorObj := map[string]any{
			"code":    calErr.Code,
			"message": msg,
			"status":  calErr.Status,
		}
		// Only include details for non-internal errors
		if calErr.Code != errors.ErrInternal && calErr.Details != nil {
			errorObj["details"] = calErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
