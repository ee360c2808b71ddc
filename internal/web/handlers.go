package web

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/ops"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP route handlers for the calorie API. The FDC API key
// always comes from server configuration, never from the request.
type Handlers struct {
	src     ops.FoodSource
	cfg     *config.Config
	version string
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.version,
		"api_key_loaded": h.cfg.FDCAPIKey != "",
	})
}

// HandleCalories handles GET /v1/calories?name=&amount=&unit=[&round_to=].
// Unresolved lookups answer with the error envelope plus the full result.
func (h *Handlers) HandleCalories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := parseFloatParam(r, "amount")
	if err != nil {
		renderError(w, err)
		return
	}

	cfg := h.cfg
	if rt := parseIntParam(r, "round_to", 0); rt != 0 {
		c := *h.cfg
		c.RoundTo = rt
		cfg = &c
	}

	result := ops.Lookup(r.Context(), h.src, cfg, ops.LookupInput{
		Name:   q.Get("name"),
		Amount: amount,
		Unit:   q.Get("unit"),
		APIKey: h.cfg.FDCAPIKey,
	})
	if err := result.Err(); err != nil {
		renderErrorWith(w, err, map[string]any{"result": result})
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /v1/foods/search?q=&limit=.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Search(r.Context(), h.src, h.cfg, ops.SearchInput{
		Query:  r.URL.Query().Get("q"),
		Limit:  parseIntParam(r, "limit", ops.DefaultSearchLimit),
		APIKey: h.cfg.FDCAPIKey,
	})
	if err != nil {
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// mealBody is the POST /v1/meals/total request body.
type mealBody struct {
	Items []ops.MealItem `json:"items"`
}

// HandleMealTotal handles POST /v1/meals/total.
func (h *Handlers) HandleMealTotal(w http.ResponseWriter, r *http.Request) {
	var body mealBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	result, err := ops.MealTotal(r.Context(), h.src, h.cfg, ops.MealInput{
		Items:  body.Items,
		APIKey: h.cfg.FDCAPIKey,
	})
	if err != nil {
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleLastDiagnostic handles GET /v1/diagnostics/last.
func (h *Handlers) HandleLastDiagnostic(w http.ResponseWriter, r *http.Request) {
	d := ops.LastDiagnostic()
	if d.Stage == "" {
		renderJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"available": true, "diagnostic": d})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseFloatParam parses a required finite number query parameter.
func parseFloatParam(r *http.Request, name string) (float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, errors.NewInvalidRequest(name + " is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewInvalidRequest(name + " must be a finite number")
	}
	return v, nil
}
