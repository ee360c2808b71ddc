package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/fdc"
	"github.com/hpungsan/calcard/internal/food"
	"github.com/hpungsan/calcard/internal/logging"
)

// Search attempt names, in the order they run.
const (
	AttemptFiltered   = "filtered"
	AttemptUnfiltered = "unfiltered"
	AttemptSimplified = "simplified"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	APIKey string // required
	Limit  int    // default: 10, max: 50
}

// SearchOutput contains the ranked candidates and the attempt that found them.
type SearchOutput struct {
	Query      string           `json:"query"`
	Attempt    string           `json:"attempt"`
	Candidates []food.Candidate `json:"candidates"`
	Total      int              `json:"total"`
}

// Search runs the fallback search chain and returns candidates best-first.
func Search(ctx context.Context, src FoodSource, cfg *config.Config, input SearchInput) (*SearchOutput, error) {
	cfg = orDefault(cfg)

	query, err := validateName("query", input.Query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.APIKey) == "" {
		return nil, errors.NewInvalidRequest("api key is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	res := runSearchChain(ctx, src, cfg, input.APIKey, query, logging.L())
	if len(res.candidates) == 0 {
		if res.failed() {
			return nil, res.lastErr
		}
		return nil, errors.NewNotFound(query)
	}

	ranked := food.RankAll(res.candidates, query)
	total := len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &SearchOutput{
		Query:      res.query,
		Attempt:    res.attempt,
		Candidates: ranked,
		Total:      total,
	}, nil
}

// searchResult is the outcome of the fallback search chain.
type searchResult struct {
	candidates []food.Candidate
	attempt    string // attempt that produced candidates
	query      string // query text of that attempt
	attempts   int    // attempts issued
	succeeded  int    // attempts that returned without error
	lastErr    error
}

// failed reports whether every attempt issued ended in an error.
func (r searchResult) failed() bool {
	return r.succeeded == 0 && r.lastErr != nil
}

type searchAttempt struct {
	name      string
	query     string
	dataTypes []string
}

// searchAttempts lists the chain for query: filtered by the configured data
// types, then unfiltered, then with cooking adjectives removed.
func searchAttempts(cfg *config.Config, query string) []searchAttempt {
	var attempts []searchAttempt
	if len(cfg.DataTypes) > 0 {
		attempts = append(attempts, searchAttempt{AttemptFiltered, query, cfg.DataTypes})
	}
	attempts = append(attempts, searchAttempt{AttemptUnfiltered, query, nil})

	simplified := food.SimplifyQuery(query)
	if simplified != "" && food.Normalize(simplified) != food.Normalize(query) {
		attempts = append(attempts, searchAttempt{AttemptSimplified, simplified, nil})
	}
	return attempts
}

// runSearchChain issues attempts in order until one returns candidates.
func runSearchChain(ctx context.Context, src FoodSource, cfg *config.Config, apiKey, query string, log *zap.Logger) searchResult {
	var res searchResult
	for _, a := range searchAttempts(cfg, query) {
		if ctx.Err() != nil {
			if res.lastErr == nil {
				res.lastErr = errors.NewUpstreamUnavailable(0, "/foods/search", ctx.Err())
			}
			break
		}

		res.attempts++
		candidates, err := src.Search(ctx, apiKey, fdc.SearchRequest{
			Query:     a.query,
			DataTypes: a.dataTypes,
			PageSize:  pageSize(cfg),
		})
		if err != nil {
			res.lastErr = err
			log.Warn("search attempt failed",
				zap.String("attempt", a.name),
				zap.String("query", a.query),
				zap.Int("status_code", errors.StatusCode(err)),
				zap.Error(err))
			continue
		}
		res.succeeded++

		log.Debug("search attempt",
			zap.String("attempt", a.name),
			zap.String("query", a.query),
			zap.Int("candidates", len(candidates)))
		if len(candidates) > 0 {
			res.candidates = candidates
			res.attempt = a.name
			res.query = a.query
			return res
		}
	}
	return res
}
