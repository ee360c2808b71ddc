package ops

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/fdc"
	"github.com/hpungsan/calcard/internal/food"
)

// Limits
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	MaxMealItems       = 50
	MaxNameLength      = 200
)

// FoodSource is the nutrition database. *fdc.Client satisfies it; tests use fakes.
type FoodSource interface {
	Search(ctx context.Context, apiKey string, req fdc.SearchRequest) ([]food.Candidate, error)
	Food(ctx context.Context, apiKey string, fdcID int64) (*food.Detail, error)
}

// orDefault returns cfg, or the default configuration when cfg is nil.
func orDefault(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func roundTo(cfg *config.Config) int {
	if cfg.RoundTo == 0 {
		return food.DefaultRoundTo
	}
	return cfg.RoundTo
}

func pageSize(cfg *config.Config) int {
	if cfg.PageSize <= 0 {
		return config.DefaultConfig().PageSize
	}
	return cfg.PageSize
}

// validateAmount rejects negative, NaN and infinite amounts.
func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return errors.NewInvalidRequest("amount must be a non-negative number")
	}
	return nil
}

// finite reports whether every value is neither NaN nor infinite.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// validateName trims name and enforces presence and length.
func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s exceeds maximum length of %d characters", field, MaxNameLength))
	}
	return name, nil
}
