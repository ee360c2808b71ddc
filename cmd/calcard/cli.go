package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/food"
	"github.com/hpungsan/calcard/internal/ops"
	"github.com/hpungsan/calcard/internal/web"
)

// exitUnresolved is returned when a lookup completes without a calorie value.
const exitUnresolved = 2

// newCLIApp creates the CLI application with all commands.
func newCLIApp(src ops.FoodSource, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "calcard",
		Usage:   "Calorie lookups backed by USDA FoodData Central",
		Version: Version,
		Commands: []*cli.Command{
			lookupCmd(src, cfg),
			searchCmd(src, cfg),
			mealCmd(src, cfg),
			serveCmd(src, cfg),
			unitsCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func apiKeyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "api-key",
		Aliases: []string{"k"},
		Usage:   "FoodData Central API key (defaults to FDC_API_KEY)",
	}
}

// lookupCmd creates the lookup command.
func lookupCmd(src ops.FoodSource, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Estimate calories for an amount of a food",
		ArgsUsage: "<food name>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "amount", Aliases: []string{"a"}, Value: 100, Usage: "Quantity in --unit"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Value: food.UnitGram, Usage: "Unit: " + strings.Join(food.KnownUnits, ", ")},
			&cli.IntFlag{Name: "round-to", Usage: "Round calories to this granularity (1 disables)"},
			apiKeyFlag(),
		},
		Action: func(c *cli.Context) error {
			name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if name == "" {
				return outputError(errors.NewInvalidRequest("food name is required"))
			}

			lookupCfg := cfg
			if c.IsSet("round-to") {
				copied := *cfg
				copied.RoundTo = c.Int("round-to")
				lookupCfg = &copied
			}

			output := ops.Lookup(c.Context, src, lookupCfg, ops.LookupInput{
				Name:   name,
				Amount: c.Float64("amount"),
				Unit:   c.String("unit"),
				APIKey: apiKey(c, cfg),
			})
			if err := outputJSON(output); err != nil {
				return outputError(errors.NewInternal(err))
			}
			if !output.OK {
				return cli.Exit("", exitUnresolved)
			}
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(src ops.FoodSource, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "List ranked FoodData Central candidates for a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum candidates to return"},
			apiKeyFlag(),
		},
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			output, err := ops.Search(c.Context, src, cfg, ops.SearchInput{
				Query:  query,
				APIKey: apiKey(c, cfg),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// mealCmd creates the meal command.
func mealCmd(src ops.FoodSource, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "meal",
		Usage: "Total a meal (reads a JSON item array or {\"items\": [...]} from stdin)",
		Flags: []cli.Flag{apiKeyFlag()},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("meal items must be piped via stdin"))
			}
			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			items, err := parseMealItems(raw)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.MealTotal(c.Context, src, cfg, ops.MealInput{
				APIKey: apiKey(c, cfg),
				Items:  items,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(src ops.FoodSource, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8417, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 1 and 65535, got %d", port)))
			}
			srv := web.NewServer(src, cfg, Version, c.String("bind"), port)
			fmt.Fprintf(os.Stderr, "calcard listening on http://%s\n", srv.Addr)
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// unitsCmd creates the units command.
func unitsCmd() *cli.Command {
	return &cli.Command{
		Name:  "units",
		Usage: "List accepted units",
		Action: func(_ *cli.Context) error {
			return outputJSON(map[string]any{"units": food.KnownUnits})
		},
	}
}

// apiKey prefers the --api-key flag over configuration.
func apiKey(c *cli.Context, cfg *config.Config) string {
	if k := strings.TrimSpace(c.String("api-key")); k != "" {
		return k
	}
	if cfg == nil {
		return ""
	}
	return cfg.FDCAPIKey
}

// parseMealItems accepts either a bare item array or an object with an
// "items" field.
func parseMealItems(raw string) ([]ops.MealItem, error) {
	if raw == "" {
		return nil, errors.NewInvalidRequest("meal items are required")
	}
	var items []ops.MealItem
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid meal JSON: %v", err))
		}
		return items, nil
	}
	var wrapped struct {
		Items []ops.MealItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid meal JSON: %v", err))
	}
	return wrapped.Items, nil
}

// outputJSON writes indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// exitCode prints err to stderr and returns the process exit status.
func exitCode(err error) int {
	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// signalContext cancels on SIGINT or SIGTERM so in-flight lookups stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
