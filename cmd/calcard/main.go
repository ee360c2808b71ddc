package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/fdc"
	"github.com/hpungsan/calcard/internal/logging"
	"github.com/hpungsan/calcard/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"lookup": true, "search": true, "meal": true,
	"serve": true, "units": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
            _                   _
   ___ __ _| | ___ __ _ _ __ __| |
  / __/ _' | |/ __/ _' | '__/ _' |
 | (_| (_| | | (_| (_| | | | (_| |
  \___\__,_|_|\___\__,_|_|  \__,_|

  Calorie lookups backed by USDA FoodData Central

  Usage: calcard <command> [options]
         calcard --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no config or upstream client
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := loadConfig(filepath.Join(homeDir, ".calcard"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.LogEnv); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg)
	logging.Sync()
	if code != 0 {
		os.Exit(code)
	}
}

// loadConfig layers repo config over globalDir when the working directory is
// known, and uses globalDir alone otherwise.
func loadConfig(globalDir string) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Load(globalDir)
	}
	return config.LoadWithRepo(globalDir, cwd)
}

func run(cfg *config.Config) int {
	src := fdc.New(cfg)

	if isCLIMode() {
		ctx, stop := signalContext()
		defer stop()
		app := newCLIApp(src, cfg)
		if err := app.RunContext(ctx, os.Args); err != nil {
			return exitCode(err)
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'calcard --help' for usage.\n")
		return 1
	}

	if err := mcp.Run(src, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
