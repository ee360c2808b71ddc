package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/logging"
	"github.com/hpungsan/calcard/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"food_lookup": {
		def:     lookupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLookup },
	},
	"food_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"meal_total": {
		def:     mealToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMealTotal },
	},
	"food_last_diagnostic": {
		def:     lastDiagnosticToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLastDiagnostic },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with calcard tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(src ops.FoodSource, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"calcard",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(src, cfg)

	if unknown := ValidateDisabledTools(h.cfg.DisabledTools); len(unknown) > 0 {
		logging.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}
	disabled := make(map[string]bool)
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(src ops.FoodSource, cfg *config.Config, version string) error {
	s := NewServer(src, cfg, version)
	return server.ServeStdio(s)
}
