package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"pith_detect": {
		def:     detectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDetect },
	},
	"pith_compress": {
		def:     compressToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompress },
	},
	"pith_compress_batch": {
		def:     compressBatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompressBatch },
	},
	"pith_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"pith_verify": {
		def:     verifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVerify },
	},
	"pith_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"pith_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"pith_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"pith_purge": {
		def:     purgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurge },
	},
	"pith_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"pith_reset_counter": {
		def:     resetCounterToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResetCounter },
	},
	"pith_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"pith_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns the names of every registered tool, sorted.
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

// NewServer creates a new MCP server with Pith tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
// Every tool shares engine, so placeholder ids stay unique for the
// lifetime of the process.
func NewServer(db *sql.DB, cfg *config.Config, engine *compress.Engine, logger *zap.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pith",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, engine, logger)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
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
func Run(db *sql.DB, cfg *config.Config, engine *compress.Engine, logger *zap.Logger, version string) error {
	s := NewServer(db, cfg, engine, logger, version)
	logger.Info("mcp server starting", zap.String("version", version), zap.Strings("disabled_tools", cfg.DisabledTools))
	return server.ServeStdio(s)
}
