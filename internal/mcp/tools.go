package mcp

import "github.com/mark3labs/mcp-go/mcp"

var placeholderItem = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":           map[string]any{"type": "string"},
		"original":     map[string]any{"type": "string"},
		"content_type": map[string]any{"type": "string"},
		"start_pos":    map[string]any{"type": "integer"},
		"end_pos":      map[string]any{"type": "integer"},
		"checksum":     map[string]any{"type": "string"},
	},
	"required": []string{"id", "original", "checksum"},
}

var batchItem = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text":      map[string]any{"type": "string"},
		"workspace": map[string]any{"type": "string"},
		"name":      map[string]any{"type": "string"},
		"store":     map[string]any{"type": "boolean"},
	},
	"required": []string{"text"},
}

func addressOptions(verb string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("id", mcp.Description("Result ULID to "+verb+". Mutually exclusive with name")),
		mcp.WithString("workspace", mcp.Description("Workspace of the named result (default: \"default\")")),
		mcp.WithString("name", mcp.Description("Result name within the workspace. Mutually exclusive with id")),
	}
}

var detectToolDef = mcp.NewTool("pith_detect",
	mcp.WithDescription("List the spans (URLs, file paths, emails, code blocks, JSON, hashes, long identifiers, quoted strings) that pith_compress would replace with placeholders. Nothing is stored."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to scan")),
)

var compressToolDef = mcp.NewTool("pith_compress",
	mcp.WithDescription("Replace long literal spans with @@P<n>@@ placeholders and report the token savings. Set store or name to keep the placeholder map for a later pith_restore."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to compress")),
	mcp.WithString("workspace", mcp.Description("Workspace for the stored result (default: \"default\")")),
	mcp.WithString("name", mcp.Description("Unique name within the workspace. Implies store")),
	mcp.WithBoolean("store", mcp.Description("Persist the result and return its id")),
)

var compressBatchToolDef = mcp.NewTool("pith_compress_batch",
	mcp.WithDescription("Compress up to 100 texts in parallel. Results come back in input order; a failing item carries its own error and does not fail the batch."),
	mcp.WithArray("items", mcp.Required(), mcp.Description("Texts to compress"), mcp.Items(batchItem)),
	mcp.WithNumber("parallelism", mcp.Description("Worker count (default from config, max 32)")),
)

var restoreToolDef = mcp.NewTool("pith_restore",
	append(addressOptions("restore from"),
		mcp.WithDescription("Put original content back in place of placeholders. Address a stored result by id or workspace+name, or pass placeholders directly. Integrity problems are reported, not raised."),
		mcp.WithString("text", mcp.Description("Text containing placeholders, e.g. an LLM response. Defaults to the stored compressed text")),
		mcp.WithArray("placeholders", mcp.Description("Placeholder map returned by pith_compress, when not using a stored result"), mcp.Items(placeholderItem)),
	)...,
)

var verifyToolDef = mcp.NewTool("pith_verify",
	append(addressOptions("verify"),
		mcp.WithDescription("Check that a stored result restores cleanly: every placeholder present and every checksum matching."),
	)...,
)

var fetchToolDef = mcp.NewTool("pith_fetch",
	append(addressOptions("fetch"),
		mcp.WithDescription("Fetch a stored compression result with its placeholder map and cost savings."),
		mcp.WithBoolean("include_deleted", mcp.Description("Also match soft-deleted results")),
		mcp.WithBoolean("include_text", mcp.Description("Include original and compressed text (default: true)")),
	)...,
)

var listToolDef = mcp.NewTool("pith_list",
	mcp.WithDescription("List stored results, newest first, without their text."),
	mcp.WithString("workspace", mcp.Description("Filter by workspace (default: all workspaces)")),
	mcp.WithNumber("limit", mcp.Description("Page size (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted results")),
)

var deleteToolDef = mcp.NewTool("pith_delete",
	append(addressOptions("delete"),
		mcp.WithDescription("Soft-delete a stored result. It stays recoverable until pith_purge."),
	)...,
)

var purgeToolDef = mcp.NewTool("pith_purge",
	mcp.WithDescription("Permanently remove soft-deleted results."),
	mcp.WithString("workspace", mcp.Description("Only purge this workspace (default: all workspaces)")),
)

var statsToolDef = mcp.NewTool("pith_stats",
	mcp.WithDescription("Aggregate token and cost savings across stored results."),
	mcp.WithString("workspace", mcp.Description("Only aggregate this workspace (default: all workspaces)")),
)

var resetCounterToolDef = mcp.NewTool("pith_reset_counter",
	mcp.WithDescription("Restart placeholder numbering at @@P0@@. Placeholder maps from earlier results stay valid on their own, but new ids may collide with ids already in circulation."),
)

var exportToolDef = mcp.NewTool("pith_export",
	mcp.WithDescription("Write stored results to a JSONL file, one result per line after a header line."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default: ~/.pith/exports/<workspace>-<timestamp>.jsonl)")),
	mcp.WithString("workspace", mcp.Description("Only export this workspace (default: all workspaces)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted results")),
)

var importToolDef = mcp.NewTool("pith_import",
	mcp.WithDescription("Load results from a pith_export JSONL file. Each record must restore to its original text before it is imported."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("Collision handling: 'error' (default, all-or-nothing), 'skip' existing, or 'rename' colliding names"),
		mcp.Enum("error", "skip", "rename"),
	),
)
