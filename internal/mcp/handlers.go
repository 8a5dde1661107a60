package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/analytics"
	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	engine *compress.Engine
	logger *zap.Logger

	// session tallies every compression served by this process, stored or not.
	session *analytics.Tracker
}

// NewHandlers creates a new Handlers instance. A nil logger discards output.
func NewHandlers(db *sql.DB, cfg *config.Config, engine *compress.Engine, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	var costPer1K float64
	if cfg != nil {
		costPer1K = cfg.CostPer1K
	}
	return &Handlers{
		db:      db,
		cfg:     cfg,
		engine:  engine,
		logger:  logger,
		session: analytics.NewTracker(costPer1K),
	}
}

// Request types for each tool

// DetectRequest represents the arguments for detect.
type DetectRequest struct {
	Text string `json:"text"`
}

// CompressRequest represents the arguments for compress and for each
// compress_batch item.
type CompressRequest struct {
	Text      string  `json:"text"`
	Workspace string  `json:"workspace,omitempty"`
	Name      *string `json:"name,omitempty"`
	Store     bool    `json:"store,omitempty"`
}

func (r CompressRequest) input() ops.CompressInput {
	return ops.CompressInput{
		Text:      r.Text,
		Workspace: r.Workspace,
		Name:      r.Name,
		Store:     r.Store,
	}
}

// CompressBatchRequest represents the arguments for compress_batch.
type CompressBatchRequest struct {
	Items       []CompressRequest `json:"items"`
	Parallelism int               `json:"parallelism,omitempty"`
}

// RestoreRequest represents the arguments for restore.
type RestoreRequest struct {
	ID           string                   `json:"id,omitempty"`
	Workspace    string                   `json:"workspace,omitempty"`
	Name         string                   `json:"name,omitempty"`
	Text         *string                  `json:"text,omitempty"`
	Placeholders *compress.PlaceholderMap `json:"placeholders,omitempty"`
}

// AddressRequest represents the arguments for verify and delete.
type AddressRequest struct {
	ID        string `json:"id,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Name      string `json:"name,omitempty"`
}

// FetchRequest represents the arguments for fetch.
type FetchRequest struct {
	ID             string `json:"id,omitempty"`
	Workspace      string `json:"workspace,omitempty"`
	Name           string `json:"name,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
	IncludeText    *bool  `json:"include_text,omitempty"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	Workspace      *string `json:"workspace,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	Offset         int     `json:"offset,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// WorkspaceRequest represents the arguments for purge and stats.
type WorkspaceRequest struct {
	Workspace *string `json:"workspace,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path           string  `json:"path,omitempty"`
	Workspace      *string `json:"workspace,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ResetCounterResult is returned by reset_counter.
type ResetCounterResult struct {
	Reset           bool  `json:"reset"`
	PreviousCounter int64 `json:"previous_counter"`
}

// HandleDetect handles the detect tool call.
func (h *Handlers) HandleDetect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DetectRequest](req)
	if err != nil {
		return h.errorResult("pith_detect", err), nil
	}

	result, err := ops.Detect(h.engine.Detector(), h.cfg, ops.DetectInput{Text: input.Text})
	if err != nil {
		return h.errorResult("pith_detect", err), nil
	}

	return successResult(result)
}

// HandleCompress handles the compress tool call.
func (h *Handlers) HandleCompress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompressRequest](req)
	if err != nil {
		return h.errorResult("pith_compress", err), nil
	}

	result, err := ops.Compress(ctx, h.db, h.engine, h.cfg, input.input())
	if err != nil {
		return h.errorResult("pith_compress", err), nil
	}

	h.session.AddSample(result.Sample())
	h.logger.Info("compressed",
		zap.String("result_id", result.ID),
		zap.Int("placeholders", result.Placeholders.Len()),
		zap.Float64("savings_ratio", result.SavingsRatio),
	)
	return successResult(result)
}

// HandleCompressBatch handles the compress_batch tool call.
func (h *Handlers) HandleCompressBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompressBatchRequest](req)
	if err != nil {
		return h.errorResult("pith_compress_batch", err), nil
	}

	items := make([]ops.CompressInput, len(input.Items))
	for i, item := range input.Items {
		items[i] = item.input()
	}

	result, err := ops.CompressBatch(ctx, h.db, h.engine, h.cfg, ops.CompressBatchInput{
		Items:       items,
		Parallelism: input.Parallelism,
	})
	if err != nil {
		return h.errorResult("pith_compress_batch", err), nil
	}

	for _, item := range result.Items {
		if item.Output != nil {
			h.session.AddSample(item.Output.Sample())
		}
	}
	h.logger.Info("compressed batch",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return successResult(result)
}

// HandleRestore handles the restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return h.errorResult("pith_restore", err), nil
	}

	result, err := ops.Restore(ctx, h.db, h.cfg, ops.RestoreInput{
		ID:           input.ID,
		Workspace:    input.Workspace,
		Name:         input.Name,
		Placeholders: input.Placeholders,
		Text:         input.Text,
	})
	if err != nil {
		return h.errorResult("pith_restore", err), nil
	}

	if !result.IntegrityPassed {
		h.logger.Warn("restore integrity check failed",
			zap.String("result_id", result.ID),
			zap.Strings("errors", result.Errors),
		)
	}
	return successResult(result)
}

// HandleVerify handles the verify tool call.
func (h *Handlers) HandleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return h.errorResult("pith_verify", err), nil
	}

	result, err := ops.Verify(ctx, h.db, ops.VerifyInput{
		ID:        input.ID,
		Workspace: input.Workspace,
		Name:      input.Name,
	})
	if err != nil {
		return h.errorResult("pith_verify", err), nil
	}

	return successResult(result)
}

// HandleFetch handles the fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return h.errorResult("pith_fetch", err), nil
	}

	result, err := ops.Fetch(ctx, h.db, h.cfg, ops.FetchInput{
		ID:             input.ID,
		Workspace:      input.Workspace,
		Name:           input.Name,
		IncludeDeleted: input.IncludeDeleted,
		IncludeText:    input.IncludeText,
	})
	if err != nil {
		return h.errorResult("pith_fetch", err), nil
	}

	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return h.errorResult("pith_list", err), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Workspace:      input.Workspace,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return h.errorResult("pith_list", err), nil
	}

	return successResult(result)
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return h.errorResult("pith_delete", err), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{
		ID:        input.ID,
		Workspace: input.Workspace,
		Name:      input.Name,
	})
	if err != nil {
		return h.errorResult("pith_delete", err), nil
	}

	h.logger.Info("deleted", zap.String("result_id", result.ID))
	return successResult(result)
}

// HandlePurge handles the purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRequest](req)
	if err != nil {
		return h.errorResult("pith_purge", err), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{Workspace: input.Workspace})
	if err != nil {
		return h.errorResult("pith_purge", err), nil
	}

	h.logger.Info("purged", zap.Int("purged", result.Purged))
	return successResult(result)
}

// StatsResult is the stored-result aggregate plus a tally of this server
// session, which also counts compressions that were never stored.
type StatsResult struct {
	*ops.StatsOutput
	Session analytics.Stats `json:"session"`
}

// HandleStats handles the stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRequest](req)
	if err != nil {
		return h.errorResult("pith_stats", err), nil
	}

	result, err := ops.Stats(ctx, h.db, h.cfg, ops.StatsInput{Workspace: input.Workspace})
	if err != nil {
		return h.errorResult("pith_stats", err), nil
	}

	return successResult(StatsResult{StatsOutput: result, Session: h.session.Aggregate()})
}

// HandleResetCounter handles the reset_counter tool call.
func (h *Handlers) HandleResetCounter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	previous := h.engine.Counter()
	h.engine.ResetCounter()

	h.logger.Info("placeholder counter reset", zap.Int64("previous_counter", previous))
	return successResult(ResetCounterResult{Reset: true, PreviousCounter: previous})
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return h.errorResult("pith_export", err), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:           input.Path,
		Workspace:      input.Workspace,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return h.errorResult("pith_export", err), nil
	}

	h.logger.Info("exported", zap.String("path", result.Path), zap.Int("count", result.Count))
	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return h.errorResult("pith_import", err), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return h.errorResult("pith_import", err), nil
	}

	h.logger.Info("imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return successResult(result)
}

// Result helpers

// errorResult logs the failure and converts it to an MCP error result.
func (h *Handlers) errorResult(tool string, err error) *mcp.CallToolResult {
	var pErr *errors.PithError
	if stderrors.As(err, &pErr) && pErr.Code != errors.ErrInternal {
		h.logger.Debug("tool call rejected", zap.String("tool", tool), zap.String("code", string(pErr.Code)), zap.String("message", err.Error()))
	} else {
		h.logger.Error("tool call failed", zap.String("tool", tool), zap.Error(err))
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var pErr *errors.PithError
	if stderrors.As(err, &pErr) {
		message := pErr.Message
		if pErr.Code != errors.ErrInternal {
			// keep wrapper context such as "items[2]: "
			message = strings.TrimSuffix(err.Error(), pErr.Error()) + pErr.Message
		}
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": message,
			"status":  pErr.Status,
		}
		if pErr.Code != errors.ErrInternal && pErr.Details != nil {
			errorObj["details"] = pErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
