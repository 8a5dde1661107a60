package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/ops"
)

// maxFormBytes bounds POST bodies; the text limit itself is enforced by ops.
const maxFormBytes = 8 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	engine   *compress.Engine
	renderer *Renderer
	logger   *zap.Logger
}

// HandleList handles GET /results: list stored results.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	workspace := r.URL.Query().Get("workspace")

	input := ops.ListInput{
		Workspace:      ptrString(workspace),
		Limit:          parseIntParam(r, "limit", 20),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Results", "results"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Workspace:  workspace,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleDetail handles GET /results/{id}: view a single result with a
// fresh integrity check.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("result ID is required"))
		return
	}

	includeText := true
	result, err := ops.Fetch(r.Context(), h.db, h.cfg, ops.FetchInput{
		ID:             id,
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
		IncludeText:    &includeText,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var integrity *ops.VerifyOutput
	if result.DeletedAt == nil {
		integrity, err = ops.Verify(r.Context(), h.db, ops.VerifyInput{ID: result.ID})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"result":    result,
			"integrity": integrity,
		})
		return
	}

	name := displayName(result.Name, result.ID)
	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData:     h.renderer.page(name, "results"),
		Result:       result,
		Integrity:    integrity,
		RenderedHTML: renderMarkdown(result.OriginalText),
		DisplayName:  name,
	})
}

// HandleDelete handles DELETE /results/{id}: soft-delete a result.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("result ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.logger.Info("result deleted", zap.String("result_id", result.ID))

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// HandlePurge handles POST /results/purge: permanently delete soft-deleted results.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	result, err := ops.Purge(r.Context(), h.db, ops.PurgeInput{
		Workspace: ptrString(r.FormValue("workspace")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.logger.Info("results purged", zap.Int("purged", result.Purged))

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/results?include_deleted=true", http.StatusSeeOther)
}

// HandleCompressForm handles GET /compress: show an empty compress form.
func (h *Handlers) HandleCompressForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "compress", CompressPageData{
		PageData: h.renderer.page("Compress", "compress"),
	})
}

// HandleCompress handles POST /compress: compress submitted text and
// optionally store it.
func (h *Handlers) HandleCompress(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	data := CompressPageData{
		PageData:  h.renderer.page("Compress", "compress"),
		Text:      r.FormValue("text"),
		Workspace: r.FormValue("workspace"),
		Name:      r.FormValue("name"),
		Store:     r.FormValue("store") == "true" || r.FormValue("store") == "on",
	}

	result, err := ops.Compress(r.Context(), h.db, h.engine, h.cfg, ops.CompressInput{
		Text:      data.Text,
		Workspace: data.Workspace,
		Name:      ptrString(strings.TrimSpace(data.Name)),
		Store:     data.Store,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.logger.Info("text compressed",
		zap.String("result_id", result.ID),
		zap.Int("placeholders", result.Placeholders.Len()),
		zap.Float64("savings_ratio", result.SavingsRatio),
	)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Result = result
	h.renderer.renderPage(w, "compress", data)
}

// HandleStats handles GET /stats: aggregate savings.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	workspace := r.URL.Query().Get("workspace")

	result, err := ops.Stats(r.Context(), h.db, h.cfg, ops.StatsInput{Workspace: ptrString(workspace)})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "stats", StatsPageData{
		PageData:  h.renderer.page("Stats", "stats"),
		Stats:     result,
		Workspace: workspace,
	})
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

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// displayName returns the result name if present, or a truncated ID.
func displayName(name *string, id string) string {
	if name != nil && *name != "" {
		return *name
	}
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
