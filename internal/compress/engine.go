// Package compress replaces detected spans with short placeholder tokens
// and records what is needed to reverse the substitution.
package compress

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/pattern"
	"github.com/hpungsan/pith/internal/tokens"
)

// Result is the outcome of one Compress call.
type Result struct {
	OriginalText      string                      `json:"original_text"`
	CompressedText    string                      `json:"compressed_text"`
	Placeholders      *PlaceholderMap             `json:"placeholders"`
	OriginalTokens    int                         `json:"original_tokens"`
	CompressedTokens  int                         `json:"compressed_tokens"`
	SavingsRatio      float64                     `json:"savings_ratio"`
	ContentTypeCounts map[pattern.ContentType]int `json:"content_type_counts"`
	Estimator         string                      `json:"estimator"`
}

// SavingsRatio returns 1 - compressed/original, or 0 when original is 0.
// It is negative when compression made the text more expensive.
func SavingsRatio(originalTokens, compressedTokens int) float64 {
	if originalTokens <= 0 {
		return 0
	}
	return 1 - float64(compressedTokens)/float64(originalTokens)
}

// Engine compresses text. The placeholder counter is shared by every
// Compress call on the same Engine until ResetCounter is called; ids are
// reserved atomically so concurrent calls never hand out the same id.
type Engine struct {
	detector  *pattern.Detector
	estimator tokens.Estimator
	logger    *zap.Logger
	counter   atomic.Int64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEstimator overrides the default heuristic token estimator.
func WithEstimator(est tokens.Estimator) EngineOption {
	return func(e *Engine) {
		if est != nil {
			e.estimator = est
		}
	}
}

// WithLogger attaches a logger for debug output.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine. A nil detector uses the default detector.
func NewEngine(detector *pattern.Detector, opts ...EngineOption) *Engine {
	if detector == nil {
		detector = pattern.NewDetector(pattern.DefaultMinLength)
	}
	e := &Engine{
		detector:  detector,
		estimator: tokens.Heuristic{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detector returns the engine's detector.
func (e *Engine) Detector() *pattern.Detector {
	return e.detector
}

// Estimator returns the engine's token estimator.
func (e *Engine) Estimator() tokens.Estimator {
	return e.estimator
}

// Counter returns the number the next placeholder id will use.
func (e *Engine) Counter() int64 {
	return e.counter.Load()
}

// ResetCounter restarts id allocation at zero. Results already produced
// keep their ids.
func (e *Engine) ResetCounter() {
	e.counter.Store(0)
}

// Compress replaces every detected span in text with a placeholder.
// It never fails: text without matches comes back unchanged with an
// empty placeholder map.
func (e *Engine) Compress(text string) *Result {
	matches := e.detector.DetectAll(text)

	// Reserve ids [next, next+len(matches)).
	next := e.counter.Add(int64(len(matches))) - int64(len(matches))

	placeholders := NewPlaceholderMap()
	counts := make(map[pattern.ContentType]int)

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0 // end of the last replaced span, in original coordinates
	offset := 0 // bytes removed so far (negative when text grew)

	for i, m := range matches {
		id := FormatID(next + int64(i))
		startPos := m.Start - offset

		placeholders.Put(Placeholder{
			ID:          id,
			Original:    m.Content,
			ContentType: m.Type,
			StartPos:    startPos,
			EndPos:      startPos + len(id),
			Checksum:    Checksum(m.Content),
		})
		counts[m.Type]++

		b.WriteString(text[cursor:m.Start])
		b.WriteString(id)
		cursor = m.End
		offset += (m.End - m.Start) - len(id)
	}
	b.WriteString(text[cursor:])
	compressed := b.String()

	originalTokens := e.estimator.Estimate(text)
	compressedTokens := e.estimator.Estimate(compressed)

	result := &Result{
		OriginalText:      text,
		CompressedText:    compressed,
		Placeholders:      placeholders,
		OriginalTokens:    originalTokens,
		CompressedTokens:  compressedTokens,
		SavingsRatio:      SavingsRatio(originalTokens, compressedTokens),
		ContentTypeCounts: counts,
		Estimator:         e.estimator.Name(),
	}

	e.logger.Debug("compressed text",
		zap.Int("placeholders", placeholders.Len()),
		zap.Int("original_tokens", originalTokens),
		zap.Int("compressed_tokens", compressedTokens),
		zap.Float64("savings_ratio", result.SavingsRatio),
	)

	return result
}
