// Package analytics turns token counts into cost figures and running totals.
package analytics

import (
	"sync"

	"github.com/hpungsan/pith/internal/compress"
)

// DefaultCostPer1K is the default price of 1000 input tokens.
const DefaultCostPer1K = 0.03

// CostSavings is the price difference between an original and compressed text.
type CostSavings struct {
	OriginalCost      float64 `json:"original_cost"`
	CompressedCost    float64 `json:"compressed_cost"`
	Savings           float64 `json:"savings"`
	SavingsPercentage float64 `json:"savings_percentage"`
}

// Costs prices a token pair at costPer1K per thousand tokens.
// SavingsPercentage is 0 when the original costs nothing.
func Costs(originalTokens, compressedTokens int, costPer1K float64) CostSavings {
	original := float64(originalTokens) / 1000 * costPer1K
	compressed := float64(compressedTokens) / 1000 * costPer1K
	savings := original - compressed

	var pct float64
	if original > 0 {
		pct = savings / original * 100
	}
	return CostSavings{
		OriginalCost:      original,
		CompressedCost:    compressed,
		Savings:           savings,
		SavingsPercentage: pct,
	}
}

// Sample is the part of a compression result that analytics needs.
type Sample struct {
	OriginalTokens   int
	CompressedTokens int
	SavingsRatio     float64
	TypeCounts       map[string]int
}

// SampleOf extracts a Sample from a compression result.
func SampleOf(r *compress.Result) Sample {
	counts := make(map[string]int, len(r.ContentTypeCounts))
	for t, n := range r.ContentTypeCounts {
		counts[t.String()] = n
	}
	return Sample{
		OriginalTokens:   r.OriginalTokens,
		CompressedTokens: r.CompressedTokens,
		SavingsRatio:     r.SavingsRatio,
		TypeCounts:       counts,
	}
}

// Stats aggregates many compressions.
type Stats struct {
	TotalOriginalTokens     int            `json:"total_original_tokens"`
	TotalCompressedTokens   int            `json:"total_compressed_tokens"`
	TotalCostSavings        float64        `json:"total_cost_savings"`
	AverageCompressionRatio float64        `json:"average_compression_ratio"`
	NumCompressions         int            `json:"num_compressions"`
	ContentTypeTotals       map[string]int `json:"content_type_totals"`
}

// Aggregate sums samples. The average ratio is the unweighted mean of each
// sample's SavingsRatio. No samples yields a zero Stats.
func Aggregate(samples []Sample, costPer1K float64) Stats {
	stats := Stats{ContentTypeTotals: map[string]int{}}
	if len(samples) == 0 {
		return stats
	}

	var ratioSum float64
	for _, s := range samples {
		stats.TotalOriginalTokens += s.OriginalTokens
		stats.TotalCompressedTokens += s.CompressedTokens
		stats.TotalCostSavings += Costs(s.OriginalTokens, s.CompressedTokens, costPer1K).Savings
		ratioSum += s.SavingsRatio
		for name, n := range s.TypeCounts {
			stats.ContentTypeTotals[name] += n
		}
	}
	stats.NumCompressions = len(samples)
	stats.AverageCompressionRatio = ratioSum / float64(len(samples))
	return stats
}

// Tracker keeps an in-process history of compressions. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	costPer1K float64
	samples   []Sample
}

// NewTracker creates a Tracker. A non-positive cost uses DefaultCostPer1K.
func NewTracker(costPer1K float64) *Tracker {
	if costPer1K <= 0 {
		costPer1K = DefaultCostPer1K
	}
	return &Tracker{costPer1K: costPer1K}
}

// Add records one compression result.
func (t *Tracker) Add(r *compress.Result) {
	t.AddSample(SampleOf(r))
}

// AddSample records a compression that is only known by its counters.
func (t *Tracker) AddSample(s Sample) {
	t.mu.Lock()
	t.samples = append(t.samples, s)
	t.mu.Unlock()
}

// Len returns the number of recorded compressions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Aggregate summarizes everything recorded so far.
func (t *Tracker) Aggregate() Stats {
	t.mu.Lock()
	samples := append([]Sample(nil), t.samples...)
	t.mu.Unlock()
	return Aggregate(samples, t.costPer1K)
}

// Costs prices a single result at the tracker's rate.
func (t *Tracker) Costs(r *compress.Result) CostSavings {
	return Costs(r.OriginalTokens, r.CompressedTokens, t.costPer1K)
}
