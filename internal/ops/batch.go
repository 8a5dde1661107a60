package ops

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
)

// Batch limits
const (
	MaxBatchItems           = 100
	DefaultBatchParallelism = 4
	MaxBatchParallelism     = 32
)

// CompressBatchInput contains parameters for the CompressBatch operation.
type CompressBatchInput struct {
	Items       []CompressInput
	Parallelism int // default: config batch_parallelism, max: 32
}

// BatchError is a per-item failure.
type BatchError struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// BatchItem is the outcome of one input item. Exactly one of Output and
// Error is set.
type BatchItem struct {
	Index  int             `json:"index"`
	Output *CompressOutput `json:"output,omitempty"`
	Error  *BatchError     `json:"error,omitempty"`
}

// CompressBatchOutput contains per-item results in input order.
type CompressBatchOutput struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// CompressBatch compresses many texts on a bounded worker pool. A failing
// item does not stop the others.
func CompressBatch(ctx context.Context, database *sql.DB, engine *compress.Engine, cfg *config.Config, input CompressBatchInput) (*CompressBatchOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if len(input.Items) > MaxBatchItems {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("too many items: %d (max %d)", len(input.Items), MaxBatchItems))
	}

	parallelism := input.Parallelism
	if parallelism <= 0 {
		parallelism = cfg.BatchParallelism
	}
	if parallelism <= 0 {
		parallelism = DefaultBatchParallelism
	}
	parallelism = min(parallelism, MaxBatchParallelism, len(input.Items))

	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create batch pool: %w", err))
	}
	defer pool.Release()

	items := make([]BatchItem, len(input.Items))
	var wg sync.WaitGroup
	for i, item := range input.Items {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			items[i] = compressOne(ctx, database, engine, cfg, i, item)
		})
		if submitErr != nil {
			wg.Done()
			items[i] = BatchItem{Index: i, Error: toBatchError(errors.NewInternal(submitErr))}
		}
	}
	wg.Wait()

	output := &CompressBatchOutput{Items: items}
	for _, item := range items {
		if item.Error != nil {
			output.Failed++
		} else {
			output.Succeeded++
		}
	}
	return output, nil
}

func compressOne(ctx context.Context, database *sql.DB, engine *compress.Engine, cfg *config.Config, index int, input CompressInput) BatchItem {
	if ctx.Err() != nil {
		return BatchItem{Index: index, Error: toBatchError(errors.NewCancelled("compress_batch"))}
	}
	out, err := Compress(ctx, database, engine, cfg, input)
	if err != nil {
		return BatchItem{Index: index, Error: toBatchError(err)}
	}
	return BatchItem{Index: index, Output: out}
}

func toBatchError(err error) *BatchError {
	if pErr, ok := err.(*errors.PithError); ok {
		return &BatchError{Code: pErr.Code, Message: pErr.Message}
	}
	return &BatchError{Code: errors.ErrInternal, Message: err.Error()}
}
