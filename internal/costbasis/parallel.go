package costbasis

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

// Result holds the output of one method over a whole event stream.
type Result struct {
	Method   model.Method
	Records  []model.TaxRecord
	Warnings []model.ShortfallWarning
}

type partitionResult struct {
	records  []model.TaxRecord
	warnings []model.ShortfallWarning
}

// ComputeAll runs every (method, partition) pair as its own task, at most
// workers at a time (GOMAXPROCS when workers <= 0). Partitions share no
// state, so no locking is needed. Cancellation is observed between tasks;
// a partition that has started always finishes.
//
// The output for each method is identical to Compute(stream, method).
func ComputeAll(ctx context.Context, stream *model.EventStream, methods []model.Method, workers int) ([]Result, error) {
	for _, m := range methods {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMethod, m)
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var partitions []model.Partition
	if stream != nil {
		partitions = stream.Partitions
	}

	slots := make([]partitionResult, len(methods)*len(partitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for mi, method := range methods {
		for pi, p := range partitions {
			slot := mi*len(partitions) + pi
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				records, warnings := ComputePartition(p, method)
				slots[slot] = partitionResult{records: records, warnings: warnings}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cost-basis computation cancelled: %w", err)
	}

	results := make([]Result, len(methods))
	for mi, method := range methods {
		result := Result{Method: method}
		for pi := range partitions {
			slot := slots[mi*len(partitions)+pi]
			result.Records = append(result.Records, slot.records...)
			result.Warnings = append(result.Warnings, slot.warnings...)
		}
		results[mi] = result
	}

	return results, nil
}
