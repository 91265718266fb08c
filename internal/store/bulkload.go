package store

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// BulkLoadOptions configures BulkLoad. BatchSize quads are buffered
// before each flush; Atomic controls whether a batch is written in one
// transaction that rolls back as a whole on failure (true), or quad by
// quad with each failing quad skipped so loading can continue (false, for
// best-effort ingestion of a large, possibly-imperfect dataset).
type BulkLoadOptions struct {
	BatchSize int
	Atomic    bool
	Parallel  int
}

// DefaultBulkLoadOptions matches the spec's default batch size of one
// million quads, single-threaded and atomic.
func DefaultBulkLoadOptions() BulkLoadOptions {
	return BulkLoadOptions{BatchSize: 1_000_000, Atomic: true, Parallel: 1}
}

// BulkLoad consumes quads from source until it returns (nil, io.EOF) or an
// error, batching writes through the backend's BulkLoader. With
// Parallel > 1, independent batches are flushed concurrently via
// errgroup, trading cross-batch atomicity for throughput (Atomic must be
// false in that case).
func (s *QuadStore) BulkLoad(ctx context.Context, source func() (*rdf.Quad, error), opts BulkLoadOptions) (int64, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBulkLoadOptions().BatchSize
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}

	var total int64
	batch := make([]*rdf.Quad, 0, opts.BatchSize)
	flushCh := make(chan []*rdf.Quad, opts.Parallel)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < opts.Parallel; w++ {
		g.Go(func() error {
			for b := range flushCh {
				if err := s.loadBatch(gctx, b, opts.Atomic); err != nil {
					return err
				}
			}
			return nil
		})
	}

	readErr := func() error {
		defer close(flushCh)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			q, err := source()
			if err != nil {
				if batch != nil && len(batch) > 0 {
					select {
					case flushCh <- batch:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			batch = append(batch, q)
			total++
			if len(batch) >= opts.BatchSize {
				select {
				case flushCh <- batch:
				case <-gctx.Done():
					return gctx.Err()
				}
				batch = make([]*rdf.Quad, 0, opts.BatchSize)
			}
		}
	}()

	if readErr != nil {
		return total, readErr
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func (s *QuadStore) loadBatch(ctx context.Context, batch []*rdf.Quad, atomic bool) error {
	if atomic {
		return s.backend.Update(ctx, func(txn kv.Transaction) error {
			for _, q := range batch {
				if _, err := s.insertTxn(txn, q); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for _, q := range batch {
		// Best-effort mode: a single bad quad is skipped, not fatal.
		_ = s.backend.Update(ctx, func(txn kv.Transaction) error {
			_, err := s.insertTxn(txn, q)
			return err
		})
	}
	return nil
}
