/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package banner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/licensebanner/pkg/licenses"
	"github.com/fulmenhq/licensebanner/pkg/logger"
)

// Row pairs a cached package with one license record from its lookup.
type Row struct {
	Entry  Entry
	Record licenses.Record
}

// Banner looks up license records for every cached package and renders
// them. It returns "" when nothing was collected or everything was
// excluded. A package whose lookup fails is reported through Diagnostics
// and left out; only context cancellation aborts the call.
func (c *Collector) Banner(ctx context.Context) (string, error) {
	rows, err := c.Rows(ctx)
	if err != nil {
		return "", err
	}
	return c.Render(rows)
}

// Rows performs the lookups and returns the flattened, filtered rows in
// cache order. Lookups run concurrently, bounded by Options.Concurrency.
func (c *Collector) Rows(ctx context.Context) ([]Row, error) {
	entries := c.Entries()
	if len(entries) == 0 {
		return nil, nil
	}

	workers := c.opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([][]licenses.Record, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for idx, entry := range entries {
		g.Go(func() error {
			records, err := c.lookup.Check(gctx, entry.BasePath)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.diag.Warn("license lookup failed",
					logger.String("package", entry.Key),
					logger.String("path", entry.BasePath),
					logger.Err(err))
				return nil
			}
			results[idx] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []Row
	for idx, entry := range entries {
		if c.excluded(entry.Name) {
			continue
		}
		for _, record := range results[idx] {
			rows = append(rows, Row{Entry: entry, Record: record})
		}
	}
	logger.Debug("license rows collected", logger.Int("packages", len(entries)), logger.Int("rows", len(rows)))
	return rows, nil
}
