// Whole-resource validation over a streamed row sequence: sequential by
// default, with an optional worker-pool mode that keeps report order
// identical to arrival order.
package validate

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"tablecheck/internal/report"
)

// Validate drains rows and validates every one of them; it never stops early
// on data errors (whole-report semantics). Errors are concatenated in
// row-then-field order, with a row's foreign-key violations after its field
// errors. keys may be nil when the schema declares no foreign key or the
// caller chose not to materialize one.
//
// The row channel may be fed lazily; only one row is held at a time.
// Cancellation is honored between rows: the partial report returned alongside
// ctx.Err() carries whatever was accumulated and is not guaranteed meaningful.
func (v *Validator) Validate(ctx context.Context, rows <-chan Row, keys KeySet) (*report.Report, error) {
	rep := &report.Report{Resource: v.resource.Name}

	for {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		case row, ok := <-rows:
			if !ok {
				return rep, nil
			}
			idx := rep.Rows
			rep.Rows++
			errs, canon := v.validateRow(row, idx)
			rep.Errors = append(rep.Errors, errs...)
			rep.Errors = append(rep.Errors, v.checkForeignKeys(row, canon, keys, idx)...)
		}
	}
}

// ValidateSlice is a convenience wrapper over Validate for fully materialized
// inputs, used mostly by tests and small files.
func (v *Validator) ValidateSlice(ctx context.Context, rows []Row, keys KeySet) (*report.Report, error) {
	ch := make(chan Row)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return v.Validate(ctx, ch, keys)
}

// numbered pairs a row with its arrival index so parallel workers can report
// out of order while the collector restores arrival order.
type numbered struct {
	idx int
	row Row
}

type rowResult struct {
	idx  int
	errs []report.Error
}

// ValidateParallel validates rows with a pool of workers. Rows are
// independent, so the work is embarrassingly parallel; the key set is a
// frozen read-only snapshot shared by all workers. The report is identical
// to the sequential one: errors ordered by arrival index, fields in schema
// order within a row.
//
// workers <= 1 falls back to Validate.
func (v *Validator) ValidateParallel(ctx context.Context, rows <-chan Row, keys KeySet, workers int) (*report.Report, error) {
	if workers <= 1 {
		return v.Validate(ctx, rows, keys)
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan numbered, workers)
	results := make(chan rowResult, workers)

	var total int
	g.Go(func() error {
		defer close(work)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case row, ok := <-rows:
				if !ok {
					return nil
				}
				n := numbered{idx: total, row: row}
				total++
				select {
				case work <- n:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})

	var wg errgroup.Group
	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			for n := range work {
				errs, canon := v.validateRow(n.row, n.idx)
				errs = append(errs, v.checkForeignKeys(n.row, canon, keys, n.idx)...)
				select {
				case results <- rowResult{idx: n.idx, errs: errs}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(results)
		return wg.Wait()
	})

	// Collect per-row results and restore arrival order at the end. Only rows
	// that produced errors occupy memory here.
	var collected []rowResult
	for r := range results {
		if len(r.errs) > 0 {
			collected = append(collected, r)
		}
	}
	err := g.Wait()

	sort.Slice(collected, func(a, b int) bool { return collected[a].idx < collected[b].idx })
	rep := &report.Report{Resource: v.resource.Name, Rows: total}
	for _, r := range collected {
		rep.Errors = append(rep.Errors, r.errs...)
	}
	if err != nil {
		return rep, err
	}
	return rep, nil
}
