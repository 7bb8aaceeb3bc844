// Run wiring for the tablecheck binary: descriptor loading, reference key
// materialization, the reader goroutine, and report output. It depends only
// on the internal packages' interfaces and contains no validation logic of
// its own.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"tablecheck/internal/config"
	"tablecheck/internal/datasource/file"
	"tablecheck/internal/metrics"
	csvparser "tablecheck/internal/parser/csv"
	"tablecheck/internal/refkeys"
	"tablecheck/internal/report"
	"tablecheck/internal/schema"
	"tablecheck/internal/validate"
)

// run executes one validation job end to end and returns the report.
// When lintOnly is set it stops after descriptor lint.
func run(ctx context.Context, job config.Job, lintOnly bool) (*report.Report, error) {
	start := time.Now()

	pkg, err := schema.LoadFile(job.Descriptor)
	if err != nil {
		return nil, err
	}
	issues := schema.ValidatePackage(pkg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if schema.HasErrors(issues) {
		return nil, fmt.Errorf("descriptor %s is invalid", job.Descriptor)
	}
	if lintOnly {
		return &report.Report{}, nil
	}

	res, err := pickResource(pkg, job.Resource)
	if err != nil {
		return nil, err
	}
	v, err := validate.New(res)
	if err != nil {
		return nil, err
	}

	keys, err := buildKeySet(ctx, job, pkg, res)
	if err != nil {
		return nil, err
	}

	dataPath := job.Source.File.Path
	if dataPath == "" {
		dataPath = res.Path
	}
	if dataPath == "" {
		return nil, fmt.Errorf("no data path: set source.file.path or resource %q path", res.Name)
	}
	src, err := file.NewLocal(dataPath).Open(ctx)
	if err != nil {
		return nil, err
	}

	opt := job.Parser.Options
	if opt == nil {
		opt = config.Options{}
	}
	if _, set := opt["comma"]; !set && res.Dialect.Delimiter != "" {
		opt["comma"] = res.Dialect.Delimiter
	}
	if _, set := opt["encoding"]; !set && res.Encoding != "" {
		opt["encoding"] = res.Encoding
	}

	buf := job.Runtime.ChannelBuffer
	if buf <= 0 {
		buf = 1000
	}
	rows := make(chan validate.Row, buf)

	var parseErrors atomic.Int64
	readErr := make(chan error, 1)
	go func() {
		defer close(rows)
		readErr <- csvparser.StreamRows(ctx, src, res.Columns(), opt, rows, func(line int, err error) {
			if parseErrors.Add(1) <= 20 {
				log.Printf("reader: line=%d err=%v", line, err)
			}
		})
	}()

	rep, err := v.ValidateParallel(ctx, rows, keys, job.Runtime.Workers)
	runErr := err
	if err := <-readErr; err != nil && runErr == nil {
		runErr = err
	}

	elapsed := time.Since(start)
	recordOutcome(job.Job, rep, parseErrors.Load(), runErr, elapsed)
	if runErr != nil {
		return rep, runErr
	}

	if err := writeReport(rep, job.Output.Path); err != nil {
		return rep, err
	}
	log.Printf(
		"done: job=%s rows=%s errors=%s parse_errors=%d elapsed=%s",
		job.Job,
		humanize.Comma(int64(rep.Rows)),
		humanize.Comma(int64(len(rep.Errors))),
		parseErrors.Load(),
		elapsed.Truncate(time.Millisecond),
	)
	return rep, nil
}

// pickResource selects the resource to validate: the named one, or the only
// one when the job does not say.
func pickResource(pkg schema.Package, name string) (schema.Resource, error) {
	if name != "" {
		res, ok := pkg.ResourceNamed(name)
		if !ok {
			return schema.Resource{}, fmt.Errorf("resource %q not found in descriptor", name)
		}
		return res, nil
	}
	if len(pkg.Resources) == 1 {
		return pkg.Resources[0], nil
	}
	return schema.Resource{}, fmt.Errorf("descriptor has %d resources; set resource in the job config", len(pkg.Resources))
}

// buildKeySet materializes the referenced key set per the job's reference
// config. The set is complete before validation starts and is never mutated
// afterwards.
func buildKeySet(ctx context.Context, job config.Job, pkg schema.Package, res schema.Resource) (validate.KeySet, error) {
	fks := res.Schema.ForeignKeys
	if len(fks) == 0 || job.Reference.Kind == "" || job.Reference.Kind == "none" {
		if len(fks) > 0 {
			log.Printf("reference: no key source configured; foreign-key checks skipped")
		}
		return nil, nil
	}
	fk := fks[0]

	// The referenced field's declared type, when the sibling resource is in
	// the same descriptor, lets keys be canonicalized consistently.
	var refField *schema.Field
	if refRes, ok := pkg.ResourceNamed(fk.Reference.Resource); ok {
		if f, ok := refRes.Schema.FieldNamed(fk.Reference.Fields[0]); ok {
			refField = &f
		}
	}

	switch job.Reference.Kind {
	case "csv":
		fieldName := job.Reference.CSV.Field
		if fieldName == "" {
			fieldName = fk.Reference.Fields[0]
		}
		comma := ','
		if job.Reference.CSV.Comma != "" {
			comma = []rune(job.Reference.CSV.Comma)[0]
		}
		f, err := file.NewLocal(job.Reference.CSV.Path).Open(ctx)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		keys, err := refkeys.FromCSV(ctx, f, fieldName, comma, refField)
		if err != nil {
			return nil, err
		}
		log.Printf("reference: loaded %s keys from %s", humanize.Comma(int64(len(keys))), job.Reference.CSV.Path)
		return keys, nil

	case "postgres":
		column := job.Reference.DB.Column
		if column == "" {
			column = fk.Reference.Fields[0]
		}
		keys, err := refkeys.FromPostgres(ctx, job.Reference.DB.DSN, job.Reference.DB.Table, column, refField)
		if err != nil {
			return nil, err
		}
		log.Printf("reference: loaded %s keys from table %s", humanize.Comma(int64(len(keys))), job.Reference.DB.Table)
		return keys, nil

	case "sqlite":
		column := job.Reference.DB.Column
		if column == "" {
			column = fk.Reference.Fields[0]
		}
		keys, err := refkeys.FromSQLite(ctx, job.Reference.DB.DSN, job.Reference.DB.Table, column, refField)
		if err != nil {
			return nil, err
		}
		log.Printf("reference: loaded %s keys from table %s", humanize.Comma(int64(len(keys))), job.Reference.DB.Table)
		return keys, nil
	}

	return nil, fmt.Errorf("unknown reference kind %q", job.Reference.Kind)
}

// writeReport serializes the report to path, or stdout when path is empty.
func writeReport(rep *report.Report, path string) error {
	if path == "" {
		return rep.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return rep.WriteJSON(f)
}

// recordOutcome pushes run-level and row-level counters.
func recordOutcome(jobName string, rep *report.Report, parseErrors int64, err error, d time.Duration) {
	metrics.RecordRun(jobName, err, d)
	if rep == nil {
		return
	}
	metrics.RecordRows(jobName, "processed", int64(rep.Rows))
	metrics.RecordRows(jobName, "parse_errors", parseErrors)
	for reason, n := range rep.ByReason() {
		metrics.RecordRows(jobName, string(reason), int64(n))
	}
}
