package validate

import (
	"context"
	"fmt"
	"testing"

	"tablecheck/internal/report"
)

func TestValidateWholeReport(t *testing.T) {
	v, err := New(historyResource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bad := goodRow()
	bad["CONTROLLER_START_DT"] = "1995-01-15"
	dangling := goodRow()
	dangling["MINE_ID"] = "9999999"

	rows := []Row{goodRow(), bad, goodRow(), dangling, goodRow()}
	rep, err := v.ValidateSlice(context.Background(), rows, mineKeys())
	if err != nil {
		t.Fatalf("ValidateSlice: %v", err)
	}

	if rep.Rows != 5 {
		t.Fatalf("rows = %d, want 5", rep.Rows)
	}
	if len(rep.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(rep.Errors), rep.Errors)
	}
	if rep.Valid() {
		t.Fatal("report with errors claims valid")
	}

	want := []report.Error{
		{Row: 1, Field: "CONTROLLER_START_DT", Value: "1995-01-15", Reason: report.FormatMismatch},
		{Row: 3, Field: "MINE_ID", Value: "9999999", Reason: report.ForeignKeyViolation},
	}
	for i, w := range want {
		if rep.Errors[i] != w {
			t.Fatalf("errors[%d] = %+v, want %+v", i, rep.Errors[i], w)
		}
	}
}

func TestValidateEmptyInput(t *testing.T) {
	v, _ := New(historyResource())
	rep, err := v.ValidateSlice(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ValidateSlice: %v", err)
	}
	if rep.Rows != 0 || len(rep.Errors) != 0 || !rep.Valid() {
		t.Fatalf("empty input report = %+v", rep)
	}
}

func TestValidateNilKeySetSkipsForeignKeys(t *testing.T) {
	v, _ := New(historyResource())
	row := goodRow()
	row["MINE_ID"] = "9999999" // would dangle if keys were present
	rep, err := v.ValidateSlice(context.Background(), []Row{row}, nil)
	if err != nil {
		t.Fatalf("ValidateSlice: %v", err)
	}
	if len(rep.Errors) != 0 {
		t.Fatalf("nil key set still produced violations: %v", rep.Errors)
	}
}

func TestValidateFieldErrorsBeforeForeignKey(t *testing.T) {
	v, _ := New(historyResource())

	// One row carrying both a field defect and a dangling key: the field
	// error precedes the violation in the report.
	row := goodRow()
	row["MINE_ID"] = "9999999"
	row["OPERATOR_END_DT"] = "garbage"

	rep, err := v.ValidateSlice(context.Background(), []Row{row}, mineKeys())
	if err != nil {
		t.Fatalf("ValidateSlice: %v", err)
	}
	if len(rep.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(rep.Errors), rep.Errors)
	}
	if rep.Errors[0].Reason != report.FormatMismatch || rep.Errors[1].Reason != report.ForeignKeyViolation {
		t.Fatalf("error order wrong: %v", rep.Errors)
	}
}

func TestValidateErrorCountMonotonic(t *testing.T) {
	v, err := New(historyResource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Corrupt one more field at each step; the error count must never drop.
	// The last step corrupts the foreign-key field itself, where the
	// violation is replaced by a type error but the total still grows.
	corruptions := []func(Row){
		func(r Row) {},
		func(r Row) { r["CONTROLLER_START_DT"] = "1995-01-15" },
		func(r Row) { r["OPERATOR_END_DT"] = "junk" },
		func(r Row) { r["MINE_ID"] = "12A4567" },
	}

	prev := -1
	row := goodRow()
	for i, corrupt := range corruptions {
		corrupt(row)
		rep, err := v.ValidateSlice(context.Background(), []Row{row}, mineKeys())
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n := len(rep.Errors); n < prev {
			t.Fatalf("step %d: error count fell from %d to %d", i, prev, n)
		} else if i > 0 && n <= prev {
			t.Fatalf("step %d: corrupting a valid field added no error (still %d)", i, n)
		} else {
			prev = n
		}
	}
	if prev != 3 {
		t.Fatalf("final error count = %d, want 3", prev)
	}
}

func TestValidateIdempotent(t *testing.T) {
	v, _ := New(historyResource())
	bad := goodRow()
	bad["MINE_ID"] = "nope"
	rows := []Row{goodRow(), bad}

	first, err := v.ValidateSlice(context.Background(), rows, mineKeys())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := v.ValidateSlice(context.Background(), rows, mineKeys())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Fatal("identical inputs produced different reports")
	}
}

func TestValidateCancellation(t *testing.T) {
	v, _ := New(historyResource())

	ctx, cancel := context.WithCancel(context.Background())
	rows := make(chan Row)
	done := make(chan struct{})

	var rep *report.Report
	var err error
	go func() {
		defer close(done)
		rep, err = v.Validate(ctx, rows, nil)
	}()

	rows <- goodRow()
	cancel()
	<-done

	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rep == nil {
		t.Fatal("cancellation returned a nil report")
	}
}

func TestValidateParallelMatchesSequential(t *testing.T) {
	v, err := New(historyResource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A deterministic mix of clean and defective rows, large enough that
	// worker interleaving would scramble a naive collector.
	var rows []Row
	for i := 0; i < 500; i++ {
		r := goodRow()
		switch i % 5 {
		case 1:
			r["CONTROLLER_START_DT"] = "2020-01-01"
		case 2:
			r["MINE_ID"] = fmt.Sprintf("bad-%d", i)
		case 3:
			r["MINE_ID"] = "9999999"
		}
		rows = append(rows, r)
	}

	seq, err := v.ValidateSlice(context.Background(), rows, mineKeys())
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	for _, workers := range []int{2, 4, 8} {
		ch := make(chan Row)
		go func() {
			defer close(ch)
			for _, r := range rows {
				ch <- r
			}
		}()
		par, err := v.ValidateParallel(context.Background(), ch, mineKeys(), workers)
		if err != nil {
			t.Fatalf("parallel(%d): %v", workers, err)
		}
		if par.Rows != seq.Rows {
			t.Fatalf("parallel(%d) rows = %d, want %d", workers, par.Rows, seq.Rows)
		}
		if par.Fingerprint() != seq.Fingerprint() {
			t.Fatalf("parallel(%d) report differs from sequential", workers)
		}
	}
}

func TestValidateParallelSingleWorkerFallback(t *testing.T) {
	v, _ := New(historyResource())
	ch := make(chan Row, 1)
	ch <- goodRow()
	close(ch)
	rep, err := v.ValidateParallel(context.Background(), ch, mineKeys(), 1)
	if err != nil {
		t.Fatalf("ValidateParallel: %v", err)
	}
	if rep.Rows != 1 || !rep.Valid() {
		t.Fatalf("report = %+v", rep)
	}
}
