// Package coerce converts raw text cells into typed values according to a
// field's declared type, reporting a classified failure instead of an error
// when a cell does not conform.
//
// Date formats are declared in strftime notation (e.g. "%m/%d/%Y") and are
// compiled once per field into Go layouts via ncruces/go-strftime.
package coerce

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ncruces/go-strftime"

	"tablecheck/internal/report"
	"tablecheck/internal/schema"
)

// isoDate is the canonical string form for coerced date values.
const isoDate = "2006-01-02"

// Result is the outcome of coercing one cell.
type Result struct {
	// Value is the typed value: string, int64, or time.Time. It is nil when
	// coercion failed, and also for an empty cell on a nullable field.
	Value any

	// Canonical is the canonical string form of Value, used for key
	// comparison: integers without leading zeros or sign quirks, dates in
	// ISO form, strings verbatim. Empty when coercion failed.
	Canonical string

	// OK reports success. When false, Reason classifies the failure.
	OK     bool
	Reason report.Reason
}

// FieldCoercer coerces cells of a single declared field. Build one with
// Compile; the zero value is not usable for date fields.
type FieldCoercer struct {
	Field  schema.Field
	layout string // Go layout compiled from Field.Format, date fields only
}

// Compile builds a FieldCoercer for f. For date fields the strftime format is
// converted to a Go layout; an absent or unsupported format is a
// configuration error, not a data error.
func Compile(f schema.Field) (FieldCoercer, error) {
	c := FieldCoercer{Field: f}
	switch f.Type {
	case schema.TypeString, schema.TypeInteger:
		return c, nil
	case schema.TypeDate:
		if f.Format == "" {
			return c, fmt.Errorf("field %q: date type requires a format", f.Name)
		}
		layout, err := strftime.Layout(f.Format)
		if err != nil {
			return c, fmt.Errorf("field %q: format %q: %w", f.Name, f.Format, err)
		}
		c.layout = layout
		return c, nil
	default:
		return c, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
}

// CompileAll compiles a coercer per schema field, in column order.
func CompileAll(fields []schema.Field) ([]FieldCoercer, error) {
	out := make([]FieldCoercer, len(fields))
	for i, f := range fields {
		c, err := Compile(f)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Coerce converts one raw cell. Empty input counts as missing: strings accept
// it (identity), non-string fields reject it with TypeMismatch unless the
// field is declared nullable, in which case Value is nil and OK is true.
func (c FieldCoercer) Coerce(raw string) Result {
	if raw == "" && c.Field.Type != schema.TypeString {
		if c.Field.Nullable {
			return Result{OK: true}
		}
		return Result{Reason: report.TypeMismatch}
	}

	switch c.Field.Type {
	case schema.TypeString:
		return Result{Value: raw, Canonical: raw, OK: true}

	case schema.TypeInteger:
		n, ok := parseInt(raw)
		if !ok {
			return Result{Reason: report.TypeMismatch}
		}
		return Result{Value: n, Canonical: strconv.FormatInt(n, 10), OK: true}

	case schema.TypeDate:
		t, err := time.Parse(c.layout, raw)
		if err != nil {
			return Result{Reason: report.FormatMismatch}
		}
		// time.Parse is lenient about zero padding; re-format and compare so
		// the value must match the declared pattern exactly.
		if t.Format(c.layout) != raw {
			return Result{Reason: report.FormatMismatch}
		}
		return Result{Value: t, Canonical: t.Format(isoDate), OK: true}
	}

	// Unknown types never pass Compile.
	return Result{Reason: report.TypeMismatch}
}

// parseInt accepts a base-10 integer literal with an optional leading minus.
// No leading plus, no thousands separators, no surrounding whitespace.
func parseInt(s string) (int64, bool) {
	if s == "" || s[0] == '+' {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
