// Package refkeys materializes the key column of a referenced resource into
// a frozen set for foreign-key checking. The validator never fetches the
// referenced resource itself; one of these providers builds the full set up
// front, and the set is treated as a read-only snapshot for the whole run.
//
// Keys are stored in canonical string form (the same form the validator
// compares with), so "0012345" in a CSV and 12345 in a database column both
// land as "12345" when the referenced field is an integer.
package refkeys

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"tablecheck/internal/coerce"
	"tablecheck/internal/schema"
	"tablecheck/internal/validate"
)

// canonicalize runs a raw key through the referenced field's coercer when the
// field type is known, falling back to the raw string. Keys that fail
// coercion are skipped; a malformed key can never be matched anyway.
func canonicalize(fc *coerce.FieldCoercer, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if fc == nil {
		return raw, true
	}
	res := fc.Coerce(raw)
	if !res.OK {
		return "", false
	}
	return res.Canonical, true
}

// coercerFor compiles a coercer for the referenced field when its schema is
// known. A nil field means keys are kept verbatim.
func coercerFor(field *schema.Field) (*coerce.FieldCoercer, error) {
	if field == nil {
		return nil, nil
	}
	fc, err := coerce.Compile(*field)
	if err != nil {
		return nil, fmt.Errorf("referenced field %q: %w", field.Name, err)
	}
	return &fc, nil
}

// FromCSV reads the named key column out of delimited text. The first line
// must be a header containing fieldName. field, when non-nil, declares the
// referenced column's type so keys can be canonicalized; pass nil to keep
// them verbatim.
func FromCSV(ctx context.Context, r io.Reader, fieldName string, comma rune, field *schema.Field) (validate.KeySet, error) {
	fc, err := coercerFor(field)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}
	col := -1
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == fieldName {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("reference key column %q not found in header", fieldName)
	}

	keys := make(validate.KeySet)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			// Soft-skip unparsable lines; a key that cannot be read cannot
			// legitimize a row either way.
			continue
		}
		if col >= len(rec) {
			continue
		}
		if k, ok := canonicalize(fc, strings.TrimSpace(rec[col])); ok {
			keys[k] = struct{}{}
		}
	}
}
