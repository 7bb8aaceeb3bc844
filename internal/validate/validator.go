// Package validate applies a resource schema to rows of tabular data,
// collecting every per-field defect instead of halting on the first. It is
// the bulk-validation core: coercion errors, format errors, and foreign-key
// violations are enumerated into a report; nothing is thrown as control flow.
package validate

import (
	"fmt"

	"tablecheck/internal/coerce"
	"tablecheck/internal/report"
	"tablecheck/internal/schema"
)

// Row maps a schema field name to its raw text value. All values originate
// as text since the source format is character-delimited. A key absent from
// the map means the column was missing entirely, which is distinct from a
// present-but-empty cell.
type Row map[string]string

// KeySet is a frozen snapshot of the referenced resource's key column, in
// canonical string form. It must be fully constructed before any row is
// checked against it and never mutated during a run.
type KeySet map[string]struct{}

// Has reports membership.
func (k KeySet) Has(v string) bool {
	_, ok := k[v]
	return ok
}

// Validator validates rows against one resource schema. The schema is
// treated as immutable configuration; build a Validator once per run with
// New and share it freely, it holds no per-row state.
type Validator struct {
	resource schema.Resource
	coercers []coerce.FieldCoercer

	// fieldIx maps a field name to its column index in coercers.
	fieldIx map[string]int

	// fkFieldIx[i] is the column index of foreign key i's local field.
	fkFieldIx []int
}

// New compiles a Validator for the resource. A malformed schema (date field
// without format, unknown type, foreign key naming an undeclared field) is a
// configuration error and fails construction.
func New(res schema.Resource) (*Validator, error) {
	if issues := schema.ValidateResource(res); schema.HasErrors(issues) {
		for _, iss := range issues {
			if iss.Severity == schema.SeverityError {
				return nil, fmt.Errorf("schema for resource %q: %s", res.Name, iss)
			}
		}
	}
	coercers, err := coerce.CompileAll(res.Schema.Fields)
	if err != nil {
		return nil, fmt.Errorf("schema for resource %q: %w", res.Name, err)
	}

	byName := make(map[string]int, len(res.Schema.Fields))
	for i, f := range res.Schema.Fields {
		byName[f.Name] = i
	}
	fkIx := make([]int, len(res.Schema.ForeignKeys))
	for i, fk := range res.Schema.ForeignKeys {
		fkIx[i] = byName[fk.LocalField()]
	}

	return &Validator{resource: res, coercers: coercers, fieldIx: byName, fkFieldIx: fkIx}, nil
}

// Resource returns the schema the validator was built from.
func (v *Validator) Resource() schema.Resource { return v.resource }

// ValidateRow applies every field's coercer in schema column order and
// returns all errors for the row; it never stops at the first. Schema fields
// absent from the row are reported as TypeMismatch with an empty value.
// Row fields absent from the schema are ignored.
func (v *Validator) ValidateRow(row Row, rowIndex int) []report.Error {
	errs, _ := v.validateRow(row, rowIndex)
	return errs
}

// validateRow is the hot path shared with the foreign-key stage. It returns
// the row's errors plus the canonical string form of each foreign-key local
// field ("" when that field failed coercion or was empty-nullable).
func (v *Validator) validateRow(row Row, rowIndex int) ([]report.Error, []string) {
	var errs []report.Error
	canon := make([]string, len(v.fkFieldIx))

	for i, fc := range v.coercers {
		name := fc.Field.Name
		raw, present := row[name]
		if !present {
			errs = append(errs, report.Error{
				Row:    rowIndex,
				Field:  name,
				Value:  "",
				Reason: report.TypeMismatch,
			})
			continue
		}
		res := fc.Coerce(raw)
		if !res.OK {
			errs = append(errs, report.Error{
				Row:    rowIndex,
				Field:  name,
				Value:  raw,
				Reason: res.Reason,
			})
			continue
		}
		for k, ix := range v.fkFieldIx {
			if ix == i {
				canon[k] = res.Canonical
			}
		}
	}
	return errs, canon
}

// CheckForeignKey verifies that the row's local field value, coerced to its
// declared type and compared in canonical string form, is a member of keys.
// It returns nil when the key exists, when the local field failed coercion
// (that defect is already reported by ValidateRow), or when the cell is
// empty. An empty cell is missing data, not a key: ValidateRow reports it
// when the field is required, and enforcing membership on "" would turn
// every blank into a second error. The referenced key set is supplied by the
// caller; this method never fetches or parses the referenced resource.
func (v *Validator) CheckForeignKey(row Row, fk schema.ForeignKey, keys KeySet, rowIndex int) *report.Error {
	local := fk.LocalField()
	ix, ok := v.fieldIx[local]
	if !ok {
		return nil
	}
	raw, present := row[local]
	if !present || raw == "" {
		return nil
	}
	res := v.coercers[ix].Coerce(raw)
	if !res.OK {
		return nil
	}
	if keys.Has(res.Canonical) {
		return nil
	}
	return &report.Error{
		Row:    rowIndex,
		Field:  local,
		Value:  raw,
		Reason: report.ForeignKeyViolation,
	}
}

// checkForeignKeys runs the membership test for every declared key using the
// canonical values computed during validateRow, avoiding a second coercion.
func (v *Validator) checkForeignKeys(row Row, canon []string, keys KeySet, rowIndex int) []report.Error {
	if keys == nil || len(v.resource.Schema.ForeignKeys) == 0 {
		return nil
	}
	var errs []report.Error
	for i, fk := range v.resource.Schema.ForeignKeys {
		c := canon[i]
		if c == "" {
			// Failed coercion, an empty nullable cell, or an empty string
			// key: all are missing data, not dangling keys.
			continue
		}
		if !keys.Has(c) {
			errs = append(errs, report.Error{
				Row:    rowIndex,
				Field:  fk.LocalField(),
				Value:  row[fk.LocalField()],
				Reason: report.ForeignKeyViolation,
			})
		}
	}
	return errs
}
