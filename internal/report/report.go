// Package report defines the validation report model: per-row, per-field
// errors collected across a whole run, plus JSON serialization and a stable
// fingerprint for comparing reports across runs.
package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Reason classifies a single validation error.
type Reason string

const (
	// TypeMismatch: the value cannot be coerced to the declared primitive type
	// (also used for schema fields missing from a row).
	TypeMismatch Reason = "type_mismatch"
	// FormatMismatch: the value is the right primitive kind but fails a format
	// constraint, e.g. a date that does not match its declared pattern.
	FormatMismatch Reason = "format_mismatch"
	// ForeignKeyViolation: the value is absent from the referenced key set.
	ForeignKeyViolation Reason = "foreign_key_violation"
)

// Error describes one defect found in the input data.
type Error struct {
	Row    int    `json:"row"`   // 0-based row index in arrival order
	Field  string `json:"field"` // schema field name
	Value  string `json:"value"` // raw cell text ("" when the field was absent)
	Reason Reason `json:"reason"`
}

// Report is the outcome of validating one resource. Errors appear in
// row-then-field order. A Report is immutable once returned by a validator;
// callers must not append to Errors.
type Report struct {
	Resource string  `json:"resource,omitempty"`
	Rows     int     `json:"rows"`
	Errors   []Error `json:"errors"`
}

// Valid reports whether the run found no defects.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

// ByReason returns error counts keyed by reason.
func (r *Report) ByReason() map[Reason]int {
	out := make(map[Reason]int, 3)
	for _, e := range r.Errors {
		out[e.Reason]++
	}
	return out
}

// Fingerprint returns a stable 64-bit hash of the report contents. Two runs
// over identical inputs yield identical fingerprints, which makes idempotence
// checks and report de-duplication cheap.
func (r *Report) Fingerprint() uint64 {
	h := xxh3.New()
	sep := []byte{0}
	h.Write([]byte(r.Resource))
	h.Write(sep)
	h.Write([]byte(strconv.Itoa(r.Rows)))
	for _, e := range r.Errors {
		h.Write(sep)
		h.Write([]byte(strconv.Itoa(e.Row)))
		h.Write(sep)
		h.Write([]byte(e.Field))
		h.Write(sep)
		h.Write([]byte(e.Value))
		h.Write(sep)
		h.Write([]byte(e.Reason))
	}
	return h.Sum64()
}

// WriteJSON serializes the report as indented JSON. An empty error list is
// emitted as [] rather than null so downstream consumers can rely on the
// field being an array.
func (r *Report) WriteJSON(w io.Writer) error {
	out := *r
	if out.Errors == nil {
		out.Errors = []Error{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
