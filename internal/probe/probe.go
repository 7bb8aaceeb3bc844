// Package probe samples a delimited file and drafts a data-package
// descriptor for it: header names, inferred field types (string, integer,
// date), and a detected strftime date format per date column. The draft is a
// starting point for a human-maintained descriptor, not a finished one.
package probe

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ncruces/go-strftime"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tablecheck/internal/schema"
)

// maxSampleRows caps how many data rows inference looks at.
const maxSampleRows = 10000

// Sample reads up to maxSampleRows records from r and returns headers plus
// data rows, best-effort: parse errors and misaligned rows are skipped so a
// truncated sample still yields usable inference input.
func Sample(r io.Reader, delim rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	if delim != 0 {
		cr.Comma = delim
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var headers []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return []string{}, [][]string{}, nil
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		headers = stripUTF8BOM(rec)
		break
	}

	want := len(headers)
	rows := make([][]string, 0, 256)
	for len(rows) < maxSampleRows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) != want {
			continue
		}
		cp := make([]string, want)
		copy(cp, rec)
		rows = append(rows, cp)
	}
	return headers, rows, nil
}

// SampleBytes is Sample over an in-memory buffer.
func SampleBytes(data []byte, delim rune) ([]string, [][]string, error) {
	return Sample(bytes.NewReader(data), delim)
}

// stripUTF8BOM removes a UTF-8 BOM from the first header field if present.
func stripUTF8BOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	return headers
}

// InferResource builds a draft resource descriptor from sampled data. Field
// names keep their original header spelling; the resource name is normalized
// to a lowercase identifier.
func InferResource(name string, headers []string, rows [][]string, delim rune) schema.Resource {
	fields := make([]schema.Field, 0, len(headers))
	for i, h := range headers {
		col := columnValues(rows, i)
		f := schema.Field{Name: h, Type: inferType(col)}
		if f.Type == schema.TypeDate {
			f.Format = detectDateFormat(col)
			if f.Format == "" {
				// No single format fit every sample; fall back to string
				// rather than emit an unusable date field.
				f.Type = schema.TypeString
			}
		}
		if len(col) < len(rows) && f.Type != schema.TypeString {
			f.Nullable = true
		}
		fields = append(fields, f)
	}

	res := schema.Resource{
		Name:   NormalizeName(name),
		Format: "csv",
		Schema: schema.TableSchema{Fields: fields},
	}
	if delim != 0 && delim != ',' {
		res.Dialect.Delimiter = string(delim)
	}
	return res
}

// columnValues gathers the non-empty trimmed values of column i.
func columnValues(rows [][]string, i int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if i >= len(r) {
			continue
		}
		v := strings.TrimSpace(r[i])
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// inferType guesses the narrowest descriptor type every non-empty sample
// satisfies: integer, then date, then string.
func inferType(values []string) string {
	if len(values) == 0 {
		return schema.TypeString
	}
	if allMatch(values, isInt) {
		return schema.TypeInteger
	}
	if detectDateFormat(values) != "" {
		return schema.TypeDate
	}
	return schema.TypeString
}

// allMatch reports whether every value satisfies fn.
func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	if s == "" || s[0] == '+' {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// dateFormats are the strftime patterns detection tries, most common first.
// Declaration order breaks score ties, so MDY (the dominant US-government
// export convention) precedes DMY.
var dateFormats = []string{
	"%m/%d/%Y", // MDY slash, the usual federal export form
	"%d/%m/%Y",
	"%Y-%m-%d", // ISO
	"%m-%d-%Y",
	"%d.%m.%Y",
	"%Y%m%d",
}

// detectDateFormat scores each candidate strftime pattern by how many
// samples it parses exactly (including the zero-padding round trip the
// validator enforces) and returns the best, or "" when nothing matched all
// samples.
func detectDateFormat(values []string) string {
	if len(values) == 0 {
		return ""
	}
	best := ""
	bestScore := 0
	for _, f := range dateFormats {
		layout, err := strftime.Layout(f)
		if err != nil {
			continue
		}
		score := 0
		for _, v := range values {
			t, err := time.Parse(layout, v)
			if err != nil || t.Format(layout) != v {
				break
			}
			score++
		}
		if score == len(values) && score > bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

// NormalizeName converts arbitrary text into a lowercase ASCII identifier:
// accents are stripped (NFD → remove Mn → NFC), runs of space/dash/dot
// become single hyphens, and anything else outside [a-z0-9] is dropped.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevHyphen := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '.':
			if !prevHyphen {
				b.WriteRune('-')
				prevHyphen = true
			}
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "resource"
	}
	return name
}
