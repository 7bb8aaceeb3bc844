// Package csv turns delimited text into validator rows keyed by schema field
// names. It streams: one CSV record is materialized at a time, so very large
// inputs are handled in bounded memory. The parsing mechanics themselves are
// delegated to encoding/csv; this package owns header matching, BOM
// stripping, charset decoding, and the row-shape contract.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"tablecheck/internal/config"
	"tablecheck/internal/validate"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// StreamRows reads delimited text from src and emits one validate.Row per
// data line, keyed by the target column names. Cells belonging to columns the
// schema does not declare are dropped; declared columns missing from the
// header are absent from every emitted row, which the validator reports as
// missing fields.
//
// Options (all optional):
//   - has_header (bool; default true): first line carries column names.
//     Without a header, columns are taken positionally in schema order.
//   - comma (string; first rune; default ','): field delimiter.
//   - trim_space (bool; default true): trim ASCII space around cells.
//   - lazy_quotes (bool; default false): tolerate bare quotes.
//   - encoding (string; default utf-8): "windows-1252"/"latin-1" inputs are
//     transcoded on the fly.
//   - header_map (object): source header name -> schema field name.
//
// onErr(line, err) receives recoverable row errors (soft-drop); a nil onErr
// drops them silently. The function returns when src is exhausted, the
// header cannot be read, or ctx is canceled.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	opt config.Options,
	out chan<- validate.Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	hasHeader := opt.Bool("has_header", true)
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", true)
	lazy := opt.Bool("lazy_quotes", false)
	hm := opt.StringMap("header_map")

	r, err := decodeReader(src, opt.String("encoding", ""))
	if err != nil {
		return err
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = lazy
	cr.FieldsPerRecord = -1 // width enforced per target column below

	line := 0
	read := func() ([]string, error) { line++; return cr.Read() }

	// Build dest→source mapping: colIx[target] = source index, or -1 when the
	// column is absent from the input.
	colIx := make([]int, len(columns))
	for i := range colIx {
		colIx[i] = -1
	}
	if hasHeader {
		hdr, err := read()
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("read header: %w", err))
			}
			return fmt.Errorf("read header: %w", err)
		}
		srcToIdx := make(map[string]int, len(hdr))
		for i, h := range hdr {
			h = strings.TrimSpace(h)
			if i == 0 {
				h = strings.TrimPrefix(h, utf8BOM)
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			}
			srcToIdx[h] = i
		}
		for t, target := range columns {
			if si, ok := srcToIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range columns {
			colIx[i] = i // positional
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := make(validate.Row, len(columns))
		for t, target := range columns {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				continue // column absent; key stays missing from the row
			}
			v := rec[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			row[target] = v
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decodeReader wraps r with a charset decoder when the input is not UTF-8.
// Real-world government CSV exports are frequently windows-1252.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "latin-1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
