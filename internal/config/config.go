// Package config defines the canonical, JSON-serializable job configuration
// for the validator. A job names the descriptor to load, the resource and
// data file to validate, how to materialize the referenced key set, and the
// runtime knobs for the streaming run.
//
// Decoding is performed by the standard library, with a light Options helper
// for the free-form parser settings whose shape varies by reader.
//
// Example (trimmed):
//
//	{
//	  "job": "controller-history",
//	  "descriptor": "datapackage.json",
//	  "resource": "controller-operator-history",
//	  "source":    { "kind": "file", "file": { "path": "data/history.csv" } },
//	  "parser":    { "kind": "csv", "options": { "has_header": true } },
//	  "reference": { "kind": "csv", "csv": { "path": "data/mines.csv", "field": "MINE_ID" } },
//	  "runtime":   { "workers": 4, "channel_buffer": 1000 }
//	}
package config

import "encoding/json"

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run; used for metrics labeling and log prefixes.
	Job string `json:"job"`

	// Descriptor is the path to the data-package descriptor JSON.
	Descriptor string `json:"descriptor"`

	// Resource selects which resource in the descriptor to validate. When
	// empty and the descriptor declares exactly one resource, that one is used.
	Resource string `json:"resource"`

	// Source describes where the input data comes from.
	Source Source `json:"source"`

	// Parser configures how raw bytes become rows.
	Parser Parser `json:"parser"`

	// Reference configures how the referenced key set is materialized for
	// foreign-key checking. Kind "none" skips the check.
	Reference Reference `json:"reference"`

	// Output is where the JSON report is written; empty means stdout.
	Output Output `json:"output"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls concurrency and channel buffer sizes.
type RuntimeConfig struct {
	// Workers is the number of row-validation workers; <=1 runs sequentially.
	Workers int `json:"workers"`

	// ChannelBuffer bounds the reader→validator channel.
	ChannelBuffer int `json:"channel_buffer"`
}

// Source identifies the data source. Only local files are supported; data
// acquisition is a separate concern handled upstream of this tool.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file. When empty, the
	// resource's declared path from the descriptor is used.
	Path string `json:"path"`
}

// Parser selects how to parse the raw source into rows.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV, typical keys include:
	//   has_header (bool), comma (string), trim_space (bool),
	//   lazy_quotes (bool), encoding (string), header_map (object)
	Options Options `json:"options"`
}

// Reference configures the referenced key set for foreign-key checks. The
// validator itself never fetches the referenced resource; one of these
// providers materializes its key column up front.
type Reference struct {
	// Kind selects the provider: "csv", "postgres", "sqlite", or "none".
	Kind string `json:"kind"`

	// CSV reads the key column from a local delimited file.
	CSV ReferenceCSV `json:"csv"`

	// DB reads the key column from an already-ingested database table.
	// Used by the "postgres" and "sqlite" kinds.
	DB ReferenceDB `json:"db"`
}

// ReferenceCSV holds options for the "csv" reference kind.
type ReferenceCSV struct {
	Path string `json:"path"`
	// Field is the header name of the key column. When empty, the foreign
	// key's reference.fields entry from the descriptor is used.
	Field string `json:"field"`
	// Comma is the delimiter; empty means ','.
	Comma string `json:"comma"`
}

// ReferenceDB holds options for database-backed reference kinds.
type ReferenceDB struct {
	// DSN is the connection string (pgx for postgres, database/sql for sqlite).
	DSN string `json:"dsn"`
	// Table is the table holding the referenced resource.
	Table string `json:"table"`
	// Column is the key column. When empty, the descriptor's
	// reference.fields entry is used.
	Column string `json:"column"`
}

// Output selects where the report goes.
type Output struct {
	// Path is the report file path; empty writes to stdout.
	Path string `json:"path"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so this accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def when missing
// or empty. Useful for single-character settings such as a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map, removing nil checks at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
