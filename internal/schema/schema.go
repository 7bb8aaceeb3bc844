// Package schema models the data-package descriptor consumed by the
// validator: a set of tabular resources, each carrying an ordered field list
// with declared types and date formats, CSV dialect hints, provenance, and
// foreign-key declarations against sibling resources.
//
// The descriptor is plain JSON and is decoded with encoding/json only; field
// names in Go mirror the JSON structure of datapackage.json files.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Field types understood by the validator.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeDate    = "date"
)

// Field declares one column: its name, primitive type, and, for dates, a
// strftime-style format such as "%m/%d/%Y".
type Field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`

	// Nullable permits an empty cell for non-string fields. The upstream
	// descriptors never mark end-date columns nullable even though blank
	// means "ongoing" in the source data, so this stays an explicit opt-in
	// rather than a silent special case.
	Nullable bool `json:"nullable,omitempty"`
}

// StringList decodes a JSON value that may be either a single string or an
// array of strings. Descriptors in the wild use both spellings for
// foreignKeys[].fields.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

// Reference names the resource and field a foreign key points at.
type Reference struct {
	Resource string     `json:"resource"`
	Fields   StringList `json:"fields"`
}

// ForeignKey declares that a local field's values must exist in the key
// column of another resource.
type ForeignKey struct {
	Fields    StringList `json:"fields"`
	Reference Reference  `json:"reference"`
}

// LocalField returns the single local field of the key. Composite keys are
// rejected at lint time, so the first entry is authoritative.
func (fk ForeignKey) LocalField() string {
	if len(fk.Fields) == 0 {
		return ""
	}
	return fk.Fields[0]
}

// TableSchema is the ordered field list plus foreign-key declarations for one
// resource. Field order is column order.
type TableSchema struct {
	Fields      []Field      `json:"fields"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// FieldNamed returns the field with the given name, or false when absent.
func (t TableSchema) FieldNamed(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Dialect carries the CSV dialect hints the descriptor may declare.
type Dialect struct {
	Delimiter string `json:"delimiter,omitempty"`
}

// Comma returns the delimiter as a rune, defaulting to ','.
func (d Dialect) Comma() rune {
	if d.Delimiter == "" {
		return ','
	}
	return []rune(d.Delimiter)[0]
}

// Source records where a resource's data originates (provenance only; this
// program never fetches it).
type Source struct {
	Title string `json:"title,omitempty"`
	Path  string `json:"path,omitempty"`
}

// License identifies the terms a resource is published under.
type License struct {
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
	Path  string `json:"path,omitempty"`
}

// Resource is one dataset plus its schema descriptor.
type Resource struct {
	Name      string      `json:"name"`
	Title     string      `json:"title,omitempty"`
	Path      string      `json:"path,omitempty"`
	Format    string      `json:"format,omitempty"`
	Mediatype string      `json:"mediatype,omitempty"`
	Encoding  string      `json:"encoding,omitempty"`
	Dialect   Dialect     `json:"dialect,omitempty"`
	Sources   []Source    `json:"sources,omitempty"`
	Licenses  []License   `json:"licenses,omitempty"`
	Schema    TableSchema `json:"schema"`
}

// Columns returns the schema field names in column order.
func (r Resource) Columns() []string {
	cols := make([]string, len(r.Schema.Fields))
	for i, f := range r.Schema.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Package is a full data-package descriptor: named resources plus
// package-level provenance.
type Package struct {
	Name      string     `json:"name"`
	Title     string     `json:"title,omitempty"`
	Licenses  []License  `json:"licenses,omitempty"`
	Sources   []Source   `json:"sources,omitempty"`
	Resources []Resource `json:"resources"`
}

// ResourceNamed returns the resource with the given name, or false.
func (p Package) ResourceNamed(name string) (Resource, bool) {
	for _, r := range p.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Decode reads a descriptor from r.
func Decode(r io.Reader) (Package, error) {
	var p Package
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Package{}, fmt.Errorf("decode descriptor: %w", err)
	}
	return p, nil
}

// LoadFile reads a descriptor from the given path.
func LoadFile(path string) (Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return Package{}, fmt.Errorf("open descriptor %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
