package coerce

import (
	"testing"
	"time"

	"tablecheck/internal/report"
	"tablecheck/internal/schema"
)

func TestCompileRejectsBadFields(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
	}{
		{"date without format", schema.Field{Name: "dt", Type: schema.TypeDate}},
		{"unknown type", schema.Field{Name: "x", Type: "float"}},
		{"bad strftime directive", schema.Field{Name: "dt", Type: schema.TypeDate, Format: "%Q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.field); err == nil {
				t.Fatalf("Compile(%+v) succeeded, want error", tt.field)
			}
		})
	}
}

func TestCoerceInteger(t *testing.T) {
	fc, err := Compile(schema.Field{Name: "MINE_ID", Type: schema.TypeInteger})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	tests := []struct {
		raw       string
		ok        bool
		canonical string
	}{
		{"1234567", true, "1234567"},
		{"-42", true, "-42"},
		{"0", true, "0"},
		{"0042", true, "42"},
		{"12A4567", false, ""},
		{"+5", false, ""},
		{" 7", false, ""},
		{"1.5", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		res := fc.Coerce(tt.raw)
		if res.OK != tt.ok {
			t.Fatalf("Coerce(%q): OK=%v, want %v", tt.raw, res.OK, tt.ok)
		}
		if !tt.ok && res.Reason != report.TypeMismatch {
			t.Fatalf("Coerce(%q): reason=%q, want %q", tt.raw, res.Reason, report.TypeMismatch)
		}
		if res.Canonical != tt.canonical {
			t.Fatalf("Coerce(%q): canonical=%q, want %q", tt.raw, res.Canonical, tt.canonical)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	fc, err := Compile(schema.Field{Name: "CONTROLLER_START_DT", Type: schema.TypeDate, Format: "%m/%d/%Y"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	tests := []struct {
		raw    string
		ok     bool
		reason report.Reason
	}{
		{"01/15/1995", true, ""},
		{"12/31/2023", true, ""},
		// Right date, wrong layout.
		{"1995-01-15", false, report.FormatMismatch},
		// time.Parse would accept these; the exact-match round trip must not.
		{"1/15/1995", false, report.FormatMismatch},
		{"01/5/1995", false, report.FormatMismatch},
		{"02/30/2020", false, report.FormatMismatch},
		{"not a date", false, report.FormatMismatch},
		{"", false, report.TypeMismatch},
	}
	for _, tt := range tests {
		res := fc.Coerce(tt.raw)
		if res.OK != tt.ok {
			t.Fatalf("Coerce(%q): OK=%v, want %v", tt.raw, res.OK, tt.ok)
		}
		if !tt.ok && res.Reason != tt.reason {
			t.Fatalf("Coerce(%q): reason=%q, want %q", tt.raw, res.Reason, tt.reason)
		}
	}

	res := fc.Coerce("01/15/1995")
	want := time.Date(1995, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := res.Value.(time.Time); !got.Equal(want) {
		t.Fatalf("Coerce value = %v, want %v", got, want)
	}
	if res.Canonical != "1995-01-15" {
		t.Fatalf("Coerce canonical = %q, want 1995-01-15", res.Canonical)
	}
}

func TestCoerceString(t *testing.T) {
	fc, _ := Compile(schema.Field{Name: "CONTROLLER_NM", Type: schema.TypeString})
	for _, raw := range []string{"ACME MINING LLC", "", "  spaced  "} {
		res := fc.Coerce(raw)
		if !res.OK {
			t.Fatalf("Coerce(%q): not OK", raw)
		}
		if res.Canonical != raw || res.Value.(string) != raw {
			t.Fatalf("Coerce(%q): value mangled: %+v", raw, res)
		}
	}
}

func TestCoerceNullable(t *testing.T) {
	fc, err := Compile(schema.Field{
		Name: "OPERATOR_END_DT", Type: schema.TypeDate, Format: "%m/%d/%Y", Nullable: true,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	res := fc.Coerce("")
	if !res.OK {
		t.Fatalf("nullable empty cell rejected: %+v", res)
	}
	if res.Value != nil || res.Canonical != "" {
		t.Fatalf("nullable empty cell should carry no value, got %+v", res)
	}
	// Non-empty still has to parse.
	if res := fc.Coerce("bogus"); res.OK {
		t.Fatal("nullable field accepted a malformed non-empty value")
	}
}

func TestCompileAllOrder(t *testing.T) {
	fields := []schema.Field{
		{Name: "a", Type: schema.TypeString},
		{Name: "b", Type: schema.TypeInteger},
		{Name: "c", Type: schema.TypeDate, Format: "%Y-%m-%d"},
	}
	cs, err := CompileAll(fields)
	if err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if len(cs) != len(fields) {
		t.Fatalf("got %d coercers, want %d", len(cs), len(fields))
	}
	for i := range fields {
		if cs[i].Field.Name != fields[i].Name {
			t.Fatalf("coercer %d is for %q, want %q", i, cs[i].Field.Name, fields[i].Name)
		}
	}
}
