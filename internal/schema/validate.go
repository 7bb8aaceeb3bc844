// Package schema provides the descriptor model and helpers.
//
// This file adds a linter for decoded descriptors. A malformed descriptor is
// a configuration error: it is reported once at load time and is fatal to
// starting a validation run, unlike per-row data errors which are collected
// and never halt processing.
package schema

import (
	"fmt"

	"github.com/ncruces/go-strftime"
)

// IssueSeverity represents the severity of a descriptor issue.
type IssueSeverity string

const (
	// SeverityError indicates a descriptor error that blocks a validation run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a descriptor.
//
// Path is a dotted path into the descriptor (e.g.
// "resources[0].schema.fields[3].format"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is of error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePackage lints a decoded descriptor. It does not mutate the package;
// callers decide whether warnings are fatal.
func ValidatePackage(p Package) []Issue {
	var issues []Issue

	if len(p.Resources) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "resources",
			Message:  "descriptor declares no resources",
		})
		return issues
	}

	names := make(map[string]struct{}, len(p.Resources))
	for i, r := range p.Resources {
		path := fmt.Sprintf("resources[%d]", i)
		if r.Name == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  "resource name must not be empty",
			})
		} else if _, dup := names[r.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("duplicate resource name %q", r.Name),
			})
		}
		names[r.Name] = struct{}{}

		issues = append(issues, validateResource(r, path, p)...)
	}
	return issues
}

// ValidateResource lints one resource's schema in isolation (foreign-key
// reference targets are checked only when the enclosing package is known).
func ValidateResource(r Resource) []Issue {
	return validateResource(r, "resource", Package{})
}

func validateResource(r Resource, path string, pkg Package) []Issue {
	var issues []Issue

	if len(r.Schema.Fields) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".schema.fields",
			Message:  "schema declares no fields",
		})
		return issues
	}

	seen := make(map[string]struct{}, len(r.Schema.Fields))
	for i, f := range r.Schema.Fields {
		fpath := fmt.Sprintf("%s.schema.fields[%d]", path, i)
		if f.Name == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fpath + ".name",
				Message:  "field name must not be empty",
			})
			continue
		}
		if _, dup := seen[f.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fpath + ".name",
				Message:  fmt.Sprintf("duplicate field name %q", f.Name),
			})
		}
		seen[f.Name] = struct{}{}

		switch f.Type {
		case TypeString, TypeInteger:
			// no extra constraints
		case TypeDate:
			if f.Format == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fpath + ".format",
					Message:  fmt.Sprintf("date field %q requires a non-empty format", f.Name),
				})
			} else if _, err := strftime.Layout(f.Format); err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fpath + ".format",
					Message:  fmt.Sprintf("date field %q has unsupported format %q: %v", f.Name, f.Format, err),
				})
			}
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fpath + ".type",
				Message:  fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type),
			})
		}
	}

	for i, fk := range r.Schema.ForeignKeys {
		kpath := fmt.Sprintf("%s.schema.foreignKeys[%d]", path, i)
		if len(fk.Fields) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     kpath + ".fields",
				Message:  fmt.Sprintf("foreign key must name exactly one local field, got %d", len(fk.Fields)),
			})
			continue
		}
		local := fk.Fields[0]
		if _, ok := r.Schema.FieldNamed(local); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     kpath + ".fields",
				Message:  fmt.Sprintf("foreign key local field %q is not declared in schema.fields", local),
			})
		}
		if fk.Reference.Resource == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     kpath + ".reference.resource",
				Message:  "foreign key reference must name a resource",
			})
		}
		if len(fk.Reference.Fields) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     kpath + ".reference.fields",
				Message:  fmt.Sprintf("foreign key reference must name exactly one field, got %d", len(fk.Reference.Fields)),
			})
		}
		// The referenced resource need not be part of the same descriptor; warn
		// so the operator knows the key set must come from elsewhere.
		if fk.Reference.Resource != "" && len(pkg.Resources) > 0 {
			if _, ok := pkg.ResourceNamed(fk.Reference.Resource); !ok {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     kpath + ".reference.resource",
					Message:  fmt.Sprintf("referenced resource %q is not declared in this descriptor; a key source must be configured", fk.Reference.Resource),
				})
			}
		}
	}

	return issues
}
