// Package config provides configuration models and helpers for validation jobs.
//
// This file adds a lightweight linter for Job values. It performs static
// checks over a decoded Job and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Job.
//
// Path is a dotted path into the config (e.g. "reference.kind",
// "parser.options"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidateJob performs static validation / linting of a Job.
//
// It does not mutate the job. Callers may decide whether to treat warnings
// as fatal or not.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if strings.TrimSpace(j.Descriptor) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "descriptor",
			Message:  "descriptor path must not be empty",
		})
	}

	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateParser(j.Parser)...)
	issues = append(issues, validateReference(j.Reference)...)
	issues = append(issues, validateRuntime(j.Runtime)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		// An empty source kind is tolerated: the resource path from the
		// descriptor is used instead.
		return issues
	}

	known := map[string]struct{}{
		"file": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p Parser) []Issue {
	var issues []Issue

	kind := p.Kind
	if strings.TrimSpace(kind) == "" {
		// CSV is the only input format; default silently.
		return issues
	}

	if kind != "csv" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; ensure a matching implementation exists", kind),
		})
		return issues
	}

	switch enc := p.Options.String("encoding", ""); enc {
	case "", "utf-8", "utf8", "windows-1252", "latin-1", "iso-8859-1":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.encoding",
			Message:  fmt.Sprintf("unsupported encoding %q", enc),
		})
	}

	return issues
}

// validateReference validates the referenced-key configuration.
func validateReference(r Reference) []Issue {
	var issues []Issue

	switch r.Kind {
	case "", "none":
		// No key set; foreign-key checks are skipped.
	case "csv":
		if strings.TrimSpace(r.CSV.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "reference.csv.path",
				Message:  "csv reference requires a non-empty path",
			})
		}
	case "postgres", "sqlite":
		if strings.TrimSpace(r.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "reference.db.dsn",
				Message:  fmt.Sprintf("%s reference requires a non-empty dsn", r.Kind),
			})
		}
		if strings.TrimSpace(r.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "reference.db.table",
				Message:  fmt.Sprintf("%s reference requires a non-empty table", r.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "reference.kind",
			Message:  fmt.Sprintf("unknown reference kind %q (want csv, postgres, sqlite, or none)", r.Kind),
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}

	return issues
}
