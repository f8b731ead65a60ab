package diagnostic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"marshal-planner/internal/common"
)

// Diagnostics holds all diagnostic information from resolution.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity DiagnosticSeverity
	// Class places the diagnostic in the error taxonomy.
	Class Class
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable description.
	Message string
	// Subject identifies the managed type this relates to (if any).
	Subject string
	// Site identifies the use site this relates to (if any).
	Site string
	// Suggestions are potential fixes or alternatives.
	Suggestions []string
}

// DiagnosticSeverity represents the severity level of a diagnostic.
type DiagnosticSeverity int

const (
	DiagnosticInfo DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticError
)

// String returns a human-readable severity name.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticInfo:
		return "info"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Class is the error taxonomy of plan building.
type Class int

const (
	// ClassNone - plain informational or configuration messages.
	ClassNone Class = iota
	// ClassFatalDefinition - the type can never be passed until it is fixed.
	ClassFatalDefinition
	// ClassFatalUse - this particular use cannot be marshalled.
	ClassFatalUse
	// ClassDowngrade - a direction is unsupported; uses needing it are rejected.
	ClassDowngrade
	// ClassAdvisory - planning proceeds without an optional capability.
	ClassAdvisory
)

// String returns a human-readable class name.
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassFatalDefinition:
		return "fatal-definition"
	case ClassFatalUse:
		return "fatal-use"
	case ClassDowngrade:
		return "downgrade"
	case ClassAdvisory:
		return "advisory"
	default:
		return common.UnknownStr
	}
}

// Severity returns the severity a class is reported with.
func (c Class) Severity() DiagnosticSeverity {
	switch c {
	case ClassFatalDefinition, ClassFatalUse:
		return DiagnosticError
	case ClassAdvisory:
		return DiagnosticWarning
	default:
		return DiagnosticInfo
	}
}

// Add records a diagnostic under the severity of its class.
func (d *Diagnostics) Add(diag Diagnostic) {
	switch diag.Severity {
	case DiagnosticError:
		d.Errors = append(d.Errors, diag)
	case DiagnosticWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(class Class, code, message, subject, site string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: DiagnosticError,
		Class:    class,
		Code:     code,
		Message:  message,
		Subject:  subject,
		Site:     site,
	})
}

// AddWarning adds an advisory warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, subject, site string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: DiagnosticWarning,
		Class:    ClassAdvisory,
		Code:     code,
		Message:  message,
		Subject:  subject,
		Site:     site,
	})
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(class Class, code, message, subject, site string) {
	d.Infos = append(d.Infos, Diagnostic{
		Severity: DiagnosticInfo,
		Class:    class,
		Code:     code,
		Message:  message,
		Subject:  subject,
		Site:     site,
	})
}

// AddFault records a fault under its class.
func (d *Diagnostics) AddFault(f *Fault) {
	d.Add(f.Diagnostic())
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// HasCode returns true if any diagnostic carries the given code.
func (d *Diagnostics) HasCode(code string) bool {
	for _, list := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, diag := range list {
			if diag.Code == code {
				return true
			}
		}
	}

	return false
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// Sort orders every list by subject, site and code so output is stable
// regardless of the order in which items were resolved.
func (d *Diagnostics) Sort() {
	for _, list := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.Subject != b.Subject {
				return a.Subject < b.Subject
			}

			if a.Site != b.Site {
				return a.Site < b.Site
			}

			return a.Code < b.Code
		})
	}
}

// IsValid returns true if there are no errors.
func (d *Diagnostics) IsValid() bool {
	return len(d.Errors) == 0
}

// Error returns a combined error from all error diagnostics, or nil if valid.
func (d *Diagnostics) Error() error {
	if d.IsValid() {
		return nil
	}

	var parts []string
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Subject != "" {
		prefix = append(prefix, "["+d.Subject+"]")
	}

	if d.Site != "" {
		prefix = append(prefix, d.Site)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(d.Suggestions, ", ") + "?)"
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}

// String renders every diagnostic on its own line, errors first.
func (d *Diagnostics) String() string {
	var b strings.Builder

	for _, list := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, diag := range list {
			b.WriteString(diag.Severity.String())
			b.WriteString(": ")
			b.WriteString(diag.String())
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Dedupe drops repeated diagnostics, keeping the first occurrence. Items of
// one pass that share a type report its definition errors once.
func (d *Diagnostics) Dedupe() {
	d.Errors = dedupe(d.Errors)
	d.Warnings = dedupe(d.Warnings)
	d.Infos = dedupe(d.Infos)
}

func dedupe(list []Diagnostic) []Diagnostic {
	type key struct {
		class                        Class
		code, subject, site, message string
	}

	seen := make(map[key]bool, len(list))
	out := list[:0]

	for _, diag := range list {
		k := key{diag.Class, diag.Code, diag.Subject, diag.Site, diag.Message}
		if seen[k] {
			continue
		}

		seen[k] = true
		out = append(out, diag)
	}

	return out
}
