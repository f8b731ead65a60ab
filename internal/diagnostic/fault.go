package diagnostic

import (
	"fmt"
	"strings"
)

// Fault is the structured error returned by resolution steps.
// Two faults match under errors.Is when class and code agree.
type Fault struct {
	Class   Class
	Code    string
	Subject string
	Site    string
	Detail  string
	Cause   error
}

// NewFault creates a fault with a formatted detail message.
func NewFault(class Class, code, subject, format string, args ...any) *Fault {
	return &Fault{
		Class:   class,
		Code:    code,
		Subject: subject,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (f *Fault) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(f.Class.String())
	b.WriteString("] ")
	b.WriteString(f.Code)

	if f.Subject != "" {
		b.WriteString(" at ")
		b.WriteString(f.Subject)
	}

	if f.Site != "" {
		b.WriteString(" (")
		b.WriteString(f.Site)
		b.WriteByte(')')
	}

	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}

	if f.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(f.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is reports whether target matches this fault
func (f *Fault) Is(target error) bool {
	if t, ok := target.(*Fault); ok {
		return f.Class == t.Class && f.Code == t.Code
	}

	return false
}

// WithSite returns a copy of the fault attached to a use site.
func (f *Fault) WithSite(site string) *Fault {
	c := *f
	c.Site = site

	return &c
}

// WithCause returns a copy of the fault wrapping cause.
func (f *Fault) WithCause(cause error) *Fault {
	c := *f
	c.Cause = cause

	return &c
}

// Diagnostic converts the fault into a diagnostic entry.
func (f *Fault) Diagnostic() Diagnostic {
	msg := f.Detail
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}

	return Diagnostic{
		Severity: f.Class.Severity(),
		Class:    f.Class,
		Code:     f.Code,
		Message:  msg,
		Subject:  f.Subject,
		Site:     f.Site,
	}
}
