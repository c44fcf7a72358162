// Package diag implements the diagnostic sink of spec.md §6/§7: a
// write-only (severity, code, message, file_location) channel that every
// stage reports into, flushed once after compilation finishes. No stage
// retries and the core never terminates the process from a diagnostic.
//
// Grounded on the teacher's pipeline error reporting: lang/parse/parser.go's
// p.error/p.errorAt (accumulate-and-continue) and lang/ya/main.go's
// stage-by-stage "N error(s)" summary printed to stderr.
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/gmofishsauce/kcc/internal/token"
)

// Severity ranks a diagnostic. Order matters: Sink.HasErrors treats
// Error and Fatal as failing, Warning and Note as non-failing.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal error"
	default:
		return "diagnostic"
	}
}

// Code identifies a diagnostic's origin taxonomy, per spec.md §7's three
// failure categories plus a fourth for I/O-level failures that precede
// lexing (not named in spec.md, added since cmd/kcc needs to report them
// through the same sink rather than panicking or printing ad hoc).
type Code int

const (
	CodeUnspecified Code = iota
	CodeParse
	CodeSemantic
	CodeCodeGen
	CodeIO
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse"
	case CodeSemantic:
		return "semantic"
	case CodeCodeGen:
		return "codegen"
	case CodeIO:
		return "io"
	default:
		return "unspecified"
	}
}

// Diagnostic is one entry written to a Sink.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Loc      token.Loc
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s (%s)", d.Loc, d.Severity, d.Message, d.Code)
}

// Sink accumulates diagnostics during compilation and flushes them on
// demand. It is write-only from the compiler stages' point of view: they
// call Report and never read back what they wrote, matching spec.md §6.
type Sink struct {
	entries []Diagnostic
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report appends one diagnostic. It never panics or exits the process —
// the three compiler failure taxonomies (parse, semantic, code-gen) all
// route here instead of aborting mid-stage.
func (s *Sink) Report(sev Severity, code Code, loc token.Loc, format string, args ...any) {
	s.entries = append(s.entries, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Loc:      loc,
	})
}

// HasErrors reports whether any Error or Fatal diagnostic was reported.
func (s *Sink) HasErrors() bool {
	for _, d := range s.entries {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Entries returns the accumulated diagnostics in report order.
func (s *Sink) Entries() []Diagnostic {
	return s.entries
}

// Flush writes every accumulated diagnostic to w, ordered by source
// location then severity, and clears the sink. Matches spec.md §6's
// "flushed after compilation" requirement.
func (s *Sink) Flush(w io.Writer) error {
	sorted := make([]Diagnostic, len(s.entries))
	copy(sorted, s.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Loc.File != sorted[j].Loc.File {
			return sorted[i].Loc.File < sorted[j].Loc.File
		}
		if sorted[i].Loc.Line != sorted[j].Loc.Line {
			return sorted[i].Loc.Line < sorted[j].Loc.Line
		}
		return sorted[i].Severity > sorted[j].Severity
	})
	for _, d := range sorted {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	s.entries = nil
	return nil
}
