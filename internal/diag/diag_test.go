package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gmofishsauce/kcc/internal/token"
)

func TestHasErrorsOnlyTriggeredByErrorOrFatal(t *testing.T) {
	s := NewSink()
	s.Report(Note, CodeUnspecified, token.Loc{}, "just a note")
	s.Report(Warning, CodeParse, token.Loc{}, "just a warning")
	if s.HasErrors() {
		t.Fatalf("notes and warnings alone must not set HasErrors")
	}
	s.Report(Error, CodeSemantic, token.Loc{}, "a real error")
	if !s.HasErrors() {
		t.Fatalf("an Error-severity diagnostic must set HasErrors")
	}
}

func TestReportNeverPanics(t *testing.T) {
	s := NewSink()
	s.Report(Fatal, CodeCodeGen, token.Loc{File: "a.c", Line: 1}, "unrecoverable: %s", "oops")
	if len(s.Entries()) != 1 {
		t.Fatalf("Report must accumulate, not abort: got %d entries", len(s.Entries()))
	}
}

func TestFlushOrdersByLocationThenSeverity(t *testing.T) {
	s := NewSink()
	s.Report(Warning, CodeParse, token.Loc{File: "b.c", Line: 1}, "b warning")
	s.Report(Error, CodeParse, token.Loc{File: "a.c", Line: 5}, "a line5 error")
	s.Report(Note, CodeParse, token.Loc{File: "a.c", Line: 5}, "a line5 note")
	s.Report(Error, CodeParse, token.Loc{File: "a.c", Line: 2}, "a line2 error")

	var buf bytes.Buffer
	if err := s.Flush(&buf); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %v", len(lines), lines)
	}
	// a.c:2 first, then a.c:5 (error before note), then b.c:1
	if !strings.Contains(lines[0], "a.c:2") {
		t.Errorf("line 0 = %q, want a.c:2 first", lines[0])
	}
	if !strings.Contains(lines[1], "a.c:5") || !strings.Contains(lines[1], "error") {
		t.Errorf("line 1 = %q, want a.c:5 error before note", lines[1])
	}
	if !strings.Contains(lines[2], "a.c:5") || !strings.Contains(lines[2], "note") {
		t.Errorf("line 2 = %q, want a.c:5 note after error", lines[2])
	}
	if !strings.Contains(lines[3], "b.c:1") {
		t.Errorf("line 3 = %q, want b.c:1 last", lines[3])
	}
}

func TestFlushClearsTheSink(t *testing.T) {
	s := NewSink()
	s.Report(Error, CodeParse, token.Loc{}, "boom")
	var buf bytes.Buffer
	if err := s.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	if s.HasErrors() {
		t.Fatalf("Flush must clear accumulated diagnostics")
	}
	if len(s.Entries()) != 0 {
		t.Fatalf("Entries() after Flush = %d, want 0", len(s.Entries()))
	}
}
