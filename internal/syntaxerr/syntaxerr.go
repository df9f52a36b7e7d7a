// Package syntaxerr formats parse-time failures the way the embedding host
// expects them: a single-line summary of the form
// "Exc: (L-C to L-C) Kind: message", per spec.md section 6's test harness
// contract. Grounded on the teacher's internal/errors.CompilerError, but
// reduced to the one-line wire format the original Rust implementation's
// test suite pins down (original_source/tests/main.rs).
package syntaxerr

import "fmt"

// ParseError is returned from Compile when the source text cannot be turned
// into a Program. It is never raised during Run — spec.md 7 is explicit
// that parse errors are reported separately from runtime exceptions.
type ParseError struct {
	StartLine, StartCol int
	EndLine, EndCol     int
	Kind                string
	Message             string
}

func New(kind string, startLine, startCol, endLine, endCol int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:      kind,
		StartLine: startLine, StartCol: startCol,
		EndLine: endLine, EndCol: endCol,
		Message: fmt.Sprintf(format, args...),
	}
}

// Summary renders the single-line diagnostic spec.md's test harness
// expects: "Exc: (L-C to L-C) Kind: message".
func (e *ParseError) Summary() string {
	return fmt.Sprintf("Exc: (%d-%d to %d-%d) %s: %s", e.StartLine, e.StartCol, e.EndLine, e.EndCol, e.Kind, e.Message)
}

func (e *ParseError) Error() string { return e.Summary() }
