// Package diag accumulates lexer/parser/compiler diagnostics across a
// compilation unit instead of stopping at the first error, per
// SPEC_FULL.md §4.2/§4.6/§7. Grounded on
// _examples/other_examples/acaada3d_rami3l-golox__vm-compiler.go.go's
// `Parser.errors *multierror.Error` / `multierror.Append` pattern.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/hemlock-lang/hemlock/token"
)

// Severity distinguishes a parse/compile-time diagnostic from a fatal
// condition; only the latter triggers the §7 "Runtime (fatal)" path.
type Severity int

const (
	SevError Severity = iota
	SevWarning
)

// Diagnostic is one accumulated error, formatted per §6's
// "error[: <file>:<line>]: <message>".
type Diagnostic struct {
	File    string
	Line    int
	Message string
	Sev     Severity
}

func (d Diagnostic) Error() string {
	if d.File != "" {
		return fmt.Sprintf("error: %s:%d: %s", d.File, d.Line, d.Message)
	}
	return fmt.Sprintf("error: %s", d.Message)
}

// Bag accumulates diagnostics for one compilation unit. It is the
// parser's and compiler's error sink: both keep appending and never
// abort early, matching §4.2's "errors never abort parsing" and §4.6's
// "accumulates errors with source-line context".
type Bag struct {
	file string
	errs *multierror.Error
}

func NewBag(file string) *Bag {
	return &Bag{file: file}
}

func (b *Bag) Addf(span token.Span, format string, args ...any) {
	b.errs = multierror.Append(b.errs, Diagnostic{
		File:    b.file,
		Line:    span.Pos.Line,
		Message: fmt.Sprintf(format, args...),
	})
}

func (b *Bag) Count() int {
	if b.errs == nil {
		return 0
	}
	return len(b.errs.Errors)
}

func (b *Bag) Err() error {
	if b.Count() == 0 {
		return nil
	}
	return b.errs
}

// String renders every diagnostic in §6's format, one per line.
func (b *Bag) String() string {
	if b.errs == nil {
		return ""
	}
	var sb strings.Builder
	for _, e := range b.errs.Errors {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
