package ccodegen

import "strings"

// outputWriter accumulates generated C source with tracked indentation,
// grounded on _examples/clarete-langlang/go/gen.go's outputWriter (the
// same write/writei/writel/indent/unindent vocabulary, generalized from
// emitting a parser body to emitting arbitrary C statements).
type outputWriter struct {
	buffer      *strings.Builder
	indentLevel int
	space       string
}

func newOutputWriter(space string) *outputWriter {
	return &outputWriter{buffer: &strings.Builder{}, space: space}
}

func (o *outputWriter) indent()   { o.indentLevel++ }
func (o *outputWriter) unindent() { o.indentLevel-- }

func (o *outputWriter) writeIndent() {
	for i := 0; i < o.indentLevel; i++ {
		o.buffer.WriteString(o.space)
	}
}

// writei writes s with a leading indent and no trailing newline.
func (o *outputWriter) writei(s string) {
	o.writeIndent()
	o.write(s)
}

// writeil writes s with a leading indent and a trailing newline.
func (o *outputWriter) writeil(s string) {
	o.writeIndent()
	o.write(s)
	o.write("\n")
}

// writel writes s with a trailing newline and no leading indent (used
// for continuing a partial line already indented by a prior writei).
func (o *outputWriter) writel(s string) {
	o.write(s)
	o.buffer.WriteString("\n")
}

func (o *outputWriter) write(s string) { o.buffer.WriteString(s) }

func (o *outputWriter) String() string { return o.buffer.String() }
