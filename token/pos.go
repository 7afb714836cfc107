package token

import "fmt"

// Pos is a 1-based line/column position together with the 0-based byte
// offset it corresponds to in the source buffer.
type Pos struct {
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open [Start, End) byte range plus the Pos of its first
// byte, used for diagnostics and for the C backend's #line directives.
type Span struct {
	Start, End int
	Pos        Pos
}

func NewSpan(start, end int, pos Pos) Span {
	return Span{Start: start, End: end, Pos: pos}
}

func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d", s.Start)
	}
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// LineIndex converts byte offsets to 1-based line/column pairs in O(log
// lines) after an O(n) build, the same shape as a grammar compiler's
// line-index used for diagnostic rendering.
type LineIndex struct {
	lineStart []int
}

func NewLineIndex(src []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range src {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{lineStart: lineStart}
}

func (li *LineIndex) At(offset int) Pos {
	lo, hi := 0, len(li.lineStart)-1
	line := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if li.lineStart[mid] <= offset {
			line = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return Pos{Line: line + 1, Column: offset - li.lineStart[line] + 1, Offset: offset}
}
