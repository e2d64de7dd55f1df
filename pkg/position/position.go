package position

import (
	"fmt"
	"sort"

	"github.com/apparentlymart/go-textseg/v13/textseg"
)

// Place is a zero-based line and character pair. Character counts grapheme
// clusters, not bytes.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Span is a half-open byte interval [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// At returns the empty span at offset.
func At(offset int) Span {
	return Span{Start: offset, End: offset}
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

// Contains reports whether other lies within s. Empty spans on either edge count as contained.
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Cover returns the smallest span containing both s and other.
func (s Span) Cover(other Span) Span {
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

func (s Span) Shift(n int) Span {
	return Span{Start: s.Start + n, End: s.End + n}
}

// Overlaps reports whether the two spans share at least one byte. A zero-length
// span overlaps when it falls inside the other range.
func (s Span) Overlaps(other Span) bool {
	if s.Empty() {
		return s.Start >= other.Start && s.Start <= other.End
	}
	if other.Empty() {
		return other.Start >= s.Start && other.Start <= s.End
	}
	return other.Start < s.End && other.End > s.Start
}

// Text slices src by the span, clamping to the bounds of src.
func (s Span) Text(src string) string {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if start >= end {
		return ""
	}
	return src[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Locator converts byte offsets into line/character places for one source text.
type Locator struct {
	text       string
	lineStarts []int
}

func NewLocator(text string) *Locator {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Locator{text: text, lineStarts: starts}
}

// Place returns the zero-based line and character of offset. Offsets past the
// end of the text are clamped.
func (l *Locator) Place(offset int) Place {
	if offset < 0 {
		offset = 0
	}
	if offset > len(l.text) {
		offset = len(l.text)
	}
	line := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	}) - 1

	start := l.lineStarts[line]
	col, err := textseg.TokenCount([]byte(l.text[start:offset]), textseg.ScanGraphemeClusters)
	if err != nil {
		// invalid utf-8 falls back to bytes
		col = offset - start
	}
	return Place{Line: line, Character: col}
}

func (l *Locator) Range(s Span) Range {
	return Range{Start: l.Place(s.Start), End: l.Place(s.End)}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (l *Locator) LineCount() int {
	return len(l.lineStarts)
}
