// Package interp finds #{...} and !{...} interpolations inside text-bearing
// tokens and exposes them as separate tokens without losing source offsets.
package interp

import (
	"iter"
	"strings"

	"github.com/walteh/gopug/pkg/position"
	"github.com/walteh/gopug/pkg/token"
)

// Span is one interpolation found in a buffer. Outer covers the delimiters,
// Inner only the expression. Both are relative to the scanned buffer.
type Span struct {
	Outer position.Span
	Inner position.Span
	// Unescaped is true for !{...}.
	Unescaped bool
}

// Filler replaces interpolation interiors in a masked buffer.
const Filler = '_'

// FindStart returns the offset of the next unescaped `#{` or `!{` at or after
// from, or -1.
func FindStart(text string, from int) int {
	for i := from; i+1 < len(text); i++ {
		if (text[i] == '#' || text[i] == '!') && text[i+1] == '{' {
			if i > 0 && text[i-1] == '\\' {
				continue
			}
			return i
		}
	}
	return -1
}

// matchClose returns the offset of the brace closing the one opened just
// before from, or -1 when the buffer ends first.
func matchClose(text string, from int) int {
	balance := 1
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '{':
			balance++
		case '}':
			balance--
			if balance == 0 {
				return i
			}
		}
	}
	return -1
}

// Find returns every well-formed interpolation in text, in order. An opening
// delimiter without a matching close is literal text and ends the scan.
func Find(text string) []Span {
	var spans []Span
	for cursor := 0; cursor < len(text); {
		start := FindStart(text, cursor)
		if start < 0 {
			break
		}
		end := matchClose(text, start+2)
		if end < 0 {
			break
		}
		spans = append(spans, Span{
			Outer:     position.NewSpan(start, end+1),
			Inner:     position.NewSpan(start+2, end),
			Unescaped: text[start] == '!',
		})
		cursor = end + 1
	}
	return spans
}

// Mask returns text with every interpolation interior overwritten by Filler.
// The result has the same length, so offsets of everything outside the
// interiors are unchanged and a delegate lexer sees neutral filler instead
// of host-language expressions.
func Mask(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}
	b := []byte(text)
	for _, s := range spans {
		for i := s.Inner.Start; i < s.Inner.End; i++ {
			b[i] = Filler
		}
	}
	return string(b)
}

// Remap maps tokens produced from a masked buffer back onto the original
// text. base is the absolute offset of the buffer. Tokens overlapping an
// interpolation are cut around it, and the interpolation itself becomes an
// Interpolation token flanked by the kind of the token it interrupted.
func Remap(text string, base int, delegate []token.Token, spans []Span) []token.Token {
	var out []token.Token
	si := 0
	emit := func(kind token.Kind, start, end int) {
		if end > start {
			out = append(out, token.New(kind, text, start, end).Shifted(base))
		}
	}

	covered := 0
	for _, d := range delegate {
		cur := max(d.Span.Start, covered)
		for si < len(spans) && spans[si].Outer.Start < d.Span.End {
			s := spans[si]
			emit(d.Kind, cur, s.Outer.Start)
			out = append(out, interpolation(text, base, s, d.Kind))
			cur = s.Outer.End
			covered = cur
			si++
		}
		emit(d.Kind, cur, d.Span.End)
	}
	return out
}

func interpolation(text string, base int, s Span, flank token.Kind) token.Token {
	t := token.New(token.Interpolation, text, s.Outer.Start, s.Outer.End).Shifted(base)
	t.Flank = flank
	t.Inner = s.Inner.Shift(base)
	return t
}

// Split cuts the interpolations out of one token. Tokens of other kinds, and
// tokens without interpolations, are returned unchanged.
func Split(t token.Token) []token.Token {
	if !token.Interpolating.Has(t.Kind) || !strings.ContainsRune(t.Text, '{') {
		return []token.Token{t}
	}
	spans := Find(t.Text)
	if len(spans) == 0 {
		return []token.Token{t}
	}
	whole := token.New(t.Kind, t.Text, 0, len(t.Text))
	return Remap(t.Text, t.Span.Start, []token.Token{whole}, spans)
}

// Splitter is the stream stage: every interpolating token is replaced by its
// literal parts and Interpolation tokens.
func Splitter(in iter.Seq[token.Token]) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for t := range in {
			for _, part := range Split(t) {
				if !yield(part) {
					return
				}
			}
		}
	}
}

// Reconstruct joins literal text and interpolations back into the buffer
// they came from.
func Reconstruct(text string, spans []Span) string {
	var sb strings.Builder
	cursor := 0
	for _, s := range spans {
		sb.WriteString(text[cursor:s.Outer.Start])
		sb.WriteString(text[s.Outer.Start:s.Inner.Start])
		sb.WriteString(text[s.Inner.Start:s.Inner.End])
		sb.WriteString(text[s.Inner.End:s.Outer.End])
		cursor = s.Outer.End
	}
	sb.WriteString(text[cursor:])
	return sb.String()
}
