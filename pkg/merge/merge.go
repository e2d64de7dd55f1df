// Package merge coalesces runs of raw fragment tokens into single logical tokens.
package merge

import (
	"iter"
	"slices"
	"strings"

	"github.com/walteh/gopug/pkg/position"
	"github.com/walteh/gopug/pkg/token"
)

// Merge collapses every maximal run of same-kind mergeable tokens into one
// token spanning the run. Line breaks are special: any run of EOL and Indent
// tokens becomes a single token whose text starts at the first newline and
// ends with the last line's leading whitespace, so indent measurement always
// sees exactly one line's worth of indentation at the end. The merged kind is
// Indent when that trailing whitespace is non-empty, EOL otherwise.
func Merge(in iter.Seq[token.Token]) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		var run []token.Token

		flush := func() bool {
			if len(run) == 0 {
				return true
			}
			t := join(run)
			run = run[:0]
			return yield(t)
		}

		for t := range in {
			if len(run) > 0 && !continues(run[0].Kind, t.Kind) {
				if !flush() {
					return
				}
			}
			if token.Mergeable.Has(t.Kind) {
				run = append(run, t)
				continue
			}
			if !yield(t) {
				return
			}
		}
		flush()
	}
}

// Tokens is Merge over a slice.
func Tokens(in []token.Token) []token.Token {
	return slices.Collect(Merge(slices.Values(in)))
}

func continues(head, next token.Kind) bool {
	if token.IsLineBreak(head) {
		return token.IsLineBreak(next)
	}
	return head == next
}

func join(run []token.Token) token.Token {
	if len(run) == 1 && !token.IsLineBreak(run[0].Kind) {
		return run[0]
	}

	var sb strings.Builder
	for _, t := range run {
		sb.WriteString(t.Text)
	}
	out := token.Token{
		Kind: run[0].Kind,
		Span: position.NewSpan(run[0].Span.Start, run[len(run)-1].Span.End),
		Text: sb.String(),
	}
	if token.IsLineBreak(out.Kind) {
		out.Kind = lineBreakKind(out.Text)
	}
	return out
}

func lineBreakKind(text string) token.Kind {
	last := text[strings.LastIndexByte(text, '\n')+1:]
	if strings.TrimRight(last, "\r") == "" {
		return token.EOL
	}
	return token.Indent
}
