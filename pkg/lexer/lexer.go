// Package lexer is the raw tokenizer for the template language. It produces
// gap-free, non-overlapping primitive tokens; runs of fragments are left for
// the merge stage to collapse.
package lexer

import (
	"iter"
	"slices"

	"github.com/walteh/gopug/pkg/indent"
	"github.com/walteh/gopug/pkg/token"
)

type blockMode int

const (
	blockNone blockMode = iota
	// blockText lines are plain text until the dedent (tag.)
	blockText
	// blockContinue appends each deeper line to the header token's kind (comments, inline filters)
	blockContinue
	// blockContent starts a new content token on the first deeper line (script, style, filters, -)
	blockContent
)

type pendingBlock struct {
	mode blockMode
	kind token.Kind
}

type lexer struct {
	src      string
	tabWidth int
	pos      int
	toks     []token.Token

	// textUntil is the end offset of the current pipeless text block.
	textUntil int
	block     pendingBlock
}

// Lex tokenizes src. tabWidth is used to decide which lines belong to an
// indented raw block.
func Lex(src string, tabWidth int) []token.Token {
	l := &lexer{src: src, tabWidth: tabWidth}
	l.run()
	return l.toks
}

// Tokenize is Lex exposed as a token stream.
func Tokenize(src string, tabWidth int) iter.Seq[token.Token] {
	return slices.Values(Lex(src, tabWidth))
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		lineStart := l.pos
		l.blanks(token.Indent)
		if l.atLineEnd() {
			l.newline()
			continue
		}
		if lineStart < l.textUntil {
			l.rest(token.Text)
			l.newline()
			continue
		}

		col := indent.Measure(l.src, lineStart, l.tabWidth)
		l.block = pendingBlock{}
		l.statement(col)
		if !l.atLineEnd() {
			l.rest(token.Text)
		}
		l.finishBlock(col)
		l.newline()
	}
}

func (l *lexer) emit(kind token.Kind, start, end int) {
	if end <= start {
		return
	}
	l.toks = append(l.toks, token.New(kind, l.src, start, end))
}

// emitTo emits [l.pos, end) and advances.
func (l *lexer) emitTo(kind token.Kind, end int) {
	l.emit(kind, l.pos, end)
	if end > l.pos {
		l.pos = end
	}
}

// lineEnd returns the offset of the line terminator at or after pos.
func (l *lexer) lineEnd(pos int) int {
	for i := pos; i < len(l.src); i++ {
		if l.src[i] == '\n' {
			if i > pos && l.src[i-1] == '\r' {
				return i - 1
			}
			return i
		}
	}
	return len(l.src)
}

// newlineLen returns the width of the line terminator at pos, or zero.
func (l *lexer) newlineLen(pos int) int {
	if pos < len(l.src) && l.src[pos] == '\n' {
		return 1
	}
	if pos+1 < len(l.src) && l.src[pos] == '\r' && l.src[pos+1] == '\n' {
		return 2
	}
	return 0
}

func (l *lexer) atLineEnd() bool {
	return l.pos >= len(l.src) || l.newlineLen(l.pos) > 0
}

func (l *lexer) newline() {
	if n := l.newlineLen(l.pos); n > 0 {
		l.emitTo(token.EOL, l.pos+n)
	}
}

// blanks emits the run of spaces and tabs at pos.
func (l *lexer) blanks(kind token.Kind) {
	end := l.pos
	for end < len(l.src) && isBlank(l.src[end]) {
		end++
	}
	l.emitTo(kind, end)
}

// rest emits everything up to the end of the line.
func (l *lexer) rest(kind token.Kind) {
	l.emitTo(kind, l.lineEnd(l.pos))
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) hasPrefix(s string) bool {
	return len(l.src)-l.pos >= len(s) && l.src[l.pos:l.pos+len(s)] == s
}

// restIsBlank reports whether only blanks remain on the current line.
func (l *lexer) restIsBlank() bool {
	return indent.IsBlank(l.src[l.pos:l.lineEnd(l.pos)])
}

// blockEnd returns the end offset of the last line after from whose indent
// exceeds owner, skipping interior blank lines. It returns -1 when the next
// non-blank line is not deeper.
func (l *lexer) blockEnd(from, owner int) int {
	end := -1
	p := from
	for {
		n := l.newlineLen(p)
		if n == 0 {
			return end
		}
		start := p + n
		le := l.lineEnd(start)
		if !indent.IsBlank(l.src[start:le]) {
			if indent.Measure(l.src, start, l.tabWidth) <= owner {
				return end
			}
			end = le
		}
		p = le
	}
}

func (l *lexer) finishBlock(col int) {
	switch l.block.mode {
	case blockText:
		if end := l.blockEnd(l.pos, col); end > 0 {
			l.textUntil = end
		}
	case blockContinue:
		if end := l.blockEnd(l.pos, col); end > 0 {
			l.fragments(l.block.kind, end)
		}
	case blockContent:
		if end := l.blockEnd(l.pos, col); end > 0 {
			l.content(l.block.kind, end)
		}
	}
	l.block = pendingBlock{}
}

// fragments emits one token of kind per line up to end. Each fragment starts
// with the line terminator before it.
func (l *lexer) fragments(kind token.Kind, end int) {
	for l.pos < end {
		start := l.pos + l.newlineLen(l.pos)
		le := l.lineEnd(start)
		if le > end {
			le = end
		}
		l.emitTo(kind, le)
	}
}

// content emits the line breaks leading to the first non-blank line, then the
// block as fragments of kind.
func (l *lexer) content(kind token.Kind, end int) {
	for l.pos < end {
		l.newline()
		l.blanks(token.Indent)
		if !l.atLineEnd() {
			break
		}
	}
	if l.pos >= end {
		return
	}
	l.emitTo(kind, l.lineEnd(l.pos))
	l.fragments(kind, end)
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}
