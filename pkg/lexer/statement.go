package lexer

import (
	"golang.org/x/net/html/atom"

	"github.com/walteh/gopug/pkg/indent"
	"github.com/walteh/gopug/pkg/token"
)

// statement lexes one logical line starting at its first non-blank byte.
func (l *lexer) statement(col int) {
	switch c := l.peek(0); {
	case l.hasPrefix("//-"):
		l.comment(token.UnbufferedComment)
	case l.hasPrefix("//"):
		l.comment(token.Comment)
	case c == '|':
		l.emitTo(token.Pipe, l.pos+1)
		l.blanks(token.Whitespace)
		l.rest(token.Text)
	case c == '<':
		l.rest(token.Text)
	case c == '=' || l.hasPrefix("!="):
		l.expressionLine()
	case c == '-':
		l.code()
	case c == '+':
		l.emitTo(token.Plus, l.pos+1)
		if isIdentStart(l.peek(0)) {
			l.tag(col, true)
		} else {
			l.rest(token.Text)
		}
	case c == ':':
		if isIdentStart(l.peek(1)) {
			l.filter()
		} else {
			l.rest(token.Text)
		}
	case c == '#' && isIdentStart(l.peek(1)):
		l.tagTail(col, "", false)
	case c == '.' && isIdentStart(l.peek(1)):
		l.tagTail(col, "", false)
	case isIdentStart(c):
		l.word(col)
	default:
		l.rest(token.Text)
	}
}

func (l *lexer) comment(kind token.Kind) {
	l.rest(kind)
	l.block = pendingBlock{mode: blockContinue, kind: kind}
}

// expressionLine lexes `= expr` and `!= expr`.
func (l *lexer) expressionLine() {
	if l.peek(0) == '!' {
		l.emitTo(token.NEq, l.pos+2)
	} else {
		l.emitTo(token.Eq, l.pos+1)
	}
	l.blanks(token.Whitespace)
	l.rest(token.JSExpr)
}

// code lexes `- statement`; a bare `-` owns an indented code block.
func (l *lexer) code() {
	if indent.IsBlank(l.src[l.pos+1 : l.lineEnd(l.pos)]) {
		l.emitTo(token.JSMetaCode, l.pos+1)
		l.blanks(token.Whitespace)
		l.block = pendingBlock{mode: blockContent, kind: token.JSCodeBlock}
		return
	}
	l.rest(token.JSMetaCode)
}

// filter lexes `:name(attrs):nested inline text`.
func (l *lexer) filter() {
	for l.peek(0) == ':' && isIdentStart(l.peek(1)) {
		l.emitTo(token.Colon, l.pos+1)
		l.ident(token.FilterName)
		if l.peek(0) == '(' {
			l.attrs()
		}
	}
	l.blanks(token.Whitespace)
	if l.atLineEnd() {
		l.block = pendingBlock{mode: blockContent, kind: token.FilterCode}
		return
	}
	l.rest(token.FilterCode)
	l.block = pendingBlock{mode: blockContinue, kind: token.FilterCode}
}

// ident emits the identifier at pos as kind and returns its text.
func (l *lexer) ident(kind token.Kind) string {
	start := l.pos
	end := start
	for end < len(l.src) && isIdentChar(l.src[end]) {
		end++
	}
	l.emitTo(kind, end)
	return l.src[start:end]
}

func (l *lexer) wordAt() string {
	end := l.pos
	for end < len(l.src) && isIdentChar(l.src[end]) {
		end++
	}
	return l.src[l.pos:end]
}

// keywordEnds reports whether the byte after a word of length n lets it act as a keyword.
func (l *lexer) keywordEnds(n int, extra byte) bool {
	c := l.peek(n)
	return c == 0 || c == ' ' || c == '\t' || c == '\r' || c == '\n' || (extra != 0 && c == extra)
}

func (l *lexer) word(col int) {
	w := l.wordAt()
	n := len(w)

	switch {
	case w == "doctype" && l.keywordEnds(n, 0):
		l.keywordThen(token.DoctypeKeyword, n, token.Text)
	case (w == "if" || w == "unless") && l.keywordEnds(n, 0):
		l.keywordThen(token.CondKeyword, n, token.JSExpr)
	case w == "else" && l.keywordEnds(n, 0):
		l.emitTo(token.ElseKeyword, l.pos+n)
		l.blanks(token.Whitespace)
		if next := l.wordAt(); next == "if" || next == "unless" {
			if l.keywordEnds(len(next), 0) {
				l.keywordThen(token.CondKeyword, len(next), token.JSExpr)
			}
		}
	case (w == "each" || w == "for" || w == "while") && l.keywordEnds(n, 0):
		l.keywordThen(token.EachKeyword, n, token.JSEachExpr)
	case w == "case" && l.keywordEnds(n, 0):
		l.keywordThen(token.CaseKeyword, n, token.JSExpr)
	case w == "when" && l.keywordEnds(n, 0):
		l.emitTo(token.WhenKeyword, l.pos+n)
		l.blanks(token.Whitespace)
		l.whenExpr()
		l.blockExpansion(col)
	case w == "default" && l.keywordEnds(n, ':'):
		l.emitTo(token.DefaultKeyword, l.pos+n)
		l.blockExpansion(col)
	case w == "include" && l.keywordEnds(n, ':'):
		l.include()
	case (w == "extends" || w == "extend") && l.keywordEnds(n, 0):
		l.keywordThen(token.ExtendsKeyword, n, token.FilePath)
	case w == "mixin" && l.keywordEnds(n, 0):
		l.mixinDecl()
	case w == "yield" && l.keywordEnds(n, 0):
		l.keywordThen(token.YieldKeyword, n, token.Text)
	default:
		l.tag(col, false)
	}
}

// keywordThen emits a keyword of width n and lexes the rest of the line as tail.
func (l *lexer) keywordThen(kw token.Kind, n int, tail token.Kind) {
	l.emitTo(kw, l.pos+n)
	l.blanks(token.Whitespace)
	l.rest(tail)
}

// whenExpr lexes the expression of a when branch, stopping at a top-level `: `.
func (l *lexer) whenExpr() {
	end := l.lineEnd(l.pos)
	depth := 0
	var quote byte
	for i := l.pos; i < end; i++ {
		c := l.src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ':' && depth <= 0 && (i+1 == end || isBlank(l.src[i+1])):
			l.emitTo(token.JSExpr, i)
			return
		}
	}
	l.emitTo(token.JSExpr, end)
}

// blockExpansion lexes `: statement` after a header.
func (l *lexer) blockExpansion(col int) {
	if l.peek(0) != ':' {
		l.blanks(token.Whitespace)
		return
	}
	l.emitTo(token.Colon, l.pos+1)
	l.blanks(token.Whitespace)
	if !l.atLineEnd() {
		l.statement(col)
	}
}

func (l *lexer) include() {
	l.emitTo(token.IncludeKeyword, l.pos+len("include"))
	if l.peek(0) == ':' && isIdentStart(l.peek(1)) {
		l.emitTo(token.Colon, l.pos+1)
		l.ident(token.FilterName)
		if l.peek(0) == '(' {
			l.attrs()
		}
	}
	l.blanks(token.Whitespace)
	l.rest(token.FilePath)
}

func (l *lexer) mixinDecl() {
	l.emitTo(token.MixinKeyword, l.pos+len("mixin"))
	l.blanks(token.Whitespace)
	if isIdentStart(l.peek(0)) {
		l.ident(token.Identifier)
	}
	if l.peek(0) == '(' {
		l.emitTo(token.JSMixinParams, l.matchParen(l.pos))
	}
	l.blanks(token.Whitespace)
}

// tag lexes a tag or mixin call name followed by its tail.
func (l *lexer) tag(col int, mixin bool) {
	name := l.ident(token.TagName)
	l.tagTail(col, name, mixin)
}

// tagTail lexes id/class shorthands, attribute lists and whatever ends the
// tag header.
func (l *lexer) tagTail(col int, name string, mixin bool) {
	raw := contentKind(name)
	argsDone := !mixin
	if raw != 0 {
		l.block = pendingBlock{mode: blockContent, kind: raw}
	}

	for !l.atLineEnd() {
		c := l.peek(0)
		switch {
		case c == '#' && isIdentStart(l.peek(1)):
			end := l.pos + 1
			for end < len(l.src) && isIdentChar(l.src[end]) {
				end++
			}
			l.emitTo(token.TagID, end)
		case c == '.' && isIdentStart(l.peek(1)):
			l.emitTo(token.Dot, l.pos+1)
			l.ident(token.TagClass)
		case c == '.':
			l.emitTo(token.Dot, l.pos+1)
			if !l.restIsBlank() {
				l.rest(token.Text)
				return
			}
			l.blanks(token.Whitespace)
			if raw != 0 {
				l.block = pendingBlock{mode: blockContent, kind: raw}
			} else {
				l.block = pendingBlock{mode: blockText}
			}
			return
		case c == '(' && !argsDone:
			argsDone = true
			end := l.matchParen(l.pos)
			l.emitTo(token.LParen, l.pos+1)
			if end > l.pos && l.src[end-1] == ')' {
				l.emitTo(token.JSMixinParamsValues, end-1)
				l.emitTo(token.RParen, end)
			} else {
				l.emitTo(token.JSMixinParamsValues, end)
			}
		case c == '(':
			l.attrs()
		case c == ':' && (isBlank(l.peek(1)) || l.peek(1) == 0):
			l.emitTo(token.Colon, l.pos+1)
			l.blanks(token.Whitespace)
			if !l.atLineEnd() {
				l.block = pendingBlock{}
				l.statement(col)
			}
			return
		case c == '=':
			l.expressionLine()
			return
		case c == '!' && l.peek(1) == '=':
			l.expressionLine()
			return
		case isBlank(c):
			l.blanks(token.Whitespace)
			if !l.atLineEnd() {
				l.rest(token.Text)
			}
			return
		default:
			l.rest(token.Text)
			return
		}
	}
}

// contentKind returns the raw content kind owned by an element name, or zero.
func contentKind(name string) token.Kind {
	switch atom.Lookup([]byte(name)) {
	case atom.Script:
		return token.JSCodeBlock
	case atom.Style:
		return token.StyleBlock
	}
	return 0
}
