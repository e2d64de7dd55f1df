package lexer

import (
	"github.com/walteh/gopug/pkg/indent"
	"github.com/walteh/gopug/pkg/token"
)

// matchParen returns the offset just past the parenthesis matching the one at
// open. Quotes and nested brackets are skipped; only backtick strings cross
// line breaks. The group may continue on following lines that are deeper than
// the opening line or start with a closing bracket. When it never closes, the
// end of the opening line is returned instead.
func (l *lexer) matchParen(open int) int {
	lineStart := open
	for lineStart > 0 && l.src[lineStart-1] != '\n' {
		lineStart--
	}
	header := indent.Measure(l.src, lineStart, l.tabWidth)

	depth := 0
	var quote byte
	for i := open; i < len(l.src); i++ {
		c := l.src[i]
		if c == '\n' {
			if quote != '`' {
				quote = 0
			}
			if !l.continuesGroup(i+1, header) {
				break
			}
			continue
		}
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(l.src) && l.src[i+1] != '\n' {
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
			if depth == 0 {
				return i + 1
			}
		}
	}
	return l.lineEnd(open)
}

// continuesGroup reports whether the line at start can carry on a bracketed
// group opened on a line indented to header. Blank lines always can.
func (l *lexer) continuesGroup(start, header int) bool {
	le := l.lineEnd(start)
	if indent.IsBlank(l.src[start:le]) {
		return true
	}
	if indent.Measure(l.src, start, l.tabWidth) > header {
		return true
	}
	first := start
	for isBlank(l.src[first]) {
		first++
	}
	switch l.src[first] {
	case ')', ']', '}':
		return true
	}
	return false
}

// attrs lexes a parenthesized attribute list. The list may span lines; line
// breaks inside it are whitespace. An unterminated list stops at the end of
// the opening line.
func (l *lexer) attrs() {
	limit := l.matchParen(l.pos)
	l.emitTo(token.LParen, l.pos+1)

	afterEq := false
	for l.pos < limit {
		c := l.peek(0)
		switch {
		case c == ')':
			l.emitTo(token.RParen, l.pos+1)
			return
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			end := l.pos
			for end < limit && (l.src[end] == ' ' || l.src[end] == '\t' || l.src[end] == '\n' || l.src[end] == '\r') {
				end++
			}
			l.emitTo(token.Whitespace, end)
		case c == ',':
			l.emitTo(token.Comma, l.pos+1)
			afterEq = false
		case c == '=':
			l.emitTo(token.Eq, l.pos+1)
			afterEq = true
		case c == '!' && l.peek(1) == '=':
			l.emitTo(token.NEq, l.pos+2)
			afterEq = true
		case c == '"' || c == '\'' || c == '`':
			l.quoted(limit)
			afterEq = false
		case afterEq:
			l.emitTo(token.AttrValue, l.unquotedEnd(limit))
			afterEq = false
		default:
			end := l.pos
			for end < limit && isAttrNameChar(l.src[end]) {
				if l.src[end] == '!' && end+1 < limit && l.src[end+1] == '=' {
					break
				}
				end++
			}
			if end == l.pos {
				end++
				l.emitTo(token.Illegal, end)
				continue
			}
			l.emitTo(token.AttrName, end)
		}
	}
}

// quoted lexes a string value as opening quote, body and closing quote
// fragments, all AttrValue.
func (l *lexer) quoted(limit int) {
	q := l.src[l.pos]
	l.emitTo(token.AttrValue, l.pos+1)
	end := l.pos
	for end < limit && l.src[end] != q {
		if l.src[end] == '\\' && end+1 < limit {
			end++
		} else if l.src[end] == '\n' && q != '`' {
			break
		}
		end++
	}
	l.emitTo(token.AttrValue, end)
	if end < limit && l.src[end] == q {
		l.emitTo(token.AttrValue, end+1)
	}
}

// unquotedEnd finds the end of an unquoted value expression. It stops at a
// top-level comma or closing parenthesis, at a line break, or at blanks
// followed by what looks like the next attribute name.
func (l *lexer) unquotedEnd(limit int) int {
	depth := 0
	var quote byte
	i := l.pos
	for ; i < limit; i++ {
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
		case (c == ')' || c == ']' || c == '}') && depth > 0:
			depth--
		case depth > 0:
		case c == ',' || c == ')' || c == '\n' || c == '\r':
			return i
		case isBlank(c):
			j := i
			for j < limit && isBlank(l.src[j]) {
				j++
			}
			if j < limit && isIdentStart(l.src[j]) && endsOperand(l.src[i-1]) {
				return i
			}
		}
	}
	if i > limit {
		return limit
	}
	return i
}

// endsOperand reports whether c can end a complete value, so that a following
// identifier starts a new attribute instead of continuing the expression.
func endsOperand(c byte) bool {
	return isIdentChar(c) || c == '"' || c == '\'' || c == '`' || c == ')' || c == ']' || c == '}'
}

func isAttrNameChar(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ',', '(', ')', '=', '"', '\'', '`':
		return false
	}
	return true
}
