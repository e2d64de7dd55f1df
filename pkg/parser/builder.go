package parser

import (
	"fmt"

	"github.com/walteh/gopug/pkg/diagnostic"
	"github.com/walteh/gopug/pkg/position"
	"github.com/walteh/gopug/pkg/token"
)

// frame is an open node: where it started and the children closed so far.
type frame struct {
	pos      int // token index
	offset   int // source offset, used when the node ends up empty
	children []*Node
}

// marker is a handle on an open frame. Markers close in LIFO order; closing
// one out of order is a bug in the parser and panics.
type marker struct {
	p     *parser
	level int
}

// cursor is the token position plus the stack of open nodes. Whitespace
// tokens are trivia: the cursor never rests on them and they never become
// leaves.
type cursor struct {
	src   string
	toks  []token.Token
	pos   int
	stack []*frame
	root  *Node
}

func (c *cursor) skipTrivia() {
	for c.pos < len(c.toks) && c.toks[c.pos].Kind == token.Whitespace {
		c.pos++
	}
}

// offset is the source offset of the current token, or the end of the source.
func (c *cursor) offset() int {
	if c.pos < len(c.toks) {
		return c.toks[c.pos].Span.Start
	}
	return len(c.src)
}

func (c *cursor) top() *frame {
	return c.stack[len(c.stack)-1]
}

func (c *cursor) appendChild(n *Node) {
	if len(c.stack) == 0 {
		c.root = n
		return
	}
	f := c.top()
	f.children = append(f.children, n)
}

// leaf consumes the current token into the innermost open node.
func (c *cursor) leaf() {
	if c.pos >= len(c.toks) {
		return
	}
	t := c.toks[c.pos]
	c.appendChild(&Node{Kind: NodeToken, Span: t.Span, Token: &t})
	c.pos++
	c.skipTrivia()
}

func (p *parser) mark() marker {
	p.stack = append(p.stack, &frame{pos: p.pos, offset: p.offset()})
	return marker{p: p, level: len(p.stack) - 1}
}

func (m marker) pop() *frame {
	c := &m.p.cursor
	if m.level != len(c.stack)-1 {
		panic(fmt.Sprintf("marker at level %d closed with %d open", m.level, len(c.stack)))
	}
	f := c.stack[m.level]
	c.stack = c.stack[:m.level]
	return f
}

func spanOf(f *frame) position.Span {
	if len(f.children) == 0 {
		return position.At(f.offset)
	}
	return position.NewSpan(f.children[0].Span.Start, f.children[len(f.children)-1].Span.End)
}

// done closes the node; its span covers its children.
func (m marker) done(kind NodeKind) *Node {
	f := m.pop()
	n := &Node{Kind: kind, Span: spanOf(f), Children: f.children}
	m.p.appendChild(n)
	return n
}

// drop closes the marker without creating a node; its children move up to
// the parent.
func (m marker) drop() {
	f := m.pop()
	for _, c := range f.children {
		m.p.appendChild(c)
	}
}

// rollback discards everything parsed since the marker was opened, including
// diagnostics, and rewinds the cursor.
func (m marker) rollback() {
	f := m.pop()
	m.p.pos = f.pos
}

// fail closes the marker as an error node carrying one diagnostic that spans
// whatever the node covers.
func (m marker) fail(format string, args ...any) *Node {
	n := m.done(NodeError)
	n.Diagnostics = append(n.Diagnostics, diagnostic.Errorf(n.Span, format, args...))
	return n
}

// error reports a problem at the current token with an empty error node.
// Nothing is reported once parsing has halted.
func (p *parser) error(format string, args ...any) {
	if p.halted {
		return
	}
	span := position.At(p.offset())
	p.appendChild(&Node{
		Kind:        NodeError,
		Span:        span,
		Diagnostics: []diagnostic.Diagnostic{diagnostic.Errorf(span, format, args...)},
	})
}
