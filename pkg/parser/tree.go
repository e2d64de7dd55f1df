package parser

import (
	"fmt"
	"strings"

	"github.com/walteh/gopug/pkg/diagnostic"
	"github.com/walteh/gopug/pkg/interp"
	"github.com/walteh/gopug/pkg/position"
)

type Tree struct {
	Source string
	Root   *Node
}

// Walk visits every node depth first, parents before children. Returning
// false from fn skips the children of that node.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if t.Root != nil {
		walk(t.Root, 0)
	}
}

// Diagnostics returns every diagnostic in the tree in source order.
func (t *Tree) Diagnostics() []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	t.Walk(func(n *Node, _ int) bool {
		out = append(out, n.Diagnostics...)
		return true
	})
	diagnostic.Sort(out)
	return out
}

// Embedding is a span of the source that belongs to another language.
type Embedding struct {
	Language string
	Span     position.Span
	// Interpolations found inside the span, relative to Span.Start.
	Interpolations []interp.Span
}

func (e Embedding) Text(src string) string {
	return e.Span.Text(src)
}

// Masked returns the embedded text with interpolation interiors replaced by
// filler, ready for a delegate parser that does not know the host syntax.
func (e Embedding) Masked(src string) string {
	return interp.Mask(e.Text(src), e.Interpolations)
}

// Embeddings lists every embedded span in source order.
func (t *Tree) Embeddings() []Embedding {
	var out []Embedding
	t.Walk(func(n *Node, _ int) bool {
		if n.Kind != NodeEmbedded {
			return true
		}
		out = append(out, Embedding{
			Language:       n.Language,
			Span:           n.Span,
			Interpolations: interp.Find(n.Span.Text(t.Source)),
		})
		return false
	})
	return out
}

// Dump renders the tree one node per line, indented by depth.
func (t *Tree) Dump() string {
	var sb strings.Builder
	t.Walk(func(n *Node, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.String())
		for _, d := range n.Diagnostics {
			fmt.Fprintf(&sb, " !%s", d.Message)
		}
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
