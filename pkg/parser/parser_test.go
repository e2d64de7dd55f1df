package parser_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gopug/pkg/embed"
	"github.com/walteh/gopug/pkg/indent"
	"github.com/walteh/gopug/pkg/parser"
	"github.com/walteh/gopug/pkg/token"
)

func parse(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := parser.Parse(context.Background(), src, parser.Options{TabWidth: 2})
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	return tree
}

func collect(tree *parser.Tree, kind parser.NodeKind) []*parser.Node {
	var out []*parser.Node
	tree.Walk(func(n *parser.Node, _ int) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

func messages(tree *parser.Tree) []string {
	var out []string
	for _, d := range tree.Diagnostics() {
		out = append(out, d.Message)
	}
	return out
}

func kinds(nodes []*parser.Node) []parser.NodeKind {
	out := make([]parser.NodeKind, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Kind)
	}
	return out
}

// checkSpans asserts that every child lies inside its parent and that
// siblings are ordered and disjoint.
func checkSpans(t *testing.T, tree *parser.Tree) {
	t.Helper()
	assert.Equal(t, 0, tree.Root.Span.Start)
	assert.Equal(t, len(tree.Source), tree.Root.Span.End)
	tree.Walk(func(n *parser.Node, _ int) bool {
		prev := n.Span.Start
		for _, c := range n.Children {
			assert.Truef(t, n.Span.Contains(c.Span), "%s does not contain %s", n, c)
			assert.LessOrEqualf(t, prev, c.Span.Start, "%s overlaps its previous sibling", c)
			prev = c.Span.End
		}
		return true
	})
}

// checkLeaves asserts that the leaves are exactly the non-trivia tokens, in order.
func checkLeaves(t *testing.T, tree *parser.Tree) {
	t.Helper()
	var want, got []token.Token
	for _, tok := range parser.Tokens(context.Background(), tree.Source, parser.Options{TabWidth: 2}) {
		if tok.Kind != token.Whitespace {
			want = append(want, tok)
		}
	}
	for _, n := range collect(tree, parser.NodeToken) {
		got = append(got, *n.Token)
	}
	assert.Equal(t, want, got)
}

func lineIndent(src string, off int) int {
	return indent.Measure(src, strings.LastIndexByte(src[:off], '\n')+1, 2)
}

func lineOf(src string, off int) int {
	return strings.Count(src[:off], "\n")
}

// checkIndent asserts that a statement nested under another statement on a
// later line is indented deeper than it. An else-if sits on its own header
// indent and is exempt.
func checkIndent(t *testing.T, tree *parser.Tree) {
	t.Helper()
	src := tree.Source
	var walk func(n, owner *parser.Node)
	walk = func(n, owner *parser.Node) {
		for _, c := range n.Children {
			next := owner
			if c.Kind.IsStatement() {
				elseIf := c.Kind == parser.NodeConditionalStatement && n.Kind == parser.NodeConditionalElse
				if owner != nil && !elseIf && lineOf(src, c.Span.Start) != lineOf(src, owner.Span.Start) {
					assert.Greaterf(t, lineIndent(src, c.Span.Start), lineIndent(src, owner.Span.Start),
						"%s is not deeper than %s", c, owner)
				}
				next = c
			}
			walk(c, next)
		}
	}
	walk(tree.Root, nil)
}

var wellFormed = []struct {
	name string
	src  string
}{
	{"nesting", "div\n  p\n    span\nfooter"},
	{"attributes", "a.btn#go(href='/x', disabled) Go #{name}\n"},
	{"block text", "p.\n  line one\n  line two\ndiv"},
	{"piped text", "p\n  | hello #{name}\n  | world"},
	{"conditional", "if a\n  p A\nelse if b\n  p B\nelse\n  p C"},
	{"loop", "ul\n  each item in items\n    li= item\n  else\n    li empty"},
	{"case", "case x\n  when 1\n    p one\n  when 2: p two\n  default\n    p other"},
	{"mixins", "mixin card(title)\n  h1= title\n+card('a')\n"},
	{"script", "script(type=\"text/babel\").\n  const x = 1;\n"},
	{"style", "style\n  a { color: red }\n"},
	{"filter", ":javascript\n  var a = #{x};\np"},
	{"code", "- var x = 1\n-\n  x++\np= x"},
	{"comments", "//- note\n  more text\n// shown\np"},
	{"include", "include:markdown article.md\ninclude header.pug"},
	{"doctype", "doctype html\nhtml\n  body\n    yield"},
	{"expansion", "ul: li: a(href='#') x"},
	{"blank lines", "div\n\n  p\n\n\n  p\n\nspan"},
}

func TestWellFormed(t *testing.T) {
	for _, tt := range wellFormed {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Empty(t, tree.Diagnostics(), tree.Dump())
			checkSpans(t, tree)
			checkLeaves(t, tree)
			checkIndent(t, tree)
		})
	}
}

func TestDeterministic(t *testing.T) {
	for _, tt := range wellFormed {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, parse(t, tt.src).Dump(), parse(t, tt.src).Dump())
		})
	}
}

func TestDedent(t *testing.T) {
	src := "div\n  p\n    span\nfooter"
	tree := parse(t, src)

	top := tree.Root.Statements()
	require.Len(t, top, 2)
	assert.Equal(t, "div\n  p\n    span", top[0].Text(src))
	assert.Equal(t, "footer", top[1].Text(src))

	p := top[0].Statements()
	require.Len(t, p, 1)
	span := p[0].Statements()
	require.Len(t, span, 1)
	assert.Equal(t, "span", span[0].Text(src))
	assert.Empty(t, span[0].Statements())
}

func TestTabWidth(t *testing.T) {
	src := "div\n\tp\n    span"
	tests := []struct {
		name  string
		width int
		top   int
		inDiv int
	}{
		{"tab equals four spaces", 4, 1, 2},
		{"tab deeper than four spaces", 8, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := parser.Parse(context.Background(), src, parser.Options{TabWidth: tt.width})
			require.NoError(t, err)
			top := tree.Root.Statements()
			assert.Len(t, top, tt.top)
			assert.Len(t, top[0].Statements(), tt.inDiv)
		})
	}
}

func TestElseBinding(t *testing.T) {
	src := "if x\n  p A\nelse\n  p B"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	top := tree.Root.Statements()
	require.Len(t, top, 1)
	cond := top[0]
	require.Equal(t, parser.NodeConditionalStatement, cond.Kind)
	assert.Equal(t, "if x", cond.Child(parser.NodeConditionalHeader).Text(src))

	body := cond.Child(parser.NodeConditionalBody)
	require.NotNil(t, body)
	require.Len(t, body.Statements(), 1)
	assert.Equal(t, "p A", body.Statements()[0].Text(src))

	els := cond.Child(parser.NodeConditionalElse)
	require.NotNil(t, els)
	require.Len(t, els.Statements(), 1)
	assert.Equal(t, "p B", els.Statements()[0].Text(src))
}

func TestElseIfChain(t *testing.T) {
	src := "if a\n  p A\nelse if b\n  p B\nelse\n  p C"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	conds := collect(tree, parser.NodeConditionalStatement)
	require.Len(t, conds, 2)

	nested := conds[0].Child(parser.NodeConditionalElse).Statements()
	require.Len(t, nested, 1)
	assert.Same(t, conds[1], nested[0])
	assert.Equal(t, "if b", conds[1].Child(parser.NodeConditionalHeader).Text(src))

	last := conds[1].Child(parser.NodeConditionalElse)
	require.NotNil(t, last)
	assert.Equal(t, "p C", last.Statements()[0].Text(src))
}

func TestElseWithoutBody(t *testing.T) {
	src := "if a\nelse\n  p B"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	cond := tree.Root.Statements()[0]
	assert.Nil(t, cond.Child(parser.NodeConditionalBody))
	require.NotNil(t, cond.Child(parser.NodeConditionalElse))
}

func TestStrayElse(t *testing.T) {
	tree := parse(t, "p\nelse\n  p")
	assert.Equal(t, []string{"unexpected 'else'"}, messages(tree))
	assert.Len(t, collect(tree, parser.NodeTag), 2)
	checkSpans(t, tree)
	checkLeaves(t, tree)
}

func TestLoop(t *testing.T) {
	src := "each item in items\n  li= item\nelse\n  li empty"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	loop := tree.Root.Statements()[0]
	require.Equal(t, parser.NodeForStatement, loop.Kind)
	assert.Equal(t, "item in items", loop.TokenOf(token.JSEachExpr).Text)
	require.NotNil(t, loop.Child(parser.NodeForBody))
	require.NotNil(t, loop.Child(parser.NodeForElse))
	assert.Equal(t, "li empty", loop.Child(parser.NodeForElse).Statements()[0].Text(src))
}

func TestCase(t *testing.T) {
	src := "case x\n  when 1\n    p one\n  when 2: p two\n  default\n    p other"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	c := tree.Root.Statements()[0]
	require.Equal(t, parser.NodeCaseStatement, c.Kind)
	whens := c.Statements()
	assert.Equal(t, []parser.NodeKind{parser.NodeWhenStatement, parser.NodeWhenStatement, parser.NodeWhenStatement}, kinds(whens))
	assert.Equal(t, "p two", whens[1].Statements()[0].Text(src))
	assert.NotNil(t, whens[2].TokenOf(token.DefaultKeyword))
}

func TestCaseStrayLine(t *testing.T) {
	tree := parse(t, "case x\n  p y z\n  when 1\n    p one\np after")
	assert.Equal(t, []string{"expected 'when' or 'default', found tag name"}, messages(tree))

	stmts := tree.Root.Statements()
	require.Equal(t, []parser.NodeKind{parser.NodeCaseStatement, parser.NodeTag}, kinds(stmts))
	assert.Len(t, collect(tree, parser.NodeWhenStatement), 1, "the branch after the stray line stays in the case")
	assert.Equal(t, "p y z", collect(tree, parser.NodeError)[0].Text(tree.Source))
	checkSpans(t, tree)
	checkLeaves(t, tree)
}

func TestCaseWithoutBranches(t *testing.T) {
	tree := parse(t, "case x\np")
	assert.Equal(t, []string{"expected indent, found end of line"}, messages(tree))
	assert.Equal(t, []parser.NodeKind{parser.NodeCaseStatement, parser.NodeTag}, kinds(tree.Root.Statements()))
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  []string
		isTag bool
	}{
		{"in tag text", "p Hello #{name}!", []string{"#{name}"}, true},
		{"unescaped", "p !{raw} and #{safe}", []string{"!{raw}", "#{safe}"}, true},
		{"unmatched is literal", "p Hello #{name", nil, true},
		{"interpolated tag name", "#{tag} content", []string{"#{tag}"}, true},
		{"leading unescaped is text", "!{x} foo", []string{"!{x}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Empty(t, tree.Diagnostics())
			checkLeaves(t, tree)

			var got []string
			for _, n := range collect(tree, parser.NodeInterpolation) {
				got = append(got, n.Text(tt.src))
			}
			assert.Equal(t, tt.want, got)

			top := tree.Root.Statements()
			require.Len(t, top, 1)
			if tt.isTag {
				assert.Equal(t, parser.NodeTag, top[0].Kind)
			} else {
				assert.Equal(t, parser.NodeText, top[0].Kind)
			}
		})
	}
}

func TestInterpolatedTagName(t *testing.T) {
	tree := parse(t, "#{tag} content")
	tag := tree.Root.Statements()[0]
	require.NotNil(t, tag.Child(parser.NodeTagInterpName))
	assert.Equal(t, "#{tag}", tag.Child(parser.NodeTagInterpName).Text(tree.Source))
}

func TestAttributes(t *testing.T) {
	src := "a.btn#go(href='/x', disabled)"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	attrs := collect(tree, parser.NodeAttribute)
	require.Len(t, attrs, 4)

	var names, values []string
	for _, a := range attrs {
		names = append(names, a.Child(parser.NodeAttributeName).Text(src))
		if v := a.Child(parser.NodeAttributeValue); v != nil {
			values = append(values, v.Text(src))
		}
	}
	assert.Equal(t, []string{"", "", "href", "disabled"}, names)
	assert.Equal(t, []string{".btn", "#go", "'/x'"}, values)
	assert.Len(t, collect(tree, parser.NodeClass), 1)
}

func TestAttributeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
		tags int
	}{
		{"unterminated", "a(href='x'\np ok", []string{"expected ')', found end of line"}, 2},
		{"unterminated at end", "a(href='x'", []string{"expected ')', found end of file"}, 1},
		{"second value", "a(href='x' 'y')\np", []string{"attribute already has a value"}, 2},
		{"value without name", "a(='x')", []string{"value without attribute name"}, 1},
		{"missing value", "a(href=)", []string{"expected attribute value, found ')'"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Equal(t, tt.want, messages(tree))
			assert.Len(t, collect(tree, parser.NodeTag), tt.tags)
			checkSpans(t, tree)
			checkLeaves(t, tree)
		})
	}
}

func TestSecondValueErrorSpan(t *testing.T) {
	src := "a(href='x' 'y')"
	tree := parse(t, src)
	diags := tree.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "'y'", diags[0].Span.Text(src))
}

func TestEmbedded(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		language string
		text     string
	}{
		{"script with mime", "script(type=\"text/babel\").\n  const x = 1;\n", "javascript", "const x = 1;"},
		{"style default", "style\n  a { color: red }\n", "css", "a { color: red }"},
		{"style with mime", "style(type='text/less').\n  @x: 1;", "less", "@x: 1;"},
		{"filter", ":coffee\n  x = 1", "coffeescript", "x = 1"},
		{"json script", "script(type='application/ld+json').\n  {\"a\": 1}", "json", "{\"a\": 1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Empty(t, tree.Diagnostics())
			embs := tree.Embeddings()
			require.Len(t, embs, 1)
			assert.Equal(t, tt.language, embs[0].Language)
			assert.Equal(t, tt.text, embs[0].Text(tt.src))
			assert.Empty(t, collect(tree, parser.NodeContent))
		})
	}
}

func TestScriptWithoutType(t *testing.T) {
	tree := parse(t, "script.\n  var a;\n")
	assert.Empty(t, tree.Embeddings())
	content := collect(tree, parser.NodeContent)
	require.Len(t, content, 1)
	assert.Equal(t, "var a;", content[0].Text(tree.Source))
}

func TestEmbeddedInterpolations(t *testing.T) {
	src := ":javascript\n  var a = #{x};"
	tree := parse(t, src)
	embs := tree.Embeddings()
	require.Len(t, embs, 1)
	require.Len(t, embs[0].Interpolations, 1)
	assert.Equal(t, "var a = #{_};", embs[0].Masked(src))
	assert.Equal(t, 8, embs[0].Interpolations[0].Outer.Start)
}

func TestCustomRegistry(t *testing.T) {
	ctx := context.Background()
	reg := embed.NewRegistry()
	require.NoError(t, reg.Register(ctx, embed.Filter("foo"), "bar"))

	tree, err := parser.Parse(ctx, ":foo\n  hi\n:javascript\n  x", parser.Options{TabWidth: 2, Registry: reg})
	require.NoError(t, err)

	embs := tree.Embeddings()
	require.Len(t, embs, 1)
	assert.Equal(t, "bar", embs[0].Language)
	assert.Len(t, collect(tree, parser.NodeContent), 1)
}

func TestMixins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []parser.NodeKind
	}{
		{"declaration", "mixin card(title)\n  h1= title", []parser.NodeKind{parser.NodeMixinDeclaration}},
		{"declaration without body is a call", "mixin card\np", []parser.NodeKind{parser.NodeMixin, parser.NodeTag}},
		{"invocation", "+card('a', 1)", []parser.NodeKind{parser.NodeMixin}},
		{"invocation with attributes", "+card('a')(class='x')", []parser.NodeKind{parser.NodeMixin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Empty(t, tree.Diagnostics())
			assert.Equal(t, tt.want, kinds(tree.Root.Statements()))
			checkLeaves(t, tree)
		})
	}
}

func TestMixinArguments(t *testing.T) {
	src := "+card('a')(class='x')"
	tree := parse(t, src)
	mixin := tree.Root.Statements()[0]
	require.NotNil(t, mixin.Child(parser.NodeMixinArguments))
	assert.Equal(t, "('a')", mixin.Child(parser.NodeMixinArguments).Text(src))
	require.NotNil(t, mixin.Child(parser.NodeAttributeList))
}

func TestInclude(t *testing.T) {
	src := "include:markdown article.md\nextends layout"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())

	incs := tree.Root.Statements()
	require.Len(t, incs, 2)
	assert.Equal(t, "article.md", incs[0].Child(parser.NodeFilePath).Text(src))
	require.NotNil(t, incs[0].Child(parser.NodeFilter))
	assert.Equal(t, "markdown", incs[0].Child(parser.NodeFilter).TokenOf(token.FilterName).Text)
	assert.Equal(t, "layout", incs[1].Child(parser.NodeFilePath).Text(src))
	assert.Empty(t, tree.Embeddings())
}

func TestDoctypeAndYield(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"doctype", "doctype html\nhtml", nil},
		{"doctype with children", "doctype html\n  p", []string{"expected end of line, found indent"}},
		{"yield", "div\n  yield\np", nil},
		{"yield with text", "yield foo", []string{"expected end of line, found text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			assert.Equal(t, tt.want, messages(tree))
			checkSpans(t, tree)
			checkLeaves(t, tree)
		})
	}
}

func TestComment(t *testing.T) {
	src := "//- note\n  more text\np"
	tree := parse(t, src)
	assert.Equal(t, []parser.NodeKind{parser.NodeComment, parser.NodeTag}, kinds(tree.Root.Statements()))
	assert.Equal(t, "//- note\n  more text", tree.Root.Statements()[0].Text(src))
}

func TestBlockText(t *testing.T) {
	src := "p.\n  line one\n  line two\ndiv"
	tree := parse(t, src)
	top := tree.Root.Statements()
	require.Len(t, top, 2)
	block := top[0].Child(parser.NodeBlock)
	require.NotNil(t, block)
	assert.Equal(t, "line one\n  line two", block.Text(src))
	assert.Len(t, block.Statements(), 2)
}

func TestCode(t *testing.T) {
	src := "-\n  x++\n  y++\np"
	tree := parse(t, src)
	assert.Empty(t, tree.Diagnostics())
	code := tree.Root.Statements()[0]
	require.Equal(t, parser.NodeCode, code.Kind)
	require.NotNil(t, code.Child(parser.NodeContent))
	assert.Equal(t, "x++\n  y++", code.Child(parser.NodeContent).Text(src))
}

func TestBlockExpansion(t *testing.T) {
	tree := parse(t, "ul: li: a x")
	tags := collect(tree, parser.NodeTag)
	require.Len(t, tags, 3)
	assert.Same(t, tags[1], tags[0].Statements()[0])
	assert.Same(t, tags[2], tags[1].Statements()[0])

	tree = parse(t, "a:")
	assert.Equal(t, []string{"expected statement after ':', found end of file"}, messages(tree))
}

func TestMaxDepth(t *testing.T) {
	var sb strings.Builder
	for i := range 10 {
		sb.WriteString(strings.Repeat("  ", i))
		sb.WriteString("div\n")
	}
	src := sb.String()

	tree, err := parser.Parse(context.Background(), src, parser.Options{TabWidth: 2, MaxDepth: 3})
	require.NoError(t, err)

	diags := tree.Diagnostics()
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "maximum nesting depth of 3")
	assert.Len(t, collect(tree, parser.NodeTag), 3)

	errs := tree.Root.Children[len(tree.Root.Children)-1]
	assert.Equal(t, parser.NodeError, errs.Kind)
	assert.True(t, strings.HasPrefix(errs.Text(src), "div"))
	checkSpans(t, tree)
	checkLeaves(t, tree)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := "div\n  p"
	tree, err := parser.Parse(ctx, src, parser.Options{TabWidth: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, tree)

	assert.Empty(t, tree.Root.Statements())
	require.Len(t, tree.Diagnostics(), 1)
	tail := tree.Root.Child(parser.NodeError)
	require.NotNil(t, tail)
	assert.Equal(t, src, tail.Text(src))
}

func TestDiagnosticsSorted(t *testing.T) {
	tree := parse(t, "a(='x')\nelse\nyield foo")
	diags := tree.Diagnostics()
	require.Len(t, diags, 3)
	for i := 1; i < len(diags); i++ {
		assert.LessOrEqual(t, diags[i-1].Span.Start, diags[i].Span.Start)
	}
}

func TestDump(t *testing.T) {
	dump := parse(t, "p\n  a(href)").Dump()
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Document"))
	assert.Contains(t, dump, "\n  Tag ")
	assert.Contains(t, dump, "AttributeList")
}

func TestTokenStream(t *testing.T) {
	ctx := context.Background()
	src := "p Hello #{name}\nscript(type='module').\n  x"
	var streamed []token.Token
	for tok := range parser.TokenStream(ctx, src, parser.Options{}) {
		streamed = append(streamed, tok)
	}
	assert.Equal(t, parser.Tokens(ctx, src, parser.Options{}), streamed)
}

func TestDefaultRecovery(t *testing.T) {
	set := token.NewSet(parser.DefaultRecovery()...)
	for _, k := range []token.Kind{token.EOL, token.Indent, token.CondKeyword, token.MixinKeyword} {
		assert.True(t, set.Has(k), k.String())
	}
	assert.False(t, set.Has(token.TagName))
}

var malformed = strings.Join([]string{
	"doctype html",
	"html(lang='en'",
	"  head",
	"    script(type='text/babel', src=x).",
	"      const a = #{b};",
	"    style",
	"      a { }",
	"  body.main#root",
	"    if user",
	"      p Hello #{user.name}!",
	"    else if guest",
	"      p= guest",
	"    else",
	"      +login('x')(class='y')",
	"    each v, i in list",
	"      li: a(href=v)= v",
	"    case n",
	"      when 1: p one",
	"      default",
	"        | other !{raw",
	"    mixin m(a)",
	"      :markdown",
	"        # title",
	"    include:coffee lib.coffee",
	"    //- hidden",
	"      still hidden",
	"    -",
	"      var z = 1",
	"    p.",
	"      text block",
	"    yield",
	"",
}, "\n")

func TestUnclosedAttributeListsScaleLinearly(t *testing.T) {
	for _, line := range []string{"a(b\n", "a(b='x\n", "+m(a, \"b\n"} {
		t.Run(strings.TrimSpace(line), func(t *testing.T) {
			src := strings.Repeat(line, 50000)
			start := time.Now()
			tree := parse(t, src)
			elapsed := time.Since(start)

			assert.Less(t, elapsed, 3*time.Second)
			assert.NotEmpty(t, tree.Diagnostics())
			assert.Len(t, tree.Root.Statements(), 50000)
		})
	}
}

func TestTruncations(t *testing.T) {
	for i := 0; i <= len(malformed); i++ {
		src := malformed[:i]
		tree, err := parser.Parse(context.Background(), src, parser.Options{TabWidth: 2})
		require.NoError(t, err)
		checkSpans(t, tree)
		checkLeaves(t, tree)
		if t.Failed() {
			t.Fatalf("prefix %d: %q\n%s", i, src, tree.Dump())
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, tt := range wellFormed {
		f.Add(tt.src)
	}
	f.Add(malformed)
	f.Add("a(\n\t)\n  \t p")
	f.Add("#{")
	f.Fuzz(func(t *testing.T, src string) {
		tree, err := parser.Parse(context.Background(), src, parser.Options{TabWidth: 2})
		require.NoError(t, err)
		checkSpans(t, tree)
		checkLeaves(t, tree)
	})
}
