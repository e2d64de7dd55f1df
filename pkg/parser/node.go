package parser

import (
	"fmt"

	"github.com/walteh/gopug/pkg/diagnostic"
	"github.com/walteh/gopug/pkg/position"
	"github.com/walteh/gopug/pkg/token"
)

// NodeKind identifies the type of a parse tree node.
type NodeKind int

const (
	NodeDocument NodeKind = iota
	NodeToken             // a single token leaf

	NodeTag
	NodeTagInterpName // #{expr} used as a tag name
	NodeAttributeList
	NodeAttribute
	NodeAttributeName // empty for #id and .class shorthands
	NodeAttributeValue
	NodeClass
	NodeMixinArguments
	NodeFilter
	NodeMixin // +call, or a body-less declaration read as a call
	NodeMixinDeclaration

	NodeJSExpr // = expr, != expr
	NodeCode   // - statement, or a bare - owning a code block
	NodePipedText
	NodeText
	NodeInterpolation
	NodeComment
	NodePipelessText
	NodeBlock

	NodeConditionalStatement
	NodeConditionalHeader
	NodeConditionalBody
	NodeConditionalElse
	NodeForStatement
	NodeForBody
	NodeForElse
	NodeCaseStatement
	NodeWhenStatement

	NodeIncludeStatement
	NodeFilePath
	NodeDoctype
	NodeYieldStatement

	NodeContent  // raw content kept in the host language
	NodeEmbedded // content delegated to another language

	NodeError

	nodeKindCount
)

var nodeKindNames = [...]string{
	NodeDocument:             "Document",
	NodeToken:                "Token",
	NodeTag:                  "Tag",
	NodeTagInterpName:        "TagInterpName",
	NodeAttributeList:        "AttributeList",
	NodeAttribute:            "Attribute",
	NodeAttributeName:        "AttributeName",
	NodeAttributeValue:       "AttributeValue",
	NodeClass:                "Class",
	NodeMixinArguments:       "MixinArguments",
	NodeFilter:               "Filter",
	NodeMixin:                "Mixin",
	NodeMixinDeclaration:     "MixinDeclaration",
	NodeJSExpr:               "JSExpr",
	NodeCode:                 "Code",
	NodePipedText:            "PipedText",
	NodeText:                 "Text",
	NodeInterpolation:        "Interpolation",
	NodeComment:              "Comment",
	NodePipelessText:         "PipelessText",
	NodeBlock:                "Block",
	NodeConditionalStatement: "ConditionalStatement",
	NodeConditionalHeader:    "ConditionalHeader",
	NodeConditionalBody:      "ConditionalBody",
	NodeConditionalElse:      "ConditionalElse",
	NodeForStatement:         "ForStatement",
	NodeForBody:              "ForBody",
	NodeForElse:              "ForElse",
	NodeCaseStatement:        "CaseStatement",
	NodeWhenStatement:        "WhenStatement",
	NodeIncludeStatement:     "IncludeStatement",
	NodeFilePath:             "FilePath",
	NodeDoctype:              "Doctype",
	NodeYieldStatement:       "YieldStatement",
	NodeContent:              "Content",
	NodeEmbedded:             "Embedded",
	NodeError:                "Error",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindNames) && nodeKindNames[k] != "" {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// IsStatement reports whether nodes of this kind are produced by statement
// dispatch, as opposed to being parts of a statement.
func (k NodeKind) IsStatement() bool {
	switch k {
	case NodeTag, NodeFilter, NodeMixin, NodeMixinDeclaration, NodeJSExpr, NodeCode,
		NodePipedText, NodeText, NodeComment, NodeConditionalStatement, NodeForStatement,
		NodeCaseStatement, NodeWhenStatement, NodeIncludeStatement, NodeDoctype,
		NodeYieldStatement, NodeContent, NodeEmbedded:
		return true
	}
	return false
}

// Node is an element of the concrete syntax tree. Nodes are never modified
// once the parser closes them.
type Node struct {
	Kind     NodeKind
	Span     position.Span
	Children []*Node

	// Token is set on NodeToken leaves.
	Token *token.Token
	// Language is set on NodeEmbedded.
	Language string
	// Diagnostics are the problems reported at this node, set on NodeError.
	Diagnostics []diagnostic.Diagnostic
}

// Statements returns the direct children that are statements.
func (n *Node) Statements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind.IsStatement() {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child of the given kind, or nil.
func (n *Node) Child(kind NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// TokenOf returns the first token leaf of the given kind directly under n.
func (n *Node) TokenOf(kind token.Kind) *token.Token {
	for _, c := range n.Children {
		if c.Kind == NodeToken && c.Token.Is(kind) {
			return c.Token
		}
	}
	return nil
}

// Text returns the source covered by the node.
func (n *Node) Text(src string) string {
	return n.Span.Text(src)
}

func (n *Node) String() string {
	switch n.Kind {
	case NodeToken:
		return fmt.Sprintf("%s %s %q", n.Token.Kind, n.Span, n.Token.Text)
	case NodeEmbedded:
		return fmt.Sprintf("%s[%s] %s", n.Kind, n.Language, n.Span)
	}
	return fmt.Sprintf("%s %s", n.Kind, n.Span)
}
