/*
Package token defines the lexical units shared by every stage of the pipeline.

	raw lexer --> merge --> embed --> interp --> parser
	   |            |          |         |
	 Kind         runs      Embedded   Interpolation
	 Span       collapsed   +Language  +Flank

A Token never changes after it is produced. Later stages replace tokens
instead of editing them.
*/
package token

import (
	"fmt"

	"github.com/walteh/gopug/pkg/position"
)

// Kind is the lexical class of a token.
type Kind uint16

const (
	Illegal Kind = iota

	EOL        // bare newline run
	Indent     // newline run followed by leading whitespace
	Whitespace // intra-line blanks

	TagName
	TagID    // #id shorthand
	TagClass // class name after Dot
	Dot
	Colon
	Comma
	Plus
	Pipe
	LParen
	RParen
	Eq  // =
	NEq // !=

	AttrName
	AttrValue

	Text
	FilePath
	FilterName
	Identifier // mixin name in a declaration

	Comment
	UnbufferedComment

	JSExpr
	JSEachExpr
	JSMetaCode
	JSMixinParams
	JSMixinParamsValues

	JSCodeBlock
	StyleBlock
	FilterCode

	CondKeyword // if, unless
	ElseKeyword
	EachKeyword // each, for, while
	CaseKeyword
	WhenKeyword
	DefaultKeyword
	IncludeKeyword
	ExtendsKeyword
	MixinKeyword
	DoctypeKeyword
	YieldKeyword

	// Embedded is content handed to another grammar. Token.Language names it.
	Embedded
	// Interpolation is a #{...} or !{...} span cut out of a text-bearing
	// token. Token.Flank is the kind of the token it interrupted.
	Interpolation

	kindCount
)

var kindNames = [...]string{
	Illegal:             "illegal",
	EOL:                 "end of line",
	Indent:              "indent",
	Whitespace:          "whitespace",
	TagName:             "tag name",
	TagID:               "tag id",
	TagClass:            "tag class",
	Dot:                 "'.'",
	Colon:               "':'",
	Comma:               "','",
	Plus:                "'+'",
	Pipe:                "'|'",
	LParen:              "'('",
	RParen:              "')'",
	Eq:                  "'='",
	NEq:                 "'!='",
	AttrName:            "attribute name",
	AttrValue:           "attribute value",
	Text:                "text",
	FilePath:            "file path",
	FilterName:          "filter name",
	Identifier:          "identifier",
	Comment:             "comment",
	UnbufferedComment:   "unbuffered comment",
	JSExpr:              "expression",
	JSEachExpr:          "each expression",
	JSMetaCode:          "code",
	JSMixinParams:       "mixin parameters",
	JSMixinParamsValues: "mixin arguments",
	JSCodeBlock:         "code block",
	StyleBlock:          "style block",
	FilterCode:          "filter content",
	CondKeyword:         "conditional keyword",
	ElseKeyword:         "'else'",
	EachKeyword:         "loop keyword",
	CaseKeyword:         "'case'",
	WhenKeyword:         "'when'",
	DefaultKeyword:      "'default'",
	IncludeKeyword:      "'include'",
	ExtendsKeyword:      "'extends'",
	MixinKeyword:        "'mixin'",
	DoctypeKeyword:      "'doctype'",
	YieldKeyword:        "'yield'",
	Embedded:            "embedded content",
	Interpolation:       "interpolation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// Token is a classified, span-addressed lexical unit.
type Token struct {
	Kind Kind
	Span position.Span
	// Text is the source slice covered by Span.
	Text string
	// Language is the sub-language key of an Embedded token.
	Language string
	// Flank is the kind an Interpolation token stands in for.
	Flank Kind
	// Inner is the expression span of an Interpolation token, without delimiters.
	Inner position.Span
}

func New(kind Kind, src string, start, end int) Token {
	return Token{Kind: kind, Span: position.NewSpan(start, end), Text: src[start:end]}
}

// Is reports whether t has kind k. An Interpolation token also answers for
// the kind of the token it interrupted, so a consumer never needs a special
// case merely because an interpolation split its token.
func (t Token) Is(k Kind) bool {
	return t.Kind == k || (t.Kind == Interpolation && t.Flank == k)
}

func (t Token) String() string {
	switch t.Kind {
	case Embedded:
		return fmt.Sprintf("%s[%s]@%s %q", t.Kind, t.Language, t.Span, t.Text)
	case Interpolation:
		return fmt.Sprintf("%s<%s>@%s %q", t.Kind, t.Flank, t.Span, t.Text)
	}
	return fmt.Sprintf("%s@%s %q", t.Kind, t.Span, t.Text)
}

// Shifted returns t with its spans moved by n bytes.
func (t Token) Shifted(n int) Token {
	t.Span = t.Span.Shift(n)
	if t.Kind == Interpolation {
		t.Inner = t.Inner.Shift(n)
	}
	return t
}
