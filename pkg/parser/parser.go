package parser

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/gopug/pkg/indent"
	"github.com/walteh/gopug/pkg/token"
)

// kindEOF is what the parser sees past the last token, or after it halts.
const kindEOF = token.Kind(math.MaxUint16)

// parser is the indentation-driven recursive-descent driver. Block nesting
// comes only from comparing indent columns; there are no closing tokens.
type parser struct {
	cursor

	ctx      context.Context
	tabWidth int
	maxDepth int
	recovery token.Set

	depth   int
	halted  bool
	haltErr error
	haltMsg string
}

func newParser(ctx context.Context, src string, toks []token.Token, opts Options) *parser {
	p := &parser{
		cursor:   cursor{src: src, toks: toks},
		ctx:      ctx,
		tabWidth: opts.TabWidth,
		maxDepth: opts.MaxDepth,
		recovery: token.NewSet(opts.Recovery...),
	}
	p.skipTrivia()
	return p
}

func (p *parser) parseDocument() *Node {
	document := p.mark()
	for !p.eof() {
		p.parseTopLevel(-1)
	}
	if p.halted {
		tail := p.mark()
		for p.pos < len(p.toks) {
			p.leaf()
		}
		tail.fail("%s", p.haltMsg)
	}
	root := document.done(NodeDocument)
	root.Span.Start, root.Span.End = 0, len(p.src)
	return root
}

// halt stops parsing; every loop sees end of input from here on and the
// remaining tokens end up in one error node.
func (p *parser) halt(err error, format string, args ...any) {
	if p.halted {
		return
	}
	p.halted = true
	p.haltErr = err
	p.haltMsg = fmt.Sprintf(format, args...)
	zerolog.Ctx(p.ctx).Debug().Int("offset", p.offset()).Str("reason", p.haltMsg).Msg("parse halted")
}

// enter guards recursion into a nested statement.
func (p *parser) enter() bool {
	if p.halted {
		return false
	}
	if err := p.ctx.Err(); err != nil {
		p.halt(err, "parsing cancelled: %v", err)
		return false
	}
	p.depth++
	if p.depth > p.maxDepth {
		p.halt(nil, "maximum nesting depth of %d exceeded", p.maxDepth)
		return false
	}
	return true
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) eof() bool {
	return p.halted || p.pos >= len(p.toks)
}

func (p *parser) kind() token.Kind {
	if p.eof() {
		return kindEOF
	}
	return p.toks[p.pos].Kind
}

func (p *parser) text() string {
	if p.eof() {
		return ""
	}
	return p.toks[p.pos].Text
}

// is reports whether the current token has kind k, counting an interpolation
// as the kind it interrupted.
func (p *parser) is(k token.Kind) bool {
	return !p.eof() && p.toks[p.pos].Is(k)
}

// lookahead returns the kind of the n-th significant token after the current one.
func (p *parser) lookahead(n int) token.Kind {
	if p.eof() {
		return kindEOF
	}
	i := p.pos
	for n > 0 {
		i++
		for i < len(p.toks) && p.toks[i].Kind == token.Whitespace {
			i++
		}
		if i >= len(p.toks) {
			return kindEOF
		}
		n--
	}
	return p.toks[i].Kind
}

func (p *parser) advance() {
	if !p.eof() {
		p.leaf()
	}
}

func isEOL(k token.Kind) bool {
	return token.IsLineBreak(k)
}

func (p *parser) atEOL() bool {
	return isEOL(p.kind())
}

func (p *parser) notEOLOrEOF() bool {
	return !p.eof() && !p.atEOL()
}

// currentIndent measures the current token as a line break. Any other token
// measures zero unless it starts with blanks.
func (p *parser) currentIndent() int {
	if p.eof() {
		return 0
	}
	return indent.Measure(p.toks[p.pos].Text, 0, p.tabWidth)
}

func (p *parser) passEOLs() {
	for p.atEOL() {
		p.advance()
	}
}

// passExcessEOLs leaves the cursor on the last of a run of line breaks.
func (p *parser) passExcessEOLs() {
	for p.atEOL() && isEOL(p.lookahead(1)) {
		p.advance()
	}
}

func describe(k token.Kind) string {
	if k == kindEOF {
		return "end of file"
	}
	return k.String()
}

// expect reports an error unless the current token has kind k. It never
// consumes anything.
func (p *parser) expect(k token.Kind) bool {
	return p.expectNamed(k, describe(k))
}

func (p *parser) expectNamed(k token.Kind, name string) bool {
	if p.is(k) {
		return true
	}
	p.error("expected %s, found %s", name, describe(p.kind()))
	return false
}

// recover consumes the current token and everything up to a token in stop or
// in the recovery set, under one error node.
func (p *parser) recover(stop token.Set, format string, args ...any) {
	m := p.mark()
	p.advance()
	for !p.eof() && !stop.Has(p.kind()) && !p.recovery.Has(p.kind()) {
		p.advance()
	}
	m.fail(format, args...)
}

func (p *parser) parseTopLevel(parentIndent int) {
	if p.eof() {
		return
	}

	p.passExcessEOLs()
	blockIndent := p.currentIndent()

	for !p.eof() {
		p.passExcessEOLs()
		current := p.currentIndent()
		if current <= parentIndent {
			break
		}
		if current < blockIndent {
			break
		}

		p.passEOLs()
		before := p.pos
		p.parseNode(current)
		if p.pos == before && !p.eof() {
			p.error("unexpected %s", describe(p.kind()))
			p.advance()
		}
	}
}

func (p *parser) parseNode(nodeIndent int) {
	if p.eof() || !p.enter() {
		return
	}
	defer p.leave()

	t := p.toks[p.pos]
	switch {
	case token.Content.Has(t.Kind) || t.Kind == token.Embedded:
		p.parseContent()
	case t.Kind == token.TagName || t.Kind == token.Dot || t.Kind == token.TagID:
		p.parseTag(nodeIndent)
	case t.Is(token.Text) && p.parseTag(nodeIndent):
	case t.Is(token.Text):
		p.parsePlainTextLine()
	case t.Kind == token.Colon:
		p.parseFilter(nodeIndent)
	case t.Kind == token.Plus:
		p.parseMixinInvocation(nodeIndent)
	case t.Kind == token.JSMetaCode:
		p.parseCode(nodeIndent)
	case t.Kind == token.Eq || t.Kind == token.NEq:
		p.parseJSTextLine()
	case t.Kind == token.Pipe:
		p.parsePipedLine()
	case token.Comments.Has(t.Kind):
		p.parseComment(nodeIndent)
	case t.Kind == token.CondKeyword:
		p.parseConditionalStatement(nodeIndent)
	case t.Kind == token.EachKeyword:
		p.parseForStatement(nodeIndent)
	case t.Kind == token.CaseKeyword:
		p.parseCaseStatement(nodeIndent)
	case t.Kind == token.IncludeKeyword || t.Kind == token.ExtendsKeyword:
		p.parseIncludeStatement(nodeIndent)
	case t.Kind == token.MixinKeyword:
		p.parseMixinDeclaration(nodeIndent)
	case t.Kind == token.DoctypeKeyword:
		p.parseDoctype(nodeIndent)
	case t.Kind == token.YieldKeyword:
		p.parseYieldStatement(nodeIndent)
	default:
		p.error("unexpected %s", describe(t.Kind))
		p.advance()
	}
}

// parseNested parses the statement after a block-expansion colon.
func (p *parser) parseNested(nodeIndent int) {
	if !p.notEOLOrEOF() {
		p.error("expected statement after ':', found %s", describe(p.kind()))
		return
	}
	p.parseNode(nodeIndent)
}

// parseTag returns false, having consumed nothing, when the line starts with
// text that is not an interpolated tag name.
func (p *parser) parseTag(nodeIndent int) bool {
	m := p.mark()
	if p.parseTagOrMixinInternals(nodeIndent, false) {
		m.done(NodeTag)
		return true
	}
	m.rollback()
	return false
}

func (p *parser) parseTagOrMixinInternals(nodeIndent int, mixin bool) bool {
	if p.is(token.Text) {
		if !p.parseInterpolatedTagName() {
			return false
		}
	}

	argsDone := !mixin
	for !p.eof() {
		k := p.kind()
		if isEOL(k) || k == token.Colon || (k == token.Dot && p.lookahead(1) != token.TagClass) || k == token.Eq || k == token.NEq {
			break
		}
		switch {
		case k == token.LParen && !argsDone:
			argsDone = true
			p.parseMixinArguments()
		case k == token.LParen:
			p.parseAttributeList()
		case k == token.Dot || k == token.TagID:
			p.parseTagIDOrClassName(k)
		case p.is(token.Text):
			p.parsePlainTextLine()
		default:
			p.advance()
		}
	}

	if p.eof() {
		return true
	}
	switch p.kind() {
	case token.Colon:
		p.advance()
		p.parseNested(nodeIndent)
	case token.Dot:
		p.advance()
		p.parseBlock(nodeIndent)
	case token.Eq, token.NEq:
		p.parseJSTextLine()
		p.parseTopLevel(nodeIndent)
	default:
		p.parseTopLevel(nodeIndent)
	}
	return true
}

// parseInterpolatedTagName accepts a line that starts with #{expr}.
func (p *parser) parseInterpolatedTagName() bool {
	t := p.toks[p.pos]
	if t.Kind != token.Interpolation || !strings.HasPrefix(t.Text, "#{") {
		return false
	}
	name := p.mark()
	p.parseTextPart()
	name.done(NodeTagInterpName)
	return true
}

// parseTagIDOrClassName turns #id and .class shorthands into attributes with
// an empty name.
func (p *parser) parseTagIDOrClassName(k token.Kind) {
	attr := p.mark()
	p.mark().done(NodeAttributeName)
	value := p.mark()

	if k == token.TagID {
		p.advance()
	} else {
		class := p.mark()
		p.advance()
		if p.is(token.TagClass) {
			p.advance()
		}
		class.done(NodeClass)
	}

	value.done(NodeAttributeValue)
	attr.done(NodeAttribute)
}

func (p *parser) parseMixinArguments() {
	m := p.mark()
	p.advance()
	if p.is(token.JSMixinParamsValues) {
		p.advance()
	}
	if p.is(token.RParen) {
		p.advance()
	} else {
		p.expect(token.RParen)
	}
	m.done(NodeMixinArguments)
}

func (p *parser) parseFilter(nodeIndent int) {
	m := p.mark()
	for p.notEOLOrEOF() {
		switch {
		case p.is(token.LParen):
			p.parseAttributeList()
		case token.Content.Has(p.kind()) || p.is(token.Embedded):
			p.parseContent()
		default:
			p.advance()
		}
	}
	p.parseBlock(nodeIndent)
	m.done(NodeFilter)
}

func (p *parser) parseMixinInvocation(nodeIndent int) {
	m := p.mark()
	p.advance()
	if !p.is(token.Text) {
		p.expectNamed(token.TagName, "mixin name")
	}
	p.parseTagOrMixinInternals(nodeIndent, true)
	m.done(NodeMixin)
}

// parseCode handles `- statement` and a bare `-` followed by a code block.
func (p *parser) parseCode(nodeIndent int) {
	m := p.mark()
	p.advance()
	if p.atEOL() && p.currentIndent() > nodeIndent {
		if next := p.lookahead(1); token.Content.Has(next) || next == token.Embedded {
			p.advance()
			p.parseContent()
		}
	}
	m.done(NodeCode)
}

func (p *parser) parseContent() {
	t := p.toks[p.pos]
	m := p.mark()
	p.advance()
	if t.Kind == token.Embedded {
		m.done(NodeEmbedded).Language = t.Language
		return
	}
	m.done(NodeContent)
}

func (p *parser) parseJSTextLine() {
	m := p.mark()
	p.advance()
	if p.expect(token.JSExpr) {
		p.advance()
	}
	m.done(NodeJSExpr)
}

func (p *parser) parsePipedLine() {
	m := p.mark()
	p.advance()
	for p.notEOLOrEOF() {
		if p.is(token.Text) {
			p.parsePlainTextLine()
			continue
		}
		if !p.is(token.JSExpr) {
			p.expectNamed(token.JSExpr, "text or interpolation")
		}
		p.advance()
	}
	m.done(NodePipedText)
}

func (p *parser) parsePlainTextLine() {
	m := p.mark()
	for p.is(token.Text) {
		p.parseTextPart()
	}
	m.done(NodeText)
}

func (p *parser) parseTextPart() {
	if p.kind() == token.Interpolation {
		m := p.mark()
		p.advance()
		m.done(NodeInterpolation)
		return
	}
	p.advance()
}

func (p *parser) parseComment(nodeIndent int) {
	m := p.mark()
	secondLine, multiline := indent.MeasureSecondLine(p.text(), p.tabWidth)
	p.advance()

	for !p.eof() {
		p.passExcessEOLs()
		current := p.currentIndent()
		if multiline && current >= secondLine {
			zerolog.Ctx(p.ctx).Trace().Int("offset", p.offset()).Msg("comment continuation outside the comment token")
			p.advance()
			continue
		}
		if current <= nodeIndent {
			break
		}

		p.advance()
		p.pipelessText(nodeIndent)
		break
	}

	m.done(NodeComment)
}

func (p *parser) parseConditionalStatement(nodeIndent int) {
	m := p.mark()
	header := p.mark()

	p.advance()
	if !p.expect(token.JSExpr) {
		header.drop()
		m.done(NodeConditionalStatement)
		return
	}
	p.advance()
	header.done(NodeConditionalHeader)

	if !p.atEOL() {
		p.expect(token.Indent)
		m.done(NodeConditionalStatement)
		return
	}

	p.parseSmthWithElse(nodeIndent, NodeConditionalBody, NodeConditionalElse)
	m.done(NodeConditionalStatement)
}

// parseSmthWithElse collects a body while lines are deeper than the header,
// then binds an else branch whose line lands exactly on the header indent.
func (p *parser) parseSmthWithElse(nodeIndent int, bodyKind, elseKind NodeKind) {
	p.passExcessEOLs()

	blockIndent := p.currentIndent()
	var body *marker
	if blockIndent > nodeIndent {
		b := p.mark()
		body = &b
	} else if blockIndent == nodeIndent {
		// no body; the next line may still be an else
		blockIndent++
	}
	closeBody := func() {
		if body != nil {
			body.done(bodyKind)
			body = nil
		}
	}

	for !p.eof() {
		p.passExcessEOLs()
		current := p.currentIndent()
		if current < nodeIndent {
			closeBody()
			break
		}

		if current < blockIndent {
			closeBody()
			if p.lookahead(1) == token.ElseKeyword {
				p.advance()

				elseBody := p.mark()
				p.advance()
				if p.is(token.CondKeyword) && p.enter() {
					p.parseConditionalStatement(current)
					p.leave()
				} else {
					p.passExcessEOLs()
					p.parseTopLevel(current)
				}
				elseBody.done(elseKind)
			}
			break
		}

		p.passExcessEOLs()
		p.parseTopLevel(nodeIndent)
	}

	closeBody()
}

func (p *parser) parseForStatement(nodeIndent int) {
	m := p.mark()
	p.advance()
	if p.expect(token.JSEachExpr) {
		p.advance()
	}

	if !p.atEOL() {
		p.expect(token.Indent)
		m.done(NodeForStatement)
		return
	}

	p.parseSmthWithElse(nodeIndent, NodeForBody, NodeForElse)
	m.done(NodeForStatement)
}

func (p *parser) parseCaseStatement(nodeIndent int) {
	m := p.mark()
	p.advance()
	if p.expect(token.JSExpr) {
		p.advance()
	}

	p.passExcessEOLs()
	p.expect(token.Indent)

	blockIndent := p.currentIndent()
	if blockIndent <= nodeIndent {
		m.done(NodeCaseStatement)
		return
	}

	for !p.eof() {
		p.passExcessEOLs()
		if p.currentIndent() < blockIndent {
			break
		}
		p.passEOLs()
		p.parseCaseWhen(blockIndent)
	}

	m.done(NodeCaseStatement)
}

func (p *parser) parseCaseWhen(nodeIndent int) {
	m := p.mark()

	k := p.kind()
	if k != token.WhenKeyword && k != token.DefaultKeyword {
		// the rest of the line goes too, so the next branch stays in the case
		p.advance()
		for p.notEOLOrEOF() {
			p.advance()
		}
		m.fail("expected 'when' or 'default', found %s", describe(k))
		return
	}
	p.advance()

	if k == token.WhenKeyword && p.expect(token.JSExpr) {
		p.advance()
	}

	if p.is(token.Colon) {
		p.advance()
		p.parseNested(nodeIndent)
	} else {
		p.parseTopLevel(nodeIndent)
	}

	m.done(NodeWhenStatement)
}

func (p *parser) parseIncludeStatement(nodeIndent int) {
	include := p.is(token.IncludeKeyword)

	m := p.mark()
	p.advance()

	if include && p.is(token.Colon) {
		filter := p.mark()
		p.advance()
		if p.expect(token.FilterName) {
			p.advance()
		}
		if p.is(token.LParen) {
			p.parseAttributeList()
		}
		filter.done(NodeFilter)
	}

	if p.expect(token.FilePath) {
		path := p.mark()
		p.advance()
		path.done(NodeFilePath)
	}

	if include {
		p.parseTopLevel(nodeIndent)
	}

	m.done(NodeIncludeStatement)
}

func (p *parser) parseMixinDeclaration(nodeIndent int) {
	m := p.mark()

	p.advance()
	if p.expectNamed(token.Identifier, "mixin name") {
		p.advance()
	}
	if p.is(token.JSMixinParams) {
		p.advance()
	}

	p.passExcessEOLs()

	if p.notEOLOrEOF() {
		p.expect(token.Indent)
	} else if p.currentIndent() <= nodeIndent {
		// a declaration without a body is a call
		m.rollback()
		p.parseMixinDeclarationLikeInvocation()
		return
	}

	p.parseTopLevel(nodeIndent)
	m.done(NodeMixinDeclaration)
}

func (p *parser) parseMixinDeclarationLikeInvocation() {
	m := p.mark()

	p.advance()
	if p.expectNamed(token.Identifier, "mixin name") {
		p.advance()
	}
	if p.is(token.JSMixinParams) {
		args := p.mark()
		p.advance()
		args.done(NodeMixinArguments)
	}

	m.done(NodeMixin)
}

// parseBlock consumes the lines deeper than parentIndent without statement
// dispatch, as the body of `tag.` and of filters.
func (p *parser) parseBlock(parentIndent int) {
	p.passExcessEOLs()
	blockIndent := p.currentIndent()
	if blockIndent <= parentIndent {
		return
	}
	p.passEOLs()

	m := p.mark()
	for !p.eof() {
		if !p.atEOL() {
			p.parseRawPart()
			continue
		}

		p.passExcessEOLs()
		current := p.currentIndent()
		if current <= parentIndent || current < blockIndent {
			break
		}
		p.advance()
	}
	m.done(NodeBlock)
}

// pipelessText consumes raw lines deeper than indent. Nothing inside is
// parsed as a statement and nothing inside is an error.
func (p *parser) pipelessText(indent int) {
	seenNonWhitespace := false
	m := p.mark()

	for !p.eof() {
		if !p.atEOL() {
			seenNonWhitespace = true
			p.parseRawPart()
			continue
		}

		p.passExcessEOLs()
		if p.currentIndent() <= indent {
			break
		}
		p.advance()
	}

	if !seenNonWhitespace {
		m.drop()
		return
	}
	m.done(NodePipelessText)
}

func (p *parser) parseRawPart() {
	switch {
	case p.is(token.Text):
		p.parsePlainTextLine()
	case token.Content.Has(p.kind()) || p.is(token.Embedded):
		p.parseContent()
	default:
		p.advance()
	}
}

func (p *parser) parseDoctype(nodeIndent int) {
	m := p.mark()
	p.advance()

	for p.notEOLOrEOF() {
		if p.is(token.Text) {
			p.parsePlainTextLine()
		} else {
			p.advance()
		}
	}

	p.passExcessEOLs()
	if p.currentIndent() > nodeIndent {
		p.expect(token.EOL)
	}

	m.done(NodeDoctype)
}

func (p *parser) parseYieldStatement(nodeIndent int) {
	m := p.mark()
	p.advance()

	for p.notEOLOrEOF() {
		p.expect(token.EOL)
		p.advance()
	}
	p.passExcessEOLs()
	if p.currentIndent() > nodeIndent {
		p.expect(token.EOL)
	}

	m.done(NodeYieldStatement)
}
