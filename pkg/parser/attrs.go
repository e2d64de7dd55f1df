package parser

import "github.com/walteh/gopug/pkg/token"

var (
	// attrResync is where a broken attribute resumes.
	attrResync = token.NewSet(token.AttrName, token.RParen)
	// attrStart is where junk between attributes ends.
	attrStart = token.NewSet(token.AttrName, token.Comma, token.RParen, token.Eq, token.NEq, token.AttrValue)
)

// parseAttributeList parses `(name, name=value, ...)` starting at the opening
// parenthesis. Problems are reported locally and never abandon the list
// before its closing parenthesis or the end of the line.
func (p *parser) parseAttributeList() {
	m := p.mark()
	p.advance()

	for {
		switch {
		case p.eof() || p.atEOL():
			p.error("expected ')', found %s", describe(p.kind()))
			m.done(NodeAttributeList)
			return
		case p.is(token.RParen):
			p.advance()
			m.done(NodeAttributeList)
			return
		case p.is(token.Comma):
			p.advance()
		case p.is(token.AttrName):
			p.parseAttribute()
		case p.is(token.Eq) || p.is(token.NEq) || p.is(token.AttrValue):
			// keep the orphan value in an attribute so recovery stays local
			attr := p.mark()
			p.error("value without attribute name")
			p.parseAttributeAssignment()
			attr.done(NodeAttribute)
		default:
			p.recover(attrStart, "unexpected %s in attribute list", describe(p.kind()))
		}
	}
}

func (p *parser) parseAttribute() {
	attr := p.mark()

	name := p.mark()
	p.advance()
	name.done(NodeAttributeName)

	// a name without a value is a boolean attribute
	if p.is(token.Eq) || p.is(token.NEq) {
		p.parseAttributeAssignment()
	}

	if p.is(token.AttrValue) || p.is(token.Eq) || p.is(token.NEq) {
		p.recover(attrResync, "attribute already has a value")
	}

	attr.done(NodeAttribute)
}

// parseAttributeAssignment parses `= value` or a bare value.
func (p *parser) parseAttributeAssignment() {
	if p.is(token.Eq) || p.is(token.NEq) {
		p.advance()
		if !p.is(token.AttrValue) {
			p.error("expected %s, found %s", describe(token.AttrValue), describe(p.kind()))
			return
		}
	}
	value := p.mark()
	p.advance()
	value.done(NodeAttributeValue)
}
