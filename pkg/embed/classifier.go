package embed

import (
	"context"
	"iter"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/atom"

	"github.com/walteh/gopug/pkg/token"
)

type state int

const (
	nothing state = iota
	// inScript: inside the header of a raw-text tag
	inScript
	// seenName: the attribute name "type" was just read
	seenName
	// seenNameAndEq: "type=" was read, the next value is the media type
	seenNameAndEq
)

// Decision is a pending reclassification of the next content token.
type Decision struct {
	Trigger  Trigger
	Language string
}

// neutral kinds keep the raw-tag state alive between attributes.
var neutral = token.NewSet(
	token.LParen,
	token.RParen,
	token.Comma,
	token.Whitespace,
	token.TagID,
	token.Dot,
	token.TagClass,
)

// resets start a statement that cannot own the pending content.
var resets = token.NewSet(
	token.FilePath,
	token.Pipe,
	token.Plus,
	token.JSMetaCode,
	token.Comment,
	token.UnbufferedComment,
	token.CondKeyword,
	token.ElseKeyword,
	token.EachKeyword,
	token.CaseKeyword,
	token.WhenKeyword,
	token.DefaultKeyword,
	token.IncludeKeyword,
	token.ExtendsKeyword,
	token.MixinKeyword,
	token.DoctypeKeyword,
	token.YieldKeyword,
)

// Classifier is the single-pass state machine. The zero value is not usable;
// create one per token stream with NewClassifier.
type Classifier struct {
	reg     *Registry
	logger  *zerolog.Logger
	state   state
	pending *Decision
}

func NewClassifier(ctx context.Context, reg *Registry) *Classifier {
	return &Classifier{reg: reg, logger: zerolog.Ctx(ctx)}
}

// Pending returns the decision waiting for a content token, if any.
func (c *Classifier) Pending() (Decision, bool) {
	if c.pending == nil {
		return Decision{}, false
	}
	return *c.pending, true
}

func (c *Classifier) decide(d *Decision) {
	c.pending = d
	if d != nil {
		c.logger.Trace().Str("trigger", d.Trigger.String()).Str("language", d.Language).Msg("pending embedded content")
	}
}

// Next feeds one token through the state machine and returns it, possibly
// reclassified as Embedded.
func (c *Classifier) Next(t token.Token) token.Token {
	switch {
	case t.Kind == token.TagName:
		c.tag(t)
		return t

	case t.Kind == token.FilterName:
		c.state = nothing
		// the innermost filter of a chain receives the raw content
		if lang, ok := c.reg.LookupFilter(t.Text); ok {
			c.decide(&Decision{Trigger: Filter(t.Text), Language: lang})
		} else {
			c.decide(nil)
		}
		return t

	case token.Content.Has(t.Kind):
		c.state = nothing
		if c.pending == nil {
			return t
		}
		out := t
		out.Kind = token.Embedded
		out.Language = c.pending.Language
		c.pending = nil
		return out

	case resets.Has(t.Kind):
		c.state = nothing
		c.decide(nil)
		return t
	}

	if c.state == nothing || neutral.Has(t.Kind) {
		return t
	}

	switch {
	case t.Kind == token.AttrName:
		if strings.EqualFold(strings.TrimSpace(t.Text), "type") {
			c.state = seenName
		} else {
			c.state = inScript
		}
	case t.Kind == token.Eq || t.Kind == token.NEq:
		if c.state == seenName {
			c.state = seenNameAndEq
		}
	case t.Kind == token.AttrValue:
		// values of other attributes leave the watch open
		if c.state == seenNameAndEq {
			c.mime(t.Text)
		}
		c.state = inScript
	default:
		c.state = nothing
	}
	return t
}

// tag handles a tag name: raw-text elements open the attribute watch and
// take their default language from the tag table, anything else drops the
// pending decision. Names are case-sensitive, so SCRIPT is an ordinary tag.
func (c *Classifier) tag(t token.Token) {
	switch atom.Lookup([]byte(t.Text)) {
	case atom.Script, atom.Style:
		c.state = inScript
		if lang, ok := c.reg.LookupTag(t.Text); ok {
			c.decide(&Decision{Trigger: Tag(t.Text), Language: lang})
		} else {
			c.decide(nil)
		}
	default:
		c.state = nothing
		c.decide(nil)
	}
}

func (c *Classifier) mime(value string) {
	mime := NormalizeMIME(value)
	lang, ok := c.reg.ResolveMIME(mime)
	if !ok {
		c.decide(nil)
		return
	}
	c.decide(&Decision{Trigger: MIME(mime), Language: lang})
}

// Classify runs a fresh Classifier over in.
func Classify(ctx context.Context, in iter.Seq[token.Token], reg *Registry) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		c := NewClassifier(ctx, reg)
		for t := range in {
			if !yield(c.Next(t)) {
				return
			}
		}
	}
}
