// Package parser builds the concrete syntax tree of a template.
//
// The token pipeline is
//
//	lexer.Tokenize -> merge.Merge -> embed.Classify -> interp.Splitter
//
// and the parser consumes the result with unbounded lookahead and marker
// rollback. Parsing never fails on bad input: problems become Error nodes
// carrying diagnostics, and a tree is always returned.
package parser

import (
	"context"
	"iter"
	"slices"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/pkg/embed"
	"github.com/walteh/gopug/pkg/interp"
	"github.com/walteh/gopug/pkg/lexer"
	"github.com/walteh/gopug/pkg/merge"
	"github.com/walteh/gopug/pkg/token"
)

const (
	DefaultTabWidth = 4
	DefaultMaxDepth = 256
)

// DefaultRecovery is where greedy error recovery stops: line breaks and the
// keywords that reliably begin a statement.
func DefaultRecovery() []token.Kind {
	return append([]token.Kind{token.EOL, token.Indent}, token.Keywords.Kinds()...)
}

type Options struct {
	// TabWidth is the column width of a tab. Zero means DefaultTabWidth.
	TabWidth int
	// Registry resolves embedded languages. Nil means embed.DefaultRegistry().
	Registry *embed.Registry
	// MaxDepth bounds statement nesting. Zero means DefaultMaxDepth.
	MaxDepth int
	// Recovery overrides DefaultRecovery.
	Recovery []token.Kind
}

func (o Options) withDefaults() Options {
	if o.TabWidth <= 0 {
		o.TabWidth = DefaultTabWidth
	}
	if o.Registry == nil {
		o.Registry = embed.DefaultRegistry()
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Recovery == nil {
		o.Recovery = DefaultRecovery()
	}
	return o
}

// TokenStream returns the fully classified token stream of src.
func TokenStream(ctx context.Context, src string, opts Options) iter.Seq[token.Token] {
	opts = opts.withDefaults()
	seq := lexer.Tokenize(src, opts.TabWidth)
	seq = merge.Merge(seq)
	seq = embed.Classify(ctx, seq, opts.Registry)
	return interp.Splitter(seq)
}

// Tokens collects TokenStream.
func Tokens(ctx context.Context, src string, opts Options) []token.Token {
	return slices.Collect(TokenStream(ctx, src, opts))
}

// Parse runs the whole pipeline over src. The returned error is non-nil only
// when ctx ends before parsing finishes; the partial tree is still returned,
// with the unparsed remainder under a single Error node.
func Parse(ctx context.Context, src string, opts Options) (*Tree, error) {
	opts = opts.withDefaults()
	logger := zerolog.Ctx(ctx)

	toks := Tokens(ctx, src, opts)
	logger.Trace().Int("bytes", len(src)).Int("tokens", len(toks)).Msg("tokenized")

	p := newParser(ctx, src, toks, opts)
	tree := &Tree{Source: src, Root: p.parseDocument()}

	logger.Trace().Int("diagnostics", len(tree.Diagnostics())).Bool("halted", p.halted).Msg("parsed")

	if p.haltErr != nil {
		return tree, errors.Errorf("parsing: %w", p.haltErr)
	}
	return tree, nil
}
