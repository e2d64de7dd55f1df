package get_tokens

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/cmd/gopug/cmdutil"
	"github.com/walteh/gopug/pkg/parser"
	"github.com/walteh/gopug/pkg/position"
	"github.com/walteh/gopug/pkg/token"
)

type Handler struct {
	fs        afero.Fs
	workspace cmdutil.Workspace
	trivia    bool
}

func NewGetTokensCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "get-tokens [file]",
		Short: "print the token stream the parser sees for a pug template",
	}

	me.workspace.AddFlags(cmd)
	cmd.Flags().BoolVar(&me.trivia, "trivia", false, "include whitespace tokens")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, path string) error {
	d, paths, err := me.workspace.Open(me.fs, []string{path})
	if err != nil {
		return err
	}

	opts, err := d.Config.Options(ctx)
	if err != nil {
		return errors.Errorf("configuring parser: %w", err)
	}

	for _, file := range paths {
		data, err := afero.ReadFile(me.fs, file)
		if err != nil {
			return errors.Errorf("reading %s: %w", file, err)
		}
		src := string(data)
		opts.TabWidth = d.TabWidthFor(ctx, file, d.Config.TabWidth)

		loc := position.NewLocator(src)
		for tok := range parser.TokenStream(ctx, src, opts) {
			if tok.Kind == token.Whitespace && !me.trivia {
				continue
			}
			p := loc.Place(tok.Span.Start)
			fmt.Fprintf(out, "%d:%d\t%s\n", p.Line+1, p.Character+1, tok)
		}
	}
	return ctx.Err()
}
