package parse

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/gopug/cmd/gopug/cmdutil"
)

type Handler struct {
	fs         afero.Fs
	workspace  cmdutil.Workspace
	embeddings bool
}

func NewParseCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "parse [file or pattern...]",
		Short: "print the syntax tree of pug templates",
	}

	me.workspace.AddFlags(cmd)
	cmd.Flags().BoolVar(&me.embeddings, "embeddings", false, "also list the embedded sub-language spans")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

// Run prints every readable file's tree, then returns any read error.
func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	d, paths, err := me.workspace.Open(me.fs, args)
	if err != nil {
		return err
	}

	results, err := d.ParseAll(ctx, paths)
	if results == nil {
		return err
	}

	for _, r := range results {
		if r.Tree == nil {
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(out, "# %s\n", r.Path)
		}
		io.WriteString(out, r.Tree.Dump())

		if !me.embeddings {
			continue
		}
		for _, e := range r.Tree.Embeddings() {
			fmt.Fprintf(out, "embedded %s@%s %q\n", e.Language, e.Span, e.Masked(r.Tree.Source))
		}
	}
	return err
}
