package get_diagnostics

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/cmd/gopug/cmdutil"
	"github.com/walteh/gopug/pkg/diagnostic"
	"github.com/walteh/gopug/pkg/position"
)

// ErrProblems is returned when any file has diagnostics.
var ErrProblems = errors.Base("problems found")

type Handler struct {
	fs        afero.Fs
	workspace cmdutil.Workspace
	format    string // vscode, json, text
}

func NewGetDiagnosticsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "get-diagnostics [file or pattern...]",
		Short: "report syntax errors in pug templates",
	}

	me.workspace.AddFlags(cmd)
	cmd.Flags().StringVar(&me.format, "format", "text", "the format of the diagnostics (text, vscode, json)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	formatter, err := diagnostic.NewFormatter(me.format)
	if err != nil {
		return err
	}

	d, paths, err := me.workspace.Open(me.fs, args)
	if err != nil {
		return err
	}

	results, err := d.ParseAll(ctx, paths)
	if results == nil {
		return err
	}

	count := 0
	for _, r := range results {
		if r.Tree == nil {
			continue
		}
		diags := r.Tree.Diagnostics()
		count += len(diags)
		zerolog.Ctx(ctx).Debug().Str("file", r.Path).Int("diagnostics", len(diags)).Msg("checked file")

		formatted, ferr := formatter.Format(r.Path, position.NewLocator(r.Tree.Source), diags)
		if ferr != nil {
			return errors.Errorf("formatting %s: %w", r.Path, ferr)
		}
		if _, werr := out.Write(formatted); werr != nil {
			return errors.Errorf("writing diagnostics: %w", werr)
		}
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Errorf("%w: %d in %d files", ErrProblems, count, len(paths))
	}
	return nil
}
