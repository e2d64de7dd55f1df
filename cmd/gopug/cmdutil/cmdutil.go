// Package cmdutil holds the workspace flags shared by the gopug commands.
package cmdutil

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/pkg/workspace"
)

type Workspace struct {
	Root     string
	Config   string
	TabWidth int
	Jobs     int
}

func (w *Workspace) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.Root, "root", ".", "the directory patterns are matched against")
	cmd.Flags().StringVar(&w.Config, "config", "", "the config file (default: nearest .gopug.hcl or .gopug.yaml above root)")
	cmd.Flags().IntVar(&w.TabWidth, "tab-width", 0, "the tab width, overriding .editorconfig and the config file")
	cmd.Flags().IntVar(&w.Jobs, "jobs", 0, "the number of files parsed at once (default: config, then GOMAXPROCS)")
}

// Open builds a workspace driver and resolves args into the files to work on.
func (w *Workspace) Open(fs afero.Fs, args []string) (*workspace.Driver, []string, error) {
	d, err := workspace.Open(fs, w.Root, w.Config)
	if err != nil {
		return nil, nil, err
	}
	d.TabWidth = w.TabWidth
	if w.Jobs > 0 {
		d.Config.Jobs = w.Jobs
	}

	paths, err := d.Resolve(args)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, errors.Errorf("no template files found under %s", w.Root)
	}
	return d, paths, nil
}
