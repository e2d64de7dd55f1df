// Package workspace parses many template files at once.
package workspace

import (
	"context"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/gopug/pkg/config"
	"github.com/walteh/gopug/pkg/parser"
)

type Driver struct {
	Fs afero.Fs
	// Root is the directory patterns are matched against.
	Root   string
	Config *config.Config
	// TabWidth, when positive, overrides .editorconfig and the config file.
	TabWidth int
}

// Result is the outcome for one file. Err is set when the file could not be
// read; Tree is nil then.
type Result struct {
	Path     string
	ID       uuid.UUID
	TabWidth int
	Tree     *parser.Tree
	Err      error
}

func New(fs afero.Fs, root string, cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Driver{Fs: fs, Root: root, Config: cfg}
}

// Open returns a driver for root configured from configPath, or from the
// nearest config file above root when configPath is empty.
func Open(fs afero.Fs, root, configPath string) (*Driver, error) {
	if configPath == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Errorf("resolving root %s: %w", root, err)
		}
		configPath, _ = config.Find(fs, abs)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(fs, configPath)
		if err != nil {
			return nil, errors.Errorf("loading %s: %w", configPath, err)
		}
		cfg = loaded
	}
	return New(fs, root, cfg), nil
}

// Resolve turns command line arguments into file paths. Arguments naming an
// existing file are kept as given; the rest are Glob patterns. No arguments
// means the configured include list.
func (d *Driver) Resolve(args []string) ([]string, error) {
	var files, patterns []string
	for _, arg := range args {
		if info, err := d.Fs.Stat(arg); err == nil && !info.IsDir() {
			files = append(files, arg)
			continue
		}
		patterns = append(patterns, arg)
	}
	if len(files) > 0 && len(patterns) == 0 {
		return files, nil
	}

	matched, err := d.Glob(patterns...)
	if err != nil {
		return nil, err
	}
	for _, m := range matched {
		if !slices.Contains(files, m) {
			files = append(files, m)
		}
	}
	return files, nil
}

// Glob returns the files under Root matching any pattern and no exclude
// pattern, sorted and joined with Root. Without patterns the configured
// include list is used.
func (d *Driver) Glob(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = d.Config.Include
	}

	root, err := filepath.Abs(d.Root)
	if err != nil {
		return nil, errors.Errorf("resolving root %s: %w", d.Root, err)
	}
	fsys := afero.NewIOFS(afero.NewBasePathFs(d.Fs, root))

	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("matching %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || d.excluded(m) {
				continue
			}
			seen[m] = true
			out = append(out, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	slices.Sort(out)
	return out, nil
}

func (d *Driver) excluded(rel string) bool {
	for _, pattern := range d.Config.Exclude {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}
	return false
}

func (d *Driver) jobs(n int) int {
	jobs := d.Config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

// ParseAll parses every path in parallel. Results keep the order of paths.
// Files that cannot be read are reported together in the returned error
// while the others are still parsed; cancelling ctx stops the whole run.
func (d *Driver) ParseAll(ctx context.Context, paths []string) ([]Result, error) {
	base, err := d.Config.Options(ctx)
	if err != nil {
		return nil, errors.Errorf("configuring parser: %w", err)
	}

	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.jobs(len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := d.parseFile(gctx, path, base)
			results[i] = r
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, errors.Errorf("parsing workspace: %w", err)
	}

	var readErr error
	for _, r := range results {
		multierr.AppendInto(&readErr, r.Err)
	}
	if readErr != nil {
		return results, errors.Errorf("reading workspace: %w", readErr)
	}
	return results, nil
}

// TabWidthFor resolves the tab width of path: the driver override, then
// .editorconfig, then fallback, then the parser default.
func (d *Driver) TabWidthFor(ctx context.Context, path string, fallback int) int {
	if d.TabWidth > 0 {
		return d.TabWidth
	}
	if fallback <= 0 {
		fallback = parser.DefaultTabWidth
	}
	width, err := config.TabWidth(d.Fs, path, fallback)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("file", path).Msg("ignoring editorconfig")
	}
	return width
}

// parseFile fails only when ctx ends; read failures are kept in the result.
func (d *Driver) parseFile(ctx context.Context, path string, opts parser.Options) (Result, error) {
	r := Result{Path: path, ID: uuid.New()}
	logger := zerolog.Ctx(ctx).With().Str("parse_id", r.ID.String()).Str("file", path).Logger()
	ctx = logger.WithContext(ctx)

	data, err := afero.ReadFile(d.Fs, path)
	if err != nil {
		r.Err = errors.Errorf("reading %s: %w", path, err)
		logger.Debug().Err(err).Msg("unreadable file")
		return r, nil
	}

	r.TabWidth = d.TabWidthFor(ctx, path, opts.TabWidth)
	opts.TabWidth = r.TabWidth

	tree, err := parser.Parse(ctx, string(data), opts)
	r.Tree = tree
	if err != nil {
		return r, errors.Errorf("parsing %s: %w", path, err)
	}
	logger.Debug().Int("tab_width", r.TabWidth).Int("diagnostics", len(tree.Diagnostics())).Msg("parsed file")
	return r, nil
}
