package config

import (
	"path/filepath"
	"strconv"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const editorconfigName = ".editorconfig"

// TabWidth resolves the tab width for path from the .editorconfig files above
// it: tab_width first, then a numeric indent_size. The nearest file that sets
// either wins, and a file marked root = true ends the search. fallback is
// returned when nothing applies.
func TabWidth(fs afero.Fs, path string, fallback int) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fallback, errors.Errorf("resolving %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	for {
		ec, err := readEditorconfig(fs, filepath.Join(dir, editorconfigName))
		if err != nil {
			return fallback, err
		}
		if ec != nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return fallback, errors.Errorf("resolving %s: %w", path, err)
			}
			def, err := ec.GetDefinitionForFilename(filepath.ToSlash(rel))
			if err != nil {
				return fallback, errors.Errorf("matching %s in %s: %w", rel, dir, err)
			}
			if width, ok := definitionTabWidth(def); ok {
				return width, nil
			}
			if ec.Root {
				return fallback, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback, nil
		}
		dir = parent
	}
}

func readEditorconfig(fs afero.Fs, path string) (*editorconfig.Editorconfig, error) {
	f, err := fs.Open(path)
	if err != nil {
		// a missing file is the common case
		if ok, _ := afero.Exists(fs, path); !ok {
			return nil, nil
		}
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ec, err := editorconfig.Parse(f)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}
	return ec, nil
}

func definitionTabWidth(def *editorconfig.Definition) (int, bool) {
	if def == nil {
		return 0, false
	}
	if def.TabWidth > 0 {
		return def.TabWidth, true
	}
	if n, err := strconv.Atoi(def.Raw["tab_width"]); err == nil && n > 0 {
		return n, true
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}
