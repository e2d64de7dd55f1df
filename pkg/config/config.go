// Package config loads gopug settings from HCL or YAML files and resolves
// per-file tab widths from .editorconfig.
package config

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/walteh/gopug/pkg/embed"
	"github.com/walteh/gopug/pkg/parser"
	"github.com/walteh/gopug/pkg/token"
)

// FileNames are the config files Find looks for, in order of preference.
var FileNames = []string{".gopug.hcl", ".gopug.yaml", ".gopug.yml"}

type Config struct {
	TabWidth int `json:"tab_width,omitempty" yaml:"tab_width,omitempty" hcl:"tab_width,optional"`
	MaxDepth int `json:"max_depth,omitempty" yaml:"max_depth,omitempty" hcl:"max_depth,optional"`
	// Jobs bounds the number of files parsed at once. Zero means one per CPU.
	Jobs int `json:"jobs,omitempty" yaml:"jobs,omitempty" hcl:"jobs,optional"`

	// Recovery names the tokens where greedy error recovery stops, see RecoveryNames.
	Recovery []string `json:"recovery,omitempty" yaml:"recovery,omitempty" hcl:"recovery,optional"`

	// Include and Exclude are doublestar patterns relative to the workspace root.
	Include []string `json:"include,omitempty" yaml:"include,omitempty" hcl:"include,optional"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,optional"`

	Filters []*Language `json:"filters,omitempty" yaml:"filters,omitempty" hcl:"filter,block"`
	MIMEs   []*Language `json:"mimes,omitempty" yaml:"mimes,omitempty" hcl:"mime,block"`
	Tags    []*Language `json:"tags,omitempty" yaml:"tags,omitempty" hcl:"tag,block"`
}

// Language maps one trigger key to a language.
type Language struct {
	Key      string `json:"key" yaml:"key" hcl:"key,label"`
	Language string `json:"language" yaml:"language" hcl:"language,attr"`
}

// RecoveryNames are the names accepted in Config.Recovery.
var RecoveryNames = map[string]token.Kind{
	"eol":     token.EOL,
	"indent":  token.Indent,
	"if":      token.CondKeyword,
	"unless":  token.CondKeyword,
	"else":    token.ElseKeyword,
	"each":    token.EachKeyword,
	"for":     token.EachKeyword,
	"while":   token.EachKeyword,
	"case":    token.CaseKeyword,
	"when":    token.WhenKeyword,
	"default": token.DefaultKeyword,
	"include": token.IncludeKeyword,
	"extends": token.ExtendsKeyword,
	"mixin":   token.MixinKeyword,
	"doctype": token.DoctypeKeyword,
	"yield":   token.YieldKeyword,
}

func Default() *Config {
	return &Config{
		TabWidth: parser.DefaultTabWidth,
		MaxDepth: parser.DefaultMaxDepth,
		Include:  []string{"**/*.pug", "**/*.jade"},
	}
}

// Find returns the first config file in dir or any parent directory.
func Find(fs afero.Fs, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if ok, _ := afero.Exists(fs, path); ok {
				return path, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads a config file. The format follows the extension: .yaml, .yml
// and .json are YAML, anything else is HCL. Unset fields take their defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}
	return Decode(data, path)
}

func Decode(data []byte, filename string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml", ".json":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		p := hclparse.NewParser()
		file, diags := p.ParseHCL(data, filename)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}
		diags = gohcl.DecodeBody(file.Body, evalContext(), cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", filename, err)
	}
	return cfg, nil
}

// evalContext exposes the built-in defaults to HCL expressions, as in
// `max_depth = defaults.max_depth * 2`.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"tab_width": cty.NumberIntVal(parser.DefaultTabWidth),
				"max_depth": cty.NumberIntVal(parser.DefaultMaxDepth),
			}),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.TabWidth < 0 {
		err = multierr.Append(err, errors.Errorf("tab_width must not be negative, got %d", c.TabWidth))
	}
	if c.MaxDepth < 0 {
		err = multierr.Append(err, errors.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if c.Jobs < 0 {
		err = multierr.Append(err, errors.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if _, rerr := c.RecoveryKinds(); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	for _, pattern := range slices.Concat(c.Include, c.Exclude) {
		if !doublestar.ValidatePattern(pattern) {
			err = multierr.Append(err, errors.Errorf("invalid pattern %q", pattern))
		}
	}
	for _, p := range c.Providers() {
		if strings.TrimSpace(p.Trigger.Key) == "" || strings.TrimSpace(p.Language) == "" {
			err = multierr.Append(err, errors.Errorf("%s block needs a key and a language", p.Trigger.Kind))
		}
	}
	return err
}

// RecoveryKinds maps Recovery to token kinds. It returns nil when Recovery
// is empty so the parser default applies.
func (c *Config) RecoveryKinds() ([]token.Kind, error) {
	if len(c.Recovery) == 0 {
		return nil, nil
	}
	var kinds []token.Kind
	var unknown []string
	for _, name := range c.Recovery {
		k, ok := RecoveryNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		kinds = append(kinds, k)
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, errors.Errorf("unknown recovery tokens: %s", strings.Join(unknown, ", "))
	}
	return kinds, nil
}

// Providers lists the configured languages in declaration order, filters
// first, then MIME types, then tags.
func (c *Config) Providers() []embed.Provider {
	var out []embed.Provider
	add := func(langs []*Language, trigger func(string) embed.Trigger) {
		for _, l := range langs {
			if l != nil {
				out = append(out, embed.Provider{Trigger: trigger(l.Key), Language: l.Language})
			}
		}
	}
	add(c.Filters, embed.Filter)
	add(c.MIMEs, embed.MIME)
	add(c.Tags, embed.Tag)
	return out
}

// Registry returns the default registry with the configured languages
// applied. A configured trigger replaces the default one; two configured
// entries for the same trigger with different languages are a conflict.
func (c *Config) Registry(ctx context.Context) (*embed.Registry, error) {
	reg := embed.DefaultRegistry()
	providers := c.Providers()

	for _, p := range providers {
		if lang, ok := reg.Lookup(p.Trigger); ok && lang != p.Language {
			zerolog.Ctx(ctx).Debug().Str("trigger", p.Trigger.String()).Str("default", lang).Str("language", p.Language).Msg("overriding default language")
			reg.Unregister(p.Trigger)
		}
	}

	if err := reg.RegisterAll(ctx, providers); err != nil {
		return nil, errors.Errorf("building registry: %w", err)
	}
	return reg, nil
}

// Options builds parser options from the config.
func (c *Config) Options(ctx context.Context) (parser.Options, error) {
	reg, err := c.Registry(ctx)
	if err != nil {
		return parser.Options{}, err
	}
	recovery, err := c.RecoveryKinds()
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{
		TabWidth: c.TabWidth,
		MaxDepth: c.MaxDepth,
		Registry: reg,
		Recovery: recovery,
	}, nil
}
