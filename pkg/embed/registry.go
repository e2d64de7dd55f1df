// Package embed decides which spans of a template belong to another
// language. A Registry maps triggers (filter names, script MIME types, raw
// tag names) to language keys; the classifier watches the token stream and
// turns the matching content tokens into Embedded tokens.
package embed

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// OpaqueData is the language of script content whose MIME type is not empty
// and not registered.
const OpaqueData = "data"

// ErrConflict is returned when a trigger is registered for two different languages.
var ErrConflict = errors.Base("conflicting embedded language provider")

type TriggerKind int

const (
	// FilterTrigger keys are filter names. Lookups match the longest
	// registered prefix of the filter written in the template.
	FilterTrigger TriggerKind = iota
	// MIMETrigger keys are media types from a script type attribute.
	MIMETrigger
	// TagTrigger keys are raw-text element names.
	TagTrigger
)

func (k TriggerKind) String() string {
	switch k {
	case FilterTrigger:
		return "filter"
	case MIMETrigger:
		return "mime"
	case TagTrigger:
		return "tag"
	default:
		return "unknown"
	}
}

type Trigger struct {
	Kind TriggerKind
	Key  string
}

func Filter(name string) Trigger { return Trigger{Kind: FilterTrigger, Key: name} }
func MIME(mime string) Trigger   { return Trigger{Kind: MIMETrigger, Key: mime} }
func Tag(name string) Trigger    { return Trigger{Kind: TagTrigger, Key: name} }

func (t Trigger) String() string {
	return t.Kind.String() + ":" + t.Key
}

// normalized returns the lookup form of the trigger key.
func (t Trigger) normalized() Trigger {
	switch t.Kind {
	case MIMETrigger:
		t.Key = NormalizeMIME(t.Key)
	case TagTrigger:
		t.Key = strings.ToLower(strings.TrimSpace(t.Key))
	default:
		t.Key = strings.TrimSpace(t.Key)
	}
	return t
}

// Provider is one trigger to language mapping.
type Provider struct {
	Trigger  Trigger
	Language string
}

// Registry is safe for concurrent use. Lookups take a read lock, so they can
// run alongside parses on other goroutines while registration is serialized.
type Registry struct {
	mu     sync.RWMutex
	tables map[TriggerKind]map[string]string
}

func NewRegistry() *Registry {
	return &Registry{tables: map[TriggerKind]map[string]string{
		FilterTrigger: {},
		MIMETrigger:   {},
		TagTrigger:    {},
	}}
}

// DefaultProviders are the languages known without any configuration.
func DefaultProviders() []Provider {
	return []Provider{
		{Filter("javascript"), "javascript"},
		{Filter("js"), "javascript"},
		{Filter("babel"), "javascript"},
		{Filter("json"), "json"},
		{Filter("coffee"), "coffeescript"},
		{Filter("typescript"), "typescript"},
		{Filter("ts"), "typescript"},
		{Filter("css"), "css"},
		{Filter("less"), "less"},
		{Filter("sass"), "sass"},
		{Filter("scss"), "scss"},
		{Filter("stylus"), "stylus"},
		{Filter("markdown"), "markdown"},
		{Filter("md"), "markdown"},

		{MIME("text/javascript"), "javascript"},
		{MIME("application/javascript"), "javascript"},
		{MIME("module"), "javascript"},
		{MIME("text/babel"), "javascript"},
		{MIME("text/jsx"), "javascript"},
		{MIME("application/json"), "json"},
		{MIME("application/ld+json"), "json"},
		{MIME("importmap"), "json"},
		{MIME("text/typescript"), "typescript"},
		{MIME("text/coffeescript"), "coffeescript"},
		{MIME("text/css"), "css"},
		{MIME("text/less"), "less"},
		{MIME("text/x-template"), "html"},
		{MIME("text/ng-template"), "html"},
		{MIME("text/x-handlebars-template"), "handlebars"},

		{Tag("style"), "css"},
	}
}

// DefaultRegistry returns a new registry holding DefaultProviders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range DefaultProviders() {
		t := p.Trigger.normalized()
		r.tables[t.Kind][t.Key] = p.Language
	}
	return r
}

// Register maps trigger to language. Registering the same mapping twice is a
// no-op; mapping a trigger that already names another language fails with
// ErrConflict.
func (r *Registry) Register(ctx context.Context, trigger Trigger, language string) error {
	t := trigger.normalized()
	if t.Key == "" {
		return errors.Errorf("registering %s: empty trigger key", trigger.Kind)
	}
	if language == "" {
		return errors.Errorf("registering %s: empty language", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.tables[t.Kind]
	if !ok {
		return errors.Errorf("registering %s: unknown trigger kind", t)
	}
	if existing, ok := table[t.Key]; ok && existing != language {
		return errors.Errorf("%w: %s is %q, not %q", ErrConflict, t, existing, language)
	}
	table[t.Key] = language

	zerolog.Ctx(ctx).Trace().Str("trigger", t.String()).Str("language", language).Msg("registered embedded language")
	return nil
}

// RegisterAll registers every provider and reports all failures together.
// Providers that do not conflict are registered even when others fail.
func (r *Registry) RegisterAll(ctx context.Context, providers []Provider) error {
	var result *multierror.Error
	for _, p := range providers {
		if err := r.Register(ctx, p.Trigger, p.Language); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.Errorf("registering providers: %w", err)
	}
	return nil
}

func (r *Registry) Unregister(trigger Trigger) {
	t := trigger.normalized()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables[t.Kind], t.Key)
}

// Lookup returns the language registered for exactly this trigger.
func (r *Registry) Lookup(trigger Trigger) (string, bool) {
	t := trigger.normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tables[t.Kind][t.Key]
	return lang, ok
}

// LookupFilter returns the language of the longest registered filter name
// that name starts with. Ties cannot happen since keys are unique.
func (r *Registry) LookupFilter(name string) (string, bool) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()

	best, lang := -1, ""
	for key, l := range r.tables[FilterTrigger] {
		if len(key) > best && strings.HasPrefix(name, key) {
			best, lang = len(key), l
		}
	}
	return lang, best >= 0
}

func (r *Registry) LookupMIME(mime string) (string, bool) {
	return r.Lookup(MIME(mime))
}

func (r *Registry) LookupTag(name string) (string, bool) {
	return r.Lookup(Tag(name))
}

// ResolveMIME applies the script type rules: an empty type means no
// reclassification, a registered type yields its language, and anything else
// is OpaqueData.
func (r *Registry) ResolveMIME(mime string) (string, bool) {
	if NormalizeMIME(mime) == "" {
		return "", false
	}
	if lang, ok := r.LookupMIME(mime); ok {
		return lang, true
	}
	return OpaqueData, true
}

// Providers returns a sorted snapshot of every registration.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for kind, table := range r.tables {
		for key, lang := range table {
			out = append(out, Provider{Trigger: Trigger{Kind: kind, Key: key}, Language: lang})
		}
	}
	slices.SortFunc(out, func(a, b Provider) int {
		if a.Trigger.Kind != b.Trigger.Kind {
			return int(a.Trigger.Kind) - int(b.Trigger.Kind)
		}
		return strings.Compare(a.Trigger.Key, b.Trigger.Key)
	})
	return out
}

// NormalizeMIME lowercases a media type and drops its parameters and any
// surrounding quotes.
func NormalizeMIME(mime string) string {
	mime = strings.TrimSpace(mime)
	mime = strings.Trim(mime, "\"'`")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
