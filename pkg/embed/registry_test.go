package embed_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/pkg/embed"
)

func TestRegistryLookup(t *testing.T) {
	reg := embed.DefaultRegistry()

	tests := []struct {
		name    string
		lookup  func() (string, bool)
		want    string
		wantHit bool
	}{
		{
			name:    "exact filter",
			lookup:  func() (string, bool) { return reg.LookupFilter("markdown") },
			want:    "markdown",
			wantHit: true,
		},
		{
			name:    "filter prefix",
			lookup:  func() (string, bool) { return reg.LookupFilter("coffee-script") },
			want:    "coffeescript",
			wantHit: true,
		},
		{
			name:    "longest filter prefix wins",
			lookup:  func() (string, bool) { return reg.LookupFilter("jsonc") },
			want:    "json",
			wantHit: true,
		},
		{
			name:   "unknown filter",
			lookup: func() (string, bool) { return reg.LookupFilter("cdata") },
		},
		{
			name:    "mime with parameters and case",
			lookup:  func() (string, bool) { return reg.LookupMIME(" Text/JavaScript; charset=utf-8 ") },
			want:    "javascript",
			wantHit: true,
		},
		{
			name:    "style tag",
			lookup:  func() (string, bool) { return reg.LookupTag("STYLE") },
			want:    "css",
			wantHit: true,
		},
		{
			name:   "script tag has no default",
			lookup: func() (string, bool) { return reg.LookupTag("script") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup()
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMIME(t *testing.T) {
	reg := embed.DefaultRegistry()

	tests := []struct {
		mime    string
		want    string
		wantHit bool
	}{
		{mime: "text/babel", want: "javascript", wantHit: true},
		{mime: `"application/json"`, want: "json", wantHit: true},
		{mime: "text/x-unknown", want: embed.OpaqueData, wantHit: true},
		{mime: "", wantHit: false},
		{mime: `""`, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, ok := reg.ResolveMIME(tt.mime)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterConflict(t *testing.T) {
	ctx := context.Background()
	reg := embed.NewRegistry()

	require.NoError(t, reg.Register(ctx, embed.MIME("text/x-foo"), "foo"))
	require.NoError(t, reg.Register(ctx, embed.MIME("TEXT/X-FOO"), "foo"), "same mapping is idempotent")

	err := reg.Register(ctx, embed.MIME("text/x-foo; v=2"), "bar")
	require.Error(t, err)
	assert.True(t, errors.Is(err, embed.ErrConflict))

	got, ok := reg.LookupMIME("text/x-foo")
	require.True(t, ok)
	assert.Equal(t, "foo", got, "failed registration must not replace the mapping")
}

func TestRegisterRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	reg := embed.NewRegistry()

	assert.Error(t, reg.Register(ctx, embed.Filter(" "), "x"))
	assert.Error(t, reg.Register(ctx, embed.Filter("x"), ""))
}

func TestRegisterAllAggregates(t *testing.T) {
	ctx := context.Background()
	reg := embed.DefaultRegistry()

	err := reg.RegisterAll(ctx, []embed.Provider{
		{Trigger: embed.Filter("markdown"), Language: "commonmark"},
		{Trigger: embed.Filter("pug"), Language: "pug"},
		{Trigger: embed.MIME("text/css"), Language: "scss"},
	})
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)

	got, ok := reg.LookupFilter("pug")
	require.True(t, ok, "non-conflicting providers are still registered")
	assert.Equal(t, "pug", got)
}

func TestUnregister(t *testing.T) {
	reg := embed.DefaultRegistry()
	reg.Unregister(embed.Tag("Style"))

	_, ok := reg.LookupTag("style")
	assert.False(t, ok)
}

func TestProvidersSorted(t *testing.T) {
	ctx := context.Background()
	reg := embed.NewRegistry()
	require.NoError(t, reg.RegisterAll(ctx, []embed.Provider{
		{Trigger: embed.Tag("style"), Language: "css"},
		{Trigger: embed.Filter("b"), Language: "b"},
		{Trigger: embed.Filter("a"), Language: "a"},
		{Trigger: embed.MIME("text/x"), Language: "x"},
	}))

	got := reg.Providers()
	require.Len(t, got, 4)
	assert.Equal(t, "filter:a", got[0].Trigger.String())
	assert.Equal(t, "filter:b", got[1].Trigger.String())
	assert.Equal(t, "mime:text/x", got[2].Trigger.String())
	assert.Equal(t, "tag:style", got[3].Trigger.String())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	reg := embed.DefaultRegistry()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("f%d-%d", i, j)
				assert.NoError(t, reg.Register(ctx, embed.Filter(key), "x"))
				reg.Unregister(embed.Filter(key))
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				lang, ok := reg.LookupMIME("text/javascript")
				assert.True(t, ok)
				assert.Equal(t, "javascript", lang)
			}
		}()
	}
	wg.Wait()
}
