package get_diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/cmd/gopug/cmdutil"
)

func setupFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestGetDiagnostics(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		format      string
		want        string
		wantProblem bool
		expectError bool
	}{
		{
			name:   "clean",
			files:  map[string]string{"/proj/a.pug": "p\n  span hi\n"},
			format: "text",
			want:   "",
		},
		{
			name:        "text",
			files:       map[string]string{"/proj/a.pug": "p\nelse\n  p\n"},
			format:      "text",
			want:        "/proj/a.pug:2:1: error: unexpected 'else'\n",
			wantProblem: true,
		},
		{
			name:        "unknown format",
			files:       map[string]string{"/proj/a.pug": "p\n"},
			format:      "xml",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := &Handler{
				fs:        setupFs(t, tt.files),
				workspace: cmdutil.Workspace{Root: "/proj"},
				format:    tt.format,
			}

			var out bytes.Buffer
			err := me.Run(context.Background(), &out, nil)
			switch {
			case tt.expectError:
				require.Error(t, err)
				assert.False(t, errors.Is(err, ErrProblems))
				return
			case tt.wantProblem:
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrProblems))
			default:
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestGetDiagnosticsVSCode(t *testing.T) {
	me := &Handler{
		fs:        setupFs(t, map[string]string{"/proj/a.pug": "p\nelse\n  p\n"}),
		workspace: cmdutil.Workspace{Root: "/proj"},
		format:    "vscode",
	}

	var out bytes.Buffer
	err := me.Run(context.Background(), &out, []string{"/proj/a.pug"})
	require.ErrorIs(t, err, ErrProblems)

	var got []struct {
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Source   string `json:"source"`
		Range    struct {
			Start struct {
				Line      int `json:"line"`
				Character int `json:"character"`
			} `json:"start"`
		} `json:"range"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "unexpected 'else'", got[0].Message)
	assert.Equal(t, "/proj/a.pug", got[0].Source)
	assert.Equal(t, 1, got[0].Range.Start.Line)
	assert.Equal(t, 0, got[0].Range.Start.Character)
}
