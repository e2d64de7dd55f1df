package diagnostic

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gopug/pkg/position"
)

// Diagnostic represents a single problem found while parsing
type Diagnostic struct {
	Message  string
	Span     position.Span
	Severity DiagnosticSeverity
}

// DiagnosticSeverity represents the severity level of a diagnostic
type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

// vscode numbering
func (s DiagnosticSeverity) code() int {
	switch s {
	case Warning:
		return 2
	case Info:
		return 3
	case Hint:
		return 4
	default:
		return 1
	}
}

func Errorf(span position.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Message: fmt.Sprintf(format, args...), Span: span, Severity: Error}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Span, d.Severity, d.Message)
}

// Sort orders diagnostics by start offset, then end offset. The sort is
// stable, so diagnostics at the same place keep the order they were found in.
func Sort(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		if a.Span.Start != b.Span.Start {
			return a.Span.Start - b.Span.Start
		}
		return a.Span.End - b.Span.End
	})
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	// Format formats diagnostics of one file into a specific output format
	Format(file string, loc *position.Locator, diagnostics []Diagnostic) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePlace struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePlace `json:"start"`
	End   vscodePlace `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Source   string      `json:"source,omitempty"`
	Range    vscodeRange `json:"range"`
}

// Format implements Formatter. Lines and characters are zero-based.
func (f *VSCodeFormatter) Format(file string, loc *position.Locator, diagnostics []Diagnostic) ([]byte, error) {
	if loc == nil {
		return nil, errors.Errorf("formatting %s: locator is nil", file)
	}

	result := make([]vscodeDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		r := loc.Range(d.Span)
		result = append(result, vscodeDiagnostic{
			Severity: d.Severity.code(),
			Message:  d.Message,
			Source:   file,
			Range: vscodeRange{
				Start: vscodePlace{Line: r.Start.Line, Character: r.Start.Character},
				End:   vscodePlace{Line: r.End.Line, Character: r.End.Character},
			},
		})
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics: %w", err)
	}
	return out, nil
}

// TextFormatter writes one `file:line:col: severity: message` line per
// diagnostic, one-based like compiler output.
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (f *TextFormatter) Format(file string, loc *position.Locator, diagnostics []Diagnostic) ([]byte, error) {
	if loc == nil {
		return nil, errors.Errorf("formatting %s: locator is nil", file)
	}

	var sb strings.Builder
	for _, d := range diagnostics {
		p := loc.Place(d.Span.Start)
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", file, p.Line+1, p.Character+1, d.Severity, d.Message)
	}
	return []byte(sb.String()), nil
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "vscode", "json":
		return NewVSCodeFormatter(), nil
	case "text", "":
		return NewTextFormatter(), nil
	default:
		return nil, errors.Errorf("unknown diagnostic format %q", name)
	}
}
