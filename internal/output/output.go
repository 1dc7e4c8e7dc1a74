// Package output renders CLI results as styled text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

// Format selects how results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (use text or json)", s)
	}
}

// Palette used for styled output.
const (
	ColorAccent = "154"
	ColorGray   = "245"
	ColorRed    = "196"
	ColorYellow = "220"
)

// Styles holds the lipgloss styles used by Writer.
type Styles struct {
	Header  lipgloss.Style
	Score   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns pass-through styles.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Score: plain, Dim: plain, Success: plain, Warning: plain, Error: plain}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
	format Format
}

// New creates a Writer. Colors are used only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer, format Format) *Writer {
	styles := NoColorStyles()
	if IsTTY(out) && !DetectNoColor() {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles, format: format}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// MatchJSON is the JSON shape of one match.
type MatchJSON struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// Matches prints ranked matches for query.
func (w *Writer) Matches(query string, matches []rank.Match) error {
	if w.format == FormatJSON {
		out := make([]MatchJSON, len(matches))
		for i, m := range matches {
			out[i] = MatchJSON{Text: m.Text, Score: m.Score, Source: m.Source}
		}
		return w.json(struct {
			Query   string      `json:"query"`
			Matches []MatchJSON `json:"matches"`
		}{query, out})
	}

	if len(matches) == 0 {
		w.Warningf("No match for %q", query)
		return nil
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(fmt.Sprintf("Matches for %q", query)))
	for i, m := range matches {
		line := fmt.Sprintf("%3d. %s  %s", i+1, w.styles.Score.Render(fmt.Sprintf("%.3f", m.Score)), m.Text)
		if m.Source != "" {
			line += "  " + w.styles.Dim.Render(filepath.Base(m.Source))
		}
		_, _ = fmt.Fprintln(w.out, line)
	}
	return nil
}

// Street prints the outcome of a street lookup.
func (w *Writer) Street(query string, m street.MatchedStreet) error {
	if w.format == FormatJSON {
		return w.json(struct {
			Query string `json:"query"`
			street.MatchedStreet
			Found bool `json:"found"`
		}{query, m, m.Found()})
	}

	if !m.Found() {
		w.Warningf("No street matched %q", query)
		return nil
	}
	line := fmt.Sprintf("%s  %s", w.styles.Score.Render(fmt.Sprintf("%.3f", m.Score)), m.Street)
	if m.Source != "" {
		line += "  " + w.styles.Dim.Render("("+filepath.Base(m.Source)+")")
	}
	_, _ = fmt.Fprintln(w.out, line)
	return nil
}

// JSON prints v as indented JSON regardless of format.
func (w *Writer) JSON(v any) error {
	return w.json(v)
}

func (w *Writer) json(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Status prints a message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Code prints an indented block.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws a progress line in place. Pass total <= 0 when the
// total is unknown; only the count is shown then.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		_, _ = fmt.Fprintf(w.out, "\r%d %s", current, msg)
		return
	}
	pct := float64(current) / float64(total) * 100
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", renderProgressBar(current, total, 30), pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone ends a progress line.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := int(float64(current) / float64(total) * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
