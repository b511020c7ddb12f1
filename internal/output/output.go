// Package output provides consistent CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer, enabling color only for terminals.
func New(out io.Writer, noColor bool) *Writer {
	return NewWithColor(out, UseColor(out, noColor))
}

// NewWithColor creates a Writer with color explicitly on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	styles := NoColorStyles()
	if color {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Success prints a success message with checkmark.
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

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Raw writes s in the error style without an icon. Used for pre-formatted
// multi-line error blocks.
func (w *Writer) Raw(s string) {
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(line))
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// KeyValue prints an aligned "label: value" line.
func (w *Writer) KeyValue(label, value string, width int) {
	pad := width - len(label)
	if pad < 1 {
		pad = 1
	}
	_, _ = fmt.Fprintf(w.out, "   %s%s%s\n", w.styles.Label.Render(label+":"), strings.Repeat(" ", pad), value)
}

// Fields prints document fields one per line, joining multi-select values.
func (w *Writer) Fields(fields []model.DocumentField, dateLayout string) {
	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	for _, f := range fields {
		values := make([]string, len(f.Values))
		for i, v := range f.Values {
			values[i] = FormatValue(v, dateLayout)
		}
		w.KeyValue(f.Name, strings.Join(values, ", "), width+2)
	}
}

// Header prints a section header.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Counts prints a sorted name: count listing.
func (w *Writer) Counts(counts map[string]int64) {
	names := make([]string, 0, len(counts))
	width := 0
	for name := range counts {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.KeyValue(name, fmt.Sprint(counts[name]), width+2)
	}
}

// Progress prints an in-place progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", w.styles.Success.Render(bar), pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := int(float64(current) / float64(total) * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatValue renders a field value for display. Dates use layout.
func FormatValue(v any, layout string) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(layout)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
