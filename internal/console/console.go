// Package console writes operator-facing status lines.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 43

// Output prints styled status messages. Colors are dropped automatically when
// the writer is not a terminal.
type Output struct {
	w     io.Writer
	info  lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	faint lipgloss.Style
}

func New(w io.Writer) *Output {
	r := lipgloss.NewRenderer(w)
	return &Output{
		w:     w,
		info:  r.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		err:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		faint: r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer { return o.w }

func (o *Output) Info(format string, args ...any) {
	fmt.Fprintln(o.w, o.info.Render(fmt.Sprintf(format, args...)))
}

func (o *Output) Warn(format string, args ...any) {
	fmt.Fprintln(o.w, o.warn.Render(fmt.Sprintf(format, args...)))
}

func (o *Output) Error(format string, args ...any) {
	fmt.Fprintln(o.w, o.err.Render(fmt.Sprintf(format, args...)))
}

// Line prints unstyled text.
func (o *Output) Line(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Rule prints a separator between install stages.
func (o *Output) Rule() {
	fmt.Fprintln(o.w, o.faint.Render(strings.Repeat("=", ruleWidth)))
}
