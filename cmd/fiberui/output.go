package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/install"
)

// printer writes user-facing output. Styles degrade to plain text when
// the writer is not a terminal.
type printer struct {
	stdout  io.Writer
	stderr  io.Writer
	profile termenv.Profile

	successStyle lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	failStyle    lipgloss.Style
	mutedStyle   lipgloss.Style
	accentStyle  lipgloss.Style
}

func newPrinter(stdout, stderr io.Writer) *printer {
	out := lipgloss.NewRenderer(stdout)
	errOut := lipgloss.NewRenderer(stderr)
	return &printer{
		stdout:       stdout,
		stderr:       stderr,
		profile:      errOut.ColorProfile(),
		successStyle: out.NewStyle().Foreground(lipgloss.Color("#00FA9A")),
		warnStyle:    out.NewStyle().Foreground(lipgloss.Color("#FFB454")),
		errorStyle:   errOut.NewStyle().Foreground(lipgloss.Color("#FF4C4C")).Bold(true),
		failStyle:    out.NewStyle().Foreground(lipgloss.Color("#FF4C4C")),
		mutedStyle:   out.NewStyle().Foreground(lipgloss.Color("#888888")),
		accentStyle:  out.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
	}
}

func (p *printer) println(format string, args ...any) {
	fmt.Fprintf(p.stdout, format+"\n", args...)
}

// success prints a success message.
func (p *printer) success(format string, args ...any) {
	fmt.Fprintf(p.stdout, "%s %s\n", p.successStyle.Render("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func (p *printer) info(format string, args ...any) {
	fmt.Fprintf(p.stdout, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func (p *printer) warn(format string, args ...any) {
	fmt.Fprintf(p.stdout, "%s %s\n", p.warnStyle.Render("⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func (p *printer) errorMsg(format string, args ...any) {
	fmt.Fprintf(p.stderr, "%s %s\n", p.errorStyle.Render("✗"), fmt.Sprintf(format, args...))
}

// statusWidth aligns file paths after the longest status, "overwritten".
const statusWidth = 11

// outcome prints the status line of one materialized file.
func (p *printer) outcome(o install.Outcome, display string) {
	status := string(o.Status)
	pad := strings.Repeat(" ", max(0, statusWidth-len(status)))
	switch o.Status {
	case install.Written:
		fmt.Fprintf(p.stdout, "%s %s%s %s\n", p.successStyle.Render("✓"), p.successStyle.Render(status), pad, display)
	case install.Overwritten:
		fmt.Fprintf(p.stdout, "%s %s%s %s\n", p.warnStyle.Render("↻"), p.warnStyle.Render(status), pad, display)
	case install.Skipped:
		fmt.Fprintf(p.stdout, "%s %s%s %s %s\n", p.mutedStyle.Render("-"), p.mutedStyle.Render(status), pad, display,
			p.mutedStyle.Render("(exists, use --overwrite to replace)"))
	default:
		fmt.Fprintf(p.stdout, "%s %s%s %s\n", p.failStyle.Render("✗"), p.failStyle.Render(status), pad, display)
		if o.Err != nil {
			fmt.Fprintf(p.stdout, "    %s\n", p.failStyle.Render(compact(o.Err)))
		}
	}
}

// summary prints the counts of a materialization.
func (p *printer) summary(s install.Summary) {
	line := fmt.Sprintf("%d written, %d overwritten, %d skipped, %d failed",
		s.Written, s.Overwritten, s.Skipped, s.Failed)
	if s.Failed > 0 {
		line = p.failStyle.Render(line)
	} else {
		line = p.mutedStyle.Render(line)
	}
	fmt.Fprintf(p.stdout, "\n  %s\n", line)
}

// compact renders err on one line.
func compact(err error) string {
	var fe *errors.FiberError
	if stderrors.As(err, &fe) {
		return fe.FormatCompact()
	}
	return err.Error()
}
