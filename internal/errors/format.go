package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ANSI escape sequences used by Format.
const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

// colorEnabled controls whether Format emits ANSI sequences.
var colorEnabled = true

// DisableColors makes Format emit plain text.
func DisableColors() {
	colorEnabled = false
}

// EnableColors makes Format emit ANSI colors.
func EnableColors() {
	colorEnabled = true
}

func paint(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + ansiReset
}

// detailWidth is the column Format wraps details at.
const detailWidth = 70

// Format renders the error for a terminal: a header, the source position
// with surrounding lines, detail, hint, example and doc link.
func (e *FiberError) Format() string {
	var b strings.Builder
	b.WriteString("\n")
	e.writeHeader(&b)
	e.writeSource(&b)

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, detailWidth) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Hint: ", ansiCyan), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", paint("Example:", ansiCyan))
		for _, line := range strings.Split(e.Example, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", paint("Learn more: ", ansiGray), paint(e.DocURL, ansiBlue))
	}
	return b.String()
}

func (e *FiberError) writeHeader(b *strings.Builder) {
	label := "ERROR:"
	if e.Code != "" {
		label = "ERROR " + e.Code + ":"
	}
	fmt.Fprintf(b, "%s %s\n\n", paint(label, ansiRed, ansiBold), paint(e.Message, ansiBold))
}

// writeSource prints the location and, when known, the lines around it
// with the failing line marked.
func (e *FiberError) writeSource(b *strings.Builder) {
	if e.Location == nil {
		return
	}
	fmt.Fprintf(b, "  %s\n\n", paint(e.Location.String(), ansiCyan))
	if len(e.Context) == 0 {
		return
	}

	first := contextStart(e.Location.Line)
	for i, line := range e.Context {
		n := first + i
		marker := "  "
		if n == e.Location.Line {
			marker = paint("→ ", ansiRed)
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", marker, n, paint(" │ ", ansiGray), line)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", paint("│ ", ansiGray),
				strings.Repeat(" ", e.Location.Column-1), paint("^", ansiRed))
		}
	}
	b.WriteString("\n")
}

// FormatCompact renders the error on one line: location, code, message
// and the detail when it adds to the code's template.
func (e *FiberError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	if e.Detail != "" && e.Detail != registryDetail(e.Code) {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON renders the error as a single JSON object.
func (e *FiberError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, err.Error())
	}
	return string(data)
}

// wrapText splits text into lines of at most width columns at word breaks.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// FprintError prints err to w for a terminal. Coded errors anywhere in the
// chain use Format.
func FprintError(w io.Writer, err error) {
	var fe *FiberError
	if stderrors.As(err, &fe) {
		fmt.Fprint(w, fe.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", ansiRed, ansiBold), err.Error())
}

// FprintErrorJSON prints err to w as one JSON object per line. Errors
// without a code are reported in the cli category.
func FprintErrorJSON(w io.Writer, err error) {
	var fe *FiberError
	if !stderrors.As(err, &fe) {
		fe = &FiberError{Category: CategoryCLI, Message: err.Error()}
	}
	fmt.Fprintln(w, fe.FormatJSON())
}
