package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRegistry Category = "registry"
	CategoryResolve  Category = "resolve"
	CategoryInstall  Category = "install"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a manifest or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// FiberError is a structured error with an error code, location, suggestion and documentation link.
type FiberError struct {
	// Code is a unique error identifier (e.g., "E143").
	Code string

	// Category is the error type (registry, install, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *FiberError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" && e.Detail != registryDetail(e.Code) {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *FiberError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *FiberError) WithLocation(file string, line, column int) *FiberError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, contextRadius)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *FiberError) WithSuggestion(s string) *FiberError {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *FiberError) WithExample(ex string) *FiberError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *FiberError) WithDetail(d string) *FiberError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *FiberError) Wrap(err error) *FiberError {
	e.Wrapped = err
	return e
}

// contextRadius is how many lines on each side of a location are kept.
const contextRadius = 2

// contextStart is the line number of the first context line for line.
func contextStart(line int) int {
	return max(1, line-contextRadius)
}

// readContextLines reads the lines within radius of targetLine.
func readContextLines(filename string, targetLine, radius int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := contextStart(targetLine)
	endLine := targetLine + radius

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a FiberError from a registered error code.
func New(code string) *FiberError {
	template, ok := registry[code]
	if !ok {
		return &FiberError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &FiberError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new FiberError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *FiberError {
	return &FiberError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a FiberError.
func FromError(err error, code string) *FiberError {
	if err == nil {
		return nil
	}
	var fe *FiberError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err, or any error it wraps, is a FiberError with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var fe *FiberError
		if !stderrors.As(err, &fe) {
			return false
		}
		if fe.Code == code {
			return true
		}
		err = fe.Wrapped
	}
	return false
}

func registryDetail(code string) string {
	if t, ok := registry[code]; ok {
		return t.Detail
	}
	return ""
}
