// Package install copies resolved registry files into a project.
//
// A Materializer reads each file from a registry source and writes it
// below a target directory on an afero filesystem. Every resolved file
// yields exactly one Outcome; a failure on one file never prevents the
// others from being attempted.
package install

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/logging"
	"github.com/fiberui-dev/fiberui/internal/resolver"
	"github.com/fiberui-dev/fiberui/internal/telemetry"
)

// Status is the result of materializing one file.
type Status string

const (
	Written     Status = "written"
	Skipped     Status = "skipped"
	Overwritten Status = "overwritten"
	Failed      Status = "failed"
)

// DefaultConcurrency is the number of files copied in parallel when none is configured.
const DefaultConcurrency = 4

// Outcome reports what happened to one resolved file.
type Outcome struct {
	// Path is the destination path on the target filesystem.
	Path string

	// Source is the registry path the file was read from.
	Source string

	Status Status

	// Err is set when Status is Failed.
	Err error
}

// Opener opens registry files. registry.Source implements it.
type Opener interface {
	Open(ctx context.Context, file string) (io.ReadCloser, error)
}

// Options control a single materialization.
type Options struct {
	// Overwrite replaces existing files instead of skipping them.
	Overwrite bool
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithConcurrency bounds the number of files copied in parallel.
func WithConcurrency(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithLogger sets the logger. A nil logger uses slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) {
		m.logger = l
	}
}

// WithMetrics records file outcomes and durations in metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Materializer) {
		m.metrics = metrics
	}
}

// Materializer writes resolved files into a target directory.
type Materializer struct {
	src         Opener
	fs          afero.Fs
	concurrency int
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// New creates a Materializer reading from src and writing to fs.
func New(src Opener, fs afero.Fs, opts ...Option) *Materializer {
	m := &Materializer{
		src:         src,
		fs:          fs,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDefault(m.logger)
	return m
}

// Materialize writes every file of res below targetDir and returns one
// Outcome per file, in resolution order.
//
// Parent directories are created once per directory before any file is
// copied; when that fails every file below the directory is reported as
// failed. Once ctx is cancelled, files not yet started are reported as
// failed with the context error.
func (m *Materializer) Materialize(ctx context.Context, res *resolver.Result, targetDir string, opts Options) []Outcome {
	if res == nil || len(res.Files) == 0 {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "install.Materialize",
		attribute.String("install.target", targetDir),
		attribute.Int("install.files", len(res.Files)),
		attribute.Bool("install.overwrite", opts.Overwrite))
	start := time.Now()

	outcomes := make([]Outcome, len(res.Files))
	paths := make([]string, len(res.Files))
	for i, f := range res.Files {
		paths[i] = filepath.Join(targetDir, filepath.FromSlash(f.Dest))
		outcomes[i] = Outcome{Path: paths[i], Source: f.Source}
	}

	dirErrs := m.prepareDirs(targetDir, paths)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, m.concurrency)

	for i := range res.Files {
		if err := m.precheck(targetDir, paths[i], dirErrs); err != nil {
			outcomes[i] = m.fail(outcomes[i], err)
			continue
		}

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			outcomes[i] = m.fail(outcomes[i], ctx.Err())
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcomes[i] = m.copyFile(ctx, outcomes[i], opts.Overwrite)
		}(i)
	}
	wg.Wait()

	summary := Summarize(outcomes)
	for _, o := range outcomes {
		m.metrics.ObserveFile(string(o.Status))
	}
	m.metrics.ObserveMaterialize(time.Since(start))

	span.SetAttributes(
		attribute.Int("install.written", summary.Written),
		attribute.Int("install.skipped", summary.Skipped),
		attribute.Int("install.overwritten", summary.Overwritten),
		attribute.Int("install.failed", summary.Failed))
	var spanErr error
	if summary.Failed > 0 {
		spanErr = fmt.Errorf("%d of %d files failed", summary.Failed, len(outcomes))
	}
	telemetry.EndSpan(span, spanErr)

	m.logger.Debug("materialized files",
		"target", targetDir,
		"written", summary.Written,
		"skipped", summary.Skipped,
		"overwritten", summary.Overwritten,
		"failed", summary.Failed,
		"duration", time.Since(start))

	return outcomes
}

// prepareDirs creates each distinct parent directory once and returns
// the error for every directory that could not be created.
func (m *Materializer) prepareDirs(targetDir string, paths []string) map[string]error {
	dirErrs := make(map[string]error)
	done := make(map[string]bool)
	for _, p := range paths {
		dir := filepath.Dir(p)
		if done[dir] || escapes(targetDir, p) {
			continue
		}
		done[dir] = true
		if err := m.mkdir(dir); err != nil {
			m.logger.Debug("create directory failed", "dir", dir, "error", err)
			dirErrs[dir] = err
		}
	}
	return dirErrs
}

// mkdir is MkdirAll that also rejects an existing non-directory on the path,
// which some filesystems accept silently.
func (m *Materializer) mkdir(dir string) error {
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := m.fs.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "mkdir", Path: dir, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

func (m *Materializer) precheck(targetDir, p string, dirErrs map[string]error) error {
	if escapes(targetDir, p) {
		return errors.New(errors.CodeInvalidTarget).
			WithDetail(fmt.Sprintf("%s resolves outside %s", p, targetDir))
	}
	if err := dirErrs[filepath.Dir(p)]; err != nil {
		return err
	}
	return nil
}

func (m *Materializer) copyFile(ctx context.Context, o Outcome, overwrite bool) Outcome {
	if err := ctx.Err(); err != nil {
		return m.fail(o, err)
	}

	info, err := m.fs.Stat(o.Path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return m.fail(o, err)
	}
	if exists && info.IsDir() {
		return m.fail(o, fmt.Errorf("destination is a directory"))
	}
	if exists && !overwrite {
		o.Status = Skipped
		m.logger.Debug("file exists, skipping", "path", o.Path)
		return o
	}

	rc, err := m.src.Open(ctx, o.Source)
	if err != nil {
		return m.fail(o, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return m.fail(o, err)
	}

	if err := afero.WriteFile(m.fs, o.Path, data, 0o644); err != nil {
		return m.fail(o, err)
	}

	o.Status = Written
	if exists {
		o.Status = Overwritten
	}
	m.logger.Debug("file copied", "path", o.Path, "status", o.Status, "bytes", len(data))
	return o
}

func (m *Materializer) fail(o Outcome, cause error) Outcome {
	o.Status = Failed
	if errors.HasCode(cause, errors.CodeInvalidTarget) {
		o.Err = cause
		return o
	}
	o.Err = errors.New(errors.CodeFileWriteFailure).
		WithDetail(fmt.Sprintf("%s: %v", o.Path, cause)).
		Wrap(cause)
	return o
}

func escapes(targetDir, p string) bool {
	rel, err := filepath.Rel(targetDir, p)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Summary counts outcomes by status.
type Summary struct {
	Written     int
	Skipped     int
	Overwritten int
	Failed      int
}

// Summarize counts outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case Written:
			s.Written++
		case Skipped:
			s.Skipped++
		case Overwritten:
			s.Overwritten++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// HasFailures reports whether any outcome failed.
func HasFailures(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Status == Failed {
			return true
		}
	}
	return false
}

// Failures returns the failed outcomes.
func Failures(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Status == Failed {
			out = append(out, o)
		}
	}
	return out
}
