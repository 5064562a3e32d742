package install

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/logging"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/resolver"
)

const target = "/proj/src"

type fakeOpener struct {
	files map[string]string
	delay time.Duration

	mu      sync.Mutex
	active  int32
	maxSeen int32
}

func (f *fakeOpener) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	f.mu.Lock()
	if n > f.maxSeen {
		f.maxSeen = n
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	content, ok := f.files[file]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", file, os.ErrNotExist)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func result(files ...string) *resolver.Result {
	res := &resolver.Result{}
	for _, f := range files {
		res.Files = append(res.Files, resolver.FilePair{Source: f, Dest: f})
	}
	return res
}

func newTest(src Opener, fs afero.Fs, opts ...Option) *Materializer {
	return New(src, fs, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func statuses(outcomes []Outcome) []Status {
	out := make([]Status, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func TestMaterialize_EmbeddedButton(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := registry.Embedded()
	m := newTest(src, fs)

	outcomes := m.Materialize(context.Background(), result("components/button.tsx"), target, Options{})
	require.Len(t, outcomes, 1)
	assert.Equal(t, Written, outcomes[0].Status)
	assert.Equal(t, filepath.Join(target, "components", "button.tsx"), outcomes[0].Path)
	assert.NoError(t, outcomes[0].Err)

	rc, err := src.Open(context.Background(), "components/button.tsx")
	require.NoError(t, err)
	want, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()

	got, err := afero.ReadFile(fs, outcomes[0].Path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMaterialize_SecondRunSkips(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{
		"components/a.tsx": "a",
		"hooks/b.ts":       "b",
	}}
	m := newTest(src, fs)
	res := result("components/a.tsx", "hooks/b.ts")

	first := m.Materialize(context.Background(), res, target, Options{})
	assert.Equal(t, []Status{Written, Written}, statuses(first))

	// Local edits must survive a non-overwrite run.
	local := filepath.Join(target, "components", "a.tsx")
	require.NoError(t, afero.WriteFile(fs, local, []byte("edited"), 0o644))

	second := m.Materialize(context.Background(), res, target, Options{})
	assert.Equal(t, []Status{Skipped, Skipped}, statuses(second))

	got, err := afero.ReadFile(fs, local)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(got))
}

func TestMaterialize_OverwriteNeverSkips(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{
		"components/a.tsx": "a",
		"components/b.tsx": "b",
	}}
	m := newTest(src, fs)
	res := result("components/a.tsx", "components/b.tsx")

	require.NoError(t, fs.MkdirAll(filepath.Join(target, "components"), 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(target, "components", "a.tsx"), []byte("old"), 0o644))

	outcomes := m.Materialize(context.Background(), res, target, Options{Overwrite: true})
	assert.Equal(t, []Status{Overwritten, Written}, statuses(outcomes))

	got, err := afero.ReadFile(fs, filepath.Join(target, "components", "a.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestMaterialize_SingleFailureDoesNotBlockOthers(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{
		"components/a.tsx": "a",
		"components/c.tsx": "c",
	}}
	m := newTest(src, fs)

	outcomes := m.Materialize(context.Background(),
		result("components/a.tsx", "components/missing.tsx", "components/c.tsx"), target, Options{})
	assert.Equal(t, []Status{Written, Failed, Written}, statuses(outcomes))

	failed := outcomes[1]
	require.Error(t, failed.Err)
	assert.True(t, errors.HasCode(failed.Err, errors.CodeFileWriteFailure))
	assert.Contains(t, failed.Err.Error(), filepath.Join(target, "components", "missing.tsx"))
	assert.ErrorIs(t, failed.Err, os.ErrNotExist)

	assert.True(t, HasFailures(outcomes))
	assert.Len(t, Failures(outcomes), 1)
}

func TestMaterialize_DirectoryFailureMarksItsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{
		"hooks/a.ts":       "a",
		"hooks/b.ts":       "b",
		"components/c.tsx": "c",
	}}
	// A regular file where the hooks directory should be.
	require.NoError(t, fs.MkdirAll(target, 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(target, "hooks"), []byte("x"), 0o644))

	m := newTest(src, fs)
	outcomes := m.Materialize(context.Background(),
		result("hooks/a.ts", "components/c.tsx", "hooks/b.ts"), target, Options{})
	assert.Equal(t, []Status{Failed, Written, Failed}, statuses(outcomes))
	for _, o := range Failures(outcomes) {
		assert.True(t, errors.HasCode(o.Err, errors.CodeFileWriteFailure))
	}
}

func TestMaterialize_DirectoryFailureOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib"), []byte("x"), 0o644))

	src := &fakeOpener{files: map[string]string{
		"lib/utils.ts":       "u",
		"styles/fiberui.css": "s",
	}}
	m := newTest(src, afero.NewOsFs())

	outcomes := m.Materialize(context.Background(), result("lib/utils.ts", "styles/fiberui.css"), dir, Options{})
	assert.Equal(t, []Status{Failed, Written}, statuses(outcomes))
}

func TestMaterialize_ReadOnlyFilesystem(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	src := &fakeOpener{files: map[string]string{"components/a.tsx": "a", "hooks/b.ts": "b"}}

	outcomes := newTest(src, fs).Materialize(context.Background(),
		result("components/a.tsx", "hooks/b.ts"), target, Options{})
	assert.Equal(t, []Status{Failed, Failed}, statuses(outcomes))
	assert.Equal(t, Summary{Failed: 2}, Summarize(outcomes))
}

func TestMaterialize_DestinationIsDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(filepath.Join(target, "components", "a.tsx"), 0o755))
	src := &fakeOpener{files: map[string]string{"components/a.tsx": "a"}}

	outcomes := newTest(src, fs).Materialize(context.Background(), result("components/a.tsx"), target, Options{Overwrite: true})
	assert.Equal(t, []Status{Failed}, statuses(outcomes))
}

func TestMaterialize_RejectsEscapingPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{"x.ts": "x", "ok.ts": "ok"}}
	res := &resolver.Result{Files: []resolver.FilePair{
		{Source: "x.ts", Dest: "../x.ts"},
		{Source: "ok.ts", Dest: "ok.ts"},
	}}

	outcomes := newTest(src, fs).Materialize(context.Background(), res, target, Options{})
	assert.Equal(t, []Status{Failed, Written}, statuses(outcomes))
	assert.True(t, errors.HasCode(outcomes[0].Err, errors.CodeInvalidTarget))

	exists, err := afero.Exists(fs, "/proj/x.ts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMaterialize_CancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeOpener{files: map[string]string{"a.ts": "a", "b.ts": "b"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := newTest(src, fs).Materialize(ctx, result("a.ts", "b.ts"), target, Options{})
	assert.Equal(t, []Status{Failed, Failed}, statuses(outcomes))
	for _, o := range outcomes {
		assert.True(t, stderrors.Is(o.Err, context.Canceled))
	}
}

func TestMaterialize_BoundedConcurrency(t *testing.T) {
	files := map[string]string{}
	var names []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("components/c%02d.tsx", i)
		files[name] = name
		names = append(names, name)
	}
	src := &fakeOpener{files: files, delay: 5 * time.Millisecond}

	outcomes := newTest(src, afero.NewMemMapFs(), WithConcurrency(2)).
		Materialize(context.Background(), result(names...), target, Options{})

	require.Len(t, outcomes, len(names))
	for i, o := range outcomes {
		assert.Equal(t, Written, o.Status)
		assert.Equal(t, filepath.Join(target, filepath.FromSlash(names[i])), o.Path, "outcomes keep resolution order")
	}
	assert.LessOrEqual(t, src.maxSeen, int32(2))
}

func TestMaterialize_Empty(t *testing.T) {
	m := newTest(&fakeOpener{}, afero.NewMemMapFs())
	assert.Nil(t, m.Materialize(context.Background(), nil, target, Options{}))
	assert.Nil(t, m.Materialize(context.Background(), &resolver.Result{}, target, Options{}))
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Status: Written}, {Status: Written}, {Status: Skipped},
		{Status: Overwritten}, {Status: Failed},
	}
	assert.Equal(t, Summary{Written: 2, Skipped: 1, Overwritten: 1, Failed: 1}, Summarize(outcomes))
	assert.True(t, HasFailures(outcomes))
	assert.False(t, HasFailures(outcomes[:4]))
}
