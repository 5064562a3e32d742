package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

func TestEmbeddedRegistry(t *testing.T) {
	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	assert.Equal(t, "fiberui", store.Name())
	assert.NotEmpty(t, store.Version())

	button, err := store.Get("button")
	require.NoError(t, err)
	assert.Equal(t, []string{"components/button.tsx"}, button.Files)
	assert.Equal(t, []string{"@react-aria/button"}, button.Dependencies)
	assert.Empty(t, button.RegistryDependencies)
	assert.Equal(t, TypeComponent, button.Type)

	// Every listed file must be present in the embedded tree.
	src := Embedded()
	for _, f := range store.Files() {
		rc, err := src.Open(context.Background(), f)
		require.NoError(t, err, f)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, data, f)
	}
}

// recordSpans installs a global tracer provider that records ended spans
// for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func endedSpan(t *testing.T, rec *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range rec.Ended() {
		if s.Name() == name {
			return s
		}
	}
	require.Failf(t, "span not recorded", "no ended span named %q", name)
	return nil
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestLoad_Span(t *testing.T) {
	rec := recordSpans(t)

	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	span := endedSpan(t, rec, "registry.Load")
	assert.Equal(t, codes.Ok, span.Status().Code)

	location, ok := spanAttr(span, "registry.location")
	require.True(t, ok)
	assert.Equal(t, EmbeddedLocation, location.AsString())

	count, ok := spanAttr(span, "registry.components")
	require.True(t, ok, "registry.components attribute missing")
	assert.Equal(t, int64(store.Len()), count.AsInt64())
}

func TestLoad_SpanOnFailure(t *testing.T) {
	rec := recordSpans(t)

	_, err := Load(context.Background(), NewFSSource(fstest.MapFS{}, "empty"), nil)
	require.Error(t, err)

	span := endedSpan(t, rec, "registry.Load")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.NotEmpty(t, span.Events(), "error should be recorded as an event")

	_, ok := spanAttr(span, "registry.components")
	assert.False(t, ok)
}

func TestStore_GetUnknown(t *testing.T) {
	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	_, err = store.Get("foo-bar")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnknownComponent))
	assert.Contains(t, err.Error(), "foo-bar")
}

func TestStore_Immutable(t *testing.T) {
	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	d, _ := store.Lookup("button")
	d.Files[0] = "mutated.tsx"
	d.Dependencies = append(d.Dependencies, "left-pad")

	again, _ := store.Lookup("button")
	assert.Equal(t, []string{"components/button.tsx"}, again.Files)
	assert.Equal(t, []string{"@react-aria/button"}, again.Dependencies)

	names := store.Names()
	names[0] = "zzz"
	assert.NotEqual(t, "zzz", store.Names()[0])
}

func TestStore_SortedNames(t *testing.T) {
	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	names := store.SortedNames()
	assert.Equal(t, store.Len(), len(names))
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestNewStore_Validation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		code     string
	}{
		{
			name: "duplicate name",
			manifest: `components:
  - name: button
    files: [components/button.tsx]
  - name: button
    files: [components/other.tsx]
`,
			code: errors.CodeDuplicateComponent,
		},
		{
			name: "no files",
			manifest: `components:
  - name: button
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "escaping file",
			manifest: `components:
  - name: button
    files: [../../etc/passwd]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "absolute file",
			manifest: `components:
  - name: button
    files: [/etc/passwd]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "bad name",
			manifest: `components:
  - name: Button Large
    files: [components/button.tsx]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "empty dependency",
			manifest: `components:
  - name: button
    dependencies: [""]
    files: [components/button.tsx]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "unknown registry dependency",
			manifest: `components:
  - name: select
    registryDependencies: [popover]
    files: [components/select.tsx]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "self dependency",
			manifest: `components:
  - name: select
    registryDependencies: [select]
    files: [components/select.tsx]
`,
			code: errors.CodeCyclicDependency,
		},
		{
			name: "unknown type",
			manifest: `components:
  - name: select
    type: widget
    files: [components/select.tsx]
`,
			code: errors.CodeInvalidManifest,
		},
		{
			name: "unknown field",
			manifest: `components:
  - name: select
    filez: [components/select.tsx]
`,
			code: errors.CodeInvalidManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.manifest), "test.yaml")
			if err == nil {
				_, err = NewStore(m, "test.yaml")
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestParseManifest_JSON(t *testing.T) {
	data := `{
  "name": "acme",
  "version": "1.0.0",
  "components": [
    {"name": "card", "files": ["components/card.tsx"], "dependencies": ["clsx"]}
  ]
}`
	m, err := ParseManifest([]byte(data), "registry.json")
	require.NoError(t, err)

	store, err := NewStore(m, "")
	require.NoError(t, err)
	card, err := store.Get("card")
	require.NoError(t, err)
	assert.Equal(t, []string{"clsx"}, card.Dependencies)
}

func TestNewStore_LocatesErrors(t *testing.T) {
	dir := t.TempDir()
	manifest := `name: local
components:
  - name: ok
    files: [components/ok.tsx]
  - name: broken
    files: []
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.yaml"), []byte(manifest), 0644))

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	_, err = Load(context.Background(), src, nil)
	require.Error(t, err)

	var fe *errors.FiberError
	require.ErrorAs(t, err, &fe)
	require.NotNil(t, fe.Location)
	assert.Equal(t, 5, fe.Location.Line)
	assert.NotEmpty(t, fe.Context)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files", "components"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"),
		[]byte(`{"name":"local","components":[{"name":"card","files":["components/card.tsx"]}]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "components", "card.tsx"), []byte("export {}\n"), 0644))

	src, err := Open(dir, OpenOptions{})
	require.NoError(t, err)

	store, err := Load(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"card"}, store.Names())

	rc, err := src.Open(context.Background(), "components/card.tsx")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "export {}\n", string(data))

	_, err = src.Open(context.Background(), "components/missing.tsx")
	assert.True(t, errors.HasCode(err, errors.CodeSourceFileMissing))

	_, err = src.Open(context.Background(), "../registry.json")
	assert.True(t, errors.HasCode(err, errors.CodeSourceFileMissing))
}

func TestOpen_RelativeDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "reg"), 0755))

	src, err := Open("reg", OpenOptions{BaseDir: base})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "reg"), src.Location())

	_, err = Open("does-not-exist", OpenOptions{BaseDir: base})
	assert.True(t, errors.HasCode(err, errors.CodeRegistryUnavail))
}

func TestOpen_Kinds(t *testing.T) {
	src, err := Open("", OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, EmbeddedLocation, src.Location())

	src, err = Open("https://example.com/r/registry.json", OpenOptions{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	src, err = Open("s3://bucket/prefix", OpenOptions{S3Client: &fakeS3{}})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/prefix", src.Location())
}

func TestFSSource_MissingManifest(t *testing.T) {
	src := NewFSSource(fstest.MapFS{}, "memory")
	_, err := Load(context.Background(), src, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeRegistryUnavail))
}

func TestFSSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Embedded().Open(ctx, "components/button.tsx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidatePath(t *testing.T) {
	valid := []string{"components/button.tsx", "a.ts", "lib/./utils.ts"}
	for _, p := range valid {
		assert.NoError(t, ValidatePath(p), p)
	}
	invalid := []string{"", "/abs.ts", "../x.ts", "a/../../x.ts", `components\button.tsx`, "."}
	for _, p := range invalid {
		assert.Error(t, ValidatePath(p), p)
	}
}

func TestStore_Manifest(t *testing.T) {
	store, err := Load(context.Background(), Embedded(), nil)
	require.NoError(t, err)

	m := store.Manifest()
	again, err := NewStore(m, "")
	require.NoError(t, err)
	assert.Equal(t, store.Names(), again.Names())
	assert.Equal(t, store.Bootstrap(), again.Bootstrap())
	assert.True(t, strings.HasPrefix(store.Files()[0], "lib/"))
}

func TestReadManifest_SizeLimit(t *testing.T) {
	data, err := readManifest(strings.NewReader(strings.Repeat("#", maxManifestSize)), "registry.yaml")
	require.NoError(t, err)
	assert.Len(t, data, maxManifestSize)

	_, err = readManifest(strings.NewReader(strings.Repeat("#", maxManifestSize+1)), "registry.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeRegistryUnavail))
	assert.Contains(t, err.Error(), "too large")
}
