package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveResolution(1, 1)
	m.ObserveFile("written")
	m.ObserveMaterialize(time.Second)
	m.ObserveRegistryLoad("embedded", nil)
	m.ObserveRequest("/registry.json", "200")
	assert.Nil(t, m.Gatherer())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithConstLabels(prometheus.Labels{"project": "demo"}))

	m.ObserveResolution(3, 1)
	m.ObserveFile("written")
	m.ObserveFile("written")
	m.ObserveFile("failed")
	m.ObserveRegistryLoad("dir", errors.New("boom"))

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 3.0, counterValue(families, "fiberui_components_resolved_total", nil))
	assert.Equal(t, 1.0, counterValue(families, "fiberui_unknown_components_total", nil))
	assert.Equal(t, 2.0, counterValue(families, "fiberui_files_total", map[string]string{"status": "written"}))
	assert.Equal(t, 1.0, counterValue(families, "fiberui_files_total", map[string]string{"status": "failed"}))
	assert.Equal(t, 1.0, counterValue(families, "fiberui_registry_loads_total", map[string]string{"source": "dir", "result": "error"}))
}

func counterValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			for k, v := range labels {
				found := false
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						found = true
					}
				}
				if !found {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return -1
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Default construction must not panic on duplicate registration.
	a := NewMetrics()
	b := NewMetrics()
	assert.NotNil(t, a.Gatherer())
	assert.NotNil(t, b.Gatherer())
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics(WithNamespace("fui"))
	m.ObserveFile("skipped")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `fui_files_total{status="skipped"} 1`), string(data))
}

func TestSpans(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test")
	require.NotNil(t, ctx)
	EndSpan(span, nil)

	_, span = StartSpan(ctx, "test-error")
	EndSpan(span, errors.New("failed"))
}
