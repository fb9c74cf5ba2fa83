package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecording(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.metrics")
	defer teardown()
	//
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Registered()
	m.Registered()
	m.Retired()
	m.Recompiled()
	m.Drawn(time.Now(), nil)
	m.Drawn(time.Now(), errors.New("x"))
	m.Fetched("get", time.Now(), nil)
	m.Fetched("get", time.Now(), errors.New("x"))
	m.Fetched("post", time.Now(), nil)
	m.Skipped()
	for i, test := range []struct {
		c        prometheus.Collector
		expected float64
	}{
		{m.Registrations, 2},
		{m.Instances, 1},
		{m.Removals, 1},
		{m.Recompiles, 1},
		{m.Draws, 2},
		{m.DrawErrors, 1},
		{m.Fetches.WithLabelValues("get", "ok"), 1},
		{m.Fetches.WithLabelValues("get", "error"), 1},
		{m.Fetches.WithLabelValues("post", "ok"), 1},
		{m.FetchSkipped, 1},
	} {
		if v := testutil.ToFloat64(test.c); v != test.expected {
			t.Errorf("test #%d: Expected metric to be %g, is %g", i, test.expected, v)
		}
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("Expected metrics to be registered, count is %d (%v)", n, err)
	}
}

func TestNilMetrics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.metrics")
	defer teardown()
	//
	var m *Metrics
	m.Registered()
	m.Retired()
	m.Recompiled()
	m.Drawn(time.Now(), nil)
	m.Fetched("get", time.Now(), nil)
	m.Skipped()
}
