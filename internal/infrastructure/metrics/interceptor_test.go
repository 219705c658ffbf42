package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve_RecordsOperation(t *testing.T) {
	collector := NewCollector()

	err := Observe(collector, "book", "find_all", func() (int, error) {
		return 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := collector.GetRepositoryMetrics()
	key := Key("book", "find_all")
	if count := m.OperationCounts[key]; count != 1 {
		t.Errorf("expected operation count 1 for %s, got %d", key, count)
	}
	if rows := m.RowCounts[key]; rows != 3 {
		t.Errorf("expected row count 3 for %s, got %d", key, rows)
	}
	if _, ok := m.TotalDurationSeconds[key]; !ok {
		t.Errorf("expected duration to be recorded for %s", key)
	}
	if count, ok := m.ErrorCounts[key]; ok && count > 0 {
		t.Errorf("expected no error count for %s, got %d", key, count)
	}
}

func TestObserve_RecordsError(t *testing.T) {
	collector := NewCollector()
	expectedErr := errors.New("test error")

	err := Observe(collector, "book", "add", func() (int, error) {
		return 0, expectedErr
	})
	if err != expectedErr {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}

	m := collector.GetRepositoryMetrics()
	if count := m.ErrorCounts[Key("book", "add")]; count != 1 {
		t.Errorf("expected error count 1, got %d", count)
	}
	if _, ok := m.RowCounts[Key("book", "add")]; ok {
		t.Error("expected no rows to be recorded")
	}
}

func TestObserve_NilRecorder(t *testing.T) {
	called := false
	err := Observe(nil, "book", "count", func() (int, error) {
		called = true
		return 1, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected fn to be called")
	}
}

func TestCollector_CacheMetrics(t *testing.T) {
	collector := NewCollector()
	collector.SetCacheSize(func() int { return 7 })

	collector.RecordCacheHit()
	collector.RecordCacheHit()
	collector.RecordCacheHit()
	collector.RecordCacheMiss()
	collector.RecordCacheEviction()

	m := collector.GetCacheMetrics()
	if m.Hits != 3 || m.Misses != 1 || m.Evictions != 1 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %f", m.HitRate)
	}
	if m.KeysCurrent != 7 {
		t.Errorf("expected 7 keys, got %d", m.KeysCurrent)
	}
}

func TestCollector_EmptyCacheMetrics(t *testing.T) {
	m := NewCollector().GetCacheMetrics()
	if m.HitRate != 0 || m.KeysCurrent != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestTee_ForwardsToAllRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector()
	exporter := NewPrometheusExporter(collector, reg)
	recorder := Tee(collector, nil, exporter)

	_ = Observe(recorder, "author", "update", func() (int, error) { return 2, nil })
	_ = Observe(recorder, "author", "update", func() (int, error) { return 0, errors.New("boom") })
	recorder.RecordCacheMiss()

	if count := collector.GetRepositoryMetrics().OperationCounts[Key("author", "update")]; count != 2 {
		t.Errorf("expected collector count 2, got %d", count)
	}
	if v := testutil.ToFloat64(exporter.repositoryOps.WithLabelValues("author", "update")); v != 2 {
		t.Errorf("expected exporter count 2, got %f", v)
	}
	if v := testutil.ToFloat64(exporter.repositoryErrors.WithLabelValues("author", "update")); v != 1 {
		t.Errorf("expected exporter error count 1, got %f", v)
	}
	if v := testutil.ToFloat64(exporter.repositoryRows.WithLabelValues("author", "update")); v != 2 {
		t.Errorf("expected exporter row count 2, got %f", v)
	}
	if v := testutil.ToFloat64(exporter.cacheMisses); v != 1 {
		t.Errorf("expected exporter cache misses 1, got %f", v)
	}
}

func TestPrometheusExporter_Update(t *testing.T) {
	collector := NewCollector()
	collector.SetCacheSize(func() int { return 4 })
	collector.RecordCacheHit()
	collector.RecordCacheMiss()

	exporter := NewPrometheusExporter(collector, prometheus.NewRegistry())
	exporter.Update()

	if v := testutil.ToFloat64(exporter.cacheHitRate); v != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", v)
	}
	if v := testutil.ToFloat64(exporter.cacheKeys); v != 4 {
		t.Errorf("expected 4 keys, got %f", v)
	}
}

func TestNop(t *testing.T) {
	r := Nop()
	r.RecordOperation("book", "count", 1, 0, nil)
	r.RecordCacheHit()
	r.RecordCacheMiss()
	r.RecordCacheEviction()
}
