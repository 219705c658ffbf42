package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates repository and metadata cache metrics
// in memory.
type Collector struct {
	// Repository metrics, keyed by "<entity type>/<operation>"
	operations sync.Map // map[string]*uint64 - key -> count
	errors     sync.Map // map[string]*uint64 - key -> error count
	rows       sync.Map // map[string]*uint64 - key -> affected or returned rows
	duration   sync.Map // map[string]*durationValue - key -> total duration in seconds

	// Metadata cache metrics
	cacheHits      uint64
	cacheMisses    uint64
	cacheEvictions uint64
	cacheSize      func() int
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds metadata cache metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	Evictions   uint64
}

// RepositoryMetrics holds repository operation metrics keyed by
// "<entity type>/<operation>".
type RepositoryMetrics struct {
	OperationCounts      map[string]uint64
	ErrorCounts          map[string]uint64
	RowCounts            map[string]uint64
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCacheSize sets the function reporting the current number of cached
// entity types.
func (c *Collector) SetCacheSize(size func() int) {
	c.cacheSize = size
}

// RecordOperation implements Recorder.
func (c *Collector) RecordOperation(entityType, operation string, rows int, duration time.Duration, err error) {
	key := Key(entityType, operation)
	atomic.AddUint64(c.getOrCreateCounter(&c.operations, key), 1)
	if rows > 0 {
		atomic.AddUint64(c.getOrCreateCounter(&c.rows, key), uint64(rows))
	}
	if err != nil {
		atomic.AddUint64(c.getOrCreateCounter(&c.errors, key), 1)
	}

	val, _ := c.duration.LoadOrStore(key, &durationValue{})
	dv := val.(*durationValue)
	dv.mu.Lock()
	dv.totalSeconds += duration.Seconds()
	dv.mu.Unlock()
}

// RecordCacheHit implements Recorder.
func (c *Collector) RecordCacheHit() {
	atomic.AddUint64(&c.cacheHits, 1)
}

// RecordCacheMiss implements Recorder.
func (c *Collector) RecordCacheMiss() {
	atomic.AddUint64(&c.cacheMisses, 1)
}

// RecordCacheEviction implements Recorder.
func (c *Collector) RecordCacheEviction() {
	atomic.AddUint64(&c.cacheEvictions, 1)
}

// GetCacheMetrics returns current cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	result := &CacheMetrics{
		Hits:      atomic.LoadUint64(&c.cacheHits),
		Misses:    atomic.LoadUint64(&c.cacheMisses),
		Evictions: atomic.LoadUint64(&c.cacheEvictions),
	}
	if total := result.Hits + result.Misses; total > 0 {
		result.HitRate = float64(result.Hits) / float64(total)
	}
	if c.cacheSize != nil {
		result.KeysCurrent = int64(c.cacheSize())
	}
	return result
}

// GetRepositoryMetrics returns current repository metrics.
func (c *Collector) GetRepositoryMetrics() *RepositoryMetrics {
	return &RepositoryMetrics{
		OperationCounts:      loadCounters(&c.operations),
		ErrorCounts:          loadCounters(&c.errors),
		RowCounts:            loadCounters(&c.rows),
		TotalDurationSeconds: c.loadDurations(),
	}
}

func (c *Collector) loadDurations() map[string]float64 {
	result := make(map[string]float64)
	c.duration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})
	return result
}

func loadCounters(m *sync.Map) map[string]uint64 {
	result := make(map[string]uint64)
	m.Range(func(key, value interface{}) bool {
		result[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}

// Key returns the collector key of an operation on an entity type.
func Key(entityType, operation string) string {
	return entityType + "/" + operation
}
