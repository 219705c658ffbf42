package metrics

import (
	"time"
)

// Recorder receives repository operation and metadata cache events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordOperation(entityType, operation string, rows int, duration time.Duration, err error)
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheEviction()
}

// Nop returns a recorder discarding every event.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, int, time.Duration, error) {}
func (nopRecorder) RecordCacheHit()                                        {}
func (nopRecorder) RecordCacheMiss()                                       {}
func (nopRecorder) RecordCacheEviction()                                   {}

// Tee returns a recorder forwarding every event to all non-nil recorders,
// e.g. the in-memory collector and the Prometheus exporter.
func Tee(recorders ...Recorder) Recorder {
	var rs teeRecorder
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return rs
}

type teeRecorder []Recorder

func (t teeRecorder) RecordOperation(entityType, operation string, rows int, duration time.Duration, err error) {
	for _, r := range t {
		r.RecordOperation(entityType, operation, rows, duration, err)
	}
}

func (t teeRecorder) RecordCacheHit() {
	for _, r := range t {
		r.RecordCacheHit()
	}
}

func (t teeRecorder) RecordCacheMiss() {
	for _, r := range t {
		r.RecordCacheMiss()
	}
}

func (t teeRecorder) RecordCacheEviction() {
	for _, r := range t {
		r.RecordCacheEviction()
	}
}

// Observe runs fn and records its duration, row count and error as one
// operation on entityType.
func Observe(recorder Recorder, entityType, operation string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()
	if recorder != nil {
		recorder.RecordOperation(entityType, operation, rows, time.Since(start), err)
	}
	return err
}
