package cache

import (
	"math"
	"time"
)

// NoExpiry is a max age under which every stored entry stays visible.
const NoExpiry = time.Duration(math.MaxInt64)

// Entry is a stored value together with the time it was written.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

// Age reports how old the entry is at now.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// FreshAt reports whether the entry is visible at now under maxAge.
func (e Entry[V]) FreshAt(now time.Time, maxAge time.Duration) bool {
	if maxAge == NoExpiry {
		return true
	}
	return e.Age(now) <= maxAge
}

// Update is delivered to subscribers after every write.
type Update[V any] struct {
	Key   string
	Entry Entry[V]
}

// Recorder receives store events, typically to feed metrics.
type Recorder interface {
	RecordCacheHit(store string)
	RecordCacheMiss(store string)
	RecordCacheEviction(store string)
	RecordCacheWrite(store string)
}

type noopRecorder struct{}

func (noopRecorder) RecordCacheHit(string)      {}
func (noopRecorder) RecordCacheMiss(string)     {}
func (noopRecorder) RecordCacheEviction(string) {}
func (noopRecorder) RecordCacheWrite(string)    {}
