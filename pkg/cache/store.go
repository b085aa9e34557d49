package cache

import (
	"context"
	"sync"
	"time"
)

// Store is an in-memory map of keys to timestamped values. Entries are never
// swept in the background; a read that finds an entry older than its max age
// removes it. One mutex guards all state and is never held across I/O.
type Store[V any] struct {
	name     string
	recorder Recorder
	now      func() time.Time

	mutex   sync.Mutex
	data    map[string]Entry[V]
	waiters map[string]map[chan struct{}]struct{}
	subs    map[int]chan Update[V]
	nextSub int
}

// NewStore creates an empty store.
func NewStore[V any](opts ...Option) *Store[V] {
	cfg := &Config{
		Name:     "default",
		Recorder: noopRecorder{},
		Clock:    time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Store[V]{
		name:     cfg.Name,
		recorder: cfg.Recorder,
		now:      cfg.Clock,
		data:     make(map[string]Entry[V]),
		waiters:  make(map[string]map[chan struct{}]struct{}),
		subs:     make(map[int]chan Update[V]),
	}
}

// Set replaces the entry under key and wakes anyone waiting for it.
func (s *Store[V]) Set(key string, value V) Entry[V] {
	s.mutex.Lock()
	e := Entry[V]{Value: value, Timestamp: s.now()}
	s.data[key] = e

	for ch := range s.waiters[key] {
		close(ch)
	}
	delete(s.waiters, key)

	u := Update[V]{Key: key, Entry: e}
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			// slow subscriber; it will see the next write
		}
	}
	s.mutex.Unlock()

	s.recorder.RecordCacheWrite(s.name)
	return e
}

// Get returns the entry under key if it is no older than maxAge.
// A stale entry is deleted before reporting a miss.
func (s *Store[V]) Get(key string, maxAge time.Duration) (Entry[V], bool) {
	s.mutex.Lock()
	e, ok, evicted := s.lookupLocked(key, maxAge)
	s.mutex.Unlock()

	s.record(ok, evicted)
	return e, ok
}

// Wait blocks until a fresh entry exists under key or ctx is done. Writes wake
// waiters directly; poll, when positive, additionally re-checks on a ticker so
// entries become visible even if the clock moves without a write.
func (s *Store[V]) Wait(ctx context.Context, key string, maxAge, poll time.Duration) (Entry[V], bool) {
	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	evictedAny := false
	for {
		s.mutex.Lock()
		e, ok, evicted := s.lookupLocked(key, maxAge)
		evictedAny = evictedAny || evicted
		var wake chan struct{}
		if !ok {
			wake = s.watchLocked(key)
		}
		s.mutex.Unlock()

		if ok {
			s.record(true, evictedAny)
			return e, true
		}

		select {
		case <-wake:
		case <-tick:
			s.unwatch(key, wake)
		case <-ctx.Done():
			s.unwatch(key, wake)
			s.record(false, evictedAny)
			return Entry[V]{}, false
		}
	}
}

// Subscribe returns a channel receiving every subsequent write. Updates are
// dropped for a subscriber whose buffer is full. cancel must be called to
// release the subscription; it closes the channel.
func (s *Store[V]) Subscribe(buffer int) (<-chan Update[V], func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Update[V], buffer)

	s.mutex.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mutex.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mutex.Lock()
			delete(s.subs, id)
			close(ch)
			s.mutex.Unlock()
		})
	}
	return ch, cancel
}

// Len returns the number of stored entries, stale ones included.
func (s *Store[V]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.data)
}

func (s *Store[V]) lookupLocked(key string, maxAge time.Duration) (e Entry[V], ok, evicted bool) {
	e, exists := s.data[key]
	if !exists {
		return Entry[V]{}, false, false
	}
	if !e.FreshAt(s.now(), maxAge) {
		delete(s.data, key)
		return Entry[V]{}, false, true
	}
	return e, true, false
}

func (s *Store[V]) watchLocked(key string) chan struct{} {
	ch := make(chan struct{})
	set, ok := s.waiters[key]
	if !ok {
		set = make(map[chan struct{}]struct{})
		s.waiters[key] = set
	}
	set[ch] = struct{}{}
	return ch
}

func (s *Store[V]) unwatch(key string, ch chan struct{}) {
	if ch == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	set, ok := s.waiters[key]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(s.waiters, key)
	}
}

func (s *Store[V]) record(hit, evicted bool) {
	if evicted {
		s.recorder.RecordCacheEviction(s.name)
	}
	if hit {
		s.recorder.RecordCacheHit(s.name)
		return
	}
	s.recorder.RecordCacheMiss(s.name)
}
