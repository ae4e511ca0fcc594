// Package filter keeps an in-memory Bloom filter of URLs already stored so
// most new submissions can skip the existence lookup.
package filter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SeenURLs wraps a Bloom filter with a lock. A negative answer from
// MaybeSeen is definitive; a positive one must be confirmed by the store.
type SeenURLs struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewSeenURLs sizes the filter for capacity URLs at the given false
// positive rate.
func NewSeenURLs(capacity uint, fpRate float64) *SeenURLs {
	if capacity == 0 {
		capacity = 100_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	return &SeenURLs{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

func (s *SeenURLs) Add(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.AddString(url)
}

// AddBatch loads many URLs under one lock, used when warming from the store.
func (s *SeenURLs) AddBatch(urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		s.filter.AddString(u)
	}
}

// MaybeSeen reports whether url might have been added.
func (s *SeenURLs) MaybeSeen(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.TestString(url)
}
