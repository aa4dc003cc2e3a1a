package service

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sifan077/LinkGate/internal/app/repository"
)

// CodeFilter is a Bloom filter over every stored short code. A negative answer is
// definitive, so lookups for unknown codes can skip the store entirely.
// It only sees codes created by this instance after Warm, so it is opt-in.
type CodeFilter struct {
	mu sync.RWMutex
	f  *bloom.BloomFilter
}

// NewCodeFilter sizes the filter for capacity codes at the given false-positive rate.
func NewCodeFilter(capacity uint, fpRate float64) *CodeFilter {
	if capacity == 0 {
		capacity = 1_000_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	return &CodeFilter{f: bloom.NewWithEstimates(capacity, fpRate)}
}

func (c *CodeFilter) Add(code string) {
	c.mu.Lock()
	c.f.AddString(code)
	c.mu.Unlock()
}

// MayContain reports false only when code was never added.
func (c *CodeFilter) MayContain(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.f.TestString(code)
}

// Warm loads every stored code.
func (c *CodeFilter) Warm(ctx context.Context, links repository.LinkRepository) (int, error) {
	n := 0
	err := links.EachCode(ctx, func(code string) {
		c.Add(code)
		n++
	})
	return n, err
}
