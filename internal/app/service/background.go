package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// background runs fire-and-forget side effects with their own timeout so they never
// hold up, or fail, the request that triggered them.
type background struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger
}

func newBackground(timeout time.Duration, logger *zap.Logger) *background {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &background{timeout: timeout, logger: logger}
}

func (b *background) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every side effect started so far has finished.
func (b *background) Wait() {
	b.wg.Wait()
}
