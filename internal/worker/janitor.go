// Package worker runs background maintenance next to the API server.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// KeyPurger deletes idempotency keys recorded before cutoff.
type KeyPurger interface {
	PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor periodically drops idempotency keys older than the retention window.
type Janitor struct {
	purger   KeyPurger
	logger   *zap.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewJanitor(purger KeyPurger, logger *zap.Logger, interval, ttl time.Duration) *Janitor {
	return &Janitor{
		purger:   purger,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting idempotency key janitor",
		zap.Duration("interval", j.interval),
		zap.Duration("ttl", j.ttl),
	)

	j.wg.Add(1)
	go j.loop(ctx)
}

// Stop waits for the running sweep to finish. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		j.logger.Info("Stopping janitor...")
		close(j.stop)
	})
	j.wg.Wait()
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("janitor sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce purges expired keys immediately.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.ttl)
	n, err := j.purger.PurgeIdempotencyKeys(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("Purged idempotency keys", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
