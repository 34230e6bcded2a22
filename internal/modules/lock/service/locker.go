package service

import (
	"alpha_bot/internal/instrumentation"
	"context"
	"time"
)

// Locker serializes read-validate-commit sequences per owner.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Observed пишет время ожидания блокировки в метрики.
type Observed struct {
	Locker
	m *instrumentation.Metrics
}

func NewObserved(l Locker, m *instrumentation.Metrics) *Observed {
	return &Observed{Locker: l, m: m}
}

func (o *Observed) Lock(ctx context.Context, key string) (func(), error) {
	started := time.Now()
	unlock, err := o.Locker.Lock(ctx, key)
	if o.m != nil {
		o.m.LockWait.Observe(float64(time.Since(started).Milliseconds()))
	}
	return unlock, err
}
