package dex

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a task immediately and then on a fixed interval until stopped.
type Poller struct {
	name     string
	interval time.Duration
	task     func(context.Context) error
	logger   *zap.Logger
}

func NewPoller(name string, interval time.Duration, task func(context.Context) error, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{name: name, interval: interval, task: task, logger: logger}
}

// Start launches the loop. The returned stop func cancels it and waits for
// the current run to return; it is safe to call more than once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			if err := p.task(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("poll failed", zap.String("task", p.name), zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
