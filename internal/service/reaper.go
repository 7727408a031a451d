package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"ryan-quiz/backend/internal/repository"
)

// Reaper periodically removes sessions that have not been touched for ttl.
// It owns its goroutine: Start launches it and Stop cancels and waits for it.
type Reaper struct {
	repo     repository.Repository
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     *conc.WaitGroup
}

func NewReaper(repo repository.Repository, ttl, interval time.Duration) *Reaper {
	return &Reaper{repo: repo, ttl: ttl, interval: interval, now: time.Now}
}

// Start launches the sweep loop. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg = conc.NewWaitGroup()
	r.wg.Go(func() { r.run(ctx) })
}

// Stop cancels the sweep loop and blocks until it has exited.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, wg := r.cancel, r.wg
	r.cancel, r.wg = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	wg.Wait()
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	slog.Info("Session reaper started", "interval", r.interval, "ttl", r.ttl)

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("Session reaper shutting down", "reason", ctx.Err())
			return
		}
	}
}

// Sweep deletes every session idle for longer than ttl and returns how many
// were removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	n, err := r.repo.DeleteIdle(ctx, r.now().Add(-r.ttl))
	if err != nil {
		slog.Error("Session reaper failed to delete idle sessions", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("Session reaper removed idle sessions", "count", n)
	}
	return n
}
