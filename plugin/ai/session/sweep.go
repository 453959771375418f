package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is the default interval between eviction sweeps.
const DefaultSweepInterval = 30 * time.Minute

// SweepJob periodically evicts expired sessions from a Store.
type SweepJob struct {
	store    *Store
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewSweepJob creates a sweep job for the given store.
func NewSweepJob(store *Store, interval time.Duration) *SweepJob {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SweepJob{
		store:    store,
		interval: interval,
	}
}

// Start begins the periodic sweep in a goroutine. Calling Start on a
// running job is a no-op.
func (j *SweepJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.stopChan = make(chan struct{})

	go j.run(ctx)

	slog.Info("session sweep job started", "interval", j.interval)
}

// Stop stops the sweep job.
func (j *SweepJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	close(j.stopChan)
	j.running = false

	slog.Info("session sweep job stopped")
}

// RunOnce executes a single sweep immediately and returns the eviction count.
func (j *SweepJob) RunOnce() int {
	return j.store.SweepExpired(time.Now())
}

// IsRunning reports whether the sweep job is currently running.
func (j *SweepJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *SweepJob) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.store.SweepExpired(time.Now())
		}
	}
}
