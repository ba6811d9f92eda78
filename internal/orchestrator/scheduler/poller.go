package scheduler

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = 1 * time.Second
	DefaultMaxRecoveryAge = 30 * time.Minute
)

// Fire runs one task's action to completion (or failure) and returns its
// error, if any; the poller turns that into the terminal status to persist.
type Fire func(ctx context.Context, t *Task) error

// Poller runs the single fixed-cadence polling loop described in spec.md
// §4.10: each tick, every expired task is atomically removed (fire-once)
// and executed in its own goroutine under the poller's own context, so host
// shutdown cancels it.
type Poller struct {
	Store        *Store
	Interval     time.Duration
	Fire         Fire
	Persist      func(t *Task) // called with the task's terminal status set
}

func NewPoller(store *Store, fire Fire, persist func(*Task)) *Poller {
	return &Poller{Store: store, Interval: DefaultPollInterval, Fire: fire, Persist: persist}
}

// Run blocks, polling until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.tick(ctx, now)
		}
	}
}

func (p *Poller) tick(ctx context.Context, now time.Time) {
	for _, id := range p.Store.ExpiredIDs(now) {
		task, ok := p.Store.RemoveIfPresent(id)
		if !ok {
			continue // another tick (or a racing Dismiss/Cancel) already took it
		}
		go p.execute(ctx, task)
	}
}

func (p *Poller) execute(parent context.Context, t *Task) {
	// A fresh scope: the parent's cancellation still applies (host
	// shutdown), but one task's own context never gates another's.
	ctx := parent

	t.Status = StatusActive
	if err := p.Fire(ctx, t); err != nil {
		if ctx.Err() == nil {
			slog.Error("scheduler: task fire failed", "task", t.ID, "type", t.Type, "error", err)
			t.Status = StatusFailed
		}
	} else {
		t.Status = StatusCompleted
	}
	if p.Persist != nil {
		p.Persist(t)
	}
}

// RecoveryDocument is the shape recovery reads from the durable store.
type RecoveryDocument struct {
	Task   *Task
	Status Status
}

// Recover implements spec.md §4.10's startup recovery: documents older
// than maxRecoveryAge are marked Failed and dropped; the rest are
// reinserted into store. Returns the ids marked Failed (for the caller to
// persist that status change).
func Recover(store *Store, docs []RecoveryDocument, now time.Time, maxRecoveryAge time.Duration) []string {
	if maxRecoveryAge <= 0 {
		maxRecoveryAge = DefaultMaxRecoveryAge
	}
	var failed []string
	for _, doc := range docs {
		if doc.Status != StatusPending && doc.Status != StatusActive {
			continue
		}
		if now.Sub(doc.Task.FireAt) > maxRecoveryAge {
			failed = append(failed, doc.Task.ID)
			continue
		}
		doc.Task.Status = doc.Status
		store.Put(doc.Task)
	}
	return failed
}
