package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renderdeck/api/internal/model"
	"github.com/renderdeck/api/internal/store"
)

// Gateway is the slice of the vendor client the engine needs. Submission is
// the task service's business; the engine only reconciles.
type Gateway interface {
	QueryTask(ctx context.Context, taskID string) (*model.TaskRecord, error)
	IsConfigured() bool
}

// Broadcaster pushes task snapshots to connected panels. May be nil.
type Broadcaster interface {
	BroadcastTasks(tasks []model.Task)
}

const progressCeiling = 90.0

// Options tunes the engine's two cadences. Zero values fall back to the
// canonical 1s simulator / 3s reconciler periods.
type Options struct {
	SimulateEvery  time.Duration
	ReconcileEvery time.Duration
}

func (o Options) withDefaults() Options {
	if o.SimulateEvery <= 0 {
		o.SimulateEvery = time.Second
	}
	if o.ReconcileEvery <= 0 {
		o.ReconcileEvery = 3 * time.Second
	}
	return o
}

// Engine is the two-rate poller that keeps the task store honest. The fast
// tick advances a cosmetic progress simulation so the panel never looks
// frozen during a long vendor round-trip; the slow tick queries the vendor
// for every pending task and merges the results in one batch.
//
// A permanently unresolved task is polled until the session ends: retry is
// implicit in the next tick re-querying the same still-pending id, with no
// backoff or attempt cap. That keeps a transient probe failure invisible to
// the operator, at the cost of an unbounded wait on a dead job.
type Engine struct {
	store   *store.TaskStore
	gateway Gateway
	alog    *store.ActivityLog
	hub     Broadcaster
	opts    Options

	reconciling atomic.Bool
}

func New(st *store.TaskStore, gw Gateway, alog *store.ActivityLog, hub Broadcaster, opts Options) *Engine {
	return &Engine{
		store:   st,
		gateway: gw,
		alog:    alog,
		hub:     hub,
		opts:    opts.withDefaults(),
	}
}

// Run drives both tickers until ctx is cancelled. The engine's whole
// lifetime is bound to that context; cancellation tears both timers down
// unconditionally.
func (e *Engine) Run(ctx context.Context) {
	simulate := time.NewTicker(e.opts.SimulateEvery)
	defer simulate.Stop()
	reconcile := time.NewTicker(e.opts.ReconcileEvery)
	defer reconcile.Stop()

	log.Printf("[Poller] running (simulate=%s reconcile=%s)", e.opts.SimulateEvery, e.opts.ReconcileEvery)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Poller] stopped: %v", ctx.Err())
			return
		case <-simulate.C:
			e.simulateTick()
		case <-reconcile.C:
			e.reconcileTick(ctx)
		}
	}
}

// simulateTick advances display progress for every pending task. Pure local
// computation; never touches the network.
func (e *Engine) simulateTick() {
	if !e.gateway.IsConfigured() {
		return
	}
	if e.store.PendingCount() == 0 {
		return
	}

	e.store.AdvanceProgress(advanceProgress)

	if e.hub != nil {
		e.hub.BroadcastTasks(e.store.Snapshot())
	}
}

// advanceProgress is the canonical display-progress formula: a decaying
// increment that approaches the ceiling asymptotically and stays strictly
// below it while the task is pending.
func advanceProgress(current float64) float64 {
	if current >= progressCeiling {
		return current
	}
	increment := (progressCeiling - current) / 20
	if increment < 0.1 {
		increment = 0.1
	}
	next := current + increment
	if next > progressCeiling-0.1 {
		next = progressCeiling - 0.1
	}
	if next < current {
		return current
	}
	return next
}

// reconcileTick launches one reconciliation round unless the previous round
// is still in flight. A slow round is never overlapped; the skipped tick's
// work happens on the next one against a fresh snapshot, so a hung fetch
// from round N can never land on top of round N+2's state.
func (e *Engine) reconcileTick(ctx context.Context) {
	if !e.gateway.IsConfigured() {
		return
	}
	if !e.reconciling.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer e.reconciling.Store(false)
		e.reconcile(ctx)
	}()
}

// reconcile snapshots the pending set, queries the vendor for each id
// concurrently and merges all usable responses in one synchronous batch.
// A failed probe leaves its task entirely untouched this round.
func (e *Engine) reconcile(ctx context.Context) {
	ids := e.store.PendingIDs()
	if len(ids) == 0 {
		return
	}

	updates := make([]store.StatusUpdate, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			rec, err := e.gateway.QueryTask(ctx, id)
			if err != nil {
				// Transient probe failure: diagnostic only, the task is
				// re-queried on the next tick.
				log.Printf("[Poller] status probe failed for %s: %v", model.ShortID(id), err)
				return
			}
			updates[i] = store.StatusUpdate{TaskID: id, Record: rec}
		}(i, id)
	}
	wg.Wait()

	merged := updates[:0]
	for _, u := range updates {
		if u.Record != nil {
			merged = append(merged, u)
		}
	}
	if len(merged) == 0 {
		return
	}

	transitions := e.store.ApplyBatch(merged)
	for _, tr := range transitions {
		e.alog.Appendf("Task %s updated: %s -> %s", model.ShortID(tr.TaskID), wireName(tr.From), wireName(tr.To))
	}

	if e.hub != nil {
		e.hub.BroadcastTasks(e.store.Snapshot())
	}
}

// wireName renders a state in the vendor's vocabulary, matching what
// operators see in vendor dashboards.
func wireName(s model.TaskState) string {
	switch s {
	case model.TaskStatePending:
		return model.WireStateWaiting
	case model.TaskStateSucceeded:
		return model.WireStateSuccess
	case model.TaskStateFailed:
		return model.WireStateFail
	}
	return string(s)
}
