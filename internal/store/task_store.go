package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/renderdeck/api/internal/model"
)

// TaskStore is the transient, in-memory collection of locally tracked jobs.
// It is ordered newest-first for display and keyed by the vendor-issued task
// id. Nothing here survives a process restart; that is the design, not an
// omission — the vendor remains the source of truth for job state.
//
// Mutation discipline: tasks are inserted by the submission path and from
// then on their mutable fields (state, progress, result, timestamps) are
// written only through AdvanceProgress and ApplyBatch, which the polling
// engine drives. Readers always get copies.
type TaskStore struct {
	mu      sync.RWMutex
	tasks   []*model.Task // newest-first
	byID    map[string]*model.Task
	nextSeq uint64
}

// StatusUpdate pairs a task id with a freshly fetched vendor record.
type StatusUpdate struct {
	TaskID string
	Record *model.TaskRecord
}

// Transition describes an observed state change, for the activity log.
type Transition struct {
	TaskID string
	From   model.TaskState
	To     model.TaskState
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		byID: make(map[string]*model.Task),
	}
}

// Insert adds a newly submitted task at the front of the list. Task ids are
// unique; inserting a duplicate is an error.
func (s *TaskStore) Insert(t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; exists {
		return fmt.Errorf("task %s already tracked", t.ID)
	}

	s.nextSeq++
	t.Seq = s.nextSeq

	s.tasks = append([]*model.Task{t}, s.tasks...)
	s.byID[t.ID] = t
	s.recomputeRanks()
	return nil
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// Snapshot returns a newest-first copy of all tracked tasks.
func (s *TaskStore) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}

// PendingIDs returns the ids of all currently pending tasks. The reconciler
// uses this as its per-tick snapshot: tasks submitted mid-batch are picked
// up on the next tick.
func (s *TaskStore) PendingIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, t := range s.tasks {
		if t.State == model.TaskStatePending {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// PendingCount returns the number of pending tasks.
func (s *TaskStore) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tasks {
		if t.State == model.TaskStatePending {
			n++
		}
	}
	return n
}

// Len returns the number of tracked tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// AdvanceProgress applies the simulator's progress function to every pending
// task. The function receives the current display progress and returns the
// next value; the store enforces that progress never decreases.
func (s *TaskStore) AdvanceProgress(advance func(current float64) float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.State != model.TaskStatePending {
			continue
		}
		if next := advance(t.Progress); next > t.Progress {
			t.Progress = next
		}
	}
	s.recomputeRanks()
}

// ApplyBatch merges one reconciler round of fetched records in a single
// synchronous write, so readers never observe a half-updated batch. Returns
// the state transitions that occurred, in update order.
//
// Merge rules: an update for an untracked id is dropped; a task already in a
// terminal state is never touched again (this also discards stale responses
// that resolve after a later tick already completed the task); an
// unrecognized wire state is dropped. A task flipping to a terminal state
// gets progress snapped to 100 and the result fields copied over; a task
// still pending keeps its progress exactly as the simulator left it.
func (s *TaskStore) ApplyBatch(updates []StatusUpdate) []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var transitions []Transition

	for _, u := range updates {
		if u.Record == nil {
			continue
		}
		t, ok := s.byID[u.TaskID]
		if !ok || t.State.Terminal() {
			continue
		}

		newState, ok := model.StateFromWire(u.Record.State)
		if !ok {
			continue
		}

		if newState != t.State {
			transitions = append(transitions, Transition{TaskID: t.ID, From: t.State, To: newState})
		}
		t.State = newState

		if newState.Terminal() {
			t.Progress = 100
			t.CompletedAt = &now
			t.ResultJSON = u.Record.ResultJSON
			t.CostTimeMs = u.Record.CostTime
			if u.Record.FailMsg != nil && *u.Record.FailMsg != "" {
				t.FailureReason = u.Record.FailMsg
			}
		}
	}

	s.recomputeRanks()
	return transitions
}

// MarkRead flags a task as read by the operator.
func (s *TaskStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return false
	}
	t.IsRead = true
	return true
}

// Reset drops all tracked tasks. Only an explicit operator action calls
// this; tasks are never evicted automatically.
func (s *TaskStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.byID = make(map[string]*model.Task)
}

// recomputeRanks assigns each pending task its 1-based position among
// pending tasks in submission order. Non-pending tasks carry no rank.
// Callers must hold the write lock.
func (s *TaskStore) recomputeRanks() {
	for _, t := range s.tasks {
		if t.State != model.TaskStatePending {
			t.QueuePosition = 0
			continue
		}
		rank := 1
		for _, other := range s.tasks {
			if other.State == model.TaskStatePending && other.Seq < t.Seq {
				rank++
			}
		}
		t.QueuePosition = rank
	}
}
