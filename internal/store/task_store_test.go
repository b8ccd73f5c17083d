package store

import (
	"testing"
	"time"

	"github.com/renderdeck/api/internal/model"
)

func pendingTask(id string) *model.Task {
	return &model.Task{
		ID:          id,
		Model:       model.ModelNanoBananaPro,
		State:       model.TaskStatePending,
		SubmittedAt: time.Now(),
	}
}

func TestInsert_NewestFirst(t *testing.T) {
	s := NewTaskStore()

	for _, id := range []string{"task-a", "task-b", "task-c"} {
		if err := s.Insert(pendingTask(id)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(snap))
	}
	if snap[0].ID != "task-c" || snap[2].ID != "task-a" {
		t.Errorf("expected newest-first order [c b a], got [%s %s %s]", snap[0].ID, snap[1].ID, snap[2].ID)
	}
}

func TestInsert_DuplicateRejected(t *testing.T) {
	s := NewTaskStore()

	if err := s.Insert(pendingTask("task-a")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Insert(pendingTask("task-a")); err == nil {
		t.Error("expected error inserting duplicate id")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 task after duplicate insert, got %d", s.Len())
	}
}

func TestQueueRanks_SubmissionOrder(t *testing.T) {
	s := NewTaskStore()

	// T1, T2, T3 submitted in order.
	for _, id := range []string{"t1", "t2", "t3"} {
		if err := s.Insert(pendingTask(id)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	rank := func(id string) int {
		task, ok := s.Get(id)
		if !ok {
			t.Fatalf("task %s not found", id)
		}
		return task.QueuePosition
	}

	if rank("t1") != 1 || rank("t2") != 2 || rank("t3") != 3 {
		t.Fatalf("expected ranks 1/2/3, got %d/%d/%d", rank("t1"), rank("t2"), rank("t3"))
	}

	// T2 completes: T1 keeps rank 1, T3 moves up to rank 2, T2 unranked.
	s.ApplyBatch([]StatusUpdate{
		{TaskID: "t2", Record: &model.TaskRecord{TaskID: "t2", State: model.WireStateSuccess}},
	})

	if rank("t1") != 1 {
		t.Errorf("expected t1 rank 1, got %d", rank("t1"))
	}
	if rank("t3") != 2 {
		t.Errorf("expected t3 rank 2 after t2 completed, got %d", rank("t3"))
	}
	if rank("t2") != 0 {
		t.Errorf("expected t2 unranked after completion, got %d", rank("t2"))
	}
}

func TestApplyBatch_TerminalTransition(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	cost := int64(4200)
	transitions := s.ApplyBatch([]StatusUpdate{
		{TaskID: "t1", Record: &model.TaskRecord{
			TaskID:     "t1",
			State:      model.WireStateSuccess,
			ResultJSON: `{"resultUrls":["https://cdn.example.com/out.png"]}`,
			CostTime:   &cost,
		}},
	})

	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	if transitions[0].From != model.TaskStatePending || transitions[0].To != model.TaskStateSucceeded {
		t.Errorf("unexpected transition %s -> %s", transitions[0].From, transitions[0].To)
	}

	task, _ := s.Get("t1")
	if task.Progress != 100 {
		t.Errorf("expected progress snapped to 100, got %v", task.Progress)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if task.ResultJSON == "" {
		t.Error("expected result payload to be copied")
	}
	if task.CostTimeMs == nil || *task.CostTimeMs != 4200 {
		t.Errorf("expected cost time 4200, got %v", task.CostTimeMs)
	}
}

func TestApplyBatch_TerminalIsSticky(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	s.ApplyBatch([]StatusUpdate{
		{TaskID: "t1", Record: &model.TaskRecord{TaskID: "t1", State: model.WireStateSuccess}},
	})

	// A stale response arriving after the task completed must be discarded.
	transitions := s.ApplyBatch([]StatusUpdate{
		{TaskID: "t1", Record: &model.TaskRecord{TaskID: "t1", State: model.WireStateWaiting}},
	})
	if len(transitions) != 0 {
		t.Fatalf("expected no transitions on a terminal task, got %d", len(transitions))
	}

	task, _ := s.Get("t1")
	if task.State != model.TaskStateSucceeded {
		t.Errorf("expected task to stay succeeded, got %s", task.State)
	}
	if task.Progress != 100 {
		t.Errorf("expected progress to stay 100, got %v", task.Progress)
	}
}

func TestApplyBatch_DropsUnknownAndUntracked(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	transitions := s.ApplyBatch([]StatusUpdate{
		{TaskID: "ghost", Record: &model.TaskRecord{TaskID: "ghost", State: model.WireStateSuccess}},
		{TaskID: "t1", Record: &model.TaskRecord{TaskID: "t1", State: "queued"}}, // unknown wire state
		{TaskID: "t1", Record: nil},
	})
	if len(transitions) != 0 {
		t.Fatalf("expected no transitions, got %d", len(transitions))
	}

	task, _ := s.Get("t1")
	if task.State != model.TaskStatePending {
		t.Errorf("expected t1 still pending, got %s", task.State)
	}
	if s.Len() != 1 {
		t.Errorf("expected untracked update to be dropped, store has %d tasks", s.Len())
	}
}

func TestApplyBatch_FailureReason(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	msg := "content policy violation"
	s.ApplyBatch([]StatusUpdate{
		{TaskID: "t1", Record: &model.TaskRecord{TaskID: "t1", State: model.WireStateFail, FailMsg: &msg}},
	})

	task, _ := s.Get("t1")
	if task.State != model.TaskStateFailed {
		t.Fatalf("expected failed state, got %s", task.State)
	}
	if task.FailureReason == nil || *task.FailureReason != msg {
		t.Errorf("expected failure reason %q, got %v", msg, task.FailureReason)
	}
	if task.Progress != 100 {
		t.Errorf("expected progress snapped to 100 on failure, got %v", task.Progress)
	}
}

func TestAdvanceProgress_NeverDecreases(t *testing.T) {
	s := NewTaskStore()
	task := pendingTask("t1")
	task.Progress = 50
	if err := s.Insert(task); err != nil {
		t.Fatal(err)
	}

	s.AdvanceProgress(func(current float64) float64 { return current - 10 })

	got, _ := s.Get("t1")
	if got.Progress != 50 {
		t.Errorf("expected progress to hold at 50, got %v", got.Progress)
	}
}

func TestAdvanceProgress_SkipsTerminal(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}
	s.ApplyBatch([]StatusUpdate{
		{TaskID: "t1", Record: &model.TaskRecord{TaskID: "t1", State: model.WireStateSuccess}},
	})

	s.AdvanceProgress(func(current float64) float64 { return 1 })

	got, _ := s.Get("t1")
	if got.Progress != 100 {
		t.Errorf("expected terminal progress untouched at 100, got %v", got.Progress)
	}
}

func TestMarkRead(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	if !s.MarkRead("t1") {
		t.Error("expected MarkRead to succeed for tracked task")
	}
	if s.MarkRead("ghost") {
		t.Error("expected MarkRead to fail for unknown id")
	}

	task, _ := s.Get("t1")
	if !task.IsRead {
		t.Error("expected task to be flagged read")
	}
}

func TestReset(t *testing.T) {
	s := NewTaskStore()
	for _, id := range []string{"t1", "t2"} {
		if err := s.Insert(pendingTask(id)); err != nil {
			t.Fatal(err)
		}
	}

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("expected empty store after reset, got %d tasks", s.Len())
	}
	if _, ok := s.Get("t1"); ok {
		t.Error("expected t1 gone after reset")
	}

	// Ranking restarts cleanly.
	if err := s.Insert(pendingTask("t3")); err != nil {
		t.Fatal(err)
	}
	task, _ := s.Get("t3")
	if task.QueuePosition != 1 {
		t.Errorf("expected rank 1 after reset, got %d", task.QueuePosition)
	}
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	s := NewTaskStore()
	if err := s.Insert(pendingTask("t1")); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap[0].Progress = 99

	got, _ := s.Get("t1")
	if got.Progress == 99 {
		t.Error("mutating a snapshot must not touch the store")
	}
}
