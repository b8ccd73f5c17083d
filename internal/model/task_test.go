package model

import (
	"testing"
	"time"
)

func TestStateFromWire(t *testing.T) {
	cases := map[string]TaskState{
		WireStateWaiting: TaskStatePending,
		WireStateSuccess: TaskStateSucceeded,
		WireStateFail:    TaskStateFailed,
	}
	for wire, want := range cases {
		got, ok := StateFromWire(wire)
		if !ok || got != want {
			t.Errorf("StateFromWire(%q) = %q, %v; want %q", wire, got, ok, want)
		}
	}

	if _, ok := StateFromWire("queued"); ok {
		t.Error("expected unknown wire state to be rejected")
	}
}

func TestTaskFromRecord_Waiting(t *testing.T) {
	now := time.Now()
	task := TaskFromRecord(&TaskRecord{
		TaskID: "t1",
		Model:  ModelNanoBananaPro,
		State:  WireStateWaiting,
	}, now)

	if task.State != TaskStatePending {
		t.Errorf("expected pending, got %s", task.State)
	}
	if task.Progress != 0 {
		t.Errorf("expected zero progress, got %v", task.Progress)
	}
	if task.CompletedAt != nil {
		t.Error("expected no completion time for a pending task")
	}
}

func TestTaskFromRecord_UnknownStateTrackedAsPending(t *testing.T) {
	task := TaskFromRecord(&TaskRecord{TaskID: "t1", State: "generating"}, time.Now())
	if task.State != TaskStatePending {
		t.Errorf("expected unknown wire state tracked as pending, got %s", task.State)
	}
}

func TestTaskFromRecord_Terminal(t *testing.T) {
	msg := "bad prompt"
	task := TaskFromRecord(&TaskRecord{
		TaskID:  "t1",
		State:   WireStateFail,
		FailMsg: &msg,
	}, time.Now())

	if task.State != TaskStateFailed {
		t.Fatalf("expected failed, got %s", task.State)
	}
	if task.Progress != 100 {
		t.Errorf("expected progress 100, got %v", task.Progress)
	}
	if task.CompletedAt == nil {
		t.Error("expected completion time set")
	}
	if task.FailureReason == nil || *task.FailureReason != msg {
		t.Errorf("expected failure reason %q, got %v", msg, task.FailureReason)
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("task-abcd1234"); got != "1234" {
		t.Errorf("expected last 4 chars, got %q", got)
	}
	if got := ShortID("ab"); got != "ab" {
		t.Errorf("expected short ids returned whole, got %q", got)
	}
}

func TestTerminal(t *testing.T) {
	if TaskStatePending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !TaskStateSucceeded.Terminal() || !TaskStateFailed.Terminal() {
		t.Error("succeeded and failed must be terminal")
	}
}

func TestCreditCost(t *testing.T) {
	if CreditCost(ModelMotionControl) != 300 {
		t.Errorf("unexpected motion-control cost %d", CreditCost(ModelMotionControl))
	}
	if CreditCost("some/unknown-model") != defaultCreditCost {
		t.Errorf("expected default cost for unknown model, got %d", CreditCost("some/unknown-model"))
	}
}
