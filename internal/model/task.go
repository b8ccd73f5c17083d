package model

import "time"

// TaskRecord mirrors the vendor job record as returned by the jobs API.
type TaskRecord struct {
	TaskID       string  `json:"taskId"`
	Model        string  `json:"model"`
	State        string  `json:"state"` // "waiting" | "success" | "fail"
	Param        string  `json:"param,omitempty"`
	ResultJSON   string  `json:"resultJson,omitempty"`
	FailCode     *string `json:"failCode,omitempty"`
	FailMsg      *string `json:"failMsg,omitempty"`
	CostTime     *int64  `json:"costTime,omitempty"`
	CompleteTime *int64  `json:"completeTime,omitempty"`
	CreateTime   int64   `json:"createTime"`
}

// Task is a locally tracked job. The vendor owns id/model/state and the
// result fields; Progress, QueuePosition and IsRead exist only for the panel.
type Task struct {
	ID            string     `json:"taskId"`
	Model         string     `json:"model"`
	State         TaskState  `json:"state"`
	Progress      float64    `json:"progress"`                // 0-100, cosmetic
	QueuePosition int        `json:"queuePosition,omitempty"` // 1-based among pending, 0 otherwise
	IsRead        bool       `json:"isRead"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CostTimeMs    *int64     `json:"costTimeMs,omitempty"`
	ResultJSON    string     `json:"resultJson,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`

	// Seq is the store's insertion sequence, used for queue ranking.
	Seq uint64 `json:"-"`
}

// TaskFromRecord builds a local task from a vendor record. An unknown wire
// state is tracked as pending so the poller keeps probing it.
func TaskFromRecord(rec *TaskRecord, submittedAt time.Time) *Task {
	state, ok := StateFromWire(rec.State)
	if !ok {
		state = TaskStatePending
	}

	t := &Task{
		ID:          rec.TaskID,
		Model:       rec.Model,
		State:       state,
		SubmittedAt: submittedAt,
		ResultJSON:  rec.ResultJSON,
		CostTimeMs:  rec.CostTime,
	}
	if rec.FailMsg != nil && *rec.FailMsg != "" {
		t.FailureReason = rec.FailMsg
	}
	if state.Terminal() {
		t.Progress = 100
		now := submittedAt
		t.CompletedAt = &now
	}
	return t
}

// ShortID returns the last 4 characters of a task id for compact log lines.
func ShortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

// SubmitTaskRequest is the panel's job submission payload.
type SubmitTaskRequest struct {
	Model string                 `json:"model" validate:"required"`
	Input map[string]interface{} `json:"input" validate:"required"`
}

// TaskListResponse is the panel's task list payload.
type TaskListResponse struct {
	Tasks   []Task `json:"tasks"`
	Pending int    `json:"pending"`
}
