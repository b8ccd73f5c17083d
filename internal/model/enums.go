package model

// Task state (local)
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskStateSucceeded || s == TaskStateFailed
}

// Wire states reported by the vendor job API
const (
	WireStateWaiting = "waiting"
	WireStateSuccess = "success"
	WireStateFail    = "fail"
)

// StateFromWire maps a vendor state string to the local task state.
func StateFromWire(wire string) (TaskState, bool) {
	switch wire {
	case WireStateWaiting:
		return TaskStatePending, true
	case WireStateSuccess:
		return TaskStateSucceeded, true
	case WireStateFail:
		return TaskStateFailed, true
	}
	return "", false
}

// Generation models exposed by the panel
const (
	ModelMotionControl = "kling-2.6/motion-control"
	ModelNanoBanana    = "google/nano-banana"
	ModelNanoBananaPro = "nano-banana-pro"
	ModelImageEdit     = "qwen/image-edit"
	ModelZImage        = "z-image"
	ModelVeoVideo      = "google/veo3-fast"
)

// UGC run status
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// UGC pipeline stages
type UGCStage string

const (
	StageScript UGCStage = "script"
	StageImages UGCStage = "images"
	StageQA     UGCStage = "qa"
	StageVideo  UGCStage = "video"
)
