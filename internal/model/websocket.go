package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeTasks WSMessageType = "tasks"
	WSMessageTypeLog   WSMessageType = "log"
	WSMessageTypeUGC   WSMessageType = "ugc"
)

// WSTasksMessage carries a full task-store snapshot to the panel.
type WSTasksMessage struct {
	Type    WSMessageType `json:"type"`
	Tasks   []Task        `json:"tasks"`
	Pending int           `json:"pending"`
}

// WSLogMessage carries one activity log line.
type WSLogMessage struct {
	Type WSMessageType `json:"type"`
	Line string        `json:"line"`
}

// WSUGCMessage carries UGC run progress.
type WSUGCMessage struct {
	Type         WSMessageType `json:"type"`
	RunID        string        `json:"runId"`
	Status       RunStatus     `json:"status"`
	Progress     int           `json:"progress"`
	CurrentStage UGCStage      `json:"currentStage,omitempty"`
	Error        string        `json:"error,omitempty"`
}
