package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renderdeck/api/internal/client"
	"github.com/renderdeck/api/internal/model"
	"github.com/renderdeck/api/internal/store"
)

var (
	// ErrNotConfigured means the operator has not supplied an API key yet.
	// Submission is refused locally before any network call.
	ErrNotConfigured = errors.New("api key not configured")

	// ErrTaskNotFound means the id is not tracked in this session.
	ErrTaskNotFound = errors.New("task not found")
)

// Broadcaster pushes task snapshots to connected panels. May be nil.
type Broadcaster interface {
	BroadcastTasks(tasks []model.Task)
}

// TaskService owns the submission flow and read access to the task store.
// State reconciliation after submission is the polling engine's job.
type TaskService struct {
	gateway client.JobGateway
	store   *store.TaskStore
	alog    *store.ActivityLog
	hub     Broadcaster
}

func NewTaskService(gateway client.JobGateway, st *store.TaskStore, alog *store.ActivityLog, hub Broadcaster) *TaskService {
	return &TaskService{
		gateway: gateway,
		store:   st,
		alog:    alog,
		hub:     hub,
	}
}

// Submit creates a remote job and starts tracking it locally. A rejected
// submission (vendor error or transport failure) is surfaced through the
// activity log and creates no task.
func (s *TaskService) Submit(ctx context.Context, req *model.SubmitTaskRequest) (model.Task, error) {
	if !s.gateway.IsConfigured() {
		s.alog.Appendf("ERROR: API key missing. Configure in Settings.")
		return model.Task{}, ErrNotConfigured
	}

	s.alog.Appendf("Initiating generation sequence [%s]...", req.Model)

	taskID, err := s.gateway.CreateTask(ctx, req.Model, req.Input)
	if err != nil {
		s.alog.Appendf("Submission failed: %v", err)
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	s.alog.Appendf("Task created successfully. ID: %s", taskID)

	// Seed the local record from an initial status fetch. If that probe
	// fails the task is still tracked as pending; the poller fills in the
	// rest on its next tick.
	now := time.Now()
	rec, err := s.gateway.QueryTask(ctx, taskID)
	if err != nil || rec == nil {
		rec = &model.TaskRecord{
			TaskID:     taskID,
			Model:      req.Model,
			State:      model.WireStateWaiting,
			CreateTime: now.UnixMilli(),
		}
	}

	task := model.TaskFromRecord(rec, now)
	if err := s.store.Insert(task); err != nil {
		return model.Task{}, fmt.Errorf("track task: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastTasks(s.store.Snapshot())
	}

	stored, _ := s.store.Get(taskID)
	return stored, nil
}

// List returns all tracked tasks, newest-first, with current queue ranks.
func (s *TaskService) List() *model.TaskListResponse {
	return &model.TaskListResponse{
		Tasks:   s.store.Snapshot(),
		Pending: s.store.PendingCount(),
	}
}

// Get returns one tracked task.
func (s *TaskService) Get(id string) (model.Task, error) {
	t, ok := s.store.Get(id)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return t, nil
}

// Artifact derives the displayable media reference for a succeeded task.
func (s *TaskService) Artifact(id string) (model.Artifact, error) {
	t, ok := s.store.Get(id)
	if !ok {
		return model.Artifact{}, ErrTaskNotFound
	}
	if t.State != model.TaskStateSucceeded {
		return model.Artifact{Kind: model.ArtifactNone}, nil
	}
	return model.ExtractArtifact(t.ResultJSON), nil
}

// MarkRead flags a task as seen by the operator.
func (s *TaskService) MarkRead(id string) error {
	if !s.store.MarkRead(id) {
		return ErrTaskNotFound
	}
	return nil
}

// Reset drops the session's tracked tasks and log.
func (s *TaskService) Reset() {
	s.store.Reset()
	s.alog.Reset()
	s.alog.Appendf("Session reset.")
	if s.hub != nil {
		s.hub.BroadcastTasks(s.store.Snapshot())
	}
}

// Logs returns the activity log, newest-first.
func (s *TaskService) Logs() []string {
	return s.alog.Lines()
}
