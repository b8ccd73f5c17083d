package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/renderdeck/api/internal/model"
)

const TaskTypeUGC = "ugc:pipeline"

// Scenes per narrative when the script model is free to choose; used for
// estimation only.
const defaultScenesPerNarrative = 4

const defaultVariationsPerScene = 3

// ErrRunNotFound means no UGC run record exists for the id.
var ErrRunNotFound = errors.New("run not found")

// ErrRunNotCompleted means the run has not reached a terminal state yet.
var ErrRunNotCompleted = errors.New("run not completed")

// UGCService manages UGC pipeline runs. Run records live in redis with a
// 24h TTL — unlike the panel's task store, a run is a multi-minute batch
// job that should survive a restart of the serving process.
type UGCService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewUGCService(redisClient *redis.Client, asynqClient *asynq.Client) *UGCService {
	return &UGCService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// StartRun queues a new pipeline run.
func (s *UGCService) StartRun(ctx context.Context, req *model.UGCStartRequest) (*model.UGCStartResponse, error) {
	runID := uuid.New().String()
	now := time.Now()

	payload := &model.UGCRunPayload{Request: *req}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	run := &model.UGCRun{
		ID:        runID,
		Status:    model.RunStatusQueued,
		Progress:  0,
		Payload:   payloadBytes,
		CreatedAt: now,
	}

	if err := s.saveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	task, err := newUGCTask(runID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("ugc"),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	estimate := s.Estimate(&model.UGCEstimateRequest{
		Narratives:         len(req.Narratives),
		VariationsPerScene: req.VariationsPerScene,
	})

	return &model.UGCStartResponse{
		RunID:            runID,
		Status:           model.RunStatusQueued,
		EstimatedCredits: estimate.Credits,
		CreatedAt:        now,
	}, nil
}

// GetStatus returns the current status of a run.
func (s *UGCService) GetStatus(ctx context.Context, runID string) (*model.UGCStatusResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &model.UGCStatusResponse{
		RunID:        run.ID,
		Status:       run.Status,
		Progress:     run.Progress,
		CurrentStage: run.CurrentStage,
		Error:        run.Error,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}, nil
}

// GetResult returns the final output of a completed run.
func (s *UGCService) GetResult(ctx context.Context, runID string) (*model.UGCResult, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunStatusSucceeded {
		return nil, ErrRunNotCompleted
	}

	var result model.UGCResult
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// Estimate projects the credit cost and wall-clock duration of a run before
// it is started. Script writing and QA scoring run on the chat API and
// consume no vendor credits; images and the final video do.
func (s *UGCService) Estimate(req *model.UGCEstimateRequest) *model.UGCEstimateResponse {
	scenes := req.ScenesPerNarrative
	if scenes <= 0 {
		scenes = defaultScenesPerNarrative
	}
	variations := req.VariationsPerScene
	if variations <= 0 {
		variations = defaultVariationsPerScene
	}

	imageCount := req.Narratives * scenes * variations
	imageCredits := imageCount * model.CreditCost(model.ModelNanoBananaPro)
	videoCredits := model.CreditCost(model.ModelVeoVideo)

	breakdown := []model.EstimateLine{
		{Stage: model.StageScript, Count: req.Narratives, Credits: 0},
		{Stage: model.StageImages, Count: imageCount, Credits: imageCredits},
		{Stage: model.StageQA, Count: imageCount, Credits: 0},
		{Stage: model.StageVideo, Count: 1, Credits: videoCredits},
	}

	// Rough wall-clock: ~10s per narrative for the script, ~30s per image
	// batch of 3, ~15s per QA probe batch, ~120s for video assembly.
	batches := (imageCount + 2) / 3
	seconds := req.Narratives*10 + batches*30 + batches*15 + 120

	return &model.UGCEstimateResponse{
		Credits:          imageCredits + videoCredits,
		EstimatedSeconds: seconds,
		Breakdown:        breakdown,
	}
}

// UpdateRunProgress updates progress/stage (called by worker).
func (s *UGCService) UpdateRunProgress(ctx context.Context, runID string, progress int, stage model.UGCStage) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}

	run.Progress = progress
	run.CurrentStage = stage

	if run.Status == model.RunStatusQueued {
		run.Status = model.RunStatusRunning
		now := time.Now()
		run.StartedAt = &now
	}

	return s.saveRun(ctx, run)
}

// CompleteRun marks a run as succeeded (called by worker).
func (s *UGCService) CompleteRun(ctx context.Context, runID string, result *model.UGCResult) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	run.Status = model.RunStatusSucceeded
	run.Progress = 100
	run.CurrentStage = ""
	run.Result = resultBytes
	now := time.Now()
	run.CompletedAt = &now

	return s.saveRun(ctx, run)
}

// FailRun marks a run as failed (called by worker).
func (s *UGCService) FailRun(ctx context.Context, runID string, errMsg string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}

	run.Status = model.RunStatusFailed
	run.Error = &errMsg
	now := time.Now()
	run.CompletedAt = &now

	return s.saveRun(ctx, run)
}

func (s *UGCService) saveRun(ctx context.Context, run *model.UGCRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("ugc:run:%s", run.ID), data, 24*time.Hour).Err()
}

func (s *UGCService) getRun(ctx context.Context, runID string) (*model.UGCRun, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("ugc:run:%s", runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var run model.UGCRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func newUGCTask(runID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"runId":   runID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUGC, data), nil
}
