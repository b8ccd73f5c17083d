package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/renderdeck/api/internal/client"
	"github.com/renderdeck/api/internal/model"
	"github.com/renderdeck/api/internal/service"
	"github.com/renderdeck/api/internal/websocket"
)

// Image generation is batched to stay under vendor rate limits.
const (
	imageBatchSize  = 3
	imageBatchDelay = 2 * time.Second
	imagePollEvery  = 5 * time.Second
	imagePollWait   = 5 * time.Minute
	videoPollEvery  = 10 * time.Second
	videoPollWait   = 15 * time.Minute
)

const defaultQAThreshold = 0.7

// UGCWorker runs the UGC pipeline: script writing, image generation,
// vision QA, video assembly. Each stage feeds the next; a failed stage
// fails the run with the stage's error.
type UGCWorker struct {
	ugcService   *service.UGCService
	openaiClient *client.OpenAIClient
	kieClient    *client.KieClient
	hub          *websocket.Hub
}

func NewUGCWorker(ugcService *service.UGCService, openaiClient *client.OpenAIClient, kieClient *client.KieClient, hub *websocket.Hub) *UGCWorker {
	return &UGCWorker{
		ugcService:   ugcService,
		openaiClient: openaiClient,
		kieClient:    kieClient,
		hub:          hub,
	}
}

// ProcessTask handles one queued pipeline run.
func (w *UGCWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		RunID   string          `json:"runId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	runID := taskPayload.RunID
	log.Printf("Starting UGC run: %s", runID)

	var payload model.UGCRunPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failRun(ctx, runID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal run payload: %w", err)
	}

	configured := w.openaiClient != nil && w.openaiClient.IsConfigured() &&
		w.kieClient != nil && w.kieClient.IsConfigured()
	if !configured {
		return w.processWithMock(ctx, runID, &payload)
	}

	return w.processPipeline(ctx, runID, &payload)
}

func (w *UGCWorker) processPipeline(ctx context.Context, runID string, payload *model.UGCRunPayload) error {
	req := &payload.Request
	result := &model.UGCResult{RunID: runID}
	creditsSpent := 0

	// Stage 1: script writing
	w.updateProgress(ctx, runID, 5, model.StageScript)
	stageStart := time.Now()
	scripts, err := w.generateScripts(ctx, req)
	if err != nil {
		w.failRun(ctx, runID, fmt.Sprintf("Script generation failed: %v", err))
		return err
	}
	result.Scripts = scripts
	result.Stages = append(result.Stages, stageResult(model.StageScript, "success", stageStart, ""))

	// Stage 2: image generation (batched variations)
	w.updateProgress(ctx, runID, 25, model.StageImages)
	stageStart = time.Now()
	images, spent, err := w.generateImages(ctx, runID, req, scripts)
	creditsSpent += spent
	if err != nil {
		w.failRun(ctx, runID, fmt.Sprintf("Image generation failed: %v", err))
		return err
	}
	result.Images = images
	result.Stages = append(result.Stages, stageResult(model.StageImages, "success", stageStart, ""))

	// Stage 3: vision QA scoring
	w.updateProgress(ctx, runID, 60, model.StageQA)
	stageStart = time.Now()
	reports, passed := w.scoreImages(ctx, req, images)
	result.QAReports = reports
	qaStatus := "success"
	if len(passed) < len(images) {
		qaStatus = "partial"
	}
	result.Stages = append(result.Stages, stageResult(model.StageQA, qaStatus, stageStart, ""))

	if len(passed) == 0 {
		w.failRun(ctx, runID, "No images passed QA - regenerate required")
		return fmt.Errorf("run %s: no images passed QA", runID)
	}

	// Stage 4: video assembly from passed images
	w.updateProgress(ctx, runID, 80, model.StageVideo)
	stageStart = time.Now()
	videoURL, err := w.assembleVideo(ctx, req, passed)
	if err != nil {
		w.failRun(ctx, runID, fmt.Sprintf("Video assembly failed: %v", err))
		return err
	}
	creditsSpent += model.CreditCost(model.ModelVeoVideo)
	result.VideoURL = videoURL
	result.Stages = append(result.Stages, stageResult(model.StageVideo, "success", stageStart, ""))

	result.CreditsSpent = creditsSpent
	result.CompletedAt = time.Now()

	if err := w.ugcService.CompleteRun(ctx, runID, result); err != nil {
		w.failRun(ctx, runID, "Failed to save result")
		return err
	}

	w.broadcast(runID, model.RunStatusSucceeded, 100, "", "")
	log.Printf("UGC run %s completed (%d credits)", runID, creditsSpent)
	return nil
}

// generateScripts asks the chat model for a scene-by-scene script per
// narrative, expecting strict JSON back.
func (w *UGCWorker) generateScripts(ctx context.Context, req *model.UGCStartRequest) ([]model.UGCScript, error) {
	system := "You are a UGC ad scriptwriter. Respond with strict JSON only: " +
		`{"hook": string, "scenes": [{"sceneNumber": int, "description": string, "caption": string}]}. ` +
		"Four scenes per script. Each description is a single visual moment suitable as an image generation prompt."

	var scripts []model.UGCScript
	for _, narrative := range req.Narratives {
		user := fmt.Sprintf("Product: %s\nDescription: %s\nNarrative angle: %s",
			req.ProductName, req.ProductDescription, narrative)

		raw, err := w.openaiClient.ChatCompletion(ctx, system, user)
		if err != nil {
			return nil, err
		}

		var parsed struct {
			Hook   string           `json:"hook"`
			Scenes []model.UGCScene `json:"scenes"`
		}
		if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
			return nil, fmt.Errorf("script response not parseable: %w", err)
		}
		if len(parsed.Scenes) == 0 {
			return nil, fmt.Errorf("script for narrative %q has no scenes", narrative)
		}

		scripts = append(scripts, model.UGCScript{
			Narrative: narrative,
			Hook:      parsed.Hook,
			Scenes:    parsed.Scenes,
		})
	}
	return scripts, nil
}

// generateImages submits image jobs scene by scene in rate-limited batches,
// then polls each to completion. Returns the images plus credits spent.
func (w *UGCWorker) generateImages(ctx context.Context, runID string, req *model.UGCStartRequest, scripts []model.UGCScript) ([]model.UGCImage, int, error) {
	variations := req.VariationsPerScene
	if variations <= 0 {
		variations = 3
	}

	type pendingImage struct {
		taskID      string
		sceneNumber int
		variation   int
	}

	var pending []pendingImage
	creditsSpent := 0
	inBatch := 0

	for _, script := range scripts {
		for _, scene := range script.Scenes {
			for v := 1; v <= variations; v++ {
				input := map[string]interface{}{
					"prompt":        imagePrompt(req, scene),
					"image_input":   referenceImages(req),
					"aspect_ratio":  "9:16",
					"resolution":    "1K",
					"output_format": "png",
				}

				taskID, err := w.kieClient.CreateTask(ctx, model.ModelNanoBananaPro, input)
				if err != nil {
					return nil, creditsSpent, err
				}
				creditsSpent += model.CreditCost(model.ModelNanoBananaPro)
				pending = append(pending, pendingImage{taskID: taskID, sceneNumber: scene.SceneNumber, variation: v})

				inBatch++
				if inBatch >= imageBatchSize {
					inBatch = 0
					select {
					case <-ctx.Done():
						return nil, creditsSpent, ctx.Err()
					case <-time.After(imageBatchDelay):
					}
				}
			}
		}
	}

	var images []model.UGCImage
	for i, p := range pending {
		rec, err := w.kieClient.PollTask(ctx, p.taskID, imagePollEvery, imagePollWait)
		if err != nil {
			log.Printf("UGC run %s: image task %s failed: %v", runID, p.taskID, err)
			continue
		}
		artifact := model.ExtractArtifact(rec.ResultJSON)
		if artifact.Kind == model.ArtifactNone {
			log.Printf("UGC run %s: image task %s returned no artifact", runID, p.taskID)
			continue
		}
		images = append(images, model.UGCImage{
			ID:          uuid.New().String(),
			SceneNumber: p.sceneNumber,
			Variation:   p.variation,
			URL:         artifact.URL,
			Model:       model.ModelNanoBananaPro,
		})

		progress := 25 + (35*(i+1))/len(pending)
		w.updateProgress(ctx, runID, progress, model.StageImages)
	}

	if len(images) == 0 {
		return nil, creditsSpent, fmt.Errorf("no images produced")
	}
	return images, creditsSpent, nil
}

// scoreImages runs vision QA over every generated image. A probe failure
// scores the image as failed rather than aborting the batch.
func (w *UGCWorker) scoreImages(ctx context.Context, req *model.UGCStartRequest, images []model.UGCImage) ([]model.QAReport, []model.UGCImage) {
	threshold := req.QAThreshold
	if threshold <= 0 {
		threshold = defaultQAThreshold
	}

	prompt := fmt.Sprintf("Rate this ad image for the product %q on a 0-1 scale for realism, product visibility and absence of artifacts. "+
		"Respond with only the number.", req.ProductName)

	var reports []model.QAReport
	var passed []model.UGCImage
	for _, img := range images {
		score, notes := w.scoreOne(ctx, prompt, img.URL)
		report := model.QAReport{
			ImageID: img.ID,
			Score:   score,
			Passed:  score >= threshold,
			Notes:   notes,
		}
		reports = append(reports, report)
		if report.Passed {
			passed = append(passed, img)
		}
	}
	return reports, passed
}

func (w *UGCWorker) scoreOne(ctx context.Context, prompt, imageURL string) (float64, string) {
	raw, err := w.openaiClient.VisionCompletion(ctx, prompt, imageURL)
	if err != nil {
		return 0, fmt.Sprintf("QA probe failed: %v", err)
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || score < 0 || score > 1 {
		return 0, fmt.Sprintf("unparseable QA score: %q", strings.TrimSpace(raw))
	}
	return score, ""
}

// assembleVideo submits the passed images to the video model and waits for
// the cut.
func (w *UGCWorker) assembleVideo(ctx context.Context, req *model.UGCStartRequest, images []model.UGCImage) (string, error) {
	if len(images) < 2 {
		return "", fmt.Errorf("need at least 2 images to assemble a video, have %d", len(images))
	}

	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}

	input := map[string]interface{}{
		"prompt":       fmt.Sprintf("UGC-style product ad for %s, cinematic smooth transitions between shots", req.ProductName),
		"image_urls":   urls,
		"aspect_ratio": "9:16",
	}

	taskID, err := w.kieClient.CreateTask(ctx, model.ModelVeoVideo, input)
	if err != nil {
		return "", err
	}

	rec, err := w.kieClient.PollTask(ctx, taskID, videoPollEvery, videoPollWait)
	if err != nil {
		return "", err
	}

	artifact := model.ExtractArtifact(rec.ResultJSON)
	if artifact.Kind != model.ArtifactVideo && artifact.Kind != model.ArtifactImage {
		return "", fmt.Errorf("video task %s returned no artifact", taskID)
	}
	return artifact.URL, nil
}

// processWithMock walks the stages with canned output for development
// setups where the external clients are not configured.
func (w *UGCWorker) processWithMock(ctx context.Context, runID string, payload *model.UGCRunPayload) error {
	steps := []struct {
		progress int
		stage    model.UGCStage
		duration time.Duration
	}{
		{10, model.StageScript, 2 * time.Second},
		{40, model.StageImages, 3 * time.Second},
		{65, model.StageQA, 2 * time.Second},
		{90, model.StageVideo, 3 * time.Second},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			log.Printf("UGC run %s cancelled", runID)
			return ctx.Err()
		default:
		}

		w.updateProgress(ctx, runID, step.progress, step.stage)
		time.Sleep(step.duration)
	}

	result := w.mockResult(runID, payload)
	if err := w.ugcService.CompleteRun(ctx, runID, result); err != nil {
		w.failRun(ctx, runID, "Failed to save result")
		return err
	}

	w.broadcast(runID, model.RunStatusSucceeded, 100, "", "")
	log.Printf("UGC run %s completed (mock)", runID)
	return nil
}

func (w *UGCWorker) mockResult(runID string, payload *model.UGCRunPayload) *model.UGCResult {
	req := &payload.Request
	result := &model.UGCResult{
		RunID:       runID,
		VideoURL:    fmt.Sprintf("https://cdn.renderdeck.dev/mock/%s.mp4", runID),
		CompletedAt: time.Now(),
	}

	for _, narrative := range req.Narratives {
		script := model.UGCScript{Narrative: narrative, Hook: "Mock hook"}
		for i := 1; i <= 2; i++ {
			script.Scenes = append(script.Scenes, model.UGCScene{
				SceneNumber: i,
				Description: fmt.Sprintf("Mock scene %d for %s", i, req.ProductName),
			})
			img := model.UGCImage{
				ID:          uuid.New().String(),
				SceneNumber: i,
				Variation:   1,
				URL:         fmt.Sprintf("https://cdn.renderdeck.dev/mock/%s-%d.png", runID, i),
				Model:       model.ModelNanoBananaPro,
			}
			result.Images = append(result.Images, img)
			result.QAReports = append(result.QAReports, model.QAReport{ImageID: img.ID, Score: 0.9, Passed: true})
		}
		result.Scripts = append(result.Scripts, script)
	}
	return result
}

func (w *UGCWorker) updateProgress(ctx context.Context, runID string, progress int, stage model.UGCStage) {
	if err := w.ugcService.UpdateRunProgress(ctx, runID, progress, stage); err != nil {
		log.Printf("Failed to update run progress: %v", err)
	}
	w.broadcast(runID, model.RunStatusRunning, progress, stage, "")
}

func (w *UGCWorker) failRun(ctx context.Context, runID, errMsg string) {
	if err := w.ugcService.FailRun(ctx, runID, errMsg); err != nil {
		log.Printf("Failed to mark run as failed: %v", err)
	}
	w.broadcast(runID, model.RunStatusFailed, 0, "", errMsg)
}

func (w *UGCWorker) broadcast(runID string, status model.RunStatus, progress int, stage model.UGCStage, errMsg string) {
	if w.hub == nil {
		return
	}
	w.hub.BroadcastUGC(runID, status, progress, stage, errMsg)
}

func stageResult(stage model.UGCStage, status string, start time.Time, errMsg string) model.StageResult {
	return model.StageResult{
		Stage:      stage,
		Status:     status,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      errMsg,
	}
}

func imagePrompt(req *model.UGCStartRequest, scene model.UGCScene) string {
	return fmt.Sprintf("%s. Product: %s. Professional UGC photo, studio lighting, prominent product placement.",
		scene.Description, req.ProductName)
}

func referenceImages(req *model.UGCStartRequest) []string {
	refs := []string{req.ProductImageURL}
	if req.ModelImageURL != "" {
		refs = append(refs, req.ModelImageURL)
	}
	return refs
}

// extractJSON trims markdown code fences that chat models wrap around JSON.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
