package model

import "time"

// UGCRun is a tracked execution of the UGC pipeline.
type UGCRun struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStage UGCStage   `json:"currentStage,omitempty"`
	Error        *string    `json:"error,omitempty"`
	Payload      []byte     `json:"payload,omitempty"`
	Result       []byte     `json:"result,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// UGCStartRequest describes a UGC pipeline run.
type UGCStartRequest struct {
	ProductName        string   `json:"productName" validate:"required"`
	ProductDescription string   `json:"productDescription,omitempty"`
	ProductImageURL    string   `json:"productImageUrl" validate:"required,url"`
	ModelImageURL      string   `json:"modelImageUrl,omitempty" validate:"omitempty,url"`
	Narratives         []string `json:"narratives" validate:"required,min=1,max=5,dive,required"`
	VariationsPerScene int      `json:"variationsPerScene,omitempty" validate:"omitempty,min=1,max=4"`
	QAThreshold        float64  `json:"qaThreshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}

// UGCRunPayload is the worker-side payload for a run.
type UGCRunPayload struct {
	Request UGCStartRequest `json:"request"`
}

// UGCScene is one scene of a generated script.
type UGCScene struct {
	SceneNumber int    `json:"sceneNumber"`
	Description string `json:"description"`
	Caption     string `json:"caption,omitempty"`
}

// UGCScript is the generated script for one narrative.
type UGCScript struct {
	Narrative string     `json:"narrative"`
	Hook      string     `json:"hook,omitempty"`
	Scenes    []UGCScene `json:"scenes"`
}

// UGCImage is one generated image variation.
type UGCImage struct {
	ID          string `json:"id"`
	SceneNumber int    `json:"sceneNumber"`
	Variation   int    `json:"variation"`
	URL         string `json:"url"`
	Model       string `json:"model"`
}

// QAReport is the vision model's verdict on one generated image.
type QAReport struct {
	ImageID string  `json:"imageId"`
	Score   float64 `json:"score"` // 0-1
	Passed  bool    `json:"passed"`
	Notes   string  `json:"notes,omitempty"`
}

// StageResult summarizes one completed pipeline stage.
type StageResult struct {
	Stage      UGCStage `json:"stage"`
	Status     string   `json:"status"` // "success" | "failed" | "partial"
	DurationMs int64    `json:"durationMs"`
	Error      string   `json:"error,omitempty"`
}

// UGCStartResponse acknowledges a queued run.
type UGCStartResponse struct {
	RunID            string    `json:"runId"`
	Status           RunStatus `json:"status"`
	EstimatedCredits int       `json:"estimatedCredits"`
	CreatedAt        time.Time `json:"createdAt"`
}

// UGCStatusResponse reports run progress.
type UGCStatusResponse struct {
	RunID        string     `json:"runId"`
	Status       RunStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStage UGCStage   `json:"currentStage,omitempty"`
	Error        *string    `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// UGCResult is the final output of a completed run.
type UGCResult struct {
	RunID        string        `json:"runId"`
	Scripts      []UGCScript   `json:"scripts"`
	Images       []UGCImage    `json:"images"`
	QAReports    []QAReport    `json:"qaReports"`
	VideoURL     string        `json:"videoUrl,omitempty"`
	Stages       []StageResult `json:"stages"`
	CreditsSpent int           `json:"creditsSpent"`
	CompletedAt  time.Time     `json:"completedAt"`
}

// UGCEstimateRequest asks for a cost/time projection before starting a run.
type UGCEstimateRequest struct {
	Narratives         int `json:"narratives" validate:"required,min=1,max=5"`
	ScenesPerNarrative int `json:"scenesPerNarrative,omitempty" validate:"omitempty,min=1,max=8"`
	VariationsPerScene int `json:"variationsPerScene,omitempty" validate:"omitempty,min=1,max=4"`
}

// EstimateLine is one line of an estimate breakdown.
type EstimateLine struct {
	Stage   UGCStage `json:"stage"`
	Count   int      `json:"count"`
	Credits int      `json:"credits"`
}

// UGCEstimateResponse is the projected cost and duration of a run.
type UGCEstimateResponse struct {
	Credits          int            `json:"credits"`
	EstimatedSeconds int            `json:"estimatedSeconds"`
	Breakdown        []EstimateLine `json:"breakdown"`
}
