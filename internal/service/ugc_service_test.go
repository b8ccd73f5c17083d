package service

import (
	"testing"

	"github.com/renderdeck/api/internal/model"
)

func TestEstimate_Defaults(t *testing.T) {
	svc := NewUGCService(nil, nil)

	est := svc.Estimate(&model.UGCEstimateRequest{Narratives: 2})

	// 2 narratives × 4 scenes × 3 variations = 24 images.
	wantImages := 24
	wantCredits := wantImages*model.CreditCost(model.ModelNanoBananaPro) + model.CreditCost(model.ModelVeoVideo)
	if est.Credits != wantCredits {
		t.Errorf("expected %d credits, got %d", wantCredits, est.Credits)
	}
	if est.EstimatedSeconds <= 0 {
		t.Error("expected a positive duration estimate")
	}

	if len(est.Breakdown) != 4 {
		t.Fatalf("expected 4 breakdown lines, got %d", len(est.Breakdown))
	}
	for _, line := range est.Breakdown {
		switch line.Stage {
		case model.StageImages:
			if line.Count != wantImages {
				t.Errorf("expected %d images, got %d", wantImages, line.Count)
			}
		case model.StageScript, model.StageQA:
			if line.Credits != 0 {
				t.Errorf("expected chat stages free, %s billed %d", line.Stage, line.Credits)
			}
		}
	}
}

func TestEstimate_ExplicitShape(t *testing.T) {
	svc := NewUGCService(nil, nil)

	est := svc.Estimate(&model.UGCEstimateRequest{
		Narratives:         1,
		ScenesPerNarrative: 2,
		VariationsPerScene: 1,
	})

	wantCredits := 2*model.CreditCost(model.ModelNanoBananaPro) + model.CreditCost(model.ModelVeoVideo)
	if est.Credits != wantCredits {
		t.Errorf("expected %d credits for 2 images, got %d", wantCredits, est.Credits)
	}
}
