package model

// Credit pricing per model, in vendor credits per submitted job.
var CreditPricing = map[string]int{
	ModelMotionControl: 300,
	ModelNanoBanana:    10,
	ModelNanoBananaPro: 20,
	ModelImageEdit:     20,
	ModelZImage:        15,
	ModelVeoVideo:      150,

	"google/nano-banana-edit":    15,
	"flux-2/pro-text-to-image":   50,
	"grok-imagine/text-to-image": 30,
	"seedream/generate":          25,
}

const defaultCreditCost = 10

// CreditCost returns the credit cost for a model, falling back to a default
// for models not in the table.
func CreditCost(model string) int {
	if cost, ok := CreditPricing[model]; ok {
		return cost
	}
	return defaultCreditCost
}
