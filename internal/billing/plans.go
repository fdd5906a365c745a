// Package billing resolves plan entitlements, tracks usage against them and
// talks to the checkout provider.
package billing

import "github.com/ayush/pdf-chat/backend/internal/models"

// PlanKey identifies a catalog plan.
type PlanKey string

const (
	PlanFree    PlanKey = "free"
	PlanPremium PlanKey = "premium"
	PlanPro     PlanKey = "pro"
)

// Unlimited is the limit value meaning "no cap".
const Unlimited = -1

// Plan is one static catalog entry.
type Plan struct {
	Key             PlanKey                       `json:"key"`
	DisplayName     string                        `json:"name"`
	Price           float64                       `json:"price"`
	Currency        string                        `json:"currency"`
	BillingInterval string                        `json:"interval"`
	PriceID         string                        `json:"price_id,omitempty"`
	Features        []string                      `json:"features"`
	Limits          map[models.LimitDimension]int `json:"limits"`
	PrioritySupport bool                          `json:"priority_support"`
	APIAccess       bool                          `json:"api_access"`
	TeamFeatures    bool                          `json:"team_features"`
	ExportChats     bool                          `json:"export_conversations"`
}

// Catalog maps plan keys to plans. It is read-only once built.
type Catalog map[PlanKey]Plan

// NewCatalog builds the FREE, PREMIUM and PRO plans. Price ids are the
// checkout provider's recurring price references for the paid tiers.
func NewCatalog(premiumPriceID, proPriceID string) Catalog {
	return Catalog{
		PlanFree: {
			Key:             PlanFree,
			DisplayName:     "Free",
			Price:           0,
			Currency:        "usd",
			BillingInterval: "month",
			Features: []string{
				"3 PDF uploads per month",
				"Basic chat responses",
				"10 questions per PDF",
				"Standard support",
			},
			Limits: map[models.LimitDimension]int{
				models.MonthlyUploads:  3,
				models.QuestionsPerPDF: 10,
				models.AIResponses:     0,
			},
		},
		PlanPremium: {
			Key:             PlanPremium,
			DisplayName:     "Premium",
			Price:           9.99,
			Currency:        "usd",
			BillingInterval: "month",
			PriceID:         premiumPriceID,
			Features: []string{
				"Unlimited PDF uploads",
				"AI-powered responses (OpenAI)",
				"Unlimited questions",
				"Priority support",
				"Advanced analytics",
				"Export conversations",
			},
			Limits: map[models.LimitDimension]int{
				models.MonthlyUploads:  Unlimited,
				models.QuestionsPerPDF: Unlimited,
				models.AIResponses:     1,
			},
			PrioritySupport: true,
			ExportChats:     true,
		},
		PlanPro: {
			Key:             PlanPro,
			DisplayName:     "Pro",
			Price:           19.99,
			Currency:        "usd",
			BillingInterval: "month",
			PriceID:         proPriceID,
			Features: []string{
				"Everything in Premium",
				"API access",
				"Custom AI models",
				"Team collaboration",
				"Advanced integrations",
				"White-label options",
			},
			Limits: map[models.LimitDimension]int{
				models.MonthlyUploads:  Unlimited,
				models.QuestionsPerPDF: Unlimited,
				models.AIResponses:     1,
			},
			PrioritySupport: true,
			APIAccess:       true,
			TeamFeatures:    true,
			ExportChats:     true,
		},
	}
}

// Ordered returns the plans from cheapest to most expensive.
func (c Catalog) Ordered() []Plan {
	out := make([]Plan, 0, len(c))
	for _, key := range []PlanKey{PlanFree, PlanPremium, PlanPro} {
		if p, ok := c[key]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PlanForPrice maps a checkout price id back to its plan key.
func (c Catalog) PlanForPrice(priceID string) (PlanKey, bool) {
	if priceID == "" {
		return "", false
	}
	for key, p := range c {
		if p.PriceID == priceID {
			return key, true
		}
	}
	return "", false
}
