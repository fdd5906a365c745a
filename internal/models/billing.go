package models

import "time"

// LimitDimension is one axis of usage restriction.
type LimitDimension string

const (
	MonthlyUploads  LimitDimension = "monthlyUploads"
	QuestionsPerPDF LimitDimension = "questionsPerPDF"
	AIResponses     LimitDimension = "aiResponses"
)

// Dimensions lists every limit dimension.
var Dimensions = []LimitDimension{MonthlyUploads, QuestionsPerPDF, AIResponses}

// SubscriptionActive is the only status that grants a paid plan.
const SubscriptionActive = "active"

// Subscription is a user's billing state as reconciled from the payment provider.
type Subscription struct {
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	PlanKey              string    `json:"plan_key"`
	PriceID              string    `json:"price_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UsageCounters maps each dimension to its running total.
type UsageCounters map[LimitDimension]int

// Get returns the counter for dim, zero when missing.
func (u UsageCounters) Get(dim LimitDimension) int {
	if u == nil {
		return 0
	}
	return u[dim]
}
