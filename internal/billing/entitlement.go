package billing

import "github.com/ayush/pdf-chat/backend/internal/models"

// Evaluator answers "how much of dimension X does this subscription grant".
// It is pure: no IO, no errors.
type Evaluator struct {
	catalog Catalog
}

func NewEvaluator(catalog Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Catalog returns the plans the evaluator resolves against.
func (e *Evaluator) Catalog() Catalog {
	return e.catalog
}

// LimitFor returns the cap for dim, or Unlimited. A missing or inactive
// subscription gets the free plan. An active subscription whose plan is not
// in the catalog gets nothing, and so does a dimension the plan omits.
func (e *Evaluator) LimitFor(sub *models.Subscription, dim models.LimitDimension) int {
	plan, ok := e.resolve(sub)
	if !ok {
		return 0
	}
	limit, ok := plan.Limits[dim]
	if !ok {
		return 0
	}
	return limit
}

// CounterLimit is the cap the usage checks enforce for dim. It matches
// LimitFor except for an active subscription with an unknown plan key: the
// counters then fall back to the free plan's caps while capabilities stay
// denied.
func (e *Evaluator) CounterLimit(sub *models.Subscription, dim models.LimitDimension) int {
	if IsCapability(dim) {
		return e.LimitFor(sub, dim)
	}
	if _, ok := e.resolve(sub); !ok {
		return e.LimitFor(nil, dim)
	}
	return e.LimitFor(sub, dim)
}

// HasAccess interprets the limit for dim as a capability flag.
func (e *Evaluator) HasAccess(sub *models.Subscription, dim models.LimitDimension) bool {
	return e.LimitFor(sub, dim) != 0
}

// PlanFor returns the plan the subscription resolves to. ok is false for an
// active subscription with an unknown plan key.
func (e *Evaluator) PlanFor(sub *models.Subscription) (Plan, bool) {
	return e.resolve(sub)
}

func (e *Evaluator) resolve(sub *models.Subscription) (Plan, bool) {
	if sub == nil || sub.Status != models.SubscriptionActive {
		plan, ok := e.catalog[PlanFree]
		return plan, ok
	}
	plan, ok := e.catalog[PlanKey(sub.PlanKey)]
	return plan, ok
}

// IsCapability reports whether dim is an on/off feature rather than a counter.
func IsCapability(dim models.LimitDimension) bool {
	return dim == models.AIResponses
}
