package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// UsageStore persists per-user counters. Increment must be atomic per user.
type UsageStore interface {
	Get(ctx context.Context, userID string) (models.UsageCounters, error)
	Increment(ctx context.Context, userID string, dim models.LimitDimension, delta int) (int, error)
	Set(ctx context.Context, userID string, dim models.LimitDimension, value int) error
}

// SubscriptionSource returns a user's subscription, or nil when there is none.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// LimitStatus is the result of a limit check.
type LimitStatus struct {
	Dimension models.LimitDimension `json:"dimension"`
	Allowed   bool                  `json:"allowed"`
	Remaining int                   `json:"remaining"`
	Limit     int                   `json:"limit"`
	Used      int                   `json:"used"`
}

// Unlimited reports whether the dimension has no cap.
func (s LimitStatus) Unlimited() bool {
	return s.Limit == Unlimited
}

// EntitlementDenied is returned by callers when a limit check fails.
type EntitlementDenied struct {
	Dimension models.LimitDimension
	Used      int
	Limit     int
}

func (e *EntitlementDenied) Error() string {
	if IsCapability(e.Dimension) {
		return fmt.Sprintf("%s is not included in your plan", e.Dimension)
	}
	return fmt.Sprintf("%s limit reached (%d of %d used)", e.Dimension, e.Used, e.Limit)
}

// Denied builds an EntitlementDenied from a failed check.
func Denied(s LimitStatus) *EntitlementDenied {
	return &EntitlementDenied{Dimension: s.Dimension, Used: s.Used, Limit: s.Limit}
}

// Tracker counts usage per user and compares it to plan limits. Checks are
// advisory and happen before the action; Increment never clamps.
type Tracker struct {
	store     UsageStore
	subs      SubscriptionSource
	evaluator *Evaluator
	log       *zap.Logger
}

func NewTracker(store UsageStore, subs SubscriptionSource, evaluator *Evaluator, log *zap.Logger) *Tracker {
	return &Tracker{store: store, subs: subs, evaluator: evaluator, log: log}
}

// Increment adds delta to the user's counter and returns the new total.
func (t *Tracker) Increment(ctx context.Context, userID string, dim models.LimitDimension, delta int) (int, error) {
	total, err := t.store.Increment(ctx, userID, dim, delta)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", dim, err)
	}
	t.log.Debug("usage incremented",
		zap.String("user_id", userID),
		zap.String("dimension", string(dim)),
		zap.Int("total", total),
	)
	return total, nil
}

// CheckLimit reports whether the user may perform one more action on dim.
func (t *Tracker) CheckLimit(ctx context.Context, userID string, dim models.LimitDimension) (LimitStatus, error) {
	sub, err := t.subs.GetSubscription(ctx, userID)
	if err != nil {
		return LimitStatus{}, fmt.Errorf("load subscription: %w", err)
	}

	limit := t.evaluator.CounterLimit(sub, dim)
	status := LimitStatus{Dimension: dim, Limit: limit}

	if IsCapability(dim) {
		status.Allowed = limit != 0
		status.Remaining = limit
		return status, nil
	}

	usage, err := t.store.Get(ctx, userID)
	if err != nil {
		return LimitStatus{}, fmt.Errorf("load usage: %w", err)
	}
	status.Used = usage.Get(dim)

	if limit == Unlimited {
		status.Allowed = true
		status.Remaining = Unlimited
		return status, nil
	}

	status.Remaining = max(0, limit-status.Used)
	status.Allowed = status.Remaining > 0
	return status, nil
}

// CheckAll runs CheckLimit for every dimension.
func (t *Tracker) CheckAll(ctx context.Context, userID string) ([]LimitStatus, error) {
	out := make([]LimitStatus, 0, len(models.Dimensions))
	for _, dim := range models.Dimensions {
		s, err := t.CheckLimit(ctx, userID, dim)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// HasAccess reports whether the user's plan grants the capability dim.
func (t *Tracker) HasAccess(ctx context.Context, userID string, dim models.LimitDimension) (bool, error) {
	sub, err := t.subs.GetSubscription(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load subscription: %w", err)
	}
	return t.evaluator.HasAccess(sub, dim), nil
}

// CanExport reports whether the user's plan includes conversation export.
func (t *Tracker) CanExport(ctx context.Context, userID string) (bool, error) {
	sub, err := t.subs.GetSubscription(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load subscription: %w", err)
	}
	plan, ok := t.evaluator.PlanFor(sub)
	return ok && plan.ExportChats, nil
}

// ResetDocument zeroes the per-document question counter. Called whenever a
// new document replaces the current one.
func (t *Tracker) ResetDocument(ctx context.Context, userID string) error {
	if err := t.store.Set(ctx, userID, models.QuestionsPerPDF, 0); err != nil {
		return fmt.Errorf("reset %s: %w", models.QuestionsPerPDF, err)
	}
	return nil
}

// Usage returns the raw counters.
func (t *Tracker) Usage(ctx context.Context, userID string) (models.UsageCounters, error) {
	u, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	return u, nil
}
