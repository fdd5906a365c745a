package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

var (
	ErrNotConfigured = errors.New("billing is not configured")
	ErrUnknownPlan   = errors.New("unknown or free plan")
	ErrNoCustomer    = errors.New("no billing account for this user")
	ErrSignature     = errors.New("webhook signature verification failed")
)

// BillingStore holds the provider customer link and reconciled subscriptions.
type BillingStore interface {
	GetStripeCustomerID(ctx context.Context, userID string) (string, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	FindUserByStripeCustomer(ctx context.Context, customerID string) (string, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
}

// Provider is the slice of the Stripe API used here.
type Provider interface {
	CreateCustomer(ctx context.Context, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// CheckoutParams describes one subscription checkout.
type CheckoutParams struct {
	CustomerID string
	UserID     string
	Plan       PlanKey
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// StripeBilling starts checkouts and reconciles webhook events into the
// subscriptions table.
type StripeBilling struct {
	provider      Provider
	store         BillingStore
	catalog       Catalog
	webhookSecret string
	log           *zap.Logger
	now           func() time.Time
}

func NewStripeBilling(provider Provider, store BillingStore, catalog Catalog, webhookSecret string, log *zap.Logger) *StripeBilling {
	return &StripeBilling{
		provider:      provider,
		store:         store,
		catalog:       catalog,
		webhookSecret: webhookSecret,
		log:           log,
		now:           time.Now,
	}
}

// StartCheckout returns the hosted checkout URL for plan.
func (b *StripeBilling) StartCheckout(ctx context.Context, userID string, plan PlanKey, successURL, cancelURL string) (string, error) {
	if b.provider == nil {
		return "", ErrNotConfigured
	}
	p, ok := b.catalog[plan]
	if !ok || plan == PlanFree {
		return "", ErrUnknownPlan
	}
	if p.PriceID == "" {
		return "", ErrNotConfigured
	}

	customerID, err := b.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := b.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		UserID:     userID,
		Plan:       plan,
		PriceID:    p.PriceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}

// StartPortal returns the self-service billing portal URL.
func (b *StripeBilling) StartPortal(ctx context.Context, userID, returnURL string) (string, error) {
	if b.provider == nil {
		return "", ErrNotConfigured
	}
	customerID, err := b.store.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", ErrNoCustomer
	}

	url, err := b.provider.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

// ensureCustomer finds or creates the provider customer for userID.
func (b *StripeBilling) ensureCustomer(ctx context.Context, userID string) (string, error) {
	id, err := b.store.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id, err = b.provider.CreateCustomer(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if err := b.store.SetStripeCustomerID(ctx, userID, id); err != nil {
		return "", err
	}
	return id, nil
}

// HandleWebhook verifies payload and applies subscription changes. Events
// it does not care about are ignored.
func (b *StripeBilling) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if b.webhookSecret == "" {
		return ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, b.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return b.applySubscription(ctx, &sub, event.Type == "customer.subscription.deleted")
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return b.applyCheckout(ctx, &sess)
	default:
		b.log.Debug("stripe event ignored", zap.String("type", string(event.Type)))
		return nil
	}
}

func (b *StripeBilling) applySubscription(ctx context.Context, sub *stripe.Subscription, deleted bool) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	userID, err := b.resolveUser(ctx, customerID, sub.Metadata)
	if err != nil {
		return err
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	status := string(sub.Status)
	if deleted {
		status = string(stripe.SubscriptionStatusCanceled)
	}

	rec := &models.Subscription{
		UserID:               userID,
		Status:               status,
		PlanKey:              b.planKeyFor(priceID),
		PriceID:              priceID,
		StripeSubscriptionID: sub.ID,
		UpdatedAt:            b.now(),
	}
	if sub.CurrentPeriodEnd > 0 {
		rec.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}

	if err := b.store.UpsertSubscription(ctx, rec); err != nil {
		return err
	}
	b.log.Info("subscription reconciled",
		zap.String("user_id", userID),
		zap.String("status", rec.Status),
		zap.String("plan", rec.PlanKey),
	)
	return nil
}

func (b *StripeBilling) applyCheckout(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Mode != stripe.CheckoutSessionModeSubscription {
		return nil
	}
	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	meta := sess.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	if meta["user_id"] == "" && sess.ClientReferenceID != "" {
		meta["user_id"] = sess.ClientReferenceID
	}
	userID, err := b.resolveUser(ctx, customerID, meta)
	if err != nil {
		return err
	}

	priceID := meta["price_id"]
	subID := ""
	if sess.Subscription != nil {
		subID = sess.Subscription.ID
	}

	rec := &models.Subscription{
		UserID:               userID,
		Status:               models.SubscriptionActive,
		PlanKey:              b.planKeyFor(priceID),
		PriceID:              priceID,
		StripeSubscriptionID: subID,
		UpdatedAt:            b.now(),
	}
	if err := b.store.UpsertSubscription(ctx, rec); err != nil {
		return err
	}
	b.log.Info("checkout completed", zap.String("user_id", userID), zap.String("plan", rec.PlanKey))
	return nil
}

// resolveUser prefers the user id stamped into metadata at checkout and
// falls back to the customer link.
func (b *StripeBilling) resolveUser(ctx context.Context, customerID string, meta map[string]string) (string, error) {
	if id := meta["user_id"]; id != "" {
		return id, nil
	}
	if customerID == "" {
		return "", errors.New("stripe event without customer")
	}
	id, err := b.store.FindUserByStripeCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no user for stripe customer %s", customerID)
	}
	return id, nil
}

// planKeyFor maps a price id to its plan. Unknown ids are kept verbatim so
// the evaluator treats them as an unmapped plan.
func (b *StripeBilling) planKeyFor(priceID string) string {
	if key, ok := b.catalog.PlanForPrice(priceID); ok {
		return string(key)
	}
	return priceID
}

// StripeProvider calls the live Stripe API with the package-level key.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (StripeProvider) CreateCustomer(ctx context.Context, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{"user_id": userID},
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (StripeProvider) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	meta := map[string]string{
		"user_id":  p.UserID,
		"plan":     string(p.Plan),
		"price_id": p.PriceID,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": p.UserID},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Metadata = meta
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := portal.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
