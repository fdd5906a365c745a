package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

const testSecret = "whsec_test"

type fakeBillingStore struct {
	customers map[string]string // user -> customer
	subs      map[string]*models.Subscription
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{customers: map[string]string{}, subs: map[string]*models.Subscription{}}
}

func (f *fakeBillingStore) GetStripeCustomerID(_ context.Context, userID string) (string, error) {
	return f.customers[userID], nil
}

func (f *fakeBillingStore) SetStripeCustomerID(_ context.Context, userID, customerID string) error {
	f.customers[userID] = customerID
	return nil
}

func (f *fakeBillingStore) FindUserByStripeCustomer(_ context.Context, customerID string) (string, error) {
	for u, c := range f.customers {
		if c == customerID {
			return u, nil
		}
	}
	return "", nil
}

func (f *fakeBillingStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	f.subs[sub.UserID] = sub
	return nil
}

type fakeProvider struct {
	created  int
	checkout CheckoutParams
}

func (f *fakeProvider) CreateCustomer(_ context.Context, userID string) (string, error) {
	f.created++
	return "cus_" + userID, nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, p CheckoutParams) (string, error) {
	f.checkout = p
	return "https://checkout.example/" + p.PriceID, nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func newTestBilling() (*StripeBilling, *fakeBillingStore, *fakeProvider) {
	st := newFakeBillingStore()
	p := &fakeProvider{}
	return NewStripeBilling(p, st, NewCatalog("price_premium", "price_pro"), testSecret, zap.NewNop()), st, p
}

func signed(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func subscriptionEvent(eventType, status, priceID string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": %q,
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"customer": "cus_u1",
			"status": %q,
			"current_period_end": 1893456000,
			"items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": %q, "object": "price"}}]}
		}}
	}`, eventType, status, priceID)
}

func TestStartCheckoutCreatesCustomerOnce(t *testing.T) {
	ctx := context.Background()
	b, st, p := newTestBilling()

	url, err := b.StartCheckout(ctx, "u1", PlanPremium, "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("StartCheckout error = %v", err)
	}
	if url != "https://checkout.example/price_premium" {
		t.Fatalf("url = %q", url)
	}
	if st.customers["u1"] != "cus_u1" {
		t.Fatalf("customer not stored: %v", st.customers)
	}

	if _, err := b.StartCheckout(ctx, "u1", PlanPro, "s", "c"); err != nil {
		t.Fatalf("second checkout error = %v", err)
	}
	if p.created != 1 {
		t.Fatalf("customers created = %d, want 1", p.created)
	}
	if p.checkout.PriceID != "price_pro" || p.checkout.UserID != "u1" {
		t.Fatalf("checkout params = %+v", p.checkout)
	}
}

func TestStartCheckoutRejectsFreeAndUnknown(t *testing.T) {
	b, _, _ := newTestBilling()
	for _, plan := range []PlanKey{PlanFree, "enterprise"} {
		if _, err := b.StartCheckout(context.Background(), "u1", plan, "s", "c"); !errors.Is(err, ErrUnknownPlan) {
			t.Errorf("plan %s: err = %v, want ErrUnknownPlan", plan, err)
		}
	}
}

func TestStartPortalRequiresCustomer(t *testing.T) {
	ctx := context.Background()
	b, st, _ := newTestBilling()

	if _, err := b.StartPortal(ctx, "u1", "https://app/settings"); !errors.Is(err, ErrNoCustomer) {
		t.Fatalf("err = %v, want ErrNoCustomer", err)
	}

	st.customers["u1"] = "cus_u1"
	url, err := b.StartPortal(ctx, "u1", "https://app/settings")
	if err != nil || url != "https://portal.example/cus_u1" {
		t.Fatalf("StartPortal = %q, %v", url, err)
	}
}

func TestHandleWebhookReconcilesSubscription(t *testing.T) {
	ctx := context.Background()
	b, st, _ := newTestBilling()
	st.customers["u1"] = "cus_u1"

	payload, sig := signed(t, subscriptionEvent("customer.subscription.updated", "active", "price_pro"))
	if err := b.HandleWebhook(ctx, payload, sig); err != nil {
		t.Fatalf("HandleWebhook error = %v", err)
	}

	got := st.subs["u1"]
	if got == nil {
		t.Fatal("subscription not stored")
	}
	if got.Status != "active" || got.PlanKey != string(PlanPro) || got.StripeSubscriptionID != "sub_1" {
		t.Fatalf("subscription = %+v", got)
	}
	if got.CurrentPeriodEnd.Unix() != 1893456000 {
		t.Fatalf("period end = %v", got.CurrentPeriodEnd)
	}
}

func TestHandleWebhookDeletedCancels(t *testing.T) {
	ctx := context.Background()
	b, st, _ := newTestBilling()
	st.customers["u1"] = "cus_u1"

	payload, sig := signed(t, subscriptionEvent("customer.subscription.deleted", "active", "price_premium"))
	if err := b.HandleWebhook(ctx, payload, sig); err != nil {
		t.Fatalf("HandleWebhook error = %v", err)
	}
	if st.subs["u1"].Status != "canceled" {
		t.Fatalf("status = %q, want canceled", st.subs["u1"].Status)
	}
}

func TestHandleWebhookKeepsUnknownPrice(t *testing.T) {
	ctx := context.Background()
	b, st, _ := newTestBilling()
	st.customers["u1"] = "cus_u1"

	payload, sig := signed(t, subscriptionEvent("customer.subscription.created", "active", "price_legacy"))
	if err := b.HandleWebhook(ctx, payload, sig); err != nil {
		t.Fatalf("HandleWebhook error = %v", err)
	}

	sub := st.subs["u1"]
	if sub.PlanKey != "price_legacy" {
		t.Fatalf("plan key = %q, want raw price id", sub.PlanKey)
	}
	ev := NewEvaluator(b.catalog)
	if ev.HasAccess(sub, models.AIResponses) || ev.LimitFor(sub, models.MonthlyUploads) != 0 {
		t.Fatal("unmapped active plan must grant nothing")
	}
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	ctx := context.Background()
	b, st, _ := newTestBilling()

	payload, sig := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"mode": "subscription",
			"customer": "cus_u9",
			"client_reference_id": "u9",
			"subscription": "sub_9",
			"metadata": {"price_id": "price_premium"}
		}}
	}`)
	if err := b.HandleWebhook(ctx, payload, sig); err != nil {
		t.Fatalf("HandleWebhook error = %v", err)
	}
	got := st.subs["u9"]
	if got == nil || got.PlanKey != string(PlanPremium) || got.Status != models.SubscriptionActive || got.StripeSubscriptionID != "sub_9" {
		t.Fatalf("subscription = %+v", got)
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	b, st, _ := newTestBilling()
	err := b.HandleWebhook(context.Background(), []byte(subscriptionEvent("customer.subscription.updated", "active", "price_pro")), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrSignature) {
		t.Fatalf("err = %v, want ErrSignature", err)
	}
	if len(st.subs) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	b, st, _ := newTestBilling()
	payload, sig := signed(t, `{"id":"evt_3","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)
	if err := b.HandleWebhook(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleWebhook error = %v", err)
	}
	if len(st.subs) != 0 {
		t.Fatal("nothing should be stored")
	}
}
