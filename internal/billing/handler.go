package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/auth"
	"github.com/ayush/pdf-chat/backend/internal/httputil"
	"github.com/ayush/pdf-chat/backend/internal/models"
)

const maxWebhookBytes = int64(65536)

// Handler holds plan and billing HTTP handlers.
type Handler struct {
	billing     *StripeBilling
	tracker     *Tracker
	subs        SubscriptionSource
	evaluator   *Evaluator
	frontendURL string
	log         *zap.Logger
}

func NewHandler(billing *StripeBilling, tracker *Tracker, subs SubscriptionSource, evaluator *Evaluator, frontendURL string, log *zap.Logger) *Handler {
	return &Handler{
		billing:     billing,
		tracker:     tracker,
		subs:        subs,
		evaluator:   evaluator,
		frontendURL: frontendURL,
		log:         log,
	}
}

// Plans lists the catalog.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.evaluator.Catalog().Ordered())
}

type statusResponse struct {
	Plan         PlanKey              `json:"plan"`
	Subscription *models.Subscription `json:"subscription"`
	Limits       []LimitStatus        `json:"limits"`
	Usage        models.UsageCounters `json:"usage"`
}

// Status returns the user's subscription, effective plan and limits.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	sub, err := h.subs.GetSubscription(r.Context(), userID)
	if err != nil {
		h.log.Error("load subscription", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	limits, err := h.tracker.CheckAll(r.Context(), userID)
	if err != nil {
		h.log.Error("check limits", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	usage, err := h.tracker.Usage(r.Context(), userID)
	if err != nil {
		h.log.Error("load usage", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}

	resp := statusResponse{Subscription: sub, Limits: limits, Usage: usage}
	if plan, ok := h.evaluator.PlanFor(sub); ok {
		resp.Plan = plan.Key
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type checkoutRequest struct {
	Plan PlanKey `json:"plan"`
}

// Checkout starts a subscription checkout and returns its URL.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := h.billing.StartCheckout(r.Context(), userID, req.Plan,
		h.frontendURL+"/billing/success", h.frontendURL+"/billing/cancel")
	if err != nil {
		h.writeError(w, err, userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal returns the billing portal URL.
func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	url, err := h.billing.StartPortal(r.Context(), userID, h.frontendURL+"/settings/billing")
	if err != nil {
		h.writeError(w, err, userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook receives provider events. It is public; the signature is the auth.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		switch {
		case errors.Is(err, ErrSignature):
			h.log.Warn("stripe webhook rejected", zap.Error(err))
			httputil.WriteError(w, http.StatusBadRequest, "signature verification failed")
		case errors.Is(err, ErrNotConfigured):
			httputil.WriteError(w, http.StatusServiceUnavailable, "webhook not configured")
		default:
			h.log.Error("stripe webhook failed", zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "webhook processing failed")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, ErrUnknownPlan):
		httputil.WriteError(w, http.StatusBadRequest, "invalid plan")
	case errors.Is(err, ErrNoCustomer):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotConfigured):
		httputil.WriteError(w, http.StatusServiceUnavailable, "billing not configured")
	default:
		h.log.Error("billing request failed", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "billing request failed")
	}
}
