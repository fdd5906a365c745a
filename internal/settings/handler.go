// Package settings serves the per-user completion API preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/auth"
	"github.com/ayush/pdf-chat/backend/internal/chat"
	"github.com/ayush/pdf-chat/backend/internal/httputil"
	"github.com/ayush/pdf-chat/backend/internal/models"
)

// Store persists settings per user.
type Store interface {
	GetSettings(ctx context.Context, userID string) (models.Settings, error)
	SaveSettings(ctx context.Context, userID string, st models.Settings) error
}

// KeyVerifier checks an API key against the provider.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, apiKey string) error
}

// Handler holds settings HTTP handlers.
type Handler struct {
	store    Store
	verifier KeyVerifier
	log      *zap.Logger
}

func NewHandler(store Store, verifier KeyVerifier, log *zap.Logger) *Handler {
	return &Handler{store: store, verifier: verifier, log: log}
}

type view struct {
	APIKey          string   `json:"api_key"`
	HasKey          bool     `json:"has_key"`
	Model           string   `json:"model"`
	SupportedModels []string `json:"supported_models"`
}

type updateRequest struct {
	APIKey *string `json:"api_key"`
	Model  string  `json:"model"`
}

type verifyRequest struct {
	APIKey string `json:"api_key"`
}

// MaskKey keeps the first 7 and last 4 characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 11 {
		return strings.Repeat("*", len(key))
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func toView(st models.Settings) view {
	model := st.Model
	if model == "" {
		model = chat.DefaultModel
	}
	return view{
		APIKey:          MaskKey(st.APIKey),
		HasKey:          st.HasKey(),
		Model:           model,
		SupportedModels: chat.SupportedModels,
	}
}

// Get returns the saved settings with the key masked.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	st, err := h.store.GetSettings(r.Context(), userID)
	if err != nil {
		h.log.Error("load settings", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(st))
}

// Update saves the key and model. An omitted api_key keeps the stored one;
// an empty string removes it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model != "" && !chat.IsSupportedModel(req.Model) {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported model")
		return
	}

	st, err := h.store.GetSettings(r.Context(), userID)
	if err != nil {
		h.log.Error("load settings", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	if req.APIKey != nil {
		st.APIKey = strings.TrimSpace(*req.APIKey)
	}
	if req.Model != "" {
		st.Model = req.Model
	}

	if err := h.store.SaveSettings(r.Context(), userID, st); err != nil {
		h.log.Error("save settings", zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(st))
}

// Verify tests the given key, or the saved one when the body has none.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req verifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		st, err := h.store.GetSettings(r.Context(), userID)
		if err != nil {
			h.log.Error("load settings", zap.String("user_id", userID), zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "database error")
			return
		}
		key = st.APIKey
	}
	if key == "" {
		httputil.WriteError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	err := h.verifier.VerifyKey(r.Context(), key)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"valid": true})
		return
	}

	var apiErr *chat.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"valid": false, "error": chat.UserMessage(chat.ErrAuth)})
		return
	}
	h.log.Warn("verify key", zap.Error(err))
	httputil.WriteError(w, http.StatusBadGateway, "could not reach OpenAI to verify the key")
}
