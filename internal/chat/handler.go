package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/auth"
	"github.com/ayush/pdf-chat/backend/internal/billing"
	"github.com/ayush/pdf-chat/backend/internal/document"
	"github.com/ayush/pdf-chat/backend/internal/httputil"
	"github.com/ayush/pdf-chat/backend/internal/models"
)

// multipart framing allowance on top of the file size cap
const formOverhead = 1 << 20

// Handler holds document and chat HTTP handlers.
type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Upload accepts a multipart "file" field and makes it the active document.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	limit := h.svc.MaxUploadBytes()

	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File size must be less than %dMB", limit>>20))
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "could not read file")
		return
	}

	res, err := h.svc.Upload(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// GetDocument returns the active document metadata.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	doc, err := h.svc.Document(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// DeleteDocument drops the active document and its conversation.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	if err := h.svc.Reset(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// DownloadPDF streams the original upload.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	data, doc, err := h.svc.PDF(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writePDF(w, data, doc.Filename, "inline")
}

// Ask answers one question.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model != "" && !IsSupportedModel(req.Model) {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported model")
		return
	}

	entry, err := h.svc.Ask(r.Context(), userID, req.Question, req.APIKey, req.Model)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// History returns the conversation log.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	entries, err := h.svc.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// Export downloads the conversation as a PDF.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	data, doc, err := h.svc.Export(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writePDF(w, data, "conversation-"+doc.Filename, "attachment")
}

// Suggestions lists starter questions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"questions": SuggestedQuestions()})
}

// Status reports whether an answer is being generated.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"busy": h.svc.Busy(userID)})
}

func writePDF(w http.ResponseWriter, data []byte, filename, disposition string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		denied *billing.EntitlementDenied
		model  *ModelError
	)
	switch {
	case errors.As(err, &denied):
		httputil.WriteJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":     denied.Error(),
			"dimension": denied.Dimension,
			"used":      denied.Used,
			"limit":     denied.Limit,
		})
	case errors.As(err, &model):
		status := http.StatusBadGateway
		if errors.Is(err, ErrAuth) {
			status = http.StatusBadRequest
		}
		httputil.WriteError(w, status, model.Error())
	case errors.Is(err, ErrBusy):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoDocument):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyQuestion), errors.Is(err, document.ErrNotPDF), errors.Is(err, document.ErrEmptyFile):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, document.ErrTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, document.ErrExtraction):
		httputil.WriteError(w, http.StatusUnprocessableEntity,
			"Could not read text from this PDF. Please upload a different file.")
	case errors.Is(err, ErrExportNotIncluded):
		httputil.WriteError(w, http.StatusPaymentRequired, err.Error())
	default:
		h.log.Error("chat request failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
