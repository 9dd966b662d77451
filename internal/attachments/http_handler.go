package attachments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/open-erp/orderflow/internal/auth"
	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

type HTTPHandler struct {
	Service *AttachmentService
}

func NewHTTPHandler(service *AttachmentService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Upload handles POST /api/orders/{orderType}/{orderID}/attachments
func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderType := r.PathValue("orderType")
	orderID := r.PathValue("orderID")

	// Max memory 32MB
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, `{"error": "failed to parse form"}`, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error": "file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	attachment, err := h.Service.Attach(r.Context(), orderID, model.OrderType(orderType), actor.ActorID,
		header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if wferr.IsCode(err, wferr.CodeNotFound) {
			http.Error(w, `{"error": "order is not tracked"}`, http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "attachment upload failed", "orderId", orderID, "error", err)
		http.Error(w, `{"error": "upload failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(attachment)
}

// List handles GET /api/orders/{orderType}/{orderID}/attachments
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	orderType := r.PathValue("orderType")
	orderID := r.PathValue("orderID")

	results, err := h.Service.List(r.Context(), orderID, model.OrderType(orderType))
	if err != nil {
		slog.ErrorContext(r.Context(), "attachment listing failed", "orderId", orderID, "error", err)
		http.Error(w, `{"error": "failed to list attachments"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// Download handles GET /api/attachments/{key}
func (h *HTTPHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, `{"error": "key is required"}`, http.StatusBadRequest)
		return
	}

	reader, contentType, err := h.Service.Open(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error": "attachment not found"}`, http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	io.Copy(w, reader)
}
