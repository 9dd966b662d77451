package router

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/open-erp/orderflow/internal/wferr"
)

type errorResponse struct {
	Error string     `json:"error"`
	Code  wferr.Code `json:"code,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a workflow error to its HTTP status. Validation and
// authorization failures carry their specific reason to the caller;
// configuration problems are logged in full but surfaced generically so
// catalog internals never leak to end users.
func writeError(w http.ResponseWriter, err error) {
	code := wferr.CodeOf(err)
	switch code {
	case wferr.CodeValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: code})
	case wferr.CodeApprovalRequired:
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Code: code})
	case wferr.CodeNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: code})
	case wferr.CodeInvalidTransition, wferr.CodeConflict:
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: code})
	case wferr.CodeConfiguration:
		slog.Error("workflow configuration error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "workflow configuration error", Code: code})
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeBody decodes a JSON request body into dst. An empty body is
// allowed when allowEmpty is set.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return wferr.Validation("invalid request body: %v", err)
	}
	return nil
}

func pathOrderIdentity(r *http.Request) (string, string, error) {
	orderType := r.PathValue("orderType")
	orderID := r.PathValue("orderID")
	if orderType == "" || orderID == "" {
		return "", "", wferr.Validation("order type and order id are required in the path")
	}
	return orderID, orderType, nil
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, wferr.Validation("invalid %q query parameter, must be an integer", name)
	}
	return &value, nil
}
