package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// MessageResponse is the envelope for every non-list response
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ErrorID string `json:"errorId,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteMessage writes a {success, message} envelope
func WriteMessage(w http.ResponseWriter, status int, success bool, message string, logger *slog.Logger) {
	WriteJSON(w, status, MessageResponse{Success: success, Message: message}, logger)
}

// WriteError writes a failed envelope
func WriteError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	WriteMessage(w, status, false, message, logger)
}

// WriteInternalError logs err under a fresh error id and returns that id to the caller
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger, msg string, args ...any) {
	errorID := uuid.NewString()

	attrs := append([]any{"error", err, "error_id", errorID, "method", r.Method, "path", r.URL.Path}, args...)
	logger.Error(msg, attrs...)

	WriteJSON(w, http.StatusInternalServerError, MessageResponse{
		Success: false,
		Message: "Internal server error",
		ErrorID: errorID,
	}, logger)
}
