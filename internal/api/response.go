package api

import (
	"encoding/json"
	"net/http"
	"time"
)

const apiVersion = "1.0"

// SuccessResponse wraps the result of an operation.
type SuccessResponse struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success          bool             `json:"success"`
	Error            string           `json:"error"`
	ErrorDescription ErrorDescription `json:"error_description"`
	Metadata         ResponseMetadata `json:"metadata"`
}

// ErrorDescription represents the error details
type ErrorDescription struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ResponseMetadata represents the metadata for responses
type ResponseMetadata struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

func metadata(r *http.Request) ResponseMetadata {
	return ResponseMetadata{
		Version:   apiVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: RequestIDFrom(r.Context()),
	}
}

func writeSuccess(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success:  true,
		Data:     data,
		Metadata: metadata(r),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, appErr AppError) {
	writeJSON(w, appErr.StatusCode, ErrorResponse{
		Success: false,
		Error:   appErr.Code,
		ErrorDescription: ErrorDescription{
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Metadata: metadata(r),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}
